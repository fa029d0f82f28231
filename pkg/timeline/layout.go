// Package timeline lays out the prediction-vintage scrubber.
//
// [Layout] turns the vintages relevant to the selected countries into tick
// marks and hides labels that would overlap at the scrubber's pixel width.
// [Scrubber] holds the current position on those marks and implements
// stepping and playback.
package timeline

import (
	"sort"

	"github.com/matzehuels/covidchart/pkg/series"
)

// MinLabelWidth is the horizontal space in pixels one visible label takes.
const MinLabelWidth = 30.0

// DefaultLabelLayout prints mark labels as "4/11".
const DefaultLabelLayout = "1/2"

// Mark is one scrubber position. A hidden mark keeps its tick but not its
// label text.
type Mark struct {
	Timestamp int64  `json:"timestamp"`
	Label     string `json:"label"`
	Visible   bool   `json:"visible"`
}

// Text returns the label to draw, empty for a hidden mark.
func (m Mark) Text() string {
	if !m.Visible {
		return ""
	}
	return m.Label
}

// Marks is the laid out scrubber, ordered by timestamp.
type Marks struct {
	Marks []Mark `json:"marks"`
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
}

// Len returns the number of marks.
func (m Marks) Len() int { return len(m.Marks) }

// Index returns the position of the mark at ts, or -1.
func (m Marks) Index(ts int64) int {
	i := sort.Search(len(m.Marks), func(i int) bool { return m.Marks[i].Timestamp >= ts })
	if i < len(m.Marks) && m.Marks[i].Timestamp == ts {
		return i
	}
	return -1
}

// Has reports whether ts is a mark.
func (m Marks) Has(ts int64) bool { return m.Index(ts) >= 0 }

// Offset maps ts linearly onto [0, width] between Min and Max.
func (m Marks) Offset(ts int64, width float64) float64 {
	if m.Max == m.Min {
		return 0
	}
	return float64(ts-m.Min) / float64(m.Max-m.Min) * width
}

// Options configures [Options.Layout].
type Options struct {
	// Width is the scrubber width in pixels; 0 means not measured yet.
	Width         float64
	MinLabelWidth float64
	LabelLayout   string
}

// Layout lays out vintages for countries at width pixels with default options.
func Layout(vintages []series.Vintage, countries []string, width float64) Marks {
	return Options{Width: width}.Layout(vintages, countries)
}

// Layout collects one mark per distinct publish date of the vintages that
// carry a prediction for at least one of countries, then hides labels that
// would overlap. The pass is greedy from left to right: a hidden label never
// affects later ones.
func (o Options) Layout(vintages []series.Vintage, countries []string) Marks {
	if o.MinLabelWidth <= 0 {
		o.MinLabelWidth = MinLabelWidth
	}
	if o.LabelLayout == "" {
		o.LabelLayout = DefaultLabelLayout
	}

	byTime := make(map[int64]Mark)
	for _, v := range relevant(vintages, countries) {
		ts := series.Millis(v.PublishedDate)
		if _, ok := byTime[ts]; ok {
			continue
		}
		label := v.Label
		if label == "" {
			label = v.PublishedDate.UTC().Format(o.LabelLayout)
		}
		byTime[ts] = Mark{Timestamp: ts, Label: label, Visible: true}
	}

	var out Marks
	if len(byTime) == 0 {
		return out
	}
	for _, m := range byTime {
		out.Marks = append(out.Marks, m)
	}
	sort.Slice(out.Marks, func(i, j int) bool { return out.Marks[i].Timestamp < out.Marks[j].Timestamp })
	out.Min = out.Marks[0].Timestamp
	out.Max = out.Marks[len(out.Marks)-1].Timestamp

	n := len(out.Marks)
	if o.Width <= 0 || n <= 2 {
		return out
	}
	perMark := o.Width / float64(n-1)
	if perMark >= o.MinLabelWidth {
		return out
	}
	lastRight := -o.MinLabelWidth
	for i := range out.Marks {
		edge := float64(out.Marks[i].Timestamp-out.Min)/float64(series.DayMillis)*perMark - perMark/2
		if edge <= lastRight {
			out.Marks[i].Visible = false
			continue
		}
		lastRight = edge + o.MinLabelWidth
	}
	return out
}

// relevant returns the vintages sorted by date that carry at least one of
// countries.
func relevant(vintages []series.Vintage, countries []string) []series.Vintage {
	var out []series.Vintage
	for _, v := range vintages {
		for _, c := range countries {
			if v.HasCountry(c) {
				out = append(out, v)
				break
			}
		}
	}
	series.SortVintages(out)
	return out
}

// ApplyVintage replaces the prediction keys of sel with the predictions
// published at ts for the countries sel already covers.
func ApplyVintage(sel series.Selection, vintages []series.Vintage, ts int64) series.Selection {
	countries := sel.Countries()
	next := sel.WithoutPredictions()
	for _, v := range vintages {
		if series.Millis(v.PublishedDate) != ts {
			continue
		}
		for _, c := range countries {
			if v.HasCountry(c) {
				next = next.Add(series.PredictionKey(c, v.ID))
			}
		}
	}
	return next
}
