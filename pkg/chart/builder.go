package chart

import (
	"sort"
	"strings"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/styles"
	"github.com/matzehuels/covidchart/pkg/transform"
)

// Chart text.
const (
	TitlePrefix = "Active cases and prediction for "

	XTitleRelative = "Day since relevant number of cases"
	XTitleCalendar = "Date"

	YTitleAbsolute  = "Active cases"
	YTitlePerCapita = "Active cases per 1,000,000 citizens"
	YTitleSamePeak  = "Active cases %"

	ObservedLabelPrefix = "Active cases for "
)

const (
	// DefaultTickLayout prints calendar ticks as "11 Apr".
	DefaultTickLayout = "2 Jan"
	// DefaultDateLayout prints dates in labels and tooltips.
	DefaultDateLayout = series.DateLayout
)

// Options configures a [Builder].
type Options struct {
	Axes       AxesType `json:"axes"`
	TickLayout string   `json:"tick_layout,omitempty"`
	DateLayout string   `json:"date_layout,omitempty"`
	Palette    []string `json:"palette,omitempty"`
}

// SetDefaults fills empty fields.
func (o *Options) SetDefaults() {
	if o.Axes == "" {
		o.Axes = AxesLinear
	}
	if o.TickLayout == "" {
		o.TickLayout = DefaultTickLayout
	}
	if o.DateLayout == "" {
		o.DateLayout = DefaultDateLayout
	}
}

// Builder turns transform results into charts.
type Builder struct {
	opts   Options
	styles *styles.Assigner
}

// NewBuilder returns a builder using opts.
func NewBuilder(opts Options) *Builder {
	opts.SetDefaults()
	return &Builder{opts: opts, styles: styles.NewAssigner(opts.Palette)}
}

// Build assembles the chart for res, which was computed with topts.
func (b *Builder) Build(res transform.Result, topts transform.Options) *Chart {
	topts.SetDefaults()

	c := &Chart{
		XAxis:  b.xAxis(topts),
		YAxis:  b.yAxis(topts),
		Bands:  bands(res.Bands),
		Series: make([]Series, 0, len(res.Series)),
	}

	plotted := append([]transform.Plotted(nil), res.Series...)
	sort.SliceStable(plotted, func(i, j int) bool { return plotted[i].Key().Less(plotted[j].Key()) })

	var names []string
	seen := make(map[string]bool)
	for _, p := range plotted {
		c.Series = append(c.Series, b.series(p))
		if name := p.Record.Name(); !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	c.Title = TitlePrefix + strings.Join(names, ", ")

	for _, s := range res.Skipped {
		// Missing data is dropped without a trace.
		if errors.Is(s.Err, errors.ErrCodeSeriesNotFound) {
			continue
		}
		c.Skipped = append(c.Skipped, Skipped{
			ID:      s.Key.String(),
			Code:    errors.GetCode(s.Err),
			Message: errors.UserMessage(s.Err),
		})
	}
	return c
}

func (b *Builder) series(p transform.Plotted) Series {
	rec := p.Record
	style := b.styles.For(rec.Country(), rec.Kind())
	return Series{
		ID:      rec.Key().String(),
		Country: rec.Country(),
		Kind:    rec.Kind(),
		Label:   b.Label(rec),
		Color:   style.Color,
		Dash:    style.Dash,
		Points:  append([]Point(nil), p.Points...),
		SplitAt: p.SplitAt,
		PeakX:   p.PeakX,
	}
}

// Label returns the legend text of rec. Prediction descriptions have their
// date placeholder replaced by the country and publish date.
func (b *Builder) Label(rec series.Record) string {
	switch r := rec.(type) {
	case *series.Observed:
		return ObservedLabelPrefix + r.Name()
	case *series.Prediction:
		tmpl := r.DescriptionTemplate
		if tmpl == "" {
			tmpl = "Prediction" + series.DatePlaceholder
		}
		return strings.ReplaceAll(tmpl, series.DatePlaceholder,
			", "+r.CountryCode+" "+r.PublishedDate.UTC().Format(b.opts.DateLayout))
	}
	return rec.Key().String()
}

func (b *Builder) xAxis(topts transform.Options) Axis {
	a := Axis{Type: ScaleLinear}
	if b.opts.Axes == AxesLogLog {
		a.Type = ScaleLog
	}
	if topts.IsRelative() {
		a.Title = XTitleRelative
		a.Formatter = FormatDay
	} else {
		a.Title = XTitleCalendar
		a.Formatter = FormatDate
		a.DateLayout = b.opts.TickLayout
	}
	return a
}

func (b *Builder) yAxis(topts transform.Options) Axis {
	a := Axis{Type: ScaleLinear, Formatter: FormatValue}
	if b.opts.Axes == AxesLog || b.opts.Axes == AxesLogLog {
		a.Type = ScaleLog
	}
	switch topts.Scaling {
	case transform.ScalingPerCapita:
		a.Title = YTitlePerCapita
	case transform.ScalingSamePeak:
		a.Title = YTitleSamePeak
		a.Formatter = FormatPercent
	default:
		a.Title = YTitleAbsolute
	}
	return a
}

// bands turns descending split boundaries into nested bands; the widest band
// comes first so later ones draw on top of it.
func bands(bounds []float64) []Band {
	out := make([]Band, len(bounds))
	for i, to := range bounds {
		idx := i % len(styles.BandPalette)
		out[i] = Band{From: 0, To: to, StyleIndex: idx, Color: styles.BandColor(i)}
	}
	return out
}
