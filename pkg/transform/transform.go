package transform

import (
	"sort"
	"time"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
)

// Point is one plotted point.
type Point struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	IsPeakMarker  bool    `json:"peak,omitempty"`
	IsSplitMarker bool    `json:"split,omitempty"`
}

// Plotted is one record after alignment and scaling.
type Plotted struct {
	Record series.Record
	Points []Point
	YRatio float64
	// Shift is the relative-axis offset of a prediction against the observed
	// series of its country. Always 0 on the calendar axis.
	Shift int
	// Aligned is false for a prediction whose dates share no start with the
	// plotted observed series of its country.
	Aligned bool
	// PeakX and SplitAt are set for predictions only.
	PeakX   *float64
	SplitAt *float64
}

// Key returns the record key.
func (p Plotted) Key() series.Key { return p.Record.Key() }

// Skipped is a record that produced nothing to plot.
type Skipped struct {
	Key series.Key
	Err error
}

// Result is the output of [Apply].
type Result struct {
	Series  []Plotted
	Skipped []Skipped
	// Bands holds the distinct positive split points of all plotted
	// predictions, sorted descending.
	Bands []float64
}

// Apply transforms resolved records for one render pass. recs may be in any
// order; the result keeps their order.
func Apply(recs []series.Record, opts Options) Result {
	opts.SetDefaults()

	var res Result

	// Observed series first: predictions align against the trimmed version.
	observed := make(map[string]*series.Observed)
	for _, rec := range recs {
		obs, ok := rec.(*series.Observed)
		if !ok {
			continue
		}
		if opts.IsRelative() {
			obs = Trim(obs, opts.Threshold)
		}
		if len(obs.Dates) == 0 {
			continue
		}
		observed[obs.CountryCode] = obs
	}

	refs := peakRefs(recs)
	splits := make(map[float64]bool)

	for _, rec := range recs {
		var (
			plotted Plotted
			err     error
		)
		switch r := rec.(type) {
		case *series.Observed:
			plotted, err = plotObserved(r, observed[r.CountryCode], refs, opts)
		case *series.Prediction:
			plotted, err = plotPrediction(r, observed[r.CountryCode], opts)
			if err == nil && plotted.SplitAt != nil && *plotted.SplitAt > 0 {
				splits[*plotted.SplitAt] = true
			}
		default:
			err = errors.New(errors.ErrCodeInternal, "unknown record type %T", rec)
		}
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Key: rec.Key(), Err: err})
			continue
		}
		res.Series = append(res.Series, plotted)
	}

	for v := range splits {
		res.Bands = append(res.Bands, v)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(res.Bands)))
	return res
}

func plotObserved(orig, trimmed *series.Observed, refs map[string]float64, opts Options) (Plotted, error) {
	if trimmed == nil {
		return Plotted{}, errors.New(errors.ErrCodeSeriesNotFound,
			"%s never reaches %v active cases", orig.Key(), opts.Threshold)
	}
	peak, ok := refs[orig.CountryCode]
	if !ok {
		peak = trimmed.Peak()
	}
	ratio, err := YRatio(opts.Scaling, orig.Population, peak)
	if err != nil {
		return Plotted{}, errors.Wrap(errors.ErrCodeDegenerateScaling, err, "scale %s", orig.Key())
	}
	ax := axis{relative: opts.IsRelative(), dates: trimmed.Dates}
	return Plotted{
		Record:  orig,
		Points:  points(ax, trimmed.Values, ratio, time.Time{}, time.Time{}),
		YRatio:  ratio,
		Aligned: true,
	}, nil
}

func plotPrediction(p *series.Prediction, obs *series.Observed, opts Options) (Plotted, error) {
	dates, values := p.Dates, p.Values
	shift, aligned := 0, true
	if opts.IsRelative() {
		dates, values, shift, aligned = Align(p, obs)
	}
	if len(dates) == 0 {
		return Plotted{}, errors.New(errors.ErrCodeSeriesNotFound, "%s ends before the plotted window", p.Key())
	}

	population := p.Population
	if population <= 0 && obs != nil {
		population = obs.Population
	}
	ratio, err := YRatio(opts.Scaling, population, p.PeakValue)
	if err != nil {
		return Plotted{}, errors.Wrap(errors.ErrCodeDegenerateScaling, err, "scale %s", p.Key())
	}

	ax := axis{relative: opts.IsRelative(), dates: dates, shift: shift}
	peakX := ax.atDate(p.PeakDate)
	splitAt := ax.atDate(p.PublishedDate)
	return Plotted{
		Record:  p,
		Points:  points(ax, values, ratio, p.PeakDate, p.PublishedDate),
		YRatio:  ratio,
		Shift:   shift,
		Aligned: aligned,
		PeakX:   &peakX,
		SplitAt: &splitAt,
	}, nil
}

// points builds the plotted points; zero peak/split dates place no marker.
func points(ax axis, values []float64, ratio float64, peak, split time.Time) []Point {
	peakX, splitX := -1.0, -1.0
	hasPeak, hasSplit := !peak.IsZero(), !split.IsZero()
	if hasPeak {
		peakX = ax.atDate(peak)
	}
	if hasSplit {
		splitX = ax.atDate(split)
	}

	out := make([]Point, len(values))
	for i, v := range values {
		x := ax.atIndex(i)
		out[i] = Point{
			X:             x,
			Y:             v * ratio,
			IsPeakMarker:  hasPeak && x == peakX,
			IsSplitMarker: hasSplit && x == splitX,
		}
	}
	return out
}
