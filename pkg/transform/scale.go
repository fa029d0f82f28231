package transform

import (
	"math"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
)

// YRatio returns the factor every value of a series is multiplied by.
//
// For same-peak scaling, peak is the reference peak of the series: the
// observed maximum, or the peak of a selected prediction for the same
// country. A non-positive peak or population yields a DEGENERATE_SCALING
// error instead of an infinite ratio.
func YRatio(scaling Scaling, population, peak float64) (float64, error) {
	var ratio float64
	switch scaling {
	case ScalingAbsolute:
		return 1, nil
	case ScalingPerCapita:
		if population <= 0 {
			return 0, errors.New(errors.ErrCodeDegenerateScaling, "population %v cannot be used for per-capita scaling", population)
		}
		ratio = PerCapitaBase / population
	case ScalingSamePeak:
		if peak <= 0 {
			return 0, errors.New(errors.ErrCodeDegenerateScaling, "peak %v cannot be used for same-peak scaling", peak)
		}
		ratio = SamePeakHeight / peak
	default:
		return 0, ValidateScaling(scaling)
	}
	if math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return 0, errors.New(errors.ErrCodeDegenerateScaling, "%s ratio is not finite", scaling)
	}
	return ratio, nil
}

// peakRefs returns, per country, the prediction peak observed series scale to
// in same-peak mode. When several predictions of one country are selected the
// most recently published one wins; ties go to the greater id.
func peakRefs(recs []series.Record) map[string]float64 {
	latest := make(map[string]*series.Prediction)
	for _, rec := range recs {
		p, ok := rec.(*series.Prediction)
		if !ok {
			continue
		}
		cur, seen := latest[p.CountryCode]
		if !seen || p.PublishedDate.After(cur.PublishedDate) ||
			(p.PublishedDate.Equal(cur.PublishedDate) && p.PredictionID > cur.PredictionID) {
			latest[p.CountryCode] = p
		}
	}
	refs := make(map[string]float64, len(latest))
	for c, p := range latest {
		refs[c] = p.PeakValue
	}
	return refs
}
