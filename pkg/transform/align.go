package transform

import (
	"time"

	"github.com/matzehuels/covidchart/pkg/series"
)

// Trim drops the leading days of obs before the first value reaching
// threshold. The returned series shares the underlying arrays with obs and
// must be treated as read-only. A series that never reaches threshold trims
// to zero points. Trimming a trimmed series is a no-op.
func Trim(obs *series.Observed, threshold float64) *series.Observed {
	start := len(obs.Values)
	for i, v := range obs.Values {
		if v >= threshold {
			start = i
			break
		}
	}
	if start == 0 {
		return obs
	}
	out := *obs
	out.Dates = obs.Dates[start:]
	out.Values = obs.Values[start:]
	return &out
}

// Shift returns how many days the prediction starts after the observed
// series: the index of pred[0] in obs, or minus the index of obs[0] in pred
// when the prediction starts first. ok is false when the two share no start
// date, in which case the shift is 0.
func Shift(pred, obs []time.Time) (shift int, ok bool) {
	if len(pred) == 0 || len(obs) == 0 {
		return 0, false
	}
	if i := series.IndexOfDate(obs, pred[0]); i >= 0 {
		return i, true
	}
	if i := series.IndexOfDate(pred, obs[0]); i >= 0 {
		return -i, true
	}
	return 0, false
}

// Align trims the prediction days that fall before the observed window and
// returns the remaining points with a non-negative shift. A nil obs means no
// observed series is plotted for the country and the prediction stands alone.
// ok is false when obs is given but shares no start date with the prediction.
func Align(p *series.Prediction, obs *series.Observed) (dates []time.Time, values []float64, shift int, ok bool) {
	if obs == nil {
		return p.Dates, p.Values, 0, true
	}
	shift, ok = Shift(p.Dates, obs.Dates)
	if shift >= 0 {
		return p.Dates, p.Values, shift, ok
	}
	cut := -shift
	return p.Dates[cut:], p.Values[cut:], 0, ok
}

// axis maps the dates of one plotted series to x values.
type axis struct {
	relative bool
	dates    []time.Time
	shift    int
}

// atIndex is the x of the i-th plotted point.
func (a axis) atIndex(i int) float64 {
	if a.relative {
		return float64(i + 1 + a.shift)
	}
	return float64(series.Millis(a.dates[i]))
}

// atDate is the x of d, which need not be a plotted date. On the relative
// axis, dates outside the plotted points are placed by day distance from the
// first plotted point, so a date trimmed away maps to x <= shift.
func (a axis) atDate(d time.Time) float64 {
	if !a.relative {
		return float64(series.Millis(d))
	}
	if i := series.IndexOfDate(a.dates, d); i >= 0 {
		return a.atIndex(i)
	}
	if len(a.dates) == 0 {
		return float64(1 + a.shift)
	}
	return float64(series.DaysBetween(a.dates[0], d) + 1 + a.shift)
}
