package transform

import (
	"math"
	"testing"
	"time"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
)

var d0 = series.MustParseDate("2020-03-01")

func day(i int) time.Time { return d0.Add(time.Duration(i) * series.Day) }

func days(start, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day(start + i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func observed(country string, start int, values []float64, population float64) *series.Observed {
	return &series.Observed{
		CountryCode: country,
		CountryName: country,
		Population:  population,
		Dates:       days(start, len(values)),
		Values:      values,
	}
}

// prediction starts on day start, is published on day published and peaks at
// the largest value.
func prediction(country, id string, start int, values []float64, published int) *series.Prediction {
	peak := 0
	for i, v := range values {
		if v > values[peak] {
			peak = i
		}
	}
	return &series.Prediction{
		CountryCode:         country,
		CountryName:         country,
		PredictionID:        id,
		PublishedDate:       day(published),
		LastDataDate:        day(published - 1),
		Dates:               days(start, len(values)),
		Values:              values,
		PeakDate:            day(start + peak),
		PeakValue:           values[peak],
		DescriptionTemplate: "Prediction" + series.DatePlaceholder,
	}
}

func findSeries(t *testing.T, res Result, k series.Key) Plotted {
	t.Helper()
	for _, p := range res.Series {
		if p.Key() == k {
			return p
		}
	}
	t.Fatalf("series %s not plotted (skipped: %v)", k, res.Skipped)
	return Plotted{}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTrim(t *testing.T) {
	obs := observed("Italy", 0, []float64{50, 80, 120, 130, 90}, 6e7)

	trimmed := Trim(obs, DefaultThreshold)
	if len(trimmed.Values) != 3 || trimmed.Values[0] != 120 {
		t.Fatalf("Trim() values = %v, want [120 130 90]", trimmed.Values)
	}
	if !trimmed.Dates[0].Equal(day(2)) {
		t.Errorf("Trim() first date = %s, want %s", trimmed.Dates[0], day(2))
	}
	if len(obs.Values) != 5 {
		t.Errorf("Trim() modified its input: %v", obs.Values)
	}

	again := Trim(trimmed, DefaultThreshold)
	if again != trimmed {
		t.Error("Trim() of a trimmed series should be a no-op")
	}

	low := Trim(observed("X", 0, []float64{1, 2, 3}, 1), DefaultThreshold)
	if len(low.Values) != 0 || len(low.Dates) != 0 {
		t.Errorf("Trim() of a series below threshold = %v, want empty", low.Values)
	}
}

func TestShift(t *testing.T) {
	obs := days(0, 20)

	tests := []struct {
		name      string
		pred      []time.Time
		wantShift int
		wantOK    bool
	}{
		{"same start", days(0, 10), 0, true},
		{"prediction starts later", days(5, 10), 5, true},
		{"prediction starts earlier", days(-5, 10), -5, true},
		{"disjoint", days(40, 10), 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shift, ok := Shift(tt.pred, obs)
			if shift != tt.wantShift || ok != tt.wantOK {
				t.Errorf("Shift() = %d, %v, want %d, %v", shift, ok, tt.wantShift, tt.wantOK)
			}
		})
	}
}

func TestApplyRelativeShiftAntisymmetric(t *testing.T) {
	obs := observed("X", 0, constant(30, 200), 1e6)
	opts := Options{Axis: AxisRelative}

	later := prediction("X", "later", 5, constant(30, 300), 10)
	res := Apply([]series.Record{obs, later}, opts)
	p := findSeries(t, res, later.Key())
	if p.Shift != 5 {
		t.Errorf("Shift = %d, want 5", p.Shift)
	}
	if p.Points[0].X != 6 {
		t.Errorf("first x = %v, want 6", p.Points[0].X)
	}

	earlier := prediction("X", "earlier", -5, constant(30, 300), 10)
	res = Apply([]series.Record{obs, earlier}, opts)
	p = findSeries(t, res, earlier.Key())
	o := findSeries(t, res, obs.Key())
	if p.Shift != 0 {
		t.Errorf("Shift = %d, want 0 after trimming", p.Shift)
	}
	if len(p.Points) != 25 {
		t.Errorf("len(points) = %d, want 25", len(p.Points))
	}
	if p.Points[0].X != 1 || o.Points[0].X != 1 {
		t.Errorf("first x = %v (prediction) and %v (observed), want 1", p.Points[0].X, o.Points[0].X)
	}
}

func TestApplyAlignmentMismatch(t *testing.T) {
	obs := observed("X", 0, constant(10, 200), 1e6)
	pred := prediction("X", "p", 40, constant(10, 300), 42)

	res := Apply([]series.Record{obs, pred}, Options{Axis: AxisRelative})
	p := findSeries(t, res, pred.Key())
	if p.Aligned {
		t.Error("Aligned = true for disjoint dates")
	}
	if p.Shift != 0 || p.Points[0].X != 1 {
		t.Errorf("Shift = %d, first x = %v, want 0 and 1", p.Shift, p.Points[0].X)
	}
}

func TestApplyStandalonePrediction(t *testing.T) {
	pred := prediction("X", "p", 3, constant(10, 300), 5)
	res := Apply([]series.Record{pred}, Options{Axis: AxisRelative})
	p := findSeries(t, res, pred.Key())
	if p.Shift != 0 || p.Points[0].X != 1 {
		t.Errorf("Shift = %d, first x = %v, want 0 and 1", p.Shift, p.Points[0].X)
	}
}

func TestApplyPerCapita(t *testing.T) {
	values := []float64{50, 80, 120, 150, 180, 210, 240, 270, 300, 330}
	italy := observed("Italy", 0, values, 60_000_000)

	res := Apply([]series.Record{italy}, Options{Scaling: ScalingPerCapita})
	p := findSeries(t, res, italy.Key())

	if !approx(p.YRatio, 1.0/60) {
		t.Errorf("YRatio = %v, want %v", p.YRatio, 1.0/60)
	}
	if !approx(p.Points[2].Y, 2.0) {
		t.Errorf("y[2] = %v, want 2.0", p.Points[2].Y)
	}
	if p.Points[2].X != float64(series.Millis(day(2))) {
		t.Errorf("x[2] = %v, want epoch millis of %s", p.Points[2].X, day(2))
	}
}

func TestApplyRelativeTrimsObserved(t *testing.T) {
	italy := observed("Italy", 0, []float64{50, 80, 120, 150, 180}, 60_000_000)

	res := Apply([]series.Record{italy}, Options{Axis: AxisRelative})
	p := findSeries(t, res, italy.Key())

	if len(p.Points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(p.Points))
	}
	if p.Points[0].X != 1 || p.Points[0].Y != 120 {
		t.Errorf("points[0] = %+v, want x=1 y=120", p.Points[0])
	}
	if p.Points[1].X != 2 || p.Points[1].Y != 150 {
		t.Errorf("points[1] = %+v, want x=2 y=150", p.Points[1])
	}
}

func TestApplyDropsObservedBelowThreshold(t *testing.T) {
	low := observed("X", 0, []float64{1, 2, 3}, 1e6)
	res := Apply([]series.Record{low}, Options{Axis: AxisRelative})
	if len(res.Series) != 0 {
		t.Fatalf("Series = %v, want none", res.Series)
	}
	if len(res.Skipped) != 1 || !errors.Is(res.Skipped[0].Err, errors.ErrCodeSeriesNotFound) {
		t.Errorf("Skipped = %v, want one SERIES_NOT_FOUND", res.Skipped)
	}
}

func TestApplyScalingIsLinear(t *testing.T) {
	base := []float64{100, 300, 700, 400}
	double := make([]float64, len(base))
	for i, v := range base {
		double[i] = 2 * v
	}

	for _, scaling := range []Scaling{ScalingAbsolute, ScalingPerCapita} {
		t.Run(string(scaling), func(t *testing.T) {
			a := findSeries(t, Apply([]series.Record{observed("X", 0, base, 1e7)}, Options{Scaling: scaling}), series.ObservedKey("X"))
			b := findSeries(t, Apply([]series.Record{observed("X", 0, double, 1e7)}, Options{Scaling: scaling}), series.ObservedKey("X"))
			for i := range a.Points {
				if !approx(b.Points[i].Y, 2*a.Points[i].Y) {
					t.Errorf("y[%d] = %v, want %v", i, b.Points[i].Y, 2*a.Points[i].Y)
				}
			}
		})
	}

	t.Run(string(ScalingSamePeak), func(t *testing.T) {
		for _, values := range [][]float64{base, double} {
			p := findSeries(t, Apply([]series.Record{observed("X", 0, values, 1e7)}, Options{Scaling: ScalingSamePeak}), series.ObservedKey("X"))
			top := 0.0
			for _, pt := range p.Points {
				top = max(top, pt.Y)
			}
			if !approx(top, SamePeakHeight) {
				t.Errorf("peak height = %v, want %v", top, SamePeakHeight)
			}
		}
	})
}

func TestApplySamePeakUsesPredictionPeak(t *testing.T) {
	obs := observed("X", 0, []float64{100, 200, 400}, 1e6)
	older := prediction("X", "a", 0, []float64{100, 800, 500}, 2)
	newer := prediction("X", "b", 0, []float64{100, 1000, 500}, 3)

	res := Apply([]series.Record{obs, older, newer}, Options{Scaling: ScalingSamePeak})

	o := findSeries(t, res, obs.Key())
	if !approx(o.YRatio, 100.0/1000) {
		t.Errorf("observed YRatio = %v, want ratio of the latest prediction peak %v", o.YRatio, 100.0/1000)
	}
	a := findSeries(t, res, older.Key())
	if !approx(a.YRatio, 100.0/800) {
		t.Errorf("prediction YRatio = %v, want own peak ratio %v", a.YRatio, 100.0/800)
	}
}

func TestApplyDegenerateScaling(t *testing.T) {
	tests := []struct {
		name    string
		rec     series.Record
		scaling Scaling
	}{
		{"same-peak zero", observed("X", 0, []float64{0, 0, 0}, 1e6), ScalingSamePeak},
		{"per-capita no population", observed("X", 0, []float64{1, 2}, 0), ScalingPerCapita},
		{"prediction zero peak", prediction("X", "p", 0, []float64{0, 0}, 1), ScalingSamePeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Apply([]series.Record{tt.rec}, Options{Scaling: tt.scaling})
			if len(res.Series) != 0 {
				t.Fatalf("Series = %d, want none", len(res.Series))
			}
			if len(res.Skipped) != 1 {
				t.Fatalf("Skipped = %v, want one", res.Skipped)
			}
			if !errors.Is(res.Skipped[0].Err, errors.ErrCodeDegenerateScaling) {
				t.Errorf("code = %v, want DEGENERATE_SCALING", errors.GetCode(res.Skipped[0].Err))
			}
		})
	}
}

func TestApplyMarkers(t *testing.T) {
	obs := observed("X", 0, []float64{100, 400, 900, 700}, 1e6)
	pred := prediction("X", "p", 0, []float64{100, 400, 900, 1200, 800, 300}, 2)

	for _, axis := range []AxisMode{AxisCalendar, AxisRelative} {
		t.Run(string(axis), func(t *testing.T) {
			res := Apply([]series.Record{obs, pred}, Options{Axis: axis})

			for _, pt := range findSeries(t, res, obs.Key()).Points {
				if pt.IsPeakMarker || pt.IsSplitMarker {
					t.Errorf("observed point %+v carries a marker", pt)
				}
			}

			p := findSeries(t, res, pred.Key())
			var peaks, splits int
			for i, pt := range p.Points {
				if pt.IsPeakMarker {
					peaks++
					if i != 3 || pt.X != *p.PeakX {
						t.Errorf("peak marker at %d (x=%v), want 3 (x=%v)", i, pt.X, *p.PeakX)
					}
				}
				if pt.IsSplitMarker {
					splits++
					if i != 2 || pt.X != *p.SplitAt {
						t.Errorf("split marker at %d (x=%v), want 2 (x=%v)", i, pt.X, *p.SplitAt)
					}
				}
			}
			if peaks != 1 || splits != 1 {
				t.Errorf("peak markers = %d, split markers = %d, want 1 and 1", peaks, splits)
			}
		})
	}
}

func TestApplyPeakTrimmedAway(t *testing.T) {
	obs := observed("X", 5, constant(10, 200), 1e6)
	// Peak on day 1, before the observed window starting on day 5.
	pred := prediction("X", "p", 0, []float64{100, 900, 300, 200, 150, 120, 110, 100}, 2)

	res := Apply([]series.Record{obs, pred}, Options{Axis: AxisRelative})
	p := findSeries(t, res, pred.Key())
	for _, pt := range p.Points {
		if pt.IsPeakMarker || pt.IsSplitMarker {
			t.Errorf("point %+v carries a marker for a trimmed date", pt)
		}
	}
	if len(res.Bands) != 0 {
		t.Errorf("Bands = %v, want none for a split before the plotted window", res.Bands)
	}
}

func TestApplyBands(t *testing.T) {
	a := prediction("X", "a", 0, constant(60, 100), 29)
	b := prediction("X", "b", 0, constant(60, 100), 44)
	c := prediction("Y", "c", 0, constant(60, 100), 44)

	res := Apply([]series.Record{a, b, c}, Options{Axis: AxisRelative})

	want := []float64{45, 30}
	if len(res.Bands) != len(want) {
		t.Fatalf("Bands = %v, want %v", res.Bands, want)
	}
	for i := range want {
		if res.Bands[i] != want[i] {
			t.Errorf("Bands[%d] = %v, want %v", i, res.Bands[i], want[i])
		}
	}
}

func TestApplyDoesNotMutateRecords(t *testing.T) {
	obs := observed("X", 0, []float64{50, 150, 250}, 1e6)
	pred := prediction("X", "p", -2, []float64{10, 20, 30, 40, 50}, 1)

	Apply([]series.Record{obs, pred}, Options{Axis: AxisRelative, Scaling: ScalingSamePeak})

	if len(obs.Values) != 3 || obs.Values[0] != 50 {
		t.Errorf("observed values mutated: %v", obs.Values)
	}
	if len(pred.Values) != 5 || pred.Values[0] != 10 {
		t.Errorf("prediction values mutated: %v", pred.Values)
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		opts    Options
		wantErr bool
	}{
		{Options{Axis: AxisCalendar, Scaling: ScalingAbsolute}, false},
		{Options{Axis: AxisRelative, Scaling: ScalingSamePeak, Threshold: 50}, false},
		{Options{Axis: "sideways", Scaling: ScalingAbsolute}, true},
		{Options{Axis: AxisCalendar, Scaling: "huge"}, true},
		{Options{Axis: AxisCalendar, Scaling: ScalingAbsolute, Threshold: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.opts.String(), func(t *testing.T) {
			err := tt.opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() code = %v, want INVALID_INPUT", errors.GetCode(err))
			}
		})
	}
}
