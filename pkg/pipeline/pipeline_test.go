package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/observability"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/source/sourcetest"
	"github.com/matzehuels/covidchart/pkg/transform"
)

func fixtureRepo(t *testing.T) series.Repository {
	t.Helper()
	ds := sourcetest.Dataset()
	vs, err := source.GroupVintages(ds.Predictions)
	if err != nil {
		t.Fatal(err)
	}
	repo := series.NewRepository().WithVintages(vs)
	for _, w := range ds.Series {
		rec, err := w.Record()
		if err != nil {
			t.Fatal(err)
		}
		repo = repo.With(rec)
	}
	return repo
}

func TestValidateFormats(t *testing.T) {
	tests := []struct {
		formats []string
		wantErr bool
	}{
		{[]string{"svg", "png"}, false},
		{[]string{"json"}, false},
		{nil, false},
		{[]string{"svg", "pdf"}, true},
		{[]string{"SVG"}, true}, // case-sensitive
	}

	for _, tt := range tests {
		err := ValidateFormats(tt.formats)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormats(%v) error = %v, wantErr %v", tt.formats, err, tt.wantErr)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Axis != DefaultAxis || opts.Scaling != DefaultScaling || opts.Axes != DefaultAxes {
		t.Errorf("defaults = %+v", opts)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != DefaultFormat {
		t.Errorf("formats = %v", opts.Formats)
	}
	if opts.Threshold != transform.DefaultThreshold || opts.Width == 0 || opts.Logger == nil {
		t.Errorf("defaults = %+v", opts)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"axis", Options{Axis: "sideways"}},
		{"scaling", Options{Scaling: "relative"}},
		{"axes", Options{Axes: "semilog"}},
		{"format", Options{Formats: []string{"gif"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.opts.ValidateAndSetDefaults(); err == nil {
				t.Errorf("ValidateAndSetDefaults() accepted %+v", tt.opts)
			}
		})
	}
}

func TestBuildReportsMissing(t *testing.T) {
	sel := series.NewSelection(
		series.ObservedKey("Italy"),
		series.PredictionKey("Italy", sourcetest.Late),
		series.ObservedKey("France"),
	)
	c, missing, err := Build(fixtureRepo(t), sel, Options{Axis: transform.AxisRelative})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(c.Series) != 2 {
		t.Errorf("series = %d, want 2", len(c.Series))
	}
	if len(missing) != 1 || missing[0] != series.ObservedKey("France") {
		t.Errorf("missing = %v, want [France/null]", missing)
	}
	if c.XAxis.Formatter != chart.FormatDay {
		t.Errorf("x formatter = %q, want day", c.XAxis.Formatter)
	}
}

func TestBuildRejectsBadOptions(t *testing.T) {
	_, _, err := Build(fixtureRepo(t), series.NewSelection(), Options{Scaling: "log"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Build() error = %v, want INVALID_INPUT", err)
	}
}

type pipelineRecorder struct {
	observability.NoopPipelineHooks
	builds, renders int
	missing         int
}

func (p *pipelineRecorder) OnResolve(_ context.Context, _, missing int) { p.missing += missing }
func (p *pipelineRecorder) OnBuildComplete(context.Context, int, int, time.Duration, error) {
	p.builds++
}
func (p *pipelineRecorder) OnRenderComplete(context.Context, []string, time.Duration, error) {
	p.renders++
}

func TestRunnerExecuteCachesArtifacts(t *testing.T) {
	rec := &pipelineRecorder{}
	observability.SetPipelineHooks(rec)
	t.Cleanup(observability.Reset)

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil, nil)
	defer runner.Close()

	repo := fixtureRepo(t)
	sel := series.NewSelection(series.ObservedKey("Spain"), series.PredictionKey("Spain", sourcetest.Early))
	opts := Options{Formats: []string{"json", "svg"}, Width: 400, Height: 300}

	first, err := runner.Execute(context.Background(), repo, sel, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if first.CacheInfo.RenderHit {
		t.Error("first Execute() should miss the artifact cache")
	}
	if len(first.Artifacts) != 2 || first.ChartHash == "" {
		t.Errorf("artifacts = %d, hash = %q", len(first.Artifacts), first.ChartHash)
	}

	second, err := runner.Execute(context.Background(), repo, sel, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !second.CacheInfo.RenderHit {
		t.Error("second Execute() should hit the artifact cache")
	}
	if string(second.Artifacts["svg"]) != string(first.Artifacts["svg"]) {
		t.Error("cached SVG differs from the rendered one")
	}

	opts.Refresh = true
	third, err := runner.Execute(context.Background(), repo, sel, opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if third.CacheInfo.RenderHit {
		t.Error("Execute() with Refresh should not hit the cache")
	}

	if rec.builds != 3 || rec.renders != 3 {
		t.Errorf("hooks saw %d builds, %d renders; want 3 each", rec.builds, rec.renders)
	}
}

func TestRunnerBuildHashIsStable(t *testing.T) {
	runner := NewRunner(nil, nil, nil)
	repo := fixtureRepo(t)
	a := series.NewSelection(series.ObservedKey("Italy"), series.ObservedKey("Spain"))
	b := series.NewSelection(series.ObservedKey("Spain"), series.ObservedKey("Italy"))

	ra, err := runner.Build(context.Background(), repo, a, Options{})
	if err != nil {
		t.Fatal(err)
	}
	rb, err := runner.Build(context.Background(), repo, b, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if ra.ChartHash != rb.ChartHash {
		t.Error("selection order changed the chart hash")
	}
}
