// Package pipeline provides the chart pipeline shared by the CLI, the server
// and the interactive explorer.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Build: resolve the selection against a repository snapshot, align and
//     scale the series, assign styles and assemble a [chart.Chart]
//  2. Render: write the chart as JSON, PNG or SVG
//
// Build is a pure function of its inputs and never fetches: missing keys are
// reported in [Result.Missing] so the caller (usually a session) can fetch
// them and build again. Render results are cached by chart content.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Axis:    transform.AxisRelative,
//	    Scaling: transform.ScalingPerCapita,
//	    Formats: []string{"svg"},
//	}
//	result, err := runner.Execute(ctx, repo, selection, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/resolve"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/sink"
	"github.com/matzehuels/covidchart/pkg/transform"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Explorer
// =============================================================================

const (
	// DefaultAxis is the default x axis mode.
	DefaultAxis = transform.AxisCalendar

	// DefaultScaling is the default y scaling.
	DefaultScaling = transform.ScalingAbsolute

	// DefaultAxes is the default scale of both axes.
	DefaultAxes = chart.AxesLinear

	// DefaultFormat is rendered when no format is requested.
	DefaultFormat = sink.FormatSVG
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the chart pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Transform options
	Axis      transform.AxisMode `json:"axis,omitempty"`
	Scaling   transform.Scaling  `json:"scaling,omitempty"`
	Threshold float64            `json:"threshold,omitempty"` // cases that start day 1 on the relative axis

	// Chart options
	Axes       chart.AxesType `json:"axes,omitempty"`
	TickLayout string         `json:"tick_layout,omitempty"`
	DateLayout string         `json:"date_layout,omitempty"`
	Palette    []string       `json:"palette,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
	Refresh bool     `json:"refresh,omitempty"` // ignore cached artifacts

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Chart is the assembled chart.
	Chart *chart.Chart

	// ChartHash is the content hash of the chart, used for artifact keys and
	// HTTP ETags.
	ChartHash string

	// Missing lists selected keys the repository does not hold yet.
	Missing []series.Key

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Selected   int
	Plotted    int
	Skipped    int
	BuildTime  time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := sink.ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetBuildDefaults sets default values for chart assembly.
func (o *Options) SetBuildDefaults() {
	if o.Axis == "" {
		o.Axis = DefaultAxis
	}
	if o.Scaling == "" {
		o.Scaling = DefaultScaling
	}
	if o.Threshold == 0 {
		o.Threshold = transform.DefaultThreshold
	}
	if o.Axes == "" {
		o.Axes = DefaultAxes
	}
	if o.TickLayout == "" {
		o.TickLayout = chart.DefaultTickLayout
	}
	if o.DateLayout == "" {
		o.DateLayout = chart.DefaultDateLayout
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForBuild validates and sets defaults for chart assembly.
func (o *Options) ValidateForBuild() error {
	o.SetBuildDefaults()
	if err := o.TransformOptions().Validate(); err != nil {
		return err
	}
	return chart.ValidateAxesType(o.Axes)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if o.Width == 0 {
		o.Width = sink.DefaultWidth
	}
	if o.Height == 0 {
		o.Height = sink.DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	return ValidateFormats(o.Formats)
}

// TransformOptions returns the options of the alignment stage.
func (o *Options) TransformOptions() transform.Options {
	return transform.Options{Axis: o.Axis, Scaling: o.Scaling, Threshold: o.Threshold}
}

// ChartOptions returns the options of the chart builder.
func (o *Options) ChartOptions() chart.Options {
	return chart.Options{Axes: o.Axes, TickLayout: o.TickLayout, DateLayout: o.DateLayout, Palette: o.Palette}
}

// SinkOptions returns the image size.
func (o *Options) SinkOptions() sink.Options {
	return sink.Options{Width: o.Width, Height: o.Height}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format, Width: o.Width, Height: o.Height}
}

// Build runs the build stage without caching or hooks.
func Build(repo series.Repository, sel series.Selection, opts Options) (*chart.Chart, []series.Key, error) {
	if err := opts.ValidateForBuild(); err != nil {
		return nil, nil, err
	}
	rs := resolve.New(nil).Resolve(sel, repo)
	res := transform.Apply(resolve.Records(rs), opts.TransformOptions())
	for _, s := range res.Skipped {
		opts.Logger.Debug("series skipped", "key", s.Key, "err", s.Err)
	}
	c := chart.NewBuilder(opts.ChartOptions()).Build(res, opts.TransformOptions())
	return c, resolve.MissingKeys(rs), nil
}

// Render writes c in every requested format without caching.
func Render(c *chart.Chart, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		data, err := sink.Render(c, format, opts.SinkOptions())
		if err != nil {
			return nil, err
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
