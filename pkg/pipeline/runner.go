package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/observability"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/sink"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete build → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, repo series.Repository, sel series.Selection, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result, err := r.Build(ctx, repo, sel, opts)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, result.Chart, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Build assembles the chart of sel from repo and reports the build to
// [observability.Pipeline].
func (r *Runner) Build(ctx context.Context, repo series.Repository, sel series.Selection, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	hooks := observability.Pipeline()
	start := time.Now()

	c, missing, err := Build(repo, sel, opts)
	if err != nil {
		hooks.OnBuildComplete(ctx, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnResolve(ctx, sel.Len(), len(missing))

	result := &Result{
		Chart:   c,
		Missing: missing,
		Stats: Stats{
			Selected:  sel.Len(),
			Plotted:   len(c.Series),
			Skipped:   len(c.Skipped),
			BuildTime: time.Since(start),
		},
	}
	if data, err := sink.JSON(c); err == nil {
		result.ChartHash = cache.Hash(data)
	}
	hooks.OnBuildComplete(ctx, result.Stats.Plotted, result.Stats.Skipped, result.Stats.BuildTime, nil)

	r.Logger.Debug("built chart",
		"selected", result.Stats.Selected,
		"series", result.Stats.Plotted,
		"skipped", result.Stats.Skipped,
		"missing", len(missing),
		"duration", result.Stats.BuildTime)
	return result, nil
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, c *chart.Chart, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	data, err := sink.JSON(c)
	if err != nil {
		hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
		return nil, false, err
	}
	chartHash := cache.Hash(data)

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(chartHash, opts.ArtifactKeyOpts(format))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
			return artifacts, true, nil
		}
	}

	rendered, err := Render(c, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(chartHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache artifact", "format", format, "err", err)
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, c *chart.Chart, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, c, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
