package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/buildinfo"
	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/config"
	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/session"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/transform"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "covidchart"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Set from persistent flags.
	configPath string
	noCache    bool
	refresh    bool

	cfg *config.Config
	// openSource is replaced in tests.
	openSource func(ctx context.Context) (source.Source, func(), error)
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	c.openSource = c.configuredSource
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Covidchart plots active COVID-19 cases against published predictions",
		Long: `Covidchart fetches observed active-case series and the predictions published
for them, aligns and scales them, and renders charts with a scrubber over the
prediction publish dates.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/covidchart/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the response cache")
	root.PersistentFlags().BoolVar(&c.refresh, "refresh", false, "refetch cached responses")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.vintagesCommand())
	root.AddCommand(c.timelineCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	if c.configPath != "" {
		c.Logger.Debug("config loaded", "path", c.configPath)
	}
	return nil
}

// conf returns the loaded configuration, or the defaults before loading.
func (c *CLI) conf() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Factories
// =============================================================================

// newCache opens the configured cache, or a null cache with --no-cache.
func (c *CLI) newCache(ctx context.Context, keyType string) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	return config.OpenCache(ctx, c.conf().Cache, keyType)
}

func (c *CLI) configuredSource(ctx context.Context) (source.Source, func(), error) {
	rc, err := c.newCache(ctx, "http")
	if err != nil {
		return nil, nil, err
	}
	src, closeSrc, err := config.OpenSource(ctx, c.conf(), config.SourceOptions{
		Cache:   rc,
		Refresh: c.refresh,
		Logger:  c.Logger,
	})
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	c.Logger.Debug("source", "kind", c.conf().Source.Kind)
	return src, func() {
		closeSrc()
		rc.Close()
	}, nil
}

// newRunner creates a pipeline runner with the artifact cache.
func (c *CLI) newRunner(ctx context.Context) (*pipeline.Runner, error) {
	ac, err := c.newCache(ctx, "artifact")
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(ac, c.conf().Cache.Keyer(), c.Logger), nil
}

// newSession opens the source and starts a session on it. The returned
// function closes both.
func (c *CLI) newSession(ctx context.Context, opts pipeline.Options) (*session.Session, func(), error) {
	src, closeSrc, err := c.openSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	runner, err := c.newRunner(ctx)
	if err != nil {
		closeSrc()
		return nil, nil, err
	}
	sess := session.New(session.Options{
		Source:   src,
		Runner:   runner,
		Pipeline: opts,
		Timeline: c.conf().Chart.Timeline(),
		Logger:   c.Logger,
	})
	return sess, func() {
		sess.Close()
		runner.Close()
		closeSrc()
	}, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// chartFlags are the chart options shared by render, explore and serve.
type chartFlags struct {
	axis      string
	scaling   string
	axes      string
	threshold float64
	width     int
	height    int
}

func (f *chartFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.axis, "axis", "", "x axis: calendar (default), relative")
	cmd.Flags().StringVar(&f.scaling, "scaling", "", "y scaling: absolute (default), per-capita, same-peak")
	cmd.Flags().StringVar(&f.axes, "axes", "", "axes scale: linear (default), log, loglog")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "cases that start day 1 on the relative axis")
	cmd.Flags().IntVar(&f.width, "width", 0, "image width in pixels")
	cmd.Flags().IntVar(&f.height, "height", 0, "image height in pixels")
}

// options layers the flags over the [chart] section of the config.
func (f *chartFlags) options(cfg *config.Config) pipeline.Options {
	opts := cfg.Chart.Pipeline()
	opts.Axis = transform.AxisMode(f.axis)
	opts.Scaling = transform.Scaling(f.scaling)
	opts.Axes = chart.AxesType(f.axes)
	opts.Threshold = f.threshold
	if f.width > 0 {
		opts.Width = f.width
	}
	if f.height > 0 {
		opts.Height = f.height
	}
	return opts
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseKeys parses command arguments into a selection. Each argument may
// itself be a comma-separated list.
func parseKeys(args []string) (series.Selection, error) {
	return series.ParseSelection(splitArgs(args))
}
