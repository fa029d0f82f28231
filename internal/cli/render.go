package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/session"
	"github.com/matzehuels/covidchart/pkg/sink"
)

const (
	defaultOutput = "chart"
	defaultWait   = time.Minute
)

// Vintage shorthands accepted by --vintage.
const (
	vintageFirst  = "first"
	vintageLatest = "latest"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string        // output file, or base path for several formats
	formats string        // comma-separated output formats
	vintage string        // publish date, "first" or "latest"
	wait    time.Duration // how long to wait for fetches
	chart   chartFlags
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{wait: defaultWait}

	cmd := &cobra.Command{
		Use:   "render KEY...",
		Short: "Render a chart of observed cases and predictions",
		Long: `Render a chart of the selected series.

A key names a country's observed cases ("Italy") or one of its predictions
("Italy/bk_20200411"). With --vintage the predictions published on that date
are selected for every country in the selection.`,
		Example: `  covidchart render Italy Spain --vintage latest
  covidchart render Italy,Italy/bk_20200411 --axes log -f svg,png -o italy`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseKeys(args)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), sel, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, json (comma-separated)")
	cmd.Flags().StringVar(&opts.vintage, "vintage", "", "select predictions published on a date (YYYY-MM-DD), first or latest")
	cmd.Flags().DurationVar(&opts.wait, "wait", opts.wait, "how long to wait for the source")
	opts.chart.register(cmd)

	cmd.ValidArgsFunction = c.completeKeys
	return cmd
}

func (c *CLI) runRender(ctx context.Context, sel series.Selection, opts *renderOpts) error {
	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	popts := opts.chart.options(c.conf())
	popts.Formats = formats
	popts.Refresh = c.refresh
	if err := popts.ValidateForBuild(); err != nil {
		return err
	}

	sess, closeSess, err := c.newSession(ctx, popts)
	if err != nil {
		return err
	}
	defer closeSess()

	prog := newProgress(c.Logger)
	if err := sess.SetSelection(ctx, sel); err != nil {
		return err
	}
	if opts.vintage != "" {
		if err := c.selectVintage(ctx, sess, opts.vintage, opts.wait); err != nil {
			return err
		}
	}
	if err := c.settle(ctx, sess, opts.wait); err != nil {
		return err
	}

	res, err := sess.Render(ctx, formats...)
	if err != nil {
		return err
	}
	v, err := sess.View(ctx)
	if err != nil {
		return err
	}
	prog.done("Rendered", "series", res.Stats.Plotted, "formats", strings.Join(formats, ","))

	paths := outputPaths(opts.output, formats)
	for _, f := range formats {
		if err := writeFile(paths[f], res.Artifacts[f]); err != nil {
			return err
		}
	}
	printSuccess("Rendered %s", StyleHighlight.Render(res.Chart.Title))
	for _, f := range formats {
		printFile(paths[f])
	}
	printStats(res)
	printProblems(res, v.Failed)
	if v.Marks.Len() > 1 {
		printNextStep("Step through the prediction batches", appName+" explore "+strings.Join(v.Selection.Countries(), " "))
	}
	return nil
}

// selectVintage loads the vintage list and moves the session to value, which
// is a date, "first" or "latest".
func (c *CLI) selectVintage(ctx context.Context, sess *session.Session, value string, wait time.Duration) error {
	ts, err := vintageMillis(value)
	if err != nil {
		return err
	}
	if err := sess.LoadVintages(ctx); err != nil {
		return err
	}
	if err := c.settle(ctx, sess, wait); err != nil {
		return err
	}
	v, err := sess.View(ctx)
	if err != nil {
		return err
	}
	if v.Marks.Len() == 0 {
		return errors.New(errors.ErrCodeNotFound, "no predictions published for %s", strings.Join(v.Selection.Countries(), ", "))
	}
	if err := sess.SetVintage(ctx, ts); err != nil {
		return err
	}
	v, err = sess.View(ctx)
	if err != nil {
		return err
	}
	c.Logger.Debug("vintage", "date", time.UnixMilli(v.Vintage).UTC().Format(series.DateLayout))
	return nil
}

// vintageMillis parses a --vintage value. "first" and "latest" map to
// timestamps that snap to the first and last mark.
func vintageMillis(value string) (int64, error) {
	switch value {
	case vintageFirst:
		return 0, nil
	case vintageLatest:
		return series.Millis(time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)), nil
	}
	d, err := series.ParseDate(value)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid vintage %q (want YYYY-MM-DD, first or latest)", value)
	}
	return series.Millis(d), nil
}

// settle waits for in-flight fetches behind a spinner. Running out of wait
// time is logged and the chart is drawn with what arrived.
func (c *CLI) settle(ctx context.Context, sess *session.Session, wait time.Duration) error {
	v, err := sess.View(ctx)
	if err != nil {
		return err
	}
	if v.Pending == 0 {
		return nil
	}
	sp := newSpinner(ctx, fmt.Sprintf("Fetching %d series", v.Pending))
	sp.Start()
	defer sp.Stop()

	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	err = sess.Settle(wctx)
	if err == context.DeadlineExceeded && ctx.Err() == nil {
		c.Logger.Warn("source did not answer in time", "wait", wait)
		return nil
	}
	return err
}

// outputPaths maps each format to its file. A single format writes output
// as given; several formats share output's base name.
func outputPaths(output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := output
	if base == "" {
		base = defaultOutput
	}
	if ext := filepath.Ext(base); sink.ValidateFormat(strings.TrimPrefix(ext, ".")) == nil {
		base = strings.TrimSuffix(base, ext)
	}
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
