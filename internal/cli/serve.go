package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/internal/server"
	"github.com/matzehuels/covidchart/pkg/observability/prom"
)

// serveCommand serves a chart session over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		flags  chartFlags
		preset []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve charts over HTTP",
		Long: `Serve one chart session over HTTP. The selection and chart options are
changed through query parameters of /api/chart, /chart.svg and /chart.png;
Prometheus metrics are exposed at /metrics.`,
		Example: `  covidchart serve --addr :8080 --select Italy,Spain
  curl 'localhost:8080/chart.svg?select=Italy&vintage=2020-04-11'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.conf().Server.Addr
			}
			return c.runServe(cmd.Context(), addr, flags, preset)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+`"localhost:8080"`+")")
	cmd.Flags().StringSliceVar(&preset, "select", nil, "initial selection")
	flags.register(cmd)
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, flags chartFlags, preset []string) error {
	if _, err := prom.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	opts := flags.options(c.conf())
	if err := opts.ValidateForBuild(); err != nil {
		return err
	}
	sess, closeSess, err := c.newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer closeSess()

	if len(preset) > 0 {
		sel, err := parseKeys(preset)
		if err != nil {
			return err
		}
		if err := sess.SetSelection(ctx, sel); err != nil {
			return err
		}
	}
	if err := sess.LoadVintages(ctx); err != nil {
		return err
	}

	srv := server.New(server.Options{Session: sess, Logger: c.Logger})
	printInfo("Serving on %s", StyleLink.Render("http://"+addr))
	err = srv.ListenAndServe(ctx, addr)
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
