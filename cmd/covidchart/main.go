package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/internal/cli"
	cerrors "github.com/matzehuels/covidchart/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		if code != 130 {
			fmt.Fprintln(os.Stderr, "covidchart:", err)
		}
		os.Exit(code)
	}
}

func run(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log fetches, cache hits and renders")

	// Runs before the config is loaded so loading itself is logged.
	loadConfig := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if loadConfig == nil {
			return nil
		}
		return loadConfig(cmd, args)
	}

	return root.ExecuteContext(ctx)
}

// exitCode is 130 on interrupt, 2 for bad input or config and 1 otherwise.
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	switch cerrors.GetCode(err) {
	case cerrors.ErrCodeInvalidInput, cerrors.ErrCodeInvalidConfig,
		cerrors.ErrCodeInvalidCountry, cerrors.ErrCodeInvalidSelection:
		return 2
	default:
		return 1
	}
}
