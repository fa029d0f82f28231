package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response and chart cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response and chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.conf().Cache
			if cfg.Kind == config.CacheNone {
				printInfo("Cache is disabled")
				return nil
			}
			cc, err := config.OpenCache(ctx, cfg, "http")
			if err != nil {
				return err
			}
			defer cc.Close()

			var count int
			switch raw := cache.Unwrap(cc).(type) {
			case *cache.FileCache:
				count, err = raw.Clear()
				if err == nil {
					defer printDetail("Directory: %s", raw.Dir())
				}
			case *cache.RedisCache:
				count, err = raw.Clear(ctx)
			default:
				return fmt.Errorf("cache kind %q cannot be cleared", cfg.Kind)
			}
			if err != nil {
				return err
			}
			printSuccess("Cleared %d cached entries", count)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.conf().Cache
			switch cfg.Kind {
			case config.CacheRedis:
				fmt.Fprintf(stdout, "redis://%s/%d\n", cfg.RedisAddr, cfg.RedisDB)
				return nil
			case config.CacheNone:
				printInfo("Cache is disabled")
				return nil
			}
			dir := config.ExpandHome(cfg.Dir)
			if dir == "" {
				d, err := cache.DefaultDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				dir = d
			}
			fmt.Fprintln(stdout, dir)
			return nil
		},
	}
}
