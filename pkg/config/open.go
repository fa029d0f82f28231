package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/httputil"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/source/file"
	"github.com/matzehuels/covidchart/pkg/source/mongo"
	"github.com/matzehuels/covidchart/pkg/source/rest"
)

// RedisPasswordEnv names the variable holding the Redis password. It is kept
// out of the config file.
const RedisPasswordEnv = "COVIDCHART_REDIS_PASSWORD"

// OpenCache returns the cache the [cache] section describes, instrumented
// under keyType.
func OpenCache(ctx context.Context, cfg CacheConfig, keyType string) (cache.Cache, error) {
	var c cache.Cache
	switch cfg.Kind {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: os.Getenv(RedisPasswordEnv),
			DB:       cfg.RedisDB,
			Prefix:   "covidchart:",
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, err, "open redis cache")
		}
		c = rc
	default:
		fc, err := cache.NewFileCache(ExpandHome(cfg.Dir))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "open file cache")
		}
		c = fc
	}
	return cache.Instrument(c, keyType), nil
}

// SourceOptions tune [OpenSource] beyond the file.
type SourceOptions struct {
	// Cache stores REST response bodies. Nil disables caching.
	Cache   cache.Cache
	Refresh bool
	Logger  *log.Logger
}

// OpenSource returns the source c.Source describes. The returned close
// function releases connections and is never nil.
func OpenSource(ctx context.Context, c *Config, opts SourceOptions) (source.Source, func(), error) {
	noop := func() {}
	cfg := c.Source
	switch cfg.Kind {
	case SourceFile:
		mem, err := file.Open(ExpandHome(cfg.Path))
		if err != nil {
			return nil, noop, err
		}
		return mem, noop, nil

	case SourceMongo:
		m, err := mongo.Connect(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase})
		if err != nil {
			return nil, noop, err
		}
		return m, func() { _ = m.Close(context.Background()) }, nil

	default:
		hc := httputil.NewClient()
		if cfg.Timeout > 0 {
			hc.Timeout = cfg.Timeout
		}
		client, err := rest.New(rest.Options{
			BaseURL:    cfg.BaseURL,
			Cache:      opts.Cache,
			Keyer:      c.Cache.Keyer(),
			TTL:        c.Cache.TTL,
			HTTPClient: hc,
			Logger:     opts.Logger,
			Refresh:    opts.Refresh,
		})
		if err != nil {
			return nil, noop, err
		}
		return client, noop, nil
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
