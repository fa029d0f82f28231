// Package config loads the covidchart TOML configuration.
//
// The file lives at $XDG_CONFIG_HOME/covidchart/config.toml unless a path is
// given explicitly. Every key is optional:
//
//	[source]
//	kind = "rest"                  # rest, file or mongo
//	base_url = "http://localhost:5000"
//	path = "dataset.yaml"          # kind = "file"
//	mongo_uri = "mongodb://localhost:27017"
//	mongo_database = "covid19"
//
//	[cache]
//	kind = "file"                  # file, redis or none
//	dir = "~/.cache/covidchart"
//	redis_addr = "localhost:6379"
//	redis_db = 0
//	ttl = "6h"
//	scope = "staging"              # optional key prefix
//
//	[chart]
//	width = 1000
//	height = 600
//	date_layout = "2/1"
//	mark_layout = "1/2"
//	min_label_width = 30
//	palette = ["#1f77b4", "#ff7f0e"]
//
//	[server]
//	addr = ":8080"
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/sink"
	"github.com/matzehuels/covidchart/pkg/source/rest"
	"github.com/matzehuels/covidchart/pkg/timeline"
)

// Source kinds.
const (
	SourceREST  = "rest"
	SourceFile  = "file"
	SourceMongo = "mongo"
)

// Cache kinds.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// DefaultAddr is the address `serve` listens on.
const DefaultAddr = "localhost:8080"

// Config is the whole configuration file.
type Config struct {
	Source SourceConfig `toml:"source"`
	Cache  CacheConfig  `toml:"cache"`
	Chart  ChartConfig  `toml:"chart"`
	Server ServerConfig `toml:"server"`
}

// SourceConfig selects where series come from.
type SourceConfig struct {
	Kind          string        `toml:"kind"`
	BaseURL       string        `toml:"base_url"`
	Path          string        `toml:"path,omitempty"`
	MongoURI      string        `toml:"mongo_uri,omitempty"`
	MongoDatabase string        `toml:"mongo_database,omitempty"`
	Timeout       time.Duration `toml:"timeout"`
}

// CacheConfig selects where fetched responses and rendered charts are kept.
type CacheConfig struct {
	Kind      string        `toml:"kind"`
	Dir       string        `toml:"dir,omitempty"`
	RedisAddr string        `toml:"redis_addr,omitempty"`
	RedisDB   int           `toml:"redis_db,omitempty"`
	TTL       time.Duration `toml:"ttl"`
	// Scope prefixes every key, so deployments sharing one Redis stay apart.
	Scope string `toml:"scope,omitempty"`
}

// Keyer returns the cache keyer for the configured scope.
func (c CacheConfig) Keyer() cache.Keyer {
	if c.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Scope+":")
}

// ChartConfig holds chart defaults. Command-line flags override them.
type ChartConfig struct {
	Width         int      `toml:"width"`
	Height        int      `toml:"height"`
	DateLayout    string   `toml:"date_layout,omitempty"`
	TickLayout    string   `toml:"tick_layout,omitempty"`
	MarkLayout    string   `toml:"mark_layout,omitempty"`
	MinLabelWidth float64  `toml:"min_label_width,omitempty"`
	Palette       []string `toml:"palette,omitempty"`
}

// ServerConfig configures `serve`.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Source.Kind == "" {
		c.Source.Kind = SourceREST
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = rest.DefaultBaseURL
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 30 * time.Second
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = CacheFile
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.TTLSource
	}
	if c.Chart.Width == 0 {
		c.Chart.Width = sink.DefaultWidth
	}
	if c.Chart.Height == 0 {
		c.Chart.Height = sink.DefaultHeight
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
}

// Validate checks the configuration after [Config.SetDefaults].
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceREST:
		if err := errors.ValidateURL(c.Source.BaseURL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "source.base_url")
		}
	case SourceFile:
		if c.Source.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "source.path is required for kind %q", SourceFile)
		}
	case SourceMongo:
		if c.Source.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "source.mongo_uri is required for kind %q", SourceMongo)
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "source.kind must be rest, file or mongo, got %q", c.Source.Kind)
	}
	if c.Source.Timeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "source.timeout must not be negative")
	}

	switch c.Cache.Kind {
	case CacheFile, CacheRedis, CacheNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "cache.kind must be file, redis or none, got %q", c.Cache.Kind)
	}
	if c.Cache.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.ttl must not be negative")
	}
	if c.Cache.RedisDB < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_db must not be negative")
	}

	if c.Chart.Width < 0 || c.Chart.Height < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "chart size must not be negative")
	}
	if c.Chart.MinLabelWidth < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "chart.min_label_width must not be negative")
	}
	return nil
}

// Pipeline returns chart options seeded from the [chart] section.
func (c ChartConfig) Pipeline() pipeline.Options {
	return pipeline.Options{
		Width:      c.Width,
		Height:     c.Height,
		DateLayout: c.DateLayout,
		TickLayout: c.TickLayout,
		Palette:    c.Palette,
	}
}

// Timeline returns scrubber layout options from the [chart] section.
func (c ChartConfig) Timeline() timeline.Options {
	return timeline.Options{MinLabelWidth: c.MinLabelWidth, LabelLayout: c.MarkLayout}
}

// DefaultPath returns $XDG_CONFIG_HOME/covidchart/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "covidchart", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "covidchart", "config.toml"), nil
}

// Load reads the file at path. An empty path means [DefaultPath], which may
// be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return Default(), nil
		}
		path = p
	}

	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		if os.IsNotExist(err) {
			if explicit {
				return nil, errors.New(errors.ErrCodeNotFound, "config file %s not found", path)
			}
			return Default(), nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
