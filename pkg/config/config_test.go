package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/source/file"
	"github.com/matzehuels/covidchart/pkg/source/rest"
	"github.com/matzehuels/covidchart/pkg/source/sourcetest"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[source]
kind = "rest"
base_url = "http://predictions.example.com/"

[cache]
kind = "none"
ttl = "90m"

[chart]
width = 800
mark_layout = "2 Jan"
min_label_width = 40
palette = ["#000000", "#ffffff"]
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Source.BaseURL != "http://predictions.example.com/" {
		t.Errorf("base_url = %q", c.Source.BaseURL)
	}
	if c.Cache.Kind != CacheNone || c.Cache.TTL != 90*time.Minute {
		t.Errorf("cache = %+v", c.Cache)
	}
	if c.Chart.Width != 800 || c.Chart.Height == 0 {
		t.Errorf("chart size = %dx%d, want 800 and a default height", c.Chart.Width, c.Chart.Height)
	}
	if c.Server.Addr != DefaultAddr {
		t.Errorf("addr = %q, want default", c.Server.Addr)
	}

	po := c.Chart.Pipeline()
	if po.Width != 800 || len(po.Palette) != 2 {
		t.Errorf("Pipeline() = %+v", po)
	}
	to := c.Chart.Timeline()
	if to.MinLabelWidth != 40 || to.LabelLayout != "2 Jan" {
		t.Errorf("Timeline() = %+v", to)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without a file error: %v", err)
	}
	if c.Source.Kind != SourceREST || c.Cache.Kind != CacheFile {
		t.Errorf("defaults = %+v", c)
	}

	_, err = Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Load(explicit missing) = %v, want NOT_FOUND", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", `[source`},
		{"source kind", "[source]\nkind = \"ftp\""},
		{"file without path", "[source]\nkind = \"file\""},
		{"mongo without uri", "[source]\nkind = \"mongo\""},
		{"cache kind", "[cache]\nkind = \"memcached\""},
		{"negative size", "[chart]\nwidth = -1"},
		{"bad url", "[source]\nbase_url = \"ftp://x\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Load() = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	if err := Default().Encode(&buf); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	for _, want := range []string{"[source]", "[cache]", "[chart]", "[server]", rest.DefaultBaseURL} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("encoded config missing %q:\n%s", want, buf.String())
		}
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	c, err := OpenCache(ctx, CacheConfig{Kind: CacheNone}, "http")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("none cache = %T", c)
	}

	dir := t.TempDir()
	c, err = OpenCache(ctx, CacheConfig{Kind: CacheFile, Dir: dir}, "http")
	if err != nil {
		t.Fatalf("OpenCache(file) error: %v", err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(data) != "v" {
		t.Errorf("Get() = %q, %v, %v", data, ok, err)
	}
}

func TestOpenSource(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	if err := file.Write(path, sourcetest.Dataset()); err != nil {
		t.Fatal(err)
	}

	c := Default()
	c.Source = SourceConfig{Kind: SourceFile, Path: path}
	src, closeFn, err := OpenSource(ctx, c, SourceOptions{})
	if err != nil {
		t.Fatalf("OpenSource(file) error: %v", err)
	}
	defer closeFn()
	if _, ok := src.(*source.Memory); !ok {
		t.Errorf("file source = %T", src)
	}

	src, closeFn, err = OpenSource(ctx, Default(), SourceOptions{})
	if err != nil {
		t.Fatalf("OpenSource(rest) error: %v", err)
	}
	defer closeFn()
	if rc, ok := src.(*rest.Client); !ok || rc.BaseURL() != rest.DefaultBaseURL {
		t.Errorf("rest source = %T", src)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/test")
	if got := ExpandHome("~/data/x.yaml"); got != "/home/test/data/x.yaml" {
		t.Errorf("ExpandHome() = %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Errorf("ExpandHome(/abs) = %q", got)
	}
}

func TestCacheKeyer(t *testing.T) {
	if got := (CacheConfig{}).Keyer().HTTPKey("rest", "/x"); got != "http:rest:/x" {
		t.Errorf("unscoped HTTPKey() = %q", got)
	}
	if got := (CacheConfig{Scope: "staging"}).Keyer().HTTPKey("rest", "/x"); got != "staging:http:rest:/x" {
		t.Errorf("scoped HTTPKey() = %q", got)
	}
}
