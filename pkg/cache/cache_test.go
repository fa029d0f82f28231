package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/covidchart/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get() = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("Get() hit for a missing key")
	}

	if err := c.Set(ctx, "series:Italy/null", []byte(`{"a":1}`), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, hit, err := c.Get(ctx, "series:Italy/null")
	if err != nil || !hit || string(data) != `{"a":1}` {
		t.Fatalf("Get() = %q, %v, %v", data, hit, err)
	}

	if err := c.Delete(ctx, "series:Italy/null"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "series:Italy/null"); hit {
		t.Error("Get() hit after Delete")
	}
	if err := c.Delete(ctx, "series:Italy/null"); err != nil {
		t.Errorf("Delete() of a missing key = %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "key", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("Get() = %v, %v for an expired entry; want miss", hit, err)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("key")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "key"); hit || err != nil {
		t.Errorf("Get() = %v, %v for a corrupt entry; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry was not removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Fatalf("Clear() = %d, %v; want 3, nil", n, err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get() hit after Clear")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.HTTPKey("rest", "/covid19/rest/data/Italy"); got != "http:rest:/covid19/rest/data/Italy" {
		t.Errorf("HTTPKey() = %s", got)
	}

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Width: 800})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "png", Width: 800})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "staging:")

	if got := scoped.HTTPKey("rest", "x"); got != "staging:http:rest:x" {
		t.Errorf("HTTPKey() = %s", got)
	}
	if got := scoped.ArtifactKey("h", ArtifactKeyOpts{}); got[:17] != "staging:artifact:" {
		t.Errorf("ArtifactKey() = %s", got)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	if key := scoped.HTTPKey("test", "key"); key != "prefix:http:test:key" {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestInstrument(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := Instrument(fc, "http")

	c.Get(ctx, "k")
	c.Set(ctx, "k", []byte("v"), 0)
	c.Get(ctx, "k")

	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hits/misses/sets = %d/%d/%d, want 1/1/1", hooks.hits, hooks.misses, hooks.sets)
	}
}

func TestUnwrap(t *testing.T) {
	fc, _ := NewFileCache(t.TempDir())
	if got := Unwrap(Instrument(fc, "http")); got != Cache(fc) {
		t.Errorf("Unwrap(Instrument(fc)) = %T, want the file cache", got)
	}
	if got := Unwrap(fc); got != Cache(fc) {
		t.Errorf("Unwrap(fc) = %T", got)
	}
}
