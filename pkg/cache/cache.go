// Package cache stores raw bytes under string keys with an optional TTL.
//
// The data sources cache REST responses and the pipeline caches rendered
// artifacts through the [Cache] interface. Three backends are provided:
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for the server
//   - [NullCache]: stores nothing, for tests and --no-cache
//
// Keys are built by a [Keyer] so every component agrees on naming.
// [Instrument] wraps a cache to report hits and misses to
// [observability.Cache].
package cache

import (
	"context"
	"time"
)

// Default lifetimes of cached entries.
const (
	// TTLSource bounds how stale a cached data source response may get. The
	// service publishes new data about once a day.
	TTLSource = 6 * time.Hour

	// TTLArtifact keeps rendered charts. Artifacts are keyed by the chart
	// content, so they never go stale.
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry. Implementations must be safe
// for concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported
	// as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// NullCache never stores anything; every Get misses. It backs --no-cache and
// tests that must always reach the data source.
type NullCache struct{}

// NewNullCache returns a [NullCache].
func NewNullCache() Cache { return NullCache{} }

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }
