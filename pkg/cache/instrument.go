package cache

import (
	"context"
	"time"

	"github.com/matzehuels/covidchart/pkg/observability"
)

// instrumented reports hits, misses and writes to the registered cache hooks.
type instrumented struct {
	Cache
	keyType string
}

// Instrument wraps c so every operation is reported to
// [observability.Cache] under keyType (for example "http" or "artifact").
func Instrument(c Cache, keyType string) Cache {
	return &instrumented{Cache: c, keyType: keyType}
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if err == nil {
		if ok {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, ok, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	}
	return err
}

// Unwrap returns the cache c instruments, or c itself.
func Unwrap(c Cache) Cache {
	if ic, ok := c.(*instrumented); ok {
		return ic.Cache
	}
	return c
}
