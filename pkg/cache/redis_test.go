//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "covidchart:test:"})
	if err != nil {
		t.Fatalf("NewRedisCache() error: %v", err)
	}
	defer c.Close()
	defer c.Clear(ctx)

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Fatalf("Get() = %v, %v; want miss", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v" {
		t.Fatalf("Get() = %q, %v, %v", data, hit, err)
	}
	n, err := c.Clear(ctx)
	if err != nil || n != 1 {
		t.Errorf("Clear() = %d, %v; want 1", n, err)
	}
}
