package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a [RedisCache].
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key.
	Prefix string
}

// RedisCache stores entries in Redis, letting several server instances share
// fetched series.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection with PING.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisCache{client: client, prefix: cfg.Prefix}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value; Redis expires it after ttl.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Clear deletes every key under the cache prefix and returns how many were
// removed. An empty prefix refuses to flush the whole database.
func (c *RedisCache) Clear(ctx context.Context) (int, error) {
	if c.prefix == "" {
		return 0, errors.New("redis cache without prefix cannot be cleared")
	}
	var count int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return count, err
		}
		count++
	}
	return count, iter.Err()
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
