package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis caches JSON-encoded values in a shared Redis instance, so resolution
// results survive restarts and are shared across replicas. Redis failures are
// logged and degrade to computing directly.
type Redis[V any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ Cache[string] = (*Redis[string])(nil)

func NewRedis[V any](client *redis.Client, prefix string, ttl time.Duration) *Redis[V] {
	return &Redis[V]{client: client, prefix: prefix, ttl: ttl}
}

func (c *Redis[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	fullKey := c.prefix + ":" + key

	data, err := c.client.Get(ctx, fullKey).Bytes()
	if err == nil {
		var value V
		if err := json.Unmarshal(data, &value); err == nil {
			c.hits.Add(1)
			return value, nil
		}
		slog.Warn("discarding undecodable cache entry", "key", fullKey)
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("cache lookup failed", "key", fullKey, "error", err)
	}
	c.misses.Add(1)

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	data, err = json.Marshal(value)
	if err != nil {
		slog.Warn("cache entry not encodable", "key", fullKey, "error", err)
		return value, nil
	}
	if err := c.client.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		slog.Warn("cache store failed", "key", fullKey, "error", err)
	}
	return value, nil
}

func (c *Redis[V]) Stats() Stats {
	// The database is shared with other caches, so count only our keys.
	ctx := context.Background()
	size := 0
	iter := c.client.Scan(ctx, 0, c.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		size++
	}
	if err := iter.Err(); err != nil {
		slog.Warn("cache size scan failed", "prefix", c.prefix, "error", err)
	}
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}
