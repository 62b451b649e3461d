// Package cache wraps the Redis client used for two small jobs: dropping
// the frontend's page cache after a collection run, and rate limiting the
// manual trigger endpoint. Redis is optional; without it both become no-ops
// (invalidation) or permissive (rate limiting).
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aitoolsdaily/collector/internal/config"
	"github.com/aitoolsdaily/collector/internal/logger"
)

// Client bundles the cache operations the pipeline and API use.
type Client struct {
	rdb    *redis.Client
	logger logger.Logger
}

// New connects to Redis, or returns a disabled client when no addr is
// configured.
func New(cfg config.RedisConfig, log logger.Logger) *Client {
	if cfg.Addr == "" {
		log.Info("Redis not configured, cache invalidation and rate limiting disabled")
		return &Client{logger: log}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{rdb: rdb, logger: log}
}

// Enabled reports whether a Redis connection is configured.
func (c *Client) Enabled() bool { return c.rdb != nil }

// Close releases the Redis connection.
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Ping checks the Redis connection for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// InvalidatePattern deletes every key matching pattern. Runs after a
// collection run so the frontend re-renders with the new tools. SCAN, not
// KEYS: the cache may be shared with latency-sensitive readers.
func (c *Client) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if c.rdb == nil || pattern == "" {
		return 0, nil
	}

	deleted := 0
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("delete cache key %q: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan cache keys: %w", err)
	}

	c.logger.Info("Cache invalidated",
		logger.String("pattern", pattern),
		logger.Int("keys", deleted),
	)
	return deleted, nil
}

// Allow implements a fixed-window rate limit for key. The first hit in a
// window sets the expiry; hits beyond limit are rejected until the window
// rolls over. Without Redis every request is allowed.
func (c *Client) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if c.rdb == nil || limit <= 0 {
		return true, nil
	}

	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}
