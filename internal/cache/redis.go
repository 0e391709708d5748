package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "fbetl:api:"

// Redis is a cache shared by every API replica. ETags are derived from the
// stored bytes, so replicas agree without storing them.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedis connects to url (redis://...) and pings it.
func NewRedis(ctx context.Context, url string, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisClient(client, logger), nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client, logger *slog.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

// Get treats any Redis error as a miss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, string, bool) {
	data, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis get failed", "key", key, "error", err)
		}
		return nil, "", false
	}
	return data, ComputeETag(data), true
}

// Set stores data for ttl. Write failures are logged; the response is still
// served.
func (c *Redis) Set(ctx context.Context, key string, data []byte, ttl time.Duration) string {
	if err := c.client.Set(ctx, redisPrefix+key, data, ttl).Err(); err != nil {
		c.logger.Warn("Redis set failed", "key", key, "error", err)
	}
	return ComputeETag(data)
}

// Flush deletes every key under the cache prefix.
func (c *Redis) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisPrefix+"*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return nil
}

// Stats reports the number of cached responses.
func (c *Redis) Stats(ctx context.Context) map[string]any {
	n := 0
	iter := c.client.Scan(ctx, 0, redisPrefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	stats := map[string]any{"backend": "redis", "enabled": true, "total_keys": n}
	if err := iter.Err(); err != nil {
		stats["error"] = err.Error()
	}
	return stats
}

// Close releases the client.
func (c *Redis) Close() error { return c.client.Close() }
