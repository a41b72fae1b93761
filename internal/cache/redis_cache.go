package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Get when the key is absent or expired
var ErrNotFound = fmt.Errorf("key not found in cache")

// RedisCache stores serialized upstream payloads in Redis. Entries are
// immutable once written and silently superseded after their TTL, so
// concurrent writers for the same key are safe.
type RedisCache struct {
	client redis.UniversalClient
	logger zerolog.Logger
}

// RedisCacheConfig holds Redis cache configuration
type RedisCacheConfig struct {
	Addrs    []string // one address for a single node, several for a cluster
	Password string
	DB       int
}

// NewRedisCache creates a new Redis cache. The client mode is a
// deployment-time branch on the configured addresses: a single address gets
// a plain client, multiple addresses a cluster client.
func NewRedisCache(config RedisCacheConfig, logger zerolog.Logger) *RedisCache {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    config.Addrs,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisCache{
		client: client,
		logger: logger.With().Str("component", "redis_cache").Logger(),
	}
}

// Set stores a payload under key with the given expiration
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in Redis: %w", err)
	}

	c.logger.Debug().
		Str("key", key).
		Dur("ttl", ttl).
		Int("bytes", len(value)).
		Msg("cached payload")

	return nil
}

// Get retrieves a payload by key. Returns ErrNotFound for absent or
// expired keys.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get from Redis: %w", err)
	}

	return data, nil
}

// Incr increments a counter key and returns the new value, setting the
// expiration on first use. Used by the fixed-window rate limiter.
func (c *RedisCache) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to increment in Redis: %w", err)
	}

	return incr.Val(), nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
