package reportcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pedrolmn/chess-report/config"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

// ErrCacheMiss indicates no cached value exists for the key.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores rendered report payloads keyed by report and selection.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	InvalidateReport(ctx context.Context, publicID string) error
	Close() error
}

// RedisCache is the go-redis backed implementation of Cache.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

// Key builds the cache key for a report payload under a color/time-control selection.
func Key(publicID, kind, color, timeControl string) string {
	if color == "" {
		color = "all"
	}
	if timeControl == "" {
		timeControl = "all"
	}
	return fmt.Sprintf("report:%s:%s:%s:%s", publicID, kind, color, timeControl)
}

// Get unmarshals the cached JSON value into dest.
func (c *RedisCache) Get(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("failed to get cached value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode cached value: %w", err)
	}
	return nil
}

// Set stores the value as JSON with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cached value: %w", err)
	}
	return nil
}

// InvalidateReport drops every cached payload for a report.
func (c *RedisCache) InvalidateReport(ctx context.Context, publicID string) error {
	pattern := fmt.Sprintf("report:%s:*", publicID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	c.logger.Debug("Invalidated report cache",
		attr.String("report_id", publicID),
		attr.Int("keys", len(keys)))
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoOpCache satisfies Cache when Redis is not configured.
type NoOpCache struct{}

func (NoOpCache) Get(ctx context.Context, key string, dest any) error { return ErrCacheMiss }
func (NoOpCache) Set(ctx context.Context, key string, value any) error {
	return nil
}
func (NoOpCache) InvalidateReport(ctx context.Context, publicID string) error { return nil }
func (NoOpCache) Close() error                                                { return nil }
