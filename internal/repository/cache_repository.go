package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/crawdwall/capital-review-api/pkg/errors"
)

// CacheRepository wraps Redis for vote-summary caching and the admin OTP
// store. A nil client degrades to cache-miss behaviour so the service runs
// without Redis in development.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys, logging failures without surfacing them. Cache
// invalidation must never fail a business operation.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) {
	if r.client == nil || len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// SetString stores a raw string with TTL (used for OTP codes).
func (r *CacheRepository) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis unavailable")
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// GetString reads a raw string value.
func (r *CacheRepository) GetString(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrCacheMiss
	}
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Incr atomically increments a counter and returns the new value, applying
// the TTL on first increment (used for OTP attempt caps).
func (r *CacheRepository) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis unavailable")
	}
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	if count == 1 && ttl > 0 {
		_ = r.client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}
