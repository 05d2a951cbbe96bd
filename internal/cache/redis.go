package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/your-username/click-lite-reports/internal/models"
)

const resultPrefix = "clr:preview:"

// RedisCache stores preview results as JSON under "clr:preview:{key}" so
// several service instances share one cache.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing client
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: redis ping: %w", err)
	}
	return nil
}

// GetResult loads a cached result
func (c *RedisCache) GetResult(ctx context.Context, key string) (*models.QueryResult, bool, error) {
	data, err := c.rdb.Get(ctx, resultPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: redis get: %w", err)
	}

	var res models.QueryResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, false, fmt.Errorf("cache: decode result: %w", err)
	}
	return &res, true, nil
}

// SetResult stores a result with ttl
func (c *RedisCache) SetResult(ctx context.Context, key string, res *models.QueryResult, ttl time.Duration) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("cache: encode result: %w", err)
	}
	if err := c.rdb.Set(ctx, resultPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Clear deletes every cached result, leaving other keys alone
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, resultPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: redis scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}
