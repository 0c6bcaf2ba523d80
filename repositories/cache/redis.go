// Package cache stores ranked recommendations in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/upb/recipe-api/models"
	"github.com/upb/recipe-api/repositories"
)

const keyPrefix = "recipe-api:recommend:"

// RedisCache implements repositories.RecommendationCache on Redis
type RedisCache struct {
	client redis.UniversalClient
}

var _ repositories.RecommendationCache = (*RedisCache)(nil)

// NewRedisCache wraps a Redis client
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{client: client}
}

// Client returns the underlying client
func (c *RedisCache) Client() redis.UniversalClient {
	return c.client
}

// Get returns cached results for key
func (c *RedisCache) Get(ctx context.Context, key string) ([]models.ScoredRecipe, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var results []models.ScoredRecipe
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, false, fmt.Errorf("decode cached results: %w", err)
	}
	return results, true, nil
}

// Set stores results under key for ttl
func (c *RedisCache) Set(ctx context.Context, key string, results []models.ScoredRecipe, ttl time.Duration) error {
	raw, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Enabled always reports true
func (c *RedisCache) Enabled() bool {
	return true
}

// Close closes the client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Nop is a cache that never stores anything
type Nop struct{}

var _ repositories.RecommendationCache = Nop{}

func (Nop) Get(context.Context, string) ([]models.ScoredRecipe, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []models.ScoredRecipe, time.Duration) error { return nil }

func (Nop) Ping(context.Context) error { return nil }

func (Nop) Enabled() bool { return false }
