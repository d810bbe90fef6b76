// Package cache provides the optional Redis layer: a short-TTL cache for
// whole search results and a per-query scrape rate limiter.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"carscout/models"
	"carscout/utils"
)

const (
	resultTTL    = 10 * time.Minute
	rateLimitTTL = 5 * time.Minute
)

// RedisCache implements the orchestrator's ResultCache contract.
type RedisCache struct {
	client *redis.Client
	logger *utils.Logger
}

// NewRedisCache connects and pings; a dead Redis is reported so the
// caller can degrade to running without a cache.
func NewRedisCache(addr, password string, logger *utils.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}

	return &RedisCache{client: client, logger: logger}, nil
}

// Get returns a cached result for an identical query, if fresh.
func (r *RedisCache) Get(ctx context.Context, q models.SearchQuery) (*models.SearchResult, bool) {
	data, err := r.client.Get(ctx, queryKey(q)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("[cache] get failed: %v", err)
		return nil, false
	}

	var res models.SearchResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		r.logger.Warn("[cache] corrupt entry dropped: %v", err)
		return nil, false
	}
	return &res, true
}

// Set stores one search result under its query key.
func (r *RedisCache) Set(ctx context.Context, q models.SearchQuery, res *models.SearchResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("redis: marshal result: %w", err)
	}
	return r.client.Set(ctx, queryKey(q), data, resultTTL).Err()
}

// CanScrapeQuery is a simple rate-limit guard: true at most once per
// query per window.
func (r *RedisCache) CanScrapeQuery(ctx context.Context, q models.SearchQuery) bool {
	key := "ratelimit:" + queryKey(q)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return true // a broken limiter must not block searches
	}
	if count == 1 {
		r.client.Expire(ctx, key, rateLimitTTL)
	}
	return count == 1
}

// Close releases the underlying connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func queryKey(q models.SearchQuery) string {
	parts := []string{
		"search",
		strings.ToLower(q.Brand),
		strings.ToLower(q.Model),
		fmt.Sprintf("%d-%d", q.MinPrice, q.MaxPrice),
		fmt.Sprintf("%d-%d", q.MinYear, q.MaxMileage),
		q.ZipCode,
	}
	return strings.Join(parts, ":")
}
