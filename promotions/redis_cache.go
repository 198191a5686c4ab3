package promotions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mytheresa/storefront-pricing/pricing"
)

const DefaultCacheKey = "storefront:promotions"

var _ pricing.RefreshingSource = (*RedisCache)(nil)

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCache shares the normalized promotion list between storefront
// instances so a fleet restart hits the promotions backend once per TTL.
// Redis trouble is logged and the wrapped source is used instead. It is a
// pricing.RefreshingSource, so forced reloads skip the shared entry.
type RedisCache struct {
	client RedisClient
	next   pricing.Source
	key    string
	ttl    time.Duration
}

func NewRedisCache(client RedisClient, next pricing.Source, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultCacheKey
	}
	return &RedisCache{client: client, next: next, key: key, ttl: ttl}
}

func (c *RedisCache) Fetch(ctx context.Context) ([]pricing.Promotion, error) {
	logger := zerolog.Ctx(ctx)

	raw, err := c.client.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var cached []pricing.Promotion
		jerr := json.Unmarshal(raw, &cached)
		if jerr == nil {
			return cached, nil
		}
		logger.Warn().Err(jerr).Str("key", c.key).Msg("discarding unreadable cached promotions")
	case errors.Is(err, redis.Nil):
	default:
		logger.Warn().Err(err).Str("key", c.key).Msg("promotion cache unavailable")
	}

	return c.Refresh(ctx)
}

// Refresh reads from the wrapped source without looking at Redis and
// rewrites the shared entry with the result.
func (c *RedisCache) Refresh(ctx context.Context) ([]pricing.Promotion, error) {
	promotions, err := c.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(promotions)
	if err != nil {
		return promotions, nil
	}
	if err := c.client.Set(ctx, c.key, payload, c.ttl).Err(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", c.key).Msg("could not store promotions in cache")
	}
	return promotions, nil
}

// Invalidate drops the shared entry so the next fetch goes to the backend.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
