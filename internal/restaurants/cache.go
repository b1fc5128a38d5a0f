package restaurants

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "restaurant:"

// Cache is a read-through Redis cache in front of a Source. Redis errors
// are logged and the Source is consulted directly.
type Cache struct {
	client *redis.Client
	source Source
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(client *redis.Client, source Source, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, source: source, ttl: ttl, logger: logger}
}

func cacheKey(id string) string { return cacheKeyPrefix + id }

func (c *Cache) Get(ctx context.Context, id string) (Restaurant, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case err == nil:
		var r Restaurant
		if err := json.Unmarshal(data, &r); err == nil {
			return r, nil
		}
		c.logger.Warn("dropping undecodable cache entry", zap.String("restaurant_id", id))
	case err != redis.Nil:
		c.logger.Warn("restaurant cache read failed", zap.String("restaurant_id", id), zap.Error(err))
	}

	r, err := c.source.Get(ctx, id)
	if err != nil {
		return Restaurant{}, err
	}
	if b, err := json.Marshal(r); err == nil {
		if err := c.client.Set(ctx, cacheKey(id), b, c.ttl).Err(); err != nil {
			c.logger.Warn("restaurant cache write failed", zap.String("restaurant_id", id), zap.Error(err))
		}
	}
	return r, nil
}

// Invalidate drops the cached copy of a listing.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}
