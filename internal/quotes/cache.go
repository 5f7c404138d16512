package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss means no cached price exists for the symbol.
var ErrCacheMiss = errors.New("price not cached")

// Cache stores recently fetched prices so the provider is not hit on every
// holdings render.
type Cache interface {
	Get(ctx context.Context, symbol string) (float64, error)
	Set(ctx context.Context, symbol string, price float64) error
}

// RedisCache caches prices in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a price cache with the given entry lifetime.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func priceKey(symbol string) string {
	return fmt.Sprintf("stock:%s:price", symbol)
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (float64, error) {
	price, err := c.client.Get(ctx, priceKey(symbol)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cached price: %w", err)
	}
	return price, nil
}

func (c *RedisCache) Set(ctx context.Context, symbol string, price float64) error {
	if err := c.client.Set(ctx, priceKey(symbol), price, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache price: %w", err)
	}
	return nil
}

// NoopCache disables caching; every lookup goes to the provider.
type NoopCache struct{}

var _ Cache = (*NoopCache)(nil)

func (NoopCache) Get(context.Context, string) (float64, error) { return 0, ErrCacheMiss }
func (NoopCache) Set(context.Context, string, float64) error   { return nil }
