package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RateCache stores recent FX rates by canonical pair key (e.g. "ada/usd").
type RateCache interface {
	Get(ctx context.Context, pair string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, pair string, rate decimal.Decimal) error
	Close() error
}

type redisRateCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisRateCache(addr, password string, db int, ttl time.Duration, prefix string) (RateCache, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if prefix == "" {
		prefix = "fx_rate"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisRateCache{client: client, ttl: ttl, prefix: prefix}, nil
}

func (c *redisRateCache) key(pair string) string {
	return fmt.Sprintf("%s:%s", c.prefix, pair)
}

func (c *redisRateCache) Get(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	if c == nil || c.client == nil {
		return decimal.Decimal{}, false, nil
	}
	val, err := c.client.Get(ctx, c.key(pair)).Result()
	if err == redis.Nil {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, err
	}
	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("corrupt cached rate %q: %w", val, err)
	}
	return rate, true, nil
}

func (c *redisRateCache) Set(ctx context.Context, pair string, rate decimal.Decimal) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.key(pair), rate.String(), c.ttl).Err()
}

func (c *redisRateCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// NoopRateCache satisfies RateCache when no redis is configured.
type NoopRateCache struct{}

func (NoopRateCache) Get(context.Context, string) (decimal.Decimal, bool, error) {
	return decimal.Decimal{}, false, nil
}
func (NoopRateCache) Set(context.Context, string, decimal.Decimal) error { return nil }
func (NoopRateCache) Close() error                                       { return nil }
