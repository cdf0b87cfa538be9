package pricefeed

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/cache"
	"github.com/hetulpatel/trackledger/internal/logging"
)

// Cached serves rates from a shared cache and falls back to the wrapped feed
// on a miss. Cache failures are logged and treated as misses; a dead cache
// never makes a rate unavailable.
type Cached struct {
	feed  Feed
	cache cache.RateCache
}

func NewCached(feed Feed, rateCache cache.RateCache) *Cached {
	return &Cached{feed: feed, cache: rateCache}
}

func (c *Cached) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	pair := PairKey(base, quote)
	if rate, ok, err := c.cache.Get(ctx, pair); err != nil {
		logging.Warnf("[pricefeed] rate cache get %s: %v", pair, err)
	} else if ok {
		return rate, nil
	}

	rate, err := c.feed.Rate(ctx, base, quote)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := c.cache.Set(ctx, pair, rate); err != nil {
		logging.Warnf("[pricefeed] rate cache set %s: %v", pair, err)
	}
	return rate, nil
}
