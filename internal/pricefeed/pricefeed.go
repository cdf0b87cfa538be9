// Package pricefeed defines the rate lookup contract the valuation engine
// depends on. The live HTTP client lives outside this repo; what ships here
// are the interface and the decorators that keep lookups time-bounded and
// cached.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable is returned when a rate cannot be produced. Valuation
// treats it as a degraded, per-position condition, never a fatal one.
var ErrRateUnavailable = errors.New("pricefeed: rate unavailable")

// Feed resolves a spot conversion rate for a currency pair, e.g. ("ada",
// "usd") → 0.40.
type Feed interface {
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// FeedFunc adapts a function to the Feed interface.
type FeedFunc func(ctx context.Context, base, quote string) (decimal.Decimal, error)

func (f FeedFunc) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	return f(ctx, base, quote)
}

// PairKey canonicalizes a currency pair, e.g. "ada/usd".
func PairKey(base, quote string) string {
	return strings.ToLower(strings.TrimSpace(base)) + "/" + strings.ToLower(strings.TrimSpace(quote))
}

// Static serves fixed rates from a pair→rate map. Identity pairs resolve to 1
// without an entry. Used by the CLI (rates pinned via env) and in tests.
type Static map[string]decimal.Decimal

func (s Static) Rate(_ context.Context, base, quote string) (decimal.Decimal, error) {
	if strings.EqualFold(base, quote) {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := s[PairKey(base, quote)]; ok {
		return rate, nil
	}
	return decimal.Decimal{}, fmt.Errorf("%s: %w", PairKey(base, quote), ErrRateUnavailable)
}

// Bounded wraps a feed with a per-lookup timeout. A slow upstream degrades
// one position's valuation instead of blocking the rest.
type Bounded struct {
	feed    Feed
	timeout time.Duration
}

func NewBounded(feed Feed, timeout time.Duration) *Bounded {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bounded{feed: feed, timeout: timeout}
}

func (b *Bounded) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	rate, err := b.feed.Rate(ctx, base, quote)
	if err != nil {
		if errors.Is(err, ErrRateUnavailable) {
			return decimal.Decimal{}, err
		}
		return decimal.Decimal{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	return rate, nil
}
