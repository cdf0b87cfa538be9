// Package valuation computes per-position cost basis, realized PnL, and
// scenario (best/worst case) figures. The engine holds no persistent state:
// it is a pure function of a position's members, its optional correction, and
// an injected rate feed.
package valuation

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/logging"
	"github.com/hetulpatel/trackledger/internal/pricefeed"
)

// Scenario payouts assume chain-market shares redeem 1 ADA each, minus the
// venue's 2% redemption fee, and exchange shares redeem 1 USD each.
var chainWinFeeKeep = decimal.NewFromFloat(0.98)

// Valuation is the derived, non-persisted view of one position. Money fields
// are pointers: nil means the figure could not be computed, which for
// rate-dependent fields happens when the price feed is unavailable.
type Valuation struct {
	PositionID string `json:"position_id"`
	Name       string `json:"name"`

	// CostBasisUSD is buy cost plus fees minus realized sell proceeds.
	CostBasisUSD *decimal.Decimal `json:"cost_basis_usd,omitempty"`

	// Settled reports whether any member is a settlement transaction.
	Settled bool `json:"settled"`
	// RealizedPnLUSD is set once the market has resolved: settlement payouts
	// plus sell proceeds minus buys and fees.
	RealizedPnLUSD *decimal.Decimal `json:"realized_pnl_usd,omitempty"`

	// ActualProfitUSD is the authoritative figure: the operator-asserted
	// correction when one exists, otherwise the computed realized PnL. The
	// computed figures stay populated alongside so discrepancies are visible.
	ActualProfitUSD *decimal.Decimal   `json:"actual_profit_usd,omitempty"`
	Corrected       bool               `json:"corrected"`
	Correction      *ledger.Correction `json:"correction,omitempty"`

	NetChainShares    decimal.Decimal `json:"net_chain_shares"`
	NetExchangeShares decimal.Decimal `json:"net_exchange_shares"`

	// Scenario figures, populated only for unsettled positions. These are
	// explicit what-if payouts, not probability-weighted expectations.
	ChainWinPayoutUSD    *decimal.Decimal `json:"chain_win_payout_usd,omitempty"`
	ExchangeWinPayoutUSD *decimal.Decimal `json:"exchange_win_payout_usd,omitempty"`
	BestCasePayoutUSD    *decimal.Decimal `json:"best_case_payout_usd,omitempty"`
	WorstCasePayoutUSD   *decimal.Decimal `json:"worst_case_payout_usd,omitempty"`
	BestCasePnLUSD       *decimal.Decimal `json:"best_case_pnl_usd,omitempty"`
	WorstCasePnLUSD      *decimal.Decimal `json:"worst_case_pnl_usd,omitempty"`

	// RateUnavailable marks that a rate lookup failed and degraded one or
	// more figures for this position. Other positions are unaffected.
	RateUnavailable bool `json:"rate_unavailable,omitempty"`
}

type Engine struct {
	feed pricefeed.Feed
}

func NewEngine(feed pricefeed.Feed) *Engine {
	return &Engine{feed: feed}
}

// Valuate computes the valuation of one position. A failed rate lookup nils
// the affected figures and sets RateUnavailable; it never returns an error,
// so one dead currency pair cannot abort valuation of other positions.
func (e *Engine) Valuate(ctx context.Context, pos ledger.Position, corr *ledger.Correction) Valuation {
	v := Valuation{
		PositionID: pos.ID,
		Name:       pos.Name,
		Correction: corr,
	}

	conv := newConverter(ctx, e.feed)
	var buys, sells, settlements, fees decimal.Decimal
	flowOK := true
	settlementOK := true

	for _, t := range pos.Members {
		if t.Side == ledger.SideSettlement {
			v.Settled = true
		}
		usd, ok := conv.toUSD(t.CounterAmount, t.CounterCurrency)
		switch t.Side {
		case ledger.SideBuy:
			buys = buys.Add(usd)
			flowOK = flowOK && ok
		case ledger.SideSell:
			sells = sells.Add(usd)
			flowOK = flowOK && ok
		case ledger.SideSettlement:
			settlements = settlements.Add(usd)
			settlementOK = settlementOK && ok
		case ledger.SideFee:
			fees = fees.Add(usd)
			flowOK = flowOK && ok
		case ledger.SideTransfer:
			// cash movement between venues, no economic effect
		}

		shares := t.AssetAmount
		switch {
		case t.Side == ledger.SideBuy:
			// bought shares are held
		case t.Side == ledger.SideSell || t.Side == ledger.SideSettlement:
			shares = shares.Neg()
		default:
			continue
		}
		if t.Venue == ledger.VenueChain {
			v.NetChainShares = v.NetChainShares.Add(shares)
		} else {
			v.NetExchangeShares = v.NetExchangeShares.Add(shares)
		}
	}

	if flowOK {
		costBasis := buys.Add(fees).Sub(sells)
		v.CostBasisUSD = &costBasis
		if v.Settled && settlementOK {
			realized := settlements.Sub(costBasis)
			v.RealizedPnLUSD = &realized
		}
	}
	if !flowOK || (v.Settled && !settlementOK) {
		v.RateUnavailable = true
	}

	if !v.Settled {
		e.scenario(&v, conv)
	}

	if corr != nil {
		asserted := corr.AssertedProfitUSD
		v.ActualProfitUSD = &asserted
		v.Corrected = true
		if v.RealizedPnLUSD != nil && !v.RealizedPnLUSD.Equal(asserted) {
			logging.Debugf("[valuation] %s: corrected %s differs from computed %s",
				pos.ID, asserted, v.RealizedPnLUSD)
		}
	} else if v.RealizedPnLUSD != nil {
		v.ActualProfitUSD = v.RealizedPnLUSD
	}

	return v
}

// scenario fills the what-if payout fields for an unsettled position.
func (e *Engine) scenario(v *Valuation, conv *converter) {
	exchangeWin := v.NetExchangeShares
	v.ExchangeWinPayoutUSD = &exchangeWin

	var chainWin *decimal.Decimal
	if v.NetChainShares.IsZero() {
		zero := decimal.Zero
		chainWin = &zero
	} else if adaUSD, ok := conv.rate(ledger.CurrencyADA); ok {
		payout := v.NetChainShares.Mul(adaUSD).Mul(chainWinFeeKeep)
		chainWin = &payout
	} else {
		v.RateUnavailable = true
	}
	v.ChainWinPayoutUSD = chainWin

	if chainWin == nil {
		return
	}
	best, worst := *chainWin, exchangeWin
	if worst.GreaterThan(best) {
		best, worst = worst, best
	}
	v.BestCasePayoutUSD = &best
	v.WorstCasePayoutUSD = &worst
	if v.CostBasisUSD != nil {
		bestPnL := best.Sub(*v.CostBasisUSD)
		worstPnL := worst.Sub(*v.CostBasisUSD)
		v.BestCasePnLUSD = &bestPnL
		v.WorstCasePnLUSD = &worstPnL
	}
}

// converter memoizes rate lookups for the duration of one Valuate call so a
// position with many legs in the same currency costs at most one feed hit.
type converter struct {
	ctx    context.Context
	feed   pricefeed.Feed
	rates  map[string]decimal.Decimal
	failed map[string]bool
}

func newConverter(ctx context.Context, feed pricefeed.Feed) *converter {
	return &converter{
		ctx:    ctx,
		feed:   feed,
		rates:  make(map[string]decimal.Decimal),
		failed: make(map[string]bool),
	}
}

func (c *converter) toUSD(amount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	if currency == ledger.CurrencyUSD {
		return amount, true
	}
	rate, ok := c.rate(currency)
	if !ok {
		return decimal.Decimal{}, false
	}
	return amount.Mul(rate), true
}

func (c *converter) rate(currency string) (decimal.Decimal, bool) {
	if rate, ok := c.rates[currency]; ok {
		return rate, true
	}
	if c.failed[currency] {
		return decimal.Decimal{}, false
	}
	rate, err := c.feed.Rate(c.ctx, currency, ledger.CurrencyUSD)
	if err != nil {
		if !errors.Is(err, pricefeed.ErrRateUnavailable) {
			logging.Errorf("[valuation] rate %s/usd: %v", currency, err)
		}
		c.failed[currency] = true
		return decimal.Decimal{}, false
	}
	c.rates[currency] = rate
	return rate, true
}
