// Package report builds the read-only projections the dashboard consumes:
// positions with their valuations, the unassigned pool per venue, and the
// overall portfolio summary.
package report

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/pricefeed"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
	"github.com/hetulpatel/trackledger/internal/valuation"
)

type Service struct {
	store  *sqlite.Store
	engine *valuation.Engine
	feed   pricefeed.Feed
}

func NewService(store *sqlite.Store, engine *valuation.Engine, feed pricefeed.Feed) *Service {
	return &Service{store: store, engine: engine, feed: feed}
}

// PositionReport pairs a position with its derived valuation.
type PositionReport struct {
	Position  ledger.Position     `json:"position"`
	Valuation valuation.Valuation `json:"valuation"`
}

// Positions valuates every position. A price-feed failure degrades only the
// affected position's figures; the rest of the list is unaffected.
func (s *Service) Positions(ctx context.Context) ([]PositionReport, error) {
	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}

	out := make([]PositionReport, 0, len(positions))
	for _, pos := range positions {
		corr, err := s.store.GetCorrection(ctx, pos.ID)
		if err != nil {
			return nil, fmt.Errorf("correction for %s: %w", pos.ID, err)
		}
		out = append(out, PositionReport{
			Position:  pos,
			Valuation: s.engine.Valuate(ctx, pos, corr),
		})
	}
	return out, nil
}

// Position valuates a single position by id.
func (s *Service) Position(ctx context.Context, positionID string) (PositionReport, error) {
	pos, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return PositionReport{}, err
	}
	corr, err := s.store.GetCorrection(ctx, positionID)
	if err != nil {
		return PositionReport{}, fmt.Errorf("correction for %s: %w", positionID, err)
	}
	return PositionReport{Position: pos, Valuation: s.engine.Valuate(ctx, pos, corr)}, nil
}

// Unassigned lists the unassigned pool, optionally filtered by venue.
func (s *Service) Unassigned(ctx context.Context, venue ledger.Venue) ([]ledger.Transaction, error) {
	return s.store.ListUnassigned(ctx, venue)
}

// Summary is the portfolio-level view: cash on each venue plus the summed
// worst-case payout of open positions.
type Summary struct {
	CashUSD  decimal.Decimal `json:"cash_usd"`
	CashADA  decimal.Decimal `json:"cash_ada"`
	ADAPrice *decimal.Decimal `json:"ada_price_usd,omitempty"`

	// TotalCashUSD is nil when the ADA leg cannot be converted.
	TotalCashUSD *decimal.Decimal `json:"total_cash_usd,omitempty"`
	// OpenWorstCaseUSD sums worst-case payouts over positions where the
	// figure is computable.
	OpenWorstCaseUSD decimal.Decimal `json:"open_worst_case_usd"`
	// DegradedPositions counts positions whose scenario figures were
	// unavailable and are therefore missing from OpenWorstCaseUSD.
	DegradedPositions int `json:"degraded_positions,omitempty"`
	// TotalValueUSD is cash plus worst-case open value.
	TotalValueUSD *decimal.Decimal `json:"total_value_usd,omitempty"`
}

// Summarize computes the portfolio summary. Cash balances are operator
// inputs; the ledger does not track venue cash accounts.
func (s *Service) Summarize(ctx context.Context, cashUSD, cashADA decimal.Decimal) (Summary, error) {
	sum := Summary{CashUSD: cashUSD, CashADA: cashADA}

	reports, err := s.Positions(ctx)
	if err != nil {
		return Summary{}, err
	}
	for _, r := range reports {
		if r.Valuation.Settled {
			continue
		}
		if r.Valuation.WorstCasePayoutUSD == nil {
			sum.DegradedPositions++
			continue
		}
		sum.OpenWorstCaseUSD = sum.OpenWorstCaseUSD.Add(*r.Valuation.WorstCasePayoutUSD)
	}

	adaPrice, err := s.feed.Rate(ctx, ledger.CurrencyADA, ledger.CurrencyUSD)
	if err == nil {
		sum.ADAPrice = &adaPrice
		totalCash := cashUSD.Add(cashADA.Mul(adaPrice))
		sum.TotalCashUSD = &totalCash
		totalValue := totalCash.Add(sum.OpenWorstCaseUSD)
		sum.TotalValueUSD = &totalValue
	}
	return sum, nil
}
