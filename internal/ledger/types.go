package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/hashutil"
)

// Venue identifies the platform a transaction was executed on.
type Venue string

const (
	// VenueChain is the Cardano-native prediction market.
	VenueChain Venue = "chain"
	// VenueExchange is the centralized prediction-market exchange.
	VenueExchange Venue = "exchange"
)

// ParseVenue validates a venue string coming from an adapter payload.
func ParseVenue(s string) (Venue, error) {
	switch Venue(s) {
	case VenueChain, VenueExchange:
		return Venue(s), nil
	}
	return "", fmt.Errorf("unknown venue %q", s)
}

// Side is the economic action carried by a transaction. Amounts are always
// non-negative; the sign of the economic effect comes from the side.
type Side string

const (
	SideBuy        Side = "buy"
	SideSell       Side = "sell"
	SideSettlement Side = "settlement"
	SideFee        Side = "fee"
	SideTransfer   Side = "transfer"
)

// CurrencyUSD and CurrencyADA are the canonical counter currencies seen in
// practice. Counter currencies are stored lowercased.
const (
	CurrencyUSD   = "usd"
	CurrencyADA   = "ada"
	CurrencyShare = "share"
)

// TxRef qualifies an external id by its venue. External ids are only unique
// within one venue.
type TxRef struct {
	Venue      Venue  `json:"venue"`
	ExternalID string `json:"external_id"`
}

func (r TxRef) String() string {
	return fmt.Sprintf("%s:%s", r.Venue, r.ExternalID)
}

// Transaction is an atomic, immutable economic event after normalization.
type Transaction struct {
	ExternalID      string          `json:"external_id"`
	Venue           Venue           `json:"venue"`
	MarketLabel     string          `json:"market_label"`
	Side            Side            `json:"side"`
	AssetAmount     decimal.Decimal `json:"asset_amount"`
	AssetCurrency   string          `json:"asset_currency"`
	CounterAmount   decimal.Decimal `json:"counter_amount"`
	CounterCurrency string          `json:"counter_currency"`
	Timestamp       time.Time       `json:"timestamp"`
	// PositionID is empty while the transaction sits in the unassigned pool.
	PositionID string `json:"position_id,omitempty"`
}

// Ref returns the venue-qualified identity of the transaction.
func (t Transaction) Ref() TxRef {
	return TxRef{Venue: t.Venue, ExternalID: t.ExternalID}
}

// PayloadDigest hashes every payload field except PositionID. Two ingests of
// the same raw event must produce the same digest; a digest mismatch under the
// same (venue, external_id) is a data-quality conflict.
func (t Transaction) PayloadDigest() string {
	return hashutil.HashStrings(
		string(t.Venue),
		t.ExternalID,
		t.MarketLabel,
		string(t.Side),
		t.AssetAmount.String(),
		t.AssetCurrency,
		t.CounterAmount.String(),
		t.CounterCurrency,
		t.Timestamp.UTC().Format(time.RFC3339Nano),
	)
}

// Position groups transactions the operator believes represent one correlated
// bet, usually the same real-world event traded on both venues.
type Position struct {
	ID        string        `json:"position_id"`
	Name      string        `json:"name"`
	CreatedAt time.Time     `json:"created_at"`
	Members   []Transaction `json:"members,omitempty"`
}

// MemberRefs lists the venue-qualified ids of the member transactions.
func (p Position) MemberRefs() []TxRef {
	refs := make([]TxRef, 0, len(p.Members))
	for _, t := range p.Members {
		refs = append(refs, t.Ref())
	}
	return refs
}

// Correction is an operator-asserted true outcome for a position. It takes
// precedence over computed valuation figures. At most one correction is active
// per position; setting a new one replaces the old.
type Correction struct {
	PositionID        string          `json:"position_id"`
	AssertedProfitUSD decimal.Decimal `json:"asserted_profit_usd"`
	Note              string          `json:"note,omitempty"`
	AssertedAt        time.Time       `json:"asserted_at"`
}
