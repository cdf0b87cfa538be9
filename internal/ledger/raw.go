package ledger

import "time"

// RawChainTrade is one logical trade produced by the chain indexing adapter.
// The adapter has already paired the user action transaction with its batcher
// processing transaction; both hashes identify the logical trade.
type RawChainTrade struct {
	MarketName  string  `json:"market_name"`
	TradeType   string  `json:"trade_type"` // BUY | SELL | REDEEM
	Timestamp   int64   `json:"timestamp"`  // unix seconds, venue-reported
	ADAAmount   float64 `json:"ada_amount"`
	TokenName   string  `json:"token_name"`
	TokenAmount float64 `json:"token_amount"`
	TxHash1     string  `json:"tx_hash_1"`
	TxHash2     string  `json:"tx_hash_2,omitempty"`
}

// RawExchangeRow is one row of the exchange's exported trade history as the
// CSV adapter hands it over.
type RawExchangeRow struct {
	Hash        string  `json:"hash"`
	Timestamp   int64   `json:"timestamp"` // unix seconds, venue-reported
	MarketName  string  `json:"market_name"`
	Action      string  `json:"action"` // Buy | Sell | Redeem | Lost | Fee | Transfer
	TokenName   string  `json:"token_name,omitempty"`
	USDAmount   float64 `json:"usd_amount"`
	TokenAmount float64 `json:"token_amount"`
}

// RawEnvelope is the venue-tagged message adapters publish on the raw-event
// topics. Exactly one of Chain/Exchange is set, matching Venue.
type RawEnvelope struct {
	Venue      Venue           `json:"venue"`
	Chain      *RawChainTrade  `json:"chain,omitempty"`
	Exchange   *RawExchangeRow `json:"exchange,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Key returns a stable message key for the envelope, used for Kafka
// partitioning and log context.
func (e RawEnvelope) Key() string {
	switch {
	case e.Chain != nil:
		return string(e.Venue) + "-" + e.Chain.TxHash1
	case e.Exchange != nil:
		return string(e.Venue) + "-" + e.Exchange.Hash
	}
	return string(e.Venue)
}
