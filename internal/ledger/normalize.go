package ledger

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalize maps a venue-tagged raw envelope into the canonical transaction
// shape. It is a pure function: no I/O, deterministic output for identical
// input. Venue-specific field names never leak past this boundary.
func Normalize(env RawEnvelope) (Transaction, error) {
	switch env.Venue {
	case VenueChain:
		if env.Chain == nil {
			return Transaction{}, normErr(VenueChain, "chain", "missing chain payload")
		}
		return NormalizeChainTrade(*env.Chain)
	case VenueExchange:
		if env.Exchange == nil {
			return Transaction{}, normErr(VenueExchange, "exchange", "missing exchange payload")
		}
		return NormalizeExchangeRow(*env.Exchange)
	}
	return Transaction{}, normErr(env.Venue, "venue", "unknown venue")
}

// NormalizeChainTrade converts a paired on-chain trade into a canonical
// transaction. The logical trade is identified by its two transaction hashes.
func NormalizeChainTrade(raw RawChainTrade) (Transaction, error) {
	if raw.TxHash1 == "" {
		return Transaction{}, normErr(VenueChain, "tx_hash_1", "required")
	}
	if raw.MarketName == "" {
		return Transaction{}, normErr(VenueChain, "market_name", "required")
	}
	if raw.Timestamp <= 0 {
		return Transaction{}, normErr(VenueChain, "timestamp", "must be a positive unix time")
	}

	side, err := chainSide(raw.TradeType)
	if err != nil {
		return Transaction{}, err
	}
	tokenAmount, err := amount(VenueChain, "token_amount", raw.TokenAmount)
	if err != nil {
		return Transaction{}, err
	}
	adaAmount, err := amount(VenueChain, "ada_amount", raw.ADAAmount)
	if err != nil {
		return Transaction{}, err
	}

	externalID := raw.TxHash1
	if raw.TxHash2 != "" {
		externalID += "+" + raw.TxHash2
	}
	asset := raw.TokenName
	if asset == "" {
		asset = CurrencyShare
	}

	return Transaction{
		ExternalID:      externalID,
		Venue:           VenueChain,
		MarketLabel:     raw.MarketName,
		Side:            side,
		AssetAmount:     tokenAmount,
		AssetCurrency:   asset,
		CounterAmount:   adaAmount,
		CounterCurrency: CurrencyADA,
		Timestamp:       time.Unix(raw.Timestamp, 0).UTC(),
	}, nil
}

// NormalizeExchangeRow converts an exported exchange history row into a
// canonical transaction.
func NormalizeExchangeRow(raw RawExchangeRow) (Transaction, error) {
	if raw.Hash == "" {
		return Transaction{}, normErr(VenueExchange, "hash", "required")
	}
	if raw.MarketName == "" {
		return Transaction{}, normErr(VenueExchange, "market_name", "required")
	}
	if raw.Timestamp <= 0 {
		return Transaction{}, normErr(VenueExchange, "timestamp", "must be a positive unix time")
	}

	side, err := exchangeSide(raw.Action)
	if err != nil {
		return Transaction{}, err
	}
	tokenAmount, err := amount(VenueExchange, "token_amount", raw.TokenAmount)
	if err != nil {
		return Transaction{}, err
	}
	usdAmount, err := amount(VenueExchange, "usd_amount", raw.USDAmount)
	if err != nil {
		return Transaction{}, err
	}

	asset := raw.TokenName
	if asset == "" {
		asset = CurrencyShare
	}

	return Transaction{
		ExternalID:      raw.Hash,
		Venue:           VenueExchange,
		MarketLabel:     raw.MarketName,
		Side:            side,
		AssetAmount:     tokenAmount,
		AssetCurrency:   asset,
		CounterAmount:   usdAmount,
		CounterCurrency: CurrencyUSD,
		Timestamp:       time.Unix(raw.Timestamp, 0).UTC(),
	}, nil
}

func chainSide(tradeType string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(tradeType)) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	case "REDEEM":
		return SideSettlement, nil
	}
	return "", normErr(VenueChain, "trade_type", "unknown trade type "+tradeType)
}

func exchangeSide(action string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	// Redeem is a winning settlement payout; Lost is the zero-payout
	// settlement of the losing side. Both close the market for the holder.
	case "redeem", "lost":
		return SideSettlement, nil
	case "fee":
		return SideFee, nil
	case "transfer", "deposit", "withdraw":
		return SideTransfer, nil
	}
	return "", normErr(VenueExchange, "action", "unknown action "+action)
}

// amount validates a raw numeric field and converts it to a decimal. Amounts
// carry no sign: the economic direction lives in the side.
func amount(venue Venue, field string, v float64) (decimal.Decimal, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, normErr(venue, field, "must be finite")
	}
	if v < 0 {
		return decimal.Decimal{}, normErr(venue, field, "must not be negative")
	}
	return decimal.NewFromFloat(v), nil
}
