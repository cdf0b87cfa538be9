package suggest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

func unassignedTx(venue ledger.Venue, id, label string) ledger.Transaction {
	return ledger.Transaction{
		ExternalID:      id,
		Venue:           venue,
		MarketLabel:     label,
		Side:            ledger.SideBuy,
		AssetAmount:     decimal.NewFromInt(1),
		AssetCurrency:   "yes",
		CounterAmount:   decimal.NewFromInt(1),
		CounterCurrency: ledger.CurrencyUSD,
		Timestamp:       time.Unix(1000, 0).UTC(),
	}
}

func TestScoreIdenticalNames(t *testing.T) {
	if got := Score("rain tomorrow", "rain tomorrow"); got < 100 {
		t.Errorf("identical names score %v, want >= 100", got)
	}
}

func TestScoreIgnoresTokenOrderAndCase(t *testing.T) {
	a := "Will it rain tomorrow?"
	b := "TOMORROW: will it rain"
	if got := Score(a, b); got < 100 {
		t.Errorf("reordered names score %v, want >= 100", got)
	}
}

func TestScoreSymmetric(t *testing.T) {
	a, b := "rain tomorrow in london", "london rain this week"
	if Score(a, b) != Score(b, a) {
		t.Error("score is not symmetric")
	}
}

func TestSharedFocusTermBonus(t *testing.T) {
	base := tokenSortRatio("Zohran wins", "Zohran victory margin over 10 points")
	boosted := Score("Zohran wins", "Zohran victory margin over 10 points")
	if boosted != base+defaultKeywordBonus {
		t.Errorf("bonus not applied: ratio %v, score %v", base, boosted)
	}

	plain := Score("heavy snowfall friday", "friday closing price above 100")
	if plain >= DefaultThreshold {
		t.Errorf("unrelated names score %v, above threshold", plain)
	}
}

func TestPairMatchesAcrossVenues(t *testing.T) {
	pool := []ledger.Transaction{
		unassignedTx(ledger.VenueChain, "c1", "Zohran wins NYC mayoral race"),
		unassignedTx(ledger.VenueChain, "c2", "Zohran wins NYC mayoral race"),
		unassignedTx(ledger.VenueExchange, "e1", "NYC mayoral race: Zohran wins"),
		unassignedTx(ledger.VenueExchange, "e2", "Fed rate cut in September"),
	}

	got := Pair(pool, 0)
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1: %+v", len(got), got)
	}
	s := got[0]
	if s.ChainLabel != "Zohran wins NYC mayoral race" {
		t.Errorf("chain label = %q", s.ChainLabel)
	}
	if len(s.ChainRefs) != 2 || len(s.ExchangeRefs) != 1 {
		t.Errorf("refs = %d chain, %d exchange", len(s.ChainRefs), len(s.ExchangeRefs))
	}
	if len(s.Refs()) != 3 {
		t.Errorf("combined refs = %d, want 3", len(s.Refs()))
	}
}

func TestPairNeverPairsWithinOneVenue(t *testing.T) {
	pool := []ledger.Transaction{
		unassignedTx(ledger.VenueChain, "c1", "Zohran wins NYC"),
		unassignedTx(ledger.VenueChain, "c2", "Zohran wins NYC"),
	}
	if got := Pair(pool, 0); len(got) != 0 {
		t.Errorf("same-venue transactions paired: %+v", got)
	}
}

func TestPairThresholdFiltersWeakMatches(t *testing.T) {
	pool := []ledger.Transaction{
		unassignedTx(ledger.VenueChain, "c1", "heavy snowfall friday"),
		unassignedTx(ledger.VenueExchange, "e1", "closing price above 100"),
	}
	if got := Pair(pool, 0); len(got) != 0 {
		t.Errorf("weak match survived the default threshold: %+v", got)
	}
}

func TestPairOrdersBestFirst(t *testing.T) {
	pool := []ledger.Transaction{
		unassignedTx(ledger.VenueChain, "c1", "Zohran wins the NYC mayoral race"),
		unassignedTx(ledger.VenueChain, "c2", "Fed rate cut by September meeting"),
		unassignedTx(ledger.VenueExchange, "e1", "Zohran wins the NYC mayoral race"),
		unassignedTx(ledger.VenueExchange, "e2", "Fed rate cut announced at the September meeting"),
	}

	got := Pair(pool, 80)
	if len(got) < 2 {
		t.Fatalf("got %d suggestions, want at least 2", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("suggestions out of order at %d: %v after %v", i, got[i].Score, got[i-1].Score)
		}
	}
	if got[0].ChainLabel != "Zohran wins the NYC mayoral race" {
		t.Errorf("best suggestion = %q", got[0].ChainLabel)
	}
}

func TestPairSkipsUnlabeledTransactions(t *testing.T) {
	pool := []ledger.Transaction{
		unassignedTx(ledger.VenueChain, "c1", ""),
		unassignedTx(ledger.VenueExchange, "e1", ""),
	}
	if got := Pair(pool, 0); len(got) != 0 {
		t.Errorf("unlabeled transactions paired: %+v", got)
	}
}
