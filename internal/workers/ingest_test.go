package workers

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
)

func testIngestor(t *testing.T) (*Ingestor, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return NewIngestor(store), store
}

func chainEnvelope(hash string, ada float64) *ledger.RawEnvelope {
	return &ledger.RawEnvelope{
		Venue: ledger.VenueChain,
		Chain: &ledger.RawChainTrade{
			MarketName:  "Zohran wins NYC",
			TradeType:   "BUY",
			Timestamp:   1700000000,
			ADAAmount:   ada,
			TokenName:   "zohran_yes",
			TokenAmount: 10,
			TxHash1:     hash,
		},
	}
}

func TestHandleStoresAndReplaysSafely(t *testing.T) {
	in, store := testIngestor(t)
	ctx := context.Background()
	env := chainEnvelope("aaa111", 50)

	if err := in.Handle(ctx, env); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	// replaying the same event from the topic start must be a no-op
	if err := in.Handle(ctx, env); err != nil {
		t.Fatalf("replay handle: %v", err)
	}

	pool, err := store.ListUnassigned(ctx, ledger.VenueChain)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 1 {
		t.Errorf("stored %d transactions after replay, want 1", len(pool))
	}
}

func TestHandleDropsMalformedEvents(t *testing.T) {
	in, store := testIngestor(t)
	ctx := context.Background()

	env := chainEnvelope("aaa111", 50)
	env.Chain.MarketName = ""
	if err := in.Handle(ctx, env); err != nil {
		t.Fatalf("malformed event should be dropped, not fail the batch: %v", err)
	}

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("malformed event was stored: %+v", pool)
	}
}

func TestHandleRejectsConflictingReplay(t *testing.T) {
	in, store := testIngestor(t)
	ctx := context.Background()

	if err := in.Handle(ctx, chainEnvelope("aaa111", 50)); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	// same hash, different payload: the stored record wins
	if err := in.Handle(ctx, chainEnvelope("aaa111", 51)); err != nil {
		t.Fatalf("conflicting replay should not fail the batch: %v", err)
	}

	stored, err := store.GetTransaction(ctx, ledger.TxRef{Venue: ledger.VenueChain, ExternalID: "aaa111"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.CounterAmount.String() != "50" {
		t.Errorf("stored counter = %s, conflicting event overwrote it", stored.CounterAmount)
	}
}
