package positions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
)

func testBuilder(t *testing.T) (*Builder, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return NewBuilder(store), store
}

func seed(t *testing.T, store *sqlite.Store, id string) ledger.TxRef {
	t.Helper()
	tx := ledger.Transaction{
		ExternalID:      id,
		Venue:           ledger.VenueChain,
		MarketLabel:     "some market",
		Side:            ledger.SideBuy,
		AssetAmount:     decimal.NewFromInt(5),
		AssetCurrency:   "yes_token",
		CounterAmount:   decimal.NewFromInt(25),
		CounterCurrency: ledger.CurrencyADA,
		Timestamp:       time.Unix(1000, 0).UTC(),
	}
	if _, err := store.Upsert(context.Background(), tx); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	return tx.Ref()
}

func TestCreateValidation(t *testing.T) {
	b, store := testBuilder(t)
	ctx := context.Background()
	ref := seed(t, store, "aaa")

	if _, err := b.Create(ctx, "   ", []ledger.TxRef{ref}); !errors.Is(err, ledger.ErrEmptyName) {
		t.Errorf("blank name error = %v, want ErrEmptyName", err)
	}
	if _, err := b.Create(ctx, "Zohran", nil); !errors.Is(err, ledger.ErrNoTransactions) {
		t.Errorf("empty refs error = %v, want ErrNoTransactions", err)
	}
}

func TestCreateAssignsAndReturnsMembers(t *testing.T) {
	b, store := testBuilder(t)
	ctx := context.Background()
	ref := seed(t, store, "aaa")

	pos, err := b.Create(ctx, "  Zohran wins NYC  ", []ledger.TxRef{ref})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pos.ID == "" {
		t.Error("created position has no id")
	}
	if pos.Name != "Zohran wins NYC" {
		t.Errorf("name = %q, want trimmed", pos.Name)
	}
	if len(pos.Members) != 1 || pos.Members[0].ExternalID != "aaa" {
		t.Errorf("members = %+v", pos.Members)
	}

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 0 {
		t.Error("member still in the unassigned pool")
	}
}

func TestDuplicateNamesAllowed(t *testing.T) {
	b, store := testBuilder(t)
	ctx := context.Background()
	first := seed(t, store, "aaa")
	second := seed(t, store, "bbb")

	p1, err := b.Create(ctx, "Zohran", []ledger.TxRef{first})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	p2, err := b.Create(ctx, "Zohran", []ledger.TxRef{second})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if p1.ID == p2.ID {
		t.Error("distinct positions share an id")
	}
}

func TestAddAndRemoveRoundTrip(t *testing.T) {
	b, store := testBuilder(t)
	ctx := context.Background()
	first := seed(t, store, "aaa")
	second := seed(t, store, "bbb")

	pos, err := b.Create(ctx, "Zohran", []ledger.TxRef{first})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := b.Add(ctx, pos.ID, []ledger.TxRef{second}); err != nil {
		t.Fatalf("add: %v", err)
	}

	deleted, err := b.Remove(ctx, pos.ID, []ledger.TxRef{first})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if deleted {
		t.Error("position deleted with a member left")
	}
	deleted, err = b.Remove(ctx, pos.ID, []ledger.TxRef{second})
	if err != nil {
		t.Fatalf("remove last: %v", err)
	}
	if !deleted {
		t.Error("removing the last member did not delete the position")
	}
}

func TestDeleteUnknownPosition(t *testing.T) {
	b, _ := testBuilder(t)
	if err := b.Delete(context.Background(), "ghost"); !errors.Is(err, ledger.ErrPositionNotFound) {
		t.Errorf("error = %v, want ErrPositionNotFound", err)
	}
}
