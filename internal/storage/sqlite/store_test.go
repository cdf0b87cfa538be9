package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.CreateTables(context.Background()); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return store
}

func chainBuy(id string, ts int64) ledger.Transaction {
	return ledger.Transaction{
		ExternalID:      id,
		Venue:           ledger.VenueChain,
		MarketLabel:     "Zohran wins NYC",
		Side:            ledger.SideBuy,
		AssetAmount:     decimal.NewFromInt(10),
		AssetCurrency:   "zohran_yes",
		CounterAmount:   decimal.NewFromInt(50),
		CounterCurrency: ledger.CurrencyADA,
		Timestamp:       time.Unix(ts, 0).UTC(),
	}
}

func exchangeSettlement(id string, ts int64) ledger.Transaction {
	return ledger.Transaction{
		ExternalID:      id,
		Venue:           ledger.VenueExchange,
		MarketLabel:     "Zohran Mamdani wins the NYC mayoral race",
		Side:            ledger.SideSettlement,
		AssetAmount:     decimal.NewFromInt(80),
		AssetCurrency:   "YES",
		CounterAmount:   decimal.NewFromInt(80),
		CounterCurrency: ledger.CurrencyUSD,
		Timestamp:       time.Unix(ts, 0).UTC(),
	}
}

func mustUpsert(t *testing.T, store *Store, txs ...ledger.Transaction) {
	t.Helper()
	for _, tx := range txs {
		if _, err := store.Upsert(context.Background(), tx); err != nil {
			t.Fatalf("upsert %s: %v", tx.Ref(), err)
		}
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tx := chainBuy("aaa", 1000)

	outcome, err := store.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if outcome != UpsertInserted {
		t.Errorf("first upsert outcome = %v, want inserted", outcome)
	}

	outcome, err = store.Upsert(ctx, tx)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if outcome != UpsertSkipped {
		t.Errorf("second upsert outcome = %v, want skipped", outcome)
	}

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(pool) != 1 {
		t.Errorf("stored %d transactions, want exactly 1", len(pool))
	}
}

func TestUpsertConflictKeepsStoredRecord(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustUpsert(t, store, chainBuy("aaa", 1000))

	changed := chainBuy("aaa", 1000)
	changed.CounterAmount = decimal.NewFromInt(51)
	_, err := store.Upsert(ctx, changed)
	var integrityErr *ledger.IntegrityError
	if !errors.As(err, &integrityErr) {
		t.Fatalf("error = %v, want IntegrityError", err)
	}

	stored, err := store.GetTransaction(ctx, changed.Ref())
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if !stored.CounterAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("stored counter = %s, original was overwritten", stored.CounterAmount)
	}
}

func TestListUnassignedOrderingAndVenueFilter(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustUpsert(t, store,
		chainBuy("late", 3000),
		chainBuy("early", 1000),
		exchangeSettlement("ex1", 2000),
	)

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 3 {
		t.Fatalf("pool size = %d", len(pool))
	}
	if pool[0].ExternalID != "early" || pool[2].ExternalID != "late" {
		t.Errorf("pool not ordered by timestamp: %s, %s, %s",
			pool[0].ExternalID, pool[1].ExternalID, pool[2].ExternalID)
	}

	chainOnly, err := store.ListUnassigned(ctx, ledger.VenueChain)
	if err != nil {
		t.Fatalf("list chain: %v", err)
	}
	if len(chainOnly) != 2 {
		t.Errorf("chain pool size = %d, want 2", len(chainOnly))
	}
}

func TestAssignExcludesFromUnassignedPool(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tx := chainBuy("aaa", 1000)
	mustUpsert(t, store, tx)

	pos := ledger.Position{ID: "pos-1", Name: "Zohran", CreatedAt: time.Now().UTC()}
	if err := store.CreatePosition(ctx, pos, []ledger.TxRef{tx.Ref()}); err != nil {
		t.Fatalf("create position: %v", err)
	}

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("assigned transaction still listed as unassigned")
	}

	err = store.Assign(ctx, []ledger.TxRef{tx.Ref()}, "pos-2")
	if !errors.Is(err, ledger.ErrAlreadyAssigned) {
		t.Errorf("second assign error = %v, want ErrAlreadyAssigned", err)
	}
}

func TestAssignIsAllOrNothing(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	free := chainBuy("free", 1000)
	taken := chainBuy("taken", 1100)
	mustUpsert(t, store, free, taken)

	if err := store.Assign(ctx, []ledger.TxRef{taken.Ref()}, "pos-1"); err != nil {
		t.Fatalf("setup assign: %v", err)
	}

	err := store.Assign(ctx, []ledger.TxRef{free.Ref(), taken.Ref()}, "pos-2")
	if !errors.Is(err, ledger.ErrAlreadyAssigned) {
		t.Fatalf("mixed assign error = %v, want ErrAlreadyAssigned", err)
	}

	stored, err := store.GetTransaction(ctx, free.Ref())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.PositionID != "" {
		t.Error("failed multi-assign partially applied")
	}
}

func TestConcurrentCreatePositionOverSameTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tx := chainBuy("contested", 1000)
	mustUpsert(t, store, tx)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pos := ledger.Position{ID: "pos-" + string(rune('a'+i)), Name: "race", CreatedAt: time.Now().UTC()}
			errs[i] = store.CreatePosition(ctx, pos, []ledger.TxRef{tx.Ref()})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ledger.ErrAlreadyAssigned):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Errorf("winners = %d, losers = %d; want exactly one of each", won, lost)
	}

	positions, err := store.ListPositions(ctx)
	if err != nil {
		t.Fatalf("list positions: %v", err)
	}
	if len(positions) != 1 {
		t.Errorf("stored %d positions, the loser's insert leaked", len(positions))
	}
}

func TestDeletePositionIsAtomic(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	a := chainBuy("aaa", 1000)
	b := exchangeSettlement("bbb", 2000)
	mustUpsert(t, store, a, b)

	pos := ledger.Position{ID: "pos-1", Name: "Zohran", CreatedAt: time.Now().UTC()}
	if err := store.CreatePosition(ctx, pos, []ledger.TxRef{a.Ref(), b.Ref()}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SetCorrection(ctx, ledger.Correction{
		PositionID:        "pos-1",
		AssertedProfitUSD: decimal.NewFromInt(99),
		AssertedAt:        time.Now().UTC(),
	}); err != nil {
		t.Fatalf("set correction: %v", err)
	}

	if err := store.DeletePosition(ctx, "pos-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 2 {
		t.Errorf("%d transactions back in the pool, want 2", len(pool))
	}
	if _, err := store.GetPosition(ctx, "pos-1"); !errors.Is(err, ledger.ErrPositionNotFound) {
		t.Errorf("get deleted position error = %v", err)
	}
	corr, err := store.GetCorrection(ctx, "pos-1")
	if err != nil {
		t.Fatalf("get correction: %v", err)
	}
	if corr != nil {
		t.Error("correction survived position deletion")
	}
}

func TestRemoveLastMemberDeletesPosition(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	a := chainBuy("aaa", 1000)
	b := chainBuy("bbb", 2000)
	mustUpsert(t, store, a, b)

	pos := ledger.Position{ID: "pos-1", Name: "Zohran", CreatedAt: time.Now().UTC()}
	if err := store.CreatePosition(ctx, pos, []ledger.TxRef{a.Ref(), b.Ref()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	deleted, err := store.RemoveFromPosition(ctx, "pos-1", []ledger.TxRef{a.Ref()})
	if err != nil {
		t.Fatalf("remove first: %v", err)
	}
	if deleted {
		t.Error("position deleted while a member remained")
	}

	deleted, err = store.RemoveFromPosition(ctx, "pos-1", []ledger.TxRef{b.Ref()})
	if err != nil {
		t.Fatalf("remove last: %v", err)
	}
	if !deleted {
		t.Error("removing the last member should delete the position")
	}
	if _, err := store.GetPosition(ctx, "pos-1"); !errors.Is(err, ledger.ErrPositionNotFound) {
		t.Errorf("get after degenerate delete: %v", err)
	}
}

func TestRemoveRejectsNonMember(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	member := chainBuy("member", 1000)
	outsider := chainBuy("outsider", 2000)
	mustUpsert(t, store, member, outsider)

	pos := ledger.Position{ID: "pos-1", Name: "Zohran", CreatedAt: time.Now().UTC()}
	if err := store.CreatePosition(ctx, pos, []ledger.TxRef{member.Ref()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := store.RemoveFromPosition(ctx, "pos-1", []ledger.TxRef{outsider.Ref()}); !errors.Is(err, ledger.ErrNotMember) {
		t.Errorf("remove outsider error = %v, want ErrNotMember", err)
	}
}

func TestCorrectionReplacesPriorOne(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	tx := chainBuy("aaa", 1000)
	mustUpsert(t, store, tx)
	pos := ledger.Position{ID: "pos-1", Name: "Whittaker", CreatedAt: time.Now().UTC()}
	if err := store.CreatePosition(ctx, pos, []ledger.TxRef{tx.Ref()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	set := func(profit int64, note string) {
		t.Helper()
		err := store.SetCorrection(ctx, ledger.Correction{
			PositionID:        "pos-1",
			AssertedProfitUSD: decimal.NewFromInt(profit),
			Note:              note,
			AssertedAt:        time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("set correction: %v", err)
		}
	}
	set(50, "first pass")
	set(99, "verified against bank statement")

	corr, err := store.GetCorrection(ctx, "pos-1")
	if err != nil {
		t.Fatalf("get correction: %v", err)
	}
	if corr == nil {
		t.Fatal("no correction stored")
	}
	if !corr.AssertedProfitUSD.Equal(decimal.NewFromInt(99)) {
		t.Errorf("asserted profit = %s, want the superseding value", corr.AssertedProfitUSD)
	}
	if corr.Note != "verified against bank statement" {
		t.Errorf("note = %q", corr.Note)
	}

	if err := store.ClearCorrection(ctx, "pos-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	corr, err = store.GetCorrection(ctx, "pos-1")
	if err != nil {
		t.Fatalf("get after clear: %v", err)
	}
	if corr != nil {
		t.Error("correction survived clear")
	}
}

func TestSetCorrectionRequiresPosition(t *testing.T) {
	store := openTestStore(t)
	err := store.SetCorrection(context.Background(), ledger.Correction{
		PositionID:        "ghost",
		AssertedProfitUSD: decimal.NewFromInt(1),
		AssertedAt:        time.Now().UTC(),
	})
	if !errors.Is(err, ledger.ErrPositionNotFound) {
		t.Errorf("error = %v, want ErrPositionNotFound", err)
	}
}

func TestUnassignReturnsToPool(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	a := chainBuy("aaa", 1000)
	b := chainBuy("bbb", 2000)
	mustUpsert(t, store, a, b)
	pos := ledger.Position{ID: "pos-1", Name: "Zohran", CreatedAt: time.Now().UTC()}
	if err := store.CreatePosition(ctx, pos, []ledger.TxRef{a.Ref(), b.Ref()}); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Unassign(ctx, []ledger.TxRef{a.Ref()}); err != nil {
		t.Fatalf("unassign: %v", err)
	}
	pool, err := store.ListUnassigned(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pool) != 1 || pool[0].ExternalID != "aaa" {
		t.Errorf("pool after unassign = %+v", pool)
	}
}
