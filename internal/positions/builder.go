// Package positions turns operator grouping decisions into ledger mutations.
// Validation happens here; atomicity is delegated to single-transaction store
// calls so a half-built or half-deleted position can never be observed.
package positions

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/logging"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
)

type Builder struct {
	store *sqlite.Store
}

func NewBuilder(store *sqlite.Store) *Builder {
	return &Builder{store: store}
}

// Create groups the given unassigned transactions into a new named position.
// Positions are identified by id, not name, so duplicate names are permitted;
// they are surfaced as a warning because they usually mean the operator
// forgot an existing position.
func (b *Builder) Create(ctx context.Context, name string, refs []ledger.TxRef) (ledger.Position, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Position{}, ledger.ErrEmptyName
	}
	if len(refs) == 0 {
		return ledger.Position{}, ledger.ErrNoTransactions
	}

	if n, err := b.store.CountPositionsNamed(ctx, name); err == nil && n > 0 {
		logging.Warnf("[positions] %d position(s) already named %q", n, name)
	}

	pos := ledger.Position{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := b.store.CreatePosition(ctx, pos, refs); err != nil {
		return ledger.Position{}, err
	}
	logging.Infof("[positions] created %q (%s) with %d transaction(s)", name, pos.ID, len(refs))
	return b.store.GetPosition(ctx, pos.ID)
}

// Delete removes a position, returning all members to the unassigned pool and
// discarding any active correction.
func (b *Builder) Delete(ctx context.Context, positionID string) error {
	if err := b.store.DeletePosition(ctx, positionID); err != nil {
		return err
	}
	logging.Infof("[positions] deleted %s", positionID)
	return nil
}

// Add claims additional unassigned transactions for an existing position.
func (b *Builder) Add(ctx context.Context, positionID string, refs []ledger.TxRef) error {
	if len(refs) == 0 {
		return ledger.ErrNoTransactions
	}
	return b.store.AddToPosition(ctx, positionID, refs)
}

// Remove returns members to the unassigned pool. Removing the last member is
// equivalent to deleting the position; the returned bool reports that case.
func (b *Builder) Remove(ctx context.Context, positionID string, refs []ledger.TxRef) (bool, error) {
	if len(refs) == 0 {
		return false, ledger.ErrNoTransactions
	}
	deleted, err := b.store.RemoveFromPosition(ctx, positionID, refs)
	if err != nil {
		return false, err
	}
	if deleted {
		logging.Infof("[positions] %s emptied by removal, deleted", positionID)
	}
	return deleted, nil
}
