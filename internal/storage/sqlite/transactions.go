package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

// UpsertOutcome reports what Upsert did with a record.
type UpsertOutcome int

const (
	// UpsertInserted means the transaction was new and is now stored.
	UpsertInserted UpsertOutcome = iota
	// UpsertSkipped means an identical record was already stored; the call
	// was a no-op. Re-running an import any number of times is safe.
	UpsertSkipped
)

const insertTransactionSQL = `
INSERT INTO transactions (
	venue, external_id, market_label, side,
	asset_amount, asset_currency, counter_amount, counter_currency,
	ts, position_id, payload_hash, ingested_at
) VALUES (?,?,?,?,?,?,?,?,?,NULL,?,?);
`

// Upsert stores a normalized transaction keyed by (venue, external_id). If the
// key exists with an identical payload the call is a no-op. If the key exists
// with a different payload it fails with ledger.IntegrityError and the stored
// record stays untouched: a changed historical record is a data-quality
// problem, never a silent overwrite.
func (s *Store) Upsert(ctx context.Context, t ledger.Transaction) (UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	digest := t.PayloadDigest()
	var stored string
	err = tx.QueryRowContext(ctx,
		`SELECT payload_hash FROM transactions WHERE venue = ? AND external_id = ?;`,
		string(t.Venue), t.ExternalID,
	).Scan(&stored)
	switch {
	case err == nil:
		if stored != digest {
			return 0, &ledger.IntegrityError{Ref: t.Ref(), StoredDigest: stored, NewDigest: digest}
		}
		return UpsertSkipped, nil
	case errors.Is(err, sql.ErrNoRows):
		// new record, fall through to insert
	default:
		return 0, err
	}

	_, err = tx.ExecContext(ctx, insertTransactionSQL,
		string(t.Venue),
		t.ExternalID,
		t.MarketLabel,
		string(t.Side),
		t.AssetAmount.String(),
		t.AssetCurrency,
		t.CounterAmount.String(),
		t.CounterCurrency,
		formatTime(t.Timestamp),
		digest,
		formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction %s: %w", t.Ref(), err)
	}
	return UpsertInserted, tx.Commit()
}

const selectTransactionSQL = `
SELECT venue, external_id, market_label, side,
	asset_amount, asset_currency, counter_amount, counter_currency,
	ts, COALESCE(position_id, '')
FROM transactions
`

// GetTransaction loads one transaction by its venue-qualified id.
func (s *Store) GetTransaction(ctx context.Context, ref ledger.TxRef) (ledger.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		selectTransactionSQL+`WHERE venue = ? AND external_id = ?;`,
		string(ref.Venue), ref.ExternalID,
	)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transaction{}, fmt.Errorf("%s: %w", ref, ledger.ErrTransactionNotFound)
	}
	return t, err
}

// ListUnassigned returns transactions not yet claimed by any position, oldest
// first. Venue filters the result when non-empty.
func (s *Store) ListUnassigned(ctx context.Context, venue ledger.Venue) ([]ledger.Transaction, error) {
	query := selectTransactionSQL + `WHERE position_id IS NULL`
	args := []any{}
	if venue != "" {
		query += ` AND venue = ?`
		args = append(args, string(venue))
	}
	query += ` ORDER BY ts ASC;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// Assign atomically claims the given transactions for a position. The
// unassigned check runs inside the same transaction as the update, which
// closes the race where two concurrent position builds target overlapping
// transaction sets: exactly one wins.
func (s *Store) Assign(ctx context.Context, refs []ledger.TxRef, positionID string) error {
	if len(refs) == 0 {
		return ledger.ErrNoTransactions
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := assignInTx(ctx, tx, refs, positionID); err != nil {
		return err
	}
	return tx.Commit()
}

// Unassign clears position_id on the given transactions, returning them to
// the unassigned pool.
func (s *Store) Unassign(ctx context.Context, refs []ledger.TxRef) error {
	if len(refs) == 0 {
		return ledger.ErrNoTransactions
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ref := range refs {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET position_id = NULL WHERE venue = ? AND external_id = ?;`,
			string(ref.Venue), ref.ExternalID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%s: %w", ref, ledger.ErrTransactionNotFound)
		}
	}
	return tx.Commit()
}

// assignInTx verifies every target is present and unassigned, then claims it.
// Callers hold s.mu and own the surrounding transaction.
func assignInTx(ctx context.Context, tx *sql.Tx, refs []ledger.TxRef, positionID string) error {
	for _, ref := range refs {
		var current sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT position_id FROM transactions WHERE venue = ? AND external_id = ?;`,
			string(ref.Venue), ref.ExternalID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", ref, ledger.ErrTransactionNotFound)
		}
		if err != nil {
			return err
		}
		if current.Valid && current.String != "" {
			return fmt.Errorf("%s: %w", ref, ledger.ErrAlreadyAssigned)
		}
	}
	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET position_id = ? WHERE venue = ? AND external_id = ?;`,
			positionID, string(ref.Venue), ref.ExternalID,
		); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (ledger.Transaction, error) {
	var (
		t                        ledger.Transaction
		venue, side, assetAmt    string
		counterAmt, ts, position string
	)
	err := row.Scan(
		&venue, &t.ExternalID, &t.MarketLabel, &side,
		&assetAmt, &t.AssetCurrency, &counterAmt, &t.CounterCurrency,
		&ts, &position,
	)
	if err != nil {
		return ledger.Transaction{}, err
	}
	t.Venue = ledger.Venue(venue)
	t.Side = ledger.Side(side)
	t.Timestamp = parseTime(ts)
	t.PositionID = position
	if t.AssetAmount, err = decimal.NewFromString(assetAmt); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse asset amount %q: %w", assetAmt, err)
	}
	if t.CounterAmount, err = decimal.NewFromString(counterAmt); err != nil {
		return ledger.Transaction{}, fmt.Errorf("parse counter amount %q: %w", counterAmt, err)
	}
	return t, nil
}

func collectTransactions(rows *sql.Rows) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
