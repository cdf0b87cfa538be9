package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

// CreatePosition inserts the position row and claims its member transactions
// in one SQL transaction. Either the position exists with every member
// assigned, or nothing changed.
func (s *Store) CreatePosition(ctx context.Context, pos ledger.Position, refs []ledger.TxRef) error {
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

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO positions (position_id, name, created_at) VALUES (?,?,?);`,
		pos.ID, pos.Name, formatTime(pos.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert position %s: %w", pos.ID, err)
	}
	if err := assignInTx(ctx, tx, refs, pos.ID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeletePosition removes the position, its correction if any, and returns all
// member transactions to the unassigned pool, atomically.
func (s *Store) DeletePosition(ctx context.Context, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deletePositionInTx(ctx, tx, positionID); err != nil {
		return err
	}
	return tx.Commit()
}

func deletePositionInTx(ctx context.Context, tx *sql.Tx, positionID string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE position_id = ?;`, positionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", positionID, ledger.ErrPositionNotFound)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE transactions SET position_id = NULL WHERE position_id = ?;`, positionID,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM corrections WHERE position_id = ?;`, positionID,
	); err != nil {
		return err
	}
	return nil
}

// AddToPosition claims additional unassigned transactions for an existing
// position.
func (s *Store) AddToPosition(ctx context.Context, positionID string, refs []ledger.TxRef) error {
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

	if err := positionExistsInTx(ctx, tx, positionID); err != nil {
		return err
	}
	if err := assignInTx(ctx, tx, refs, positionID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveFromPosition returns the given members to the unassigned pool. When
// the removal would leave the position empty it deletes the position (and its
// correction) instead: a position with zero members is not a valid persisted
// state. The returned bool reports whether the position was deleted.
func (s *Store) RemoveFromPosition(ctx context.Context, positionID string, refs []ledger.TxRef) (bool, error) {
	if len(refs) == 0 {
		return false, ledger.ErrNoTransactions
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := positionExistsInTx(ctx, tx, positionID); err != nil {
		return false, err
	}
	for _, ref := range refs {
		var current sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT position_id FROM transactions WHERE venue = ? AND external_id = ?;`,
			string(ref.Venue), ref.ExternalID,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", ref, ledger.ErrTransactionNotFound)
		}
		if err != nil {
			return false, err
		}
		if !current.Valid || current.String != positionID {
			return false, fmt.Errorf("%s: %w", ref, ledger.ErrNotMember)
		}
	}

	var members int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE position_id = ?;`, positionID,
	).Scan(&members); err != nil {
		return false, err
	}
	if members <= len(refs) {
		// removing the last members degenerates to a full delete
		if err := deletePositionInTx(ctx, tx, positionID); err != nil {
			return false, err
		}
		return true, tx.Commit()
	}

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET position_id = NULL WHERE venue = ? AND external_id = ?;`,
			string(ref.Venue), ref.ExternalID,
		); err != nil {
			return false, err
		}
	}
	return false, tx.Commit()
}

// GetPosition loads a position with its member transactions.
func (s *Store) GetPosition(ctx context.Context, positionID string) (ledger.Position, error) {
	var pos ledger.Position
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT position_id, name, created_at FROM positions WHERE position_id = ?;`,
		positionID,
	).Scan(&pos.ID, &pos.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Position{}, fmt.Errorf("%s: %w", positionID, ledger.ErrPositionNotFound)
	}
	if err != nil {
		return ledger.Position{}, err
	}
	pos.CreatedAt = parseTime(created)

	pos.Members, err = s.positionMembers(ctx, positionID)
	return pos, err
}

// ListPositions returns all positions with members loaded, oldest first.
func (s *Store) ListPositions(ctx context.Context) ([]ledger.Position, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position_id, name, created_at FROM positions ORDER BY created_at ASC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Position
	for rows.Next() {
		var pos ledger.Position
		var created string
		if err := rows.Scan(&pos.ID, &pos.Name, &created); err != nil {
			return nil, err
		}
		pos.CreatedAt = parseTime(created)
		out = append(out, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Members, err = s.positionMembers(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountPositionsNamed reports how many positions carry the given name.
// Duplicate names are allowed but surfaced as a warning by the builder.
func (s *Store) CountPositionsNamed(ctx context.Context, name string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM positions WHERE name = ?;`, name,
	).Scan(&n)
	return n, err
}

func (s *Store) positionMembers(ctx context.Context, positionID string) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		selectTransactionSQL+`WHERE position_id = ? ORDER BY ts ASC;`, positionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func positionExistsInTx(ctx context.Context, tx *sql.Tx, positionID string) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM positions WHERE position_id = ?;`, positionID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", positionID, ledger.ErrPositionNotFound)
	}
	return err
}
