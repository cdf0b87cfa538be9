package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hetulpatel/trackledger/internal/ledger"
)

const upsertCorrectionSQL = `
INSERT INTO corrections (position_id, asserted_profit_usd, note, asserted_at)
VALUES (?,?,?,?)
ON CONFLICT(position_id) DO UPDATE SET
	asserted_profit_usd=excluded.asserted_profit_usd,
	note=excluded.note,
	asserted_at=excluded.asserted_at;
`

// SetCorrection records the operator-asserted true outcome for a position. A
// new correction replaces any prior one; there is never more than one active
// correction per position.
func (s *Store) SetCorrection(ctx context.Context, c ledger.Correction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := positionExistsInTx(ctx, tx, c.PositionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertCorrectionSQL,
		c.PositionID, c.AssertedProfitUSD.String(), c.Note, formatTime(c.AssertedAt),
	); err != nil {
		return fmt.Errorf("set correction for %s: %w", c.PositionID, err)
	}
	return tx.Commit()
}

// GetCorrection returns the active correction for a position, or nil when
// none is recorded.
func (s *Store) GetCorrection(ctx context.Context, positionID string) (*ledger.Correction, error) {
	var (
		c        ledger.Correction
		asserted string
		at       string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT position_id, asserted_profit_usd, note, asserted_at
		 FROM corrections WHERE position_id = ?;`, positionID,
	).Scan(&c.PositionID, &asserted, &c.Note, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c.AssertedProfitUSD, err = decimal.NewFromString(asserted); err != nil {
		return nil, fmt.Errorf("parse asserted profit %q: %w", asserted, err)
	}
	c.AssertedAt = parseTime(at)
	return &c, nil
}

// ClearCorrection discards the active correction for a position, if any.
func (s *Store) ClearCorrection(ctx context.Context, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM corrections WHERE position_id = ?;`, positionID,
	)
	return err
}
