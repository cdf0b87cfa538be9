package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	defaultPath = "data/ledger.db"
)

// Store owns the three ledger tables (transactions, positions, corrections)
// and is their sole writer. Mutating operations are serialized through mu and
// each runs inside one SQL transaction, so a multi-row assign or delete is
// never observed half-applied.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateTables ensures the ledger schema exists.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, ledgerSchemaSQL)
	return err
}

// DropTables removes the ledger tables.
func (s *Store) DropTables(ctx context.Context) error {
	stmts := []string{
		`DROP TABLE IF EXISTS corrections;`,
		`DROP TABLE IF EXISTS positions;`,
		`DROP TABLE IF EXISTS transactions;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ClearTables truncates the ledger tables.
func (s *Store) ClearTables(ctx context.Context) error {
	stmts := []string{
		`DELETE FROM corrections;`,
		`DELETE FROM transactions;`,
		`DELETE FROM positions;`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const ledgerSchemaSQL = `
CREATE TABLE IF NOT EXISTS transactions (
	venue TEXT NOT NULL,
	external_id TEXT NOT NULL,
	market_label TEXT NOT NULL,
	side TEXT NOT NULL,
	asset_amount TEXT NOT NULL,
	asset_currency TEXT NOT NULL,
	counter_amount TEXT NOT NULL,
	counter_currency TEXT NOT NULL,
	ts TEXT NOT NULL,
	position_id TEXT,
	payload_hash TEXT NOT NULL,
	ingested_at TEXT NOT NULL,
	PRIMARY KEY (venue, external_id)
);
CREATE INDEX IF NOT EXISTS transactions_position_idx ON transactions(position_id);
CREATE INDEX IF NOT EXISTS transactions_ts_idx ON transactions(ts);

CREATE TABLE IF NOT EXISTS positions (
	position_id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS corrections (
	position_id TEXT PRIMARY KEY,
	asserted_profit_usd TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	asserted_at TEXT NOT NULL,
	FOREIGN KEY (position_id) REFERENCES positions (position_id)
);
`

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
