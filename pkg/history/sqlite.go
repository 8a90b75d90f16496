package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id             TEXT PRIMARY KEY,
	conn_id        INTEGER NOT NULL,
	method         TEXT NOT NULL,
	path           TEXT NOT NULL,
	status         INTEGER NOT NULL,
	request_bytes  INTEGER NOT NULL,
	response_bytes INTEGER NOT NULL,
	started_at     TIMESTAMP NOT NULL,
	completed_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_completed_at ON exchanges(completed_at);
CREATE INDEX IF NOT EXISTS idx_exchanges_path ON exchanges(path);
`

// SQLiteStorage implements Storage on a SQLite database file.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the database at path and
// initializes the schema. WAL mode and a busy timeout are enabled for
// concurrent writers.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history database %q: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Save stores a single exchange record.
func (s *SQLiteStorage) Save(ctx context.Context, ex *Exchange) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges
		 (id, conn_id, method, path, status, request_bytes, response_bytes, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.ConnID, ex.Method, ex.Path, ex.Status,
		ex.RequestBytes, ex.ResponseBytes, ex.StartedAt.UTC(), ex.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save exchange %s: %w", ex.ID, err)
	}
	return nil
}

// Recent returns up to limit records, most recent first.
func (s *SQLiteStorage) Recent(ctx context.Context, limit int) ([]*Exchange, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conn_id, method, path, status, request_bytes, response_bytes, started_at, completed_at
		 FROM exchanges ORDER BY completed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query exchanges: %w", err)
	}
	defer rows.Close()

	var out []*Exchange
	for rows.Next() {
		var ex Exchange
		if err := rows.Scan(&ex.ID, &ex.ConnID, &ex.Method, &ex.Path, &ex.Status,
			&ex.RequestBytes, &ex.ResponseBytes, &ex.StartedAt, &ex.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		out = append(out, &ex)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exchanges`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exchanges: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes records completed before the cutoff.
func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM exchanges WHERE completed_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune exchanges: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
