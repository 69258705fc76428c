// Package sqlite implements the record store on an embedded SQLite file.
// It is the default backend: a single pure-Go binary with no server to run.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/classhub/classbot/internal/domain/record"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_locks (
	name       TEXT PRIMARY KEY,
	expires_at INTEGER NOT NULL
);
`

// Store is a record.Store on a SQLite database file.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create db dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the raw document stored under key.
func (s *Store) Get(ctx context.Context, key record.Key) ([]byte, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM records WHERE key = ?`, string(key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put replaces the document stored under key in a single upsert.
func (s *Store) Put(ctx context.Context, key record.Key, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(key), string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", key, err)
	}
	return nil
}

// Ping checks that the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TryLock takes a run-once lock for name that expires after ttl.
func (s *Store) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO job_locks (name, expires_at) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET expires_at = excluded.expires_at
		WHERE job_locks.expires_at < ?
	`, name, now+int64(ttl.Seconds()), now)
	if err != nil {
		return false, fmt.Errorf("sqlite: lock %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: lock %s: %w", name, err)
	}
	return n == 1, nil
}

// Unlock releases the lock for name.
func (s *Store) Unlock(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_locks WHERE name = ?`, name); err != nil {
		return fmt.Errorf("sqlite: unlock %s: %w", name, err)
	}
	return nil
}
