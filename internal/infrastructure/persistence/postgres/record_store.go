package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/classhub/classbot/internal/domain/record"
)

// RecordStore is a record.Store on the records table.
// Each Put is a single upsert, so a save replaces the document atomically.
type RecordStore struct {
	conn *Connection
}

// NewRecordStore creates a record store on an open connection.
func NewRecordStore(conn *Connection) *RecordStore {
	return &RecordStore{conn: conn}
}

// Get returns the raw document stored under key.
func (s *RecordStore) Get(ctx context.Context, key record.Key) ([]byte, error) {
	var data []byte
	err := s.conn.QueryRow(ctx, `SELECT value FROM records WHERE key = $1`, string(key)).Scan(&data)
	if err != nil {
		if IsNoRows(err) {
			return nil, record.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get %s: %w", key, err)
	}
	return data, nil
}

// Put replaces the document stored under key.
func (s *RecordStore) Put(ctx context.Context, key record.Key, data []byte) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO records (key, value, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, string(key), string(data))
	if err != nil {
		return fmt.Errorf("postgres: put %s: %w", key, err)
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the underlying pool.
func (s *RecordStore) Close() error {
	s.conn.Close()
	return nil
}

// TryLock takes a run-once lock for name that expires after ttl.
// An expired lock is taken over; a live one makes TryLock return false.
func (s *RecordStore) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	tag, err := s.conn.Exec(ctx, `
		INSERT INTO job_locks (name, expires_at)
		VALUES ($1, NOW() + $2::interval)
		ON CONFLICT (name) DO UPDATE
		SET expires_at = EXCLUDED.expires_at
		WHERE job_locks.expires_at < NOW()
	`, name, fmt.Sprintf("%d seconds", int(ttl.Seconds())))
	if err != nil {
		return false, fmt.Errorf("postgres: lock %s: %w", name, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Unlock releases the lock for name.
func (s *RecordStore) Unlock(ctx context.Context, name string) error {
	if _, err := s.conn.Exec(ctx, `DELETE FROM job_locks WHERE name = $1`, name); err != nil {
		return fmt.Errorf("postgres: unlock %s: %w", name, err)
	}
	return nil
}
