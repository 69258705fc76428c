// Package record defines the keyed persistence contract shared by every
// process-wide record (settings, schedule, duty roster, homework, jokes).
//
// Backends only move opaque JSON documents. Decoding, defaults and the
// "corrupt means default" rule live here so every backend behaves the same.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Key identifies one stored record.
type Key string

// Record keys.
const (
	KeySettings Key = "settings"
	KeySchedule Key = "schedule"
	KeyDuty     Key = "duty_list"
	KeyHomework Key = "homework"
	KeyJokes    Key = "jokes"
)

// AllKeys lists every record key in a stable order.
var AllKeys = []Key{KeySettings, KeySchedule, KeyDuty, KeyHomework, KeyJokes}

// ErrNotFound is returned by backends when a key has never been saved.
var ErrNotFound = errors.New("record: not found")

// Store is the raw keyed persistence contract.
// Put must replace the whole document atomically: readers observe either the
// previous or the new value, never a partial write.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, data []byte) error
	Ping(ctx context.Context) error
	Close() error
}

// Load reads key and decodes it into a T. Missing, unreadable or corrupt data
// yields def; the failure is logged and never returned to the caller.
func Load[T any](ctx context.Context, s Store, key Key, def T, logger *slog.Logger) T {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := s.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("record read failed, using default", "key", key, "error", err)
		}
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("record corrupted, using default", "key", key, "error", err)
		return def
	}
	return v
}

// Save encodes v and replaces the record under key.
func Save[T any](ctx context.Context, s Store, key Key, v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("record: encode %s: %w", key, err)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("record: save %s: %w", key, err)
	}
	return nil
}
