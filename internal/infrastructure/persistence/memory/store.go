// Package memory implements an in-process record store for tests and
// throwaway runs (STORE_BACKEND=memory).
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/classhub/classbot/internal/domain/record"
)

// Store keeps records in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	records map[record.Key][]byte
	locks   map[string]time.Time
	now     func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[record.Key][]byte),
		locks:   make(map[string]time.Time),
		now:     time.Now,
	}
}

// Get returns a copy of the document stored under key.
func (s *Store) Get(_ context.Context, key record.Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.records[key]
	if !ok {
		return nil, record.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Put replaces the document stored under key.
func (s *Store) Put(_ context.Context, key record.Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = slices.Clone(data)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// TryLock takes a run-once lock for name that expires after ttl.
func (s *Store) TryLock(_ context.Context, name string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.locks[name]; ok && now.Before(exp) {
		return false, nil
	}
	s.locks[name] = now.Add(ttl)
	return true, nil
}

// Unlock releases the lock for name.
func (s *Store) Unlock(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, name)
	return nil
}
