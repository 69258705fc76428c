package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/domain/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), record.KeyJokes)
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, record.KeyJokes, []byte(`["a"]`)))
	require.NoError(t, s.Put(ctx, record.KeyJokes, []byte(`["a","b"]`)))

	got, err := s.Get(ctx, record.KeyJokes)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(got))
	assert.NoError(t, s.Ping(ctx))
}

func TestStore_TypedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, record.Save(ctx, s, record.KeyHomework, map[string]string{"2024-09-02": "§5"}))
	got := record.Load(ctx, s, record.KeyHomework, map[string]string{}, nil)
	assert.Equal(t, map[string]string{"2024-09-02": "§5"}, got)
}

func TestStore_TryLock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.TryLock(ctx, "duty:2024-09-02", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.TryLock(ctx, "duty:2024-09-02", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.TryLock(ctx, "duty:2024-09-03", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Unlock(ctx, "duty:2024-09-02"))
	require.NoError(t, s.Unlock(ctx, "never-held"))
	ok, err = s.TryLock(ctx, "duty:2024-09-02", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "released lock can be taken again")
}
