package admin

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
)

func newPolicy() (*Policy, *persistence.Records) {
	records := persistence.NewRecords(memory.NewStore(), nil)
	return NewPolicy(records, nil), records
}

func TestBootstrap_FirstPrivateUserWins(t *testing.T) {
	ctx := context.Background()
	p, records := newPolicy()

	seeded, err := p.BootstrapFirstAdminIfEmpty(ctx, "x", true)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = p.BootstrapFirstAdminIfEmpty(ctx, "y", true)
	require.NoError(t, err)
	assert.False(t, seeded)

	assert.Equal(t, []string{"@x"}, records.Settings(ctx).Admins)
	assert.True(t, p.IsAdmin(ctx, "x"))
	assert.False(t, p.IsAdmin(ctx, "X"))
	assert.False(t, p.IsAdmin(ctx, "y"))
}

func TestBootstrap_LogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	p := NewPolicy(persistence.NewRecords(memory.NewStore(), nil), log)

	seeded, err := p.BootstrapFirstAdminIfEmpty(context.Background(), "x", true)
	require.NoError(t, err)
	require.True(t, seeded)

	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"msg":"first admin bootstrapped"`)
	assert.Contains(t, buf.String(), `"admin":"@x"`)
}

func TestBootstrap_IgnoresGroupsAndHandleless(t *testing.T) {
	ctx := context.Background()
	p, records := newPolicy()

	seeded, err := p.BootstrapFirstAdminIfEmpty(ctx, "x", false)
	require.NoError(t, err)
	assert.False(t, seeded)

	seeded, err = p.BootstrapFirstAdminIfEmpty(ctx, "", true)
	require.NoError(t, err)
	assert.False(t, seeded)

	assert.Empty(t, records.Settings(ctx).Admins)
	assert.False(t, p.IsAdmin(ctx, ""))
}

func TestBootstrap_ConcurrentSeedsExactlyOne(t *testing.T) {
	ctx := context.Background()
	p, records := newPolicy()

	var wg sync.WaitGroup
	for _, u := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, _ = p.BootstrapFirstAdminIfEmpty(ctx, u, true)
		}(u)
	}
	wg.Wait()

	assert.Len(t, records.Settings(ctx).Admins, 1)
}

func TestAddAdminAndBroadcastTarget(t *testing.T) {
	ctx := context.Background()
	p, _ := newPolicy()

	tag, err := p.AddAdmin(ctx, " @teacher_1 ")
	require.NoError(t, err)
	assert.Equal(t, "@teacher_1", tag)
	assert.True(t, p.IsAdmin(ctx, "teacher_1"))
	assert.False(t, p.IsAdmin(ctx, "other"))

	_, err = p.AddAdmin(ctx, "no spaces allowed")
	assert.ErrorIs(t, err, shared.ErrInvalidHandle)

	_, err = p.BroadcastTarget(ctx)
	assert.ErrorIs(t, err, shared.ErrNoBroadcastTarget)

	_, err = p.SetBroadcastTarget(ctx, "chat")
	assert.ErrorIs(t, err, shared.ErrInvalidChatID)

	id, err := p.SetBroadcastTarget(ctx, "-1001234567890")
	require.NoError(t, err)
	assert.Equal(t, int64(-1001234567890), id)

	got, err := p.BroadcastTarget(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
