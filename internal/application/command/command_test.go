package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
	"github.com/classhub/classbot/pkg/timeutil"
)

type fixture struct {
	records *persistence.Records
	today   time.Time
	sweeper *SweepHomeworkHandler
}

func newFixture(today time.Time) *fixture {
	f := &fixture{records: persistence.NewRecords(memory.NewStore(), nil), today: today}
	f.sweeper = NewSweepHomeworkHandler(f.records, 14, func() time.Time { return f.today }, nil)
	return f
}

func TestSweep_ScenarioAndIdempotence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(timeutil.Date(2024, time.September, 15))
	require.NoError(t, f.records.SaveHomework(ctx, homework.Map{"2024-09-01": "read", "legacy": "keep"}))

	res, err := f.sweeper.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Removed)

	f.today = timeutil.Date(2024, time.September, 16)
	res, err = f.sweeper.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, 1, res.Remaining)

	res, err = f.sweeper.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, homework.Map{"legacy": "keep"}, f.records.Homework(ctx))
}

func TestHomework_SetReadBackEditDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(timeutil.Date(2024, time.September, 4))
	h := NewHomeworkHandler(f.records, f.sweeper, nil)
	date := timeutil.Date(2024, time.September, 5)

	res, err := h.Set(ctx, SetHomeworkCommand{Date: date, Task: "  §12, №3  "})
	require.NoError(t, err)
	assert.Equal(t, timeutil.Date(2024, time.September, 19), res.Expiry)
	assert.Equal(t, "§12, №3", f.records.Homework(ctx)["2024-09-05"])

	_, err = h.Set(ctx, SetHomeworkCommand{Date: date, Task: " "})
	assert.ErrorIs(t, err, shared.ErrEmptyTask)

	_, err = h.Edit(ctx, SetHomeworkCommand{Date: timeutil.Date(2024, time.September, 6), Task: "x"})
	assert.ErrorIs(t, err, shared.ErrHomeworkNotFound)

	_, err = h.Edit(ctx, SetHomeworkCommand{Date: date, Task: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", f.records.Homework(ctx)["2024-09-05"])

	_, err = h.Delete(ctx, date)
	require.NoError(t, err)
	_, err = h.Delete(ctx, date)
	assert.ErrorIs(t, err, shared.ErrHomeworkNotFound)
}

func TestHomework_SetSweepsExpiredFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(timeutil.Date(2024, time.October, 1))
	require.NoError(t, f.records.SaveHomework(ctx, homework.Map{"2024-09-01": "old"}))

	h := NewHomeworkHandler(f.records, f.sweeper, nil)
	_, err := h.Set(ctx, SetHomeworkCommand{Date: timeutil.Date(2024, time.October, 2), Task: "new"})
	require.NoError(t, err)

	assert.Equal(t, homework.Map{"2024-10-02": "new"}, f.records.Homework(ctx))
}

func TestReplaceSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(timeutil.Today())
	h := NewReplaceScheduleHandler(f.records, nil)

	_, err := h.Handle(ctx, [5]string{"m", "t", "w", "th", "f"})
	require.NoError(t, err)

	_, text, ok := f.records.Schedule(ctx).Lookup("Понедельнк")
	require.True(t, ok)
	assert.Equal(t, "m", text)
}

func TestRoster_AddRemoveSet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(timeutil.Today())
	h := NewRosterHandler(f.records, nil)

	entry, err := h.Add(ctx, "@alice")
	require.NoError(t, err)
	assert.Equal(t, "alice, @alice", entry)

	_, err = h.Add(ctx, "a b")
	assert.ErrorIs(t, err, shared.ErrInvalidHandle)

	assert.ErrorIs(t, h.Remove(ctx, "@bob"), shared.ErrRosterEntryAbsent)
	require.NoError(t, h.Remove(ctx, "alice"))
	assert.Empty(t, h.List(ctx))

	n, err := h.Set(ctx, "@a1x; @b2x\n@c3x")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, roster.Roster{"a1x, @a1x", "b2x, @b2x", "c3x, @c3x"}, h.List(ctx))

	_, err = h.Set(ctx, " ; ")
	assert.ErrorIs(t, err, shared.ErrEmptyRoster)
}

func TestAddJoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture(timeutil.Today())
	h := NewAddJokeHandler(f.records, nil)

	require.NoError(t, h.Handle(ctx, " joke "))
	assert.Error(t, h.Handle(ctx, "   "))
	assert.Len(t, f.records.Jokes(ctx), 1)
}
