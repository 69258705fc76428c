package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/application/admin"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/domain/calendar"
	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
	"github.com/classhub/classbot/pkg/timeutil"
)

type sent struct {
	chatID int64
	text   string
	html   bool
}

type fakeSender struct {
	texts []sent
	err   error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, html bool) error {
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, sent{chatID, text, html})
	return nil
}

func (f *fakeSender) SendPhoto(context.Context, int64, string, string, bool) error { return nil }

type fixedDuty calendar.Resolution

func (d fixedDuty) Handle(context.Context) calendar.Resolution { return calendar.Resolution(d) }

type fixture struct {
	store   *memory.Store
	records *persistence.Records
	policy  *admin.Policy
	sender  *fakeSender
	today   time.Time
}

func newFixture() *fixture {
	store := memory.NewStore()
	records := persistence.NewRecords(store, nil)
	return &fixture{
		store:   store,
		records: records,
		policy:  admin.NewPolicy(records, nil),
		sender:  &fakeSender{},
		today:   timeutil.Date(2024, time.September, 4),
	}
}

func (f *fixture) clock() time.Time { return f.today }

func TestDutyAnnouncement_SkipsWithoutTarget(t *testing.T) {
	f := newFixture()
	job := NewDutyAnnouncementJob(fixedDuty{Outcome: calendar.OutcomeDayOff}, f.policy, f.sender, f.store, f.clock, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, f.sender.texts)
	assert.Equal(t, "no broadcast target", job.LastRun().Skipped)
}

func TestDutyAnnouncement_PostsOncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.policy.SetBroadcastTarget(ctx, "-1001")
	require.NoError(t, err)

	job := NewDutyAnnouncementJob(fixedDuty{Outcome: calendar.OutcomeDayOff}, f.policy, f.sender, f.store, f.clock, nil)

	require.NoError(t, job.Run(ctx))
	require.NoError(t, job.Run(ctx))
	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, sent{-1001, "Сегодня дежурных нет! Отдыхайте 😎", false}, f.sender.texts[0])
	assert.Equal(t, "already announced", job.LastRun().Skipped)

	f.today = timeutil.AddDays(f.today, 1)
	require.NoError(t, job.Run(ctx))
	assert.Len(t, f.sender.texts, 2)
	assert.True(t, job.LastRun().Sent)
}

func TestDutyAnnouncement_EmptyRosterStillPosts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.policy.SetBroadcastTarget(ctx, "42")
	require.NoError(t, err)

	job := NewDutyAnnouncementJob(fixedDuty{Outcome: calendar.OutcomeEmptyRoster}, f.policy, f.sender, nil, f.clock, nil)
	require.NoError(t, job.Run(ctx))
	require.Len(t, f.sender.texts, 1)
	assert.Equal(t, "Список дежурных пуст.", f.sender.texts[0].text)
}

func TestDutyAnnouncement_SendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.policy.SetBroadcastTarget(ctx, "42")
	require.NoError(t, err)
	f.sender.err = errors.New("telegram down")

	job := NewDutyAnnouncementJob(fixedDuty{Outcome: calendar.OutcomeDayOff}, f.policy, f.sender, nil, f.clock, nil)
	err = job.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram down")
	assert.False(t, job.LastRun().Sent)
}

func TestDutyAnnouncement_SendFailureReleasesLock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.policy.SetBroadcastTarget(ctx, "42")
	require.NoError(t, err)

	job := NewDutyAnnouncementJob(fixedDuty{Outcome: calendar.OutcomeDayOff}, f.policy, f.sender, f.store, f.clock, nil)

	f.sender.err = errors.New("telegram down")
	require.Error(t, job.Run(ctx))
	assert.Empty(t, f.sender.texts)

	// The next trigger on the same date retries.
	f.sender.err = nil
	require.NoError(t, job.Run(ctx))
	require.Len(t, f.sender.texts, 1)
	assert.True(t, job.LastRun().Sent)

	require.NoError(t, job.Run(ctx))
	assert.Len(t, f.sender.texts, 1)
	assert.Equal(t, "already announced", job.LastRun().Skipped)
}

func TestHomeworkSweep_RemovesExpiredOncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.today = timeutil.Date(2024, time.September, 16)
	require.NoError(t, f.records.SaveHomework(ctx, homework.Map{"2024-09-01": "read", "2024-09-10": "write"}))

	sweeper := command.NewSweepHomeworkHandler(f.records, 14, f.clock, nil)
	job := NewHomeworkSweepJob(sweeper, f.store, nil)

	require.NoError(t, job.Run(ctx))
	assert.Equal(t, homework.Map{"2024-09-10": "write"}, f.records.Homework(ctx))

	// A second run on the same date is locked out.
	require.NoError(t, f.records.SaveHomework(ctx, homework.Map{"2024-09-01": "again"}))
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, homework.Map{"2024-09-01": "again"}, f.records.Homework(ctx))
}

type fakeExpirer struct {
	maxIdle time.Duration
	n       int
}

func (f *fakeExpirer) ExpireIdle(maxIdle time.Duration) int {
	f.maxIdle = maxIdle
	return f.n
}

func TestSessionCleanup(t *testing.T) {
	exp := &fakeExpirer{n: 2}
	job := NewSessionCleanupJob(exp, 0, nil)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Hour, exp.maxIdle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
}
