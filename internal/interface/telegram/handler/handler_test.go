package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/application/admin"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/domain/calendar"
	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/domain/joke"
	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/schedule"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
	"github.com/classhub/classbot/pkg/timeutil"
)

type sentText struct {
	chatID int64
	text   string
	html   bool
}

type fakeSender struct {
	texts []sentText
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string, html bool) error {
	f.texts = append(f.texts, sentText{chatID: chatID, text: text, html: html})
	return nil
}

func (f *fakeSender) SendPhoto(context.Context, int64, string, string, bool) error {
	return nil
}

type fixture struct {
	records *persistence.Records
	policy  *admin.Policy
	sender  *fakeSender
	today   time.Time
}

// 2024-09-04 is a Wednesday.
func newFixture() *fixture {
	records := persistence.NewRecords(memory.NewStore(), nil)
	return &fixture{
		records: records,
		policy:  admin.NewPolicy(records, nil),
		sender:  &fakeSender{},
		today:   timeutil.Date(2024, time.September, 4),
	}
}

func (f *fixture) clock() time.Time { return f.today }

func (f *fixture) homework() *HomeworkHandler {
	sweeper := command.NewSweepHomeworkHandler(f.records, 14, f.clock, nil)
	return NewHomeworkHandler(
		query.NewGetHomeworkHandler(sweeper),
		query.NewListHomeworkHandler(sweeper),
		command.NewHomeworkHandler(f.records, sweeper, nil),
		f.clock,
	)
}

func req(args string) Request {
	return Request{UserID: 1, Username: "teacher", ChatID: 1, Private: true, Args: args}
}

func call(t *testing.T, fn Func, args string) string {
	t.Helper()
	reply, err := fn(context.Background(), req(args))
	require.NoError(t, err)
	require.NotNil(t, reply)
	return reply.Text
}

func TestHomework_Show(t *testing.T) {
	f := newFixture()
	h := f.homework()

	assert.Equal(t, presenter.MsgHomeworkUsage, call(t, h.Show, ""))
	assert.Equal(t, presenter.MsgHomeworkBadDate, call(t, h.Show, "когда-нибудь"))

	saved := call(t, h.Show, "завтра  §12,\n №3")
	assert.Equal(t, presenter.HomeworkSaved(timeutil.Date(2024, time.September, 5), timeutil.Date(2024, time.September, 19)), saved)
	assert.Equal(t, homework.Map{"2024-09-05": "§12, №3"}, f.records.Homework(context.Background()))

	shown := call(t, h.Show, "5.9")
	assert.Contains(t, shown, "Домашка на 05.09.2024:\n§12, №3")

	missing := call(t, h.Show, "6 сентября")
	assert.Contains(t, missing, "На 06.09.2024 домашки нет.")
	assert.Contains(t, missing, "/dz 06.09 <текст>")
}

func TestHomework_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := f.homework()

	assert.Equal(t, presenter.MsgHomeworkListEmpty, call(t, h.List, ""))
	assert.Equal(t, presenter.MsgHomeworkListUsage, call(t, h.List, "ten"))

	require.NoError(t, f.records.SaveHomework(ctx, homework.Map{
		"2024-09-06": "b",
		"2024-09-05": "a",
		"2024-09-03": "yesterday",
	}))
	out := call(t, h.List, "1")
	assert.Contains(t, out, "05.09.2024 (до 19.09.2024): a")
	assert.NotContains(t, out, ": b")
	assert.NotContains(t, out, "yesterday")

	out = call(t, h.List, "0")
	assert.Contains(t, out, ": a", "counts below one are clamped")
}

func TestHomework_EditAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := f.homework()

	assert.Equal(t, presenter.MsgHomeworkEditUsage, call(t, h.Edit, ""))
	assert.Equal(t, presenter.MsgHomeworkEditEmpty, call(t, h.Edit, "05.09"))
	assert.Equal(t, presenter.MsgHomeworkNoEntry, call(t, h.Edit, "05.09 new"))

	require.NoError(t, f.records.SaveHomework(ctx, homework.Map{"2024-09-05": "old"}))
	assert.Equal(t, presenter.MsgDone, call(t, h.Edit, "05.09 new text"))
	assert.Equal(t, "new text", f.records.Homework(ctx)["2024-09-05"])

	assert.Equal(t, presenter.MsgHomeworkDelUsage, call(t, h.Delete, "x"))
	assert.Equal(t, presenter.MsgHomeworkNoEntry, call(t, h.Delete, "06.09"))
	assert.Equal(t, presenter.HomeworkDeleted(timeutil.Date(2024, time.September, 5)), call(t, h.Delete, "05.09"))
	assert.Empty(t, f.records.Homework(ctx))
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := NewScheduleHandler(query.NewGetScheduleHandler(f.records))
	require.NoError(t, f.records.SaveSchedule(ctx, schedule.Expand([5]string{"m", "t", "w", "th", "f"})))

	reply, err := h.Handle(ctx, req("ПН"))
	require.NoError(t, err)
	assert.True(t, reply.HTML)
	assert.Equal(t, presenter.ScheduleDay("пн", "m"), reply.Text)

	assert.Equal(t, presenter.MsgScheduleDayMissing, call(t, h.Handle, "сб"))

	week := call(t, h.Handle, "")
	assert.Contains(t, week, "<b>Пятница:</b>\nf")
}

func TestDutyAndJoke(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	require.NoError(t, f.records.SaveRoster(ctx, roster.Roster{"a, @a", "b, @b", "c, @c"}))

	duty := NewDutyHandler(query.NewGetDutyHandler(f.records, calendar.DefaultConfig(), f.clock))
	assert.Equal(t, "Сегодня дежурный: c, @c", call(t, duty.Handle, ""))

	jokes := NewJokeHandler(query.NewRandomJokeHandler(f.records, func(int) int { return 0 }))
	assert.Equal(t, presenter.MsgJokesEmpty, call(t, jokes.Handle, ""))
	require.NoError(t, f.records.SaveJokes(ctx, joke.List{"ha"}))
	assert.Equal(t, "ha", call(t, jokes.Handle, ""))
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := NewBroadcastHandler(command.NewBroadcastHandler(f.policy, f.sender, nil))

	assert.Equal(t, presenter.MsgNoBroadcastTgt, call(t, h.Send, "hello"))
	assert.Equal(t, presenter.MsgNoBroadcastTgt, call(t, h.Test, ""))

	_, err := f.policy.SetBroadcastTarget(ctx, "-1001234567890")
	require.NoError(t, err)

	assert.Equal(t, presenter.MsgBroadcastUsage, call(t, h.Send, ""))
	assert.Equal(t, presenter.MsgBroadcastSent, call(t, h.Send, "<b>Hi</b>\\nthere\nagain"))
	assert.Equal(t, presenter.MsgTestSent, call(t, h.Test, ""))

	require.Len(t, f.sender.texts, 2)
	assert.Equal(t, sentText{chatID: -1001234567890, text: "<b>Hi</b>\nthere\nagain", html: true}, f.sender.texts[0])
	assert.Equal(t, sentText{chatID: -1001234567890, text: command.TestMessage}, f.sender.texts[1])
}

func TestRoster(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	h := NewRosterHandler(command.NewRosterHandler(f.records, nil))

	assert.Equal(t, presenter.MsgRosterUsage, call(t, h.Handle, ""))
	assert.Equal(t, presenter.MsgRosterEmpty, call(t, h.Handle, "list"))
	assert.Equal(t, presenter.MsgRosterAddUsage, call(t, h.Handle, "add"))
	assert.Equal(t, presenter.MsgRosterAddUsage, call(t, h.Handle, "add end"))
	assert.Equal(t, presenter.RosterAdded("anna, @anna"), call(t, h.Handle, "ADD @anna"))
	assert.Equal(t, "Дежурные:\n1) anna, @anna", call(t, h.Handle, "list"))

	assert.Equal(t, presenter.MsgRosterNotFound, call(t, h.Handle, "remove @boris"))
	assert.Equal(t, presenter.MsgRosterRemoved, call(t, h.Handle, "remove anna"))

	assert.Equal(t, presenter.MsgRosterSetEmpty, call(t, h.Handle, "set ;;"))
	assert.Equal(t, presenter.RosterReplaced(3), call(t, h.Handle, "set @a1b; @b2c\n@c3d, !!"))
	assert.Equal(t, roster.Roster{"a1b, @a1b", "b2c, @b2c", "c3d, @c3d"}, f.records.Roster(ctx))

	assert.Equal(t, presenter.MsgRosterUnknown, call(t, h.Handle, "shuffle"))
}

func TestHelp(t *testing.T) {
	assert.Equal(t, presenter.Help(14), call(t, NewHelpHandler(14).Handle, ""))
}

func TestSplitFirst(t *testing.T) {
	first, rest := splitFirst("  set\n@a; @b  ")
	assert.Equal(t, "set", first)
	assert.Equal(t, "@a; @b", rest)

	first, rest = splitFirst("list")
	assert.Equal(t, "list", first)
	assert.Empty(t, rest)
}
