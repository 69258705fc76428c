package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/application/admin"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/domain/calendar"
	"github.com/classhub/classbot/internal/infrastructure/external/telegram"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
	"github.com/classhub/classbot/internal/interface/telegram/conversation"
	"github.com/classhub/classbot/internal/interface/telegram/handler"
	"github.com/classhub/classbot/internal/interface/telegram/middleware"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
	"github.com/classhub/classbot/pkg/timeutil"
)

type sentMessage struct {
	ChatID   int64
	Text     string
	Keyboard [][]string
}

type fakeBotAPI struct {
	mu       sync.Mutex
	messages []sentMessage
	photos   int
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/file/"):
		_, _ = w.Write([]byte("jpeg-bytes"))
		return
	case strings.HasSuffix(r.URL.Path, "/getFile"):
		_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"F","file_path":"photos/a.jpg"}}`))
		return
	case strings.HasSuffix(r.URL.Path, "/sendPhoto"):
		f.photos++
	case strings.HasSuffix(r.URL.Path, "/sendMessage"):
		var body struct {
			ChatID      int64  `json:"chat_id"`
			Text        string `json:"text"`
			ReplyMarkup *struct {
				Keyboard [][]struct {
					Text string `json:"text"`
				} `json:"keyboard"`
			} `json:"reply_markup"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		msg := sentMessage{ChatID: body.ChatID, Text: body.Text}
		if body.ReplyMarkup != nil {
			for _, row := range body.ReplyMarkup.Keyboard {
				labels := make([]string, 0, len(row))
				for _, b := range row {
					labels = append(labels, b.Text)
				}
				msg.Keyboard = append(msg.Keyboard, labels)
			}
		}
		f.messages = append(f.messages, msg)
	}
	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1,"type":"private"}}}`))
}

func (f *fakeBotAPI) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.messages...)
}

func (f *fakeBotAPI) last(t *testing.T) sentMessage {
	t.Helper()
	msgs := f.sent()
	require.NotEmpty(t, msgs)
	return msgs[len(msgs)-1]
}

type botFixture struct {
	bot     *Bot
	api     *fakeBotAPI
	records *persistence.Records
	policy  *admin.Policy
}

func newBotFixture(t *testing.T, rate middleware.RateLimitConfig) *botFixture {
	t.Helper()

	api := &fakeBotAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	clientConfig := telegram.DefaultClientConfig("TOKEN")
	clientConfig.BaseURL = srv.URL
	clientConfig.RetryAttempts = 0
	client := telegram.NewClient(clientConfig)

	records := persistence.NewRecords(memory.NewStore(), nil)
	policy := admin.NewPolicy(records, nil)
	today := func() time.Time { return timeutil.Date(2024, time.September, 4) }
	sweeper := command.NewSweepHomeworkHandler(records, 14, today, nil)
	broadcast := command.NewBroadcastHandler(policy, NewTransport(client), nil)
	duty := query.NewGetDutyHandler(records, calendar.DefaultConfig(), today)
	rosterCmd := command.NewRosterHandler(records, nil)

	engine := conversation.NewEngine(conversation.Deps{
		Policy:    policy,
		Duty:      duty,
		Roster:    rosterCmd,
		Schedule:  command.NewReplaceScheduleHandler(records, nil),
		Jokes:     command.NewAddJokeHandler(records, nil),
		Broadcast: broadcast,
		Photos:    NewTransport(client),
	}, conversation.Config{TempDir: t.TempDir(), HomeworkTTLDays: 14}, nil)

	config := DefaultBotConfig()
	config.RateLimit = rate
	bot, err := NewBot(config, BotDependencies{
		Client:          client,
		Engine:          engine,
		Policy:          policy,
		Homework:        command.NewHomeworkHandler(records, sweeper, nil),
		Roster:          rosterCmd,
		Broadcast:       broadcast,
		GetHomework:     query.NewGetHomeworkHandler(sweeper),
		ListHomework:    query.NewListHomeworkHandler(sweeper),
		Schedule:        query.NewGetScheduleHandler(records),
		Duty:            duty,
		Jokes:           query.NewRandomJokeHandler(records, nil),
		Today:           today,
		HomeworkTTLDays: 14,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = bot.Stop(context.Background()) })

	return &botFixture{bot: bot, api: api, records: records, policy: policy}
}

func relaxedLimits() middleware.RateLimitConfig {
	cfg := middleware.DefaultRateLimitConfig()
	cfg.BurstSize = 1000
	return cfg
}

func textUpdate(userID int64, username string, chatID int64, chatType, text string) *telegram.Update {
	return &telegram.Update{Message: &telegram.Message{
		From: &telegram.User{ID: userID, Username: username},
		Chat: &telegram.Chat{ID: chatID, Type: chatType},
		Text: text,
	}}
}

func private(userID int64, username, text string) *telegram.Update {
	return textUpdate(userID, username, userID, telegram.ChatPrivate, text)
}

func (f *botFixture) send(t *testing.T, u *telegram.Update) {
	t.Helper()
	require.NoError(t, f.bot.HandleUpdate(context.Background(), u))
}

func TestBot_StartBootstrapsAdminAndShowsMenu(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())

	f.send(t, private(1, "Teacher", "/start"))

	msg := f.api.last(t)
	assert.Equal(t, int64(1), msg.ChatID)
	assert.Equal(t, presenter.Start(14), msg.Text)
	assert.Contains(t, msg.Keyboard, []string{presenter.ButtonAddChat, presenter.ButtonAddAdmin})
	assert.True(t, f.policy.IsAdmin(context.Background(), "Teacher"))
	assert.False(t, f.policy.IsAdmin(context.Background(), "teacher"))

	f.send(t, private(2, "pupil", "/start@class_bot"))
	msg = f.api.last(t)
	assert.NotContains(t, msg.Keyboard, []string{presenter.ButtonAddChat, presenter.ButtonAddAdmin})
}

func TestBot_AdminGate(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())
	f.send(t, private(1, "teacher", "/start"))
	before := len(f.api.sent())

	f.send(t, private(2, "pupil", "/s hello"))
	f.send(t, private(2, "pupil", "/test"))
	assert.Len(t, f.api.sent(), before, "broadcast commands are silent for non-admins")

	f.send(t, private(2, "pupil", "/dz_edit 05.09 x"))
	assert.Equal(t, presenter.MsgAdminCommand, f.api.last(t).Text)

	f.send(t, private(2, "pupil", "/d_set list"))
	assert.Equal(t, presenter.MsgAdminsOnly, f.api.last(t).Text)

	f.send(t, private(1, "teacher", "/d_set list"))
	assert.Equal(t, presenter.MsgRosterEmpty, f.api.last(t).Text)
}

func TestBot_PublicCommands(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())

	f.send(t, textUpdate(5, "pupil", -100, telegram.ChatSupergroup, "/dz завтра §1"))
	msg := f.api.last(t)
	assert.Equal(t, int64(-100), msg.ChatID)
	assert.Equal(t, presenter.HomeworkSaved(timeutil.Date(2024, time.September, 5), timeutil.Date(2024, time.September, 19)), msg.Text)

	f.send(t, textUpdate(5, "pupil", -100, telegram.ChatSupergroup, "/d"))
	assert.Equal(t, "Список дежурных пуст.", f.api.last(t).Text)

	f.send(t, textUpdate(5, "pupil", -100, telegram.ChatSupergroup, "/help"))
	assert.Equal(t, presenter.Help(14), f.api.last(t).Text)
}

func TestBot_IgnoresUnknownCommandsAndGroupChatter(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())

	f.send(t, private(1, "teacher", "/nope"))
	f.send(t, textUpdate(5, "pupil", -100, telegram.ChatGroup, "привет всем"))
	f.send(t, &telegram.Update{})
	assert.Empty(t, f.api.sent())
}

func TestBot_CommandMidDialogKeepsState(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())
	f.send(t, private(1, "teacher", "/start"))
	f.send(t, private(1, "teacher", presenter.ButtonAddAdmin))
	require.Equal(t, conversation.AwaitingAdminHandle{}, f.bot.engine.State(1, 1))

	f.send(t, private(1, "teacher", "/d"))
	assert.Equal(t, conversation.AwaitingAdminHandle{}, f.bot.engine.State(1, 1))

	f.send(t, private(1, "teacher", "@helper"))
	assert.Equal(t, presenter.AdminAdded("@helper"), f.api.last(t).Text)
}

func TestBot_PhotoFlowDownloadsAndPosts(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())
	f.send(t, private(1, "teacher", "/start"))
	_, err := f.policy.SetBroadcastTarget(context.Background(), "-100500")
	require.NoError(t, err)

	f.send(t, private(1, "teacher", "/si"))
	assert.Equal(t, presenter.PhotoTargetKnown(-100500), f.api.last(t).Text)

	photo := private(1, "teacher", "")
	photo.Message.Photo = []telegram.PhotoSize{{FileID: "small"}, {FileID: "F"}}
	photo.Message.Caption = "<b>Итоги</b>"
	f.send(t, photo)

	assert.Equal(t, presenter.MsgPhotoSent, f.api.last(t).Text)
	assert.Equal(t, 1, f.api.photos)
	assert.Equal(t, conversation.Menu{}, f.bot.engine.State(1, 1))
}

func TestBot_RateLimit(t *testing.T) {
	cfg := middleware.DefaultRateLimitConfig()
	cfg.BurstSize = 1
	cfg.RequestsPerMinute = 1
	f := newBotFixture(t, cfg)

	f.send(t, private(1, "teacher", "/help"))
	f.send(t, private(1, "teacher", "/help"))
	assert.Contains(t, f.api.last(t).Text, "Слишком много запросов")

	before := len(f.api.sent())
	f.send(t, textUpdate(1, "teacher", -100, telegram.ChatGroup, "chatter"))
	assert.Len(t, f.api.sent(), before, "group chatter is neither limited nor answered")
}

func TestBot_RecoversFromPanics(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())
	f.bot.Router().RegisterCommand("boom", handler.Func(func(context.Context, handler.Request) (*presenter.Reply, error) {
		panic("kaboom")
	}))

	f.send(t, private(1, "teacher", "/boom"))
	assert.Equal(t, presenter.MsgInternalError, f.api.last(t).Text)

	stats := f.bot.Stats()
	assert.Equal(t, int64(1), stats.UpdatesReceived)
	assert.Equal(t, int64(1), stats.Requests.TotalErrors)
}

func TestBot_EnqueueKeepsUsersOnOneWorker(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())
	queues := []chan *telegram.Update{make(chan *telegram.Update, 4), make(chan *telegram.Update, 4)}
	ctx := context.Background()

	require.NoError(t, f.bot.enqueue(ctx, queues, private(3, "a", "1")))
	require.NoError(t, f.bot.enqueue(ctx, queues, private(3, "a", "2")))
	require.NoError(t, f.bot.enqueue(ctx, queues, private(4, "b", "1")))
	require.NoError(t, f.bot.enqueue(ctx, queues, &telegram.Update{}))

	assert.Len(t, queues[1], 2)
	assert.Len(t, queues[0], 1)
	assert.Equal(t, "1", (<-queues[1]).Message.Text)
	assert.Equal(t, "2", (<-queues[1]).Message.Text)
}

func TestTransport_DownloadPhotoAndKeyboard(t *testing.T) {
	f := newBotFixture(t, relaxedLimits())
	path := filepath.Join(t.TempDir(), "p.jpg")

	require.NoError(t, f.bot.transport.DownloadPhoto(context.Background(), "F", path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))

	markup := keyboardMarkup(presenter.MenuKeyboard(false))
	require.NotNil(t, markup)
	assert.True(t, markup.ResizeKeyboard)
	assert.Equal(t, presenter.ButtonSchedule, markup.Keyboard[0][0].Text)
	assert.Nil(t, keyboardMarkup(nil))
}
