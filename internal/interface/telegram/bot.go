package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classhub/classbot/internal/application/admin"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/infrastructure/external/telegram"
	"github.com/classhub/classbot/internal/interface/telegram/conversation"
	"github.com/classhub/classbot/internal/interface/telegram/handler"
	"github.com/classhub/classbot/internal/interface/telegram/middleware"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// PollingTimeout is the long polling timeout in seconds.
	PollingTimeout int

	// Workers is the number of update workers. Updates of one user always go
	// to the same worker, so they are handled in arrival order.
	Workers int

	// QueueSize is the buffered backlog per worker.
	QueueSize int

	// HandlerTimeout bounds the handling of one update.
	HandlerTimeout time.Duration

	// GracefulShutdownTimeout is how long Stop waits for in-flight updates.
	GracefulShutdownTimeout time.Duration

	// RateLimit configures the per-user limiter.
	RateLimit middleware.RateLimitConfig

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		PollingTimeout:          30,
		Workers:                 8,
		QueueSize:               64,
		HandlerTimeout:          60 * time.Second,
		GracefulShutdownTimeout: 30 * time.Second,
		RateLimit:               middleware.DefaultRateLimitConfig(),
		Logger:                  slog.Default(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// BotDependencies contains all dependencies for the bot handlers.
type BotDependencies struct {
	Client *telegram.Client
	Engine *conversation.Engine
	Policy *admin.Policy

	// Commands
	Homework  *command.HomeworkHandler
	Roster    *command.RosterHandler
	Broadcast *command.BroadcastHandler

	// Queries
	GetHomework  *query.GetHomeworkHandler
	ListHomework *query.ListHomeworkHandler
	Schedule     *query.GetScheduleHandler
	Duty         *query.GetDutyHandler
	Jokes        *query.RandomJokeHandler

	// Today supplies the civil date for relative homework dates.
	Today func() time.Time

	// HomeworkTTLDays is shown in /help.
	HomeworkTTLDays int
}

// adminCommands maps admin-only commands to the reply non-admins get.
// An empty reply denies silently.
var adminCommands = map[string]string{
	"dz_edit": presenter.MsgAdminCommand,
	"dz_del":  presenter.MsgAdminCommand,
	"d_set":   presenter.MsgAdminsOnly,
	"s":       "",
	"test":    "",
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config    BotConfig
	client    *telegram.Client
	transport *Transport
	router    *Router
	engine    *conversation.Engine
	logger    *slog.Logger

	// Middleware chain
	authMiddleware     *middleware.AuthMiddleware
	rateLimiter        *middleware.RateLimiter
	recoveryMiddleware *middleware.RecoveryMiddleware
	metricsMiddleware  *middleware.MetricsMiddleware

	// Lifecycle management
	running   bool
	runningMu sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	stats *BotStats
}

// BotStats holds runtime statistics.
type BotStats struct {
	mu              sync.RWMutex
	StartedAt       time.Time
	UpdatesReceived int64
	UpdatesHandled  int64
	ErrorsCount     int64
}

// StatsSnapshot is the exported view of the bot counters.
type StatsSnapshot struct {
	StartedAt       time.Time                   `json:"started_at"`
	Uptime          string                      `json:"uptime"`
	Running         bool                        `json:"running"`
	UpdatesReceived int64                       `json:"updates_received"`
	UpdatesHandled  int64                       `json:"updates_handled"`
	ErrorsCount     int64                       `json:"errors_count"`
	Requests        *middleware.MetricsSnapshot `json:"requests"`
}

// NewBot creates a new Telegram bot with all dependencies.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if deps.Client == nil {
		return nil, errors.New("telegram client is required")
	}
	if deps.Engine == nil {
		return nil, errors.New("conversation engine is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = 60 * time.Second
	}
	logger := config.Logger.With("component", "telegram_bot")

	// Create handlers
	homeworkHandler := handler.NewHomeworkHandler(deps.GetHomework, deps.ListHomework, deps.Homework, deps.Today)
	broadcastHandler := handler.NewBroadcastHandler(deps.Broadcast)

	router := NewRouter(RouterConfig{Logger: config.Logger, Debug: config.Debug}, deps.Engine)
	router.RegisterCommand("help", handler.NewHelpHandler(deps.HomeworkTTLDays))
	router.RegisterCommand("r", handler.NewScheduleHandler(deps.Schedule))
	router.RegisterCommand("d", handler.NewDutyHandler(deps.Duty))
	router.RegisterCommand("d_set", handler.NewRosterHandler(deps.Roster))
	router.RegisterCommand("joke", handler.NewJokeHandler(deps.Jokes))
	router.RegisterCommand("dz", handler.Func(homeworkHandler.Show))
	router.RegisterCommand("dz_list", handler.Func(homeworkHandler.List))
	router.RegisterCommand("dz_edit", handler.Func(homeworkHandler.Edit))
	router.RegisterCommand("dz_del", handler.Func(homeworkHandler.Delete))
	router.RegisterCommand("s", handler.Func(broadcastHandler.Send))
	router.RegisterCommand("test", handler.Func(broadcastHandler.Test))

	// Create middleware
	authConfig := middleware.DefaultAuthConfig()
	authConfig.AdminCommands = adminCommands
	authConfig.Logger = config.Logger

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.UserErrorMessage = presenter.MsgInternalError
	recoveryConfig.Logger = config.Logger

	metricsConfig := middleware.DefaultMetricsConfig()
	metricsConfig.OnSlowRequest = func(cmd string, d time.Duration, userID int64) {
		logger.Warn("slow request", "command", cmd, "duration", d, "user_id", userID)
	}

	return &Bot{
		config:             config,
		client:             deps.Client,
		transport:          NewTransport(deps.Client),
		router:             router,
		engine:             deps.Engine,
		logger:             logger,
		authMiddleware:     middleware.NewAuthMiddleware(deps.Policy, authConfig),
		rateLimiter:        middleware.NewRateLimiter(config.RateLimit),
		recoveryMiddleware: middleware.NewRecoveryMiddleware(recoveryConfig),
		metricsMiddleware:  middleware.NewMetricsMiddleware(metricsConfig),
		stats:              &BotStats{},
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Start verifies the token, drops any webhook and long-polls until ctx ends
// or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	b.runningMu.Lock()
	if b.running {
		b.runningMu.Unlock()
		return errors.New("bot is already running")
	}
	pollCtx, cancel := context.WithCancel(ctx)
	b.running = true
	b.cancel = cancel
	b.done = make(chan struct{})
	b.runningMu.Unlock()

	b.stats.mu.Lock()
	b.stats.StartedAt = time.Now()
	b.stats.mu.Unlock()

	defer func() {
		b.runningMu.Lock()
		b.running = false
		close(b.done)
		b.runningMu.Unlock()
	}()

	if err := b.verifyToken(pollCtx); err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}
	if err := b.client.DeleteWebhook(pollCtx, false); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	queues := b.startWorkers(context.WithoutCancel(ctx))
	err := b.client.StartPolling(pollCtx, b.config.PollingTimeout, func(ctx context.Context, update *telegram.Update) error {
		return b.enqueue(ctx, queues, update)
	})
	for _, q := range queues {
		close(q)
	}
	return err
}

// Stop stops polling, waits for queued updates and releases the engine and
// the rate limiter.
func (b *Bot) Stop(ctx context.Context) error {
	b.runningMu.RLock()
	cancel, done := b.cancel, b.done
	b.runningMu.RUnlock()

	if cancel != nil {
		b.logger.Info("stopping telegram bot")
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	finished := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(finished)
	}()

	var err error
	select {
	case <-finished:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	case <-ctx.Done():
		b.logger.Warn("context cancelled during shutdown")
		err = ctx.Err()
	}

	b.closeOnce.Do(func() {
		b.engine.Close()
		b.rateLimiter.Close()
	})
	return err
}

// IsRunning returns whether the bot is currently polling.
func (b *Bot) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// verifyToken verifies the bot token by calling getMe.
func (b *Bot) verifyToken(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}
	b.logger.Info("bot verified", "id", me.ID, "username", me.Username)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// WORKERS
// ══════════════════════════════════════════════════════════════════════════════

func (b *Bot) startWorkers(ctx context.Context) []chan *telegram.Update {
	queues := make([]chan *telegram.Update, b.config.Workers)
	for i := range queues {
		queues[i] = make(chan *telegram.Update, b.config.QueueSize)
		b.wg.Add(1)
		go func(q <-chan *telegram.Update) {
			defer b.wg.Done()
			for update := range q {
				b.process(ctx, update)
			}
		}(queues[i])
	}
	return queues
}

func (b *Bot) enqueue(ctx context.Context, queues []chan *telegram.Update, update *telegram.Update) error {
	userID := senderID(update)
	if userID == 0 {
		return nil
	}
	q := queues[int(uint64(userID)%uint64(len(queues)))]
	select {
	case q <- update:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) process(ctx context.Context, update *telegram.Update) {
	ctx, cancel := context.WithTimeout(ctx, b.config.HandlerTimeout)
	defer cancel()

	if err := b.HandleUpdate(ctx, update); err != nil {
		b.logger.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
	}
}

func senderID(update *telegram.Update) int64 {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return 0
	}
	return update.Message.From.ID
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// HandleUpdate processes a single update synchronously. Only new messages
// are handled; everything else is ignored.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) error {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.From.IsBot {
		return nil
	}

	b.stats.mu.Lock()
	b.stats.UpdatesReceived++
	b.stats.mu.Unlock()

	m := toMessage(msg)
	ctx = middleware.ContextWithUserID(ctx, m.UserID)
	ctx = middleware.ContextWithRequestID(ctx, uuid.NewString())

	err := b.handleMessage(ctx, m)

	b.stats.mu.Lock()
	if err != nil {
		b.stats.ErrorsCount++
	} else {
		b.stats.UpdatesHandled++
	}
	b.stats.mu.Unlock()
	return err
}

func toMessage(msg *telegram.Message) Message {
	m := Message{
		UserID:   msg.From.ID,
		Username: msg.From.Username,
		ChatID:   msg.Chat.ID,
		Private:  telegram.IsPrivateChat(msg),
		Command:  telegram.ExtractCommand(msg),
		Args:     telegram.ExtractCommandArgs(msg),
		Text:     msg.Text,
		Caption:  msg.Caption,
	}
	if photo, ok := msg.LargestPhoto(); ok {
		m.PhotoFileID = photo.FileID
	}
	return m
}

func (b *Bot) handleMessage(ctx context.Context, m Message) error {
	if b.config.Debug {
		b.logger.Debug("incoming message",
			"user_id", m.UserID,
			"chat_id", m.ChatID,
			"command", m.Command,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
	}

	// Group chatter is not rate limited; the engine answers it only inside a
	// menu session.
	if m.Command != "" || m.Private {
		if res := b.rateLimiter.Check(ctx, m.UserID); !res.Allowed {
			if res.IsBanned {
				return nil
			}
			return b.transport.Reply(ctx, m.ChatID, presenter.Text(presenter.RateLimited(res.RetryAfter)))
		}
	}

	if m.Command != "" {
		auth := b.authMiddleware.Authenticate(ctx, middleware.AuthRequest{
			Username: m.Username,
			Private:  m.Private,
			Command:  m.Command,
		})
		if !auth.ShouldContinue {
			return b.transport.Reply(ctx, m.ChatID, presenter.Text(auth.ResponseMessage))
		}
	}

	name := m.Command
	if name == "" {
		name = "message"
	}
	rc := b.metricsMiddleware.Start(name, m.UserID)

	var reply *presenter.Reply
	result := b.recoveryMiddleware.RecoverWithHandler(ctx, m.UserID, name, func() error {
		var err error
		reply, err = b.router.Route(ctx, m)
		return err
	})

	var handlerErr error
	switch {
	case result.Recovered:
		handlerErr = result.PanicInfo.Error
		reply = presenter.Text(result.UserMessage)
	case result.Err != nil:
		handlerErr = fmt.Errorf("%s (request %s): %w", name, middleware.RequestIDFromContext(ctx), result.Err)
		reply = presenter.Text(presenter.MsgInternalError)
	}
	rc.End(handlerErr)

	if err := b.transport.Reply(ctx, m.ChatID, reply); err != nil {
		return errors.Join(handlerErr, fmt.Errorf("send reply to %d: %w", m.ChatID, err))
	}
	if result.Recovered {
		return nil
	}
	return handlerErr
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS
// ══════════════════════════════════════════════════════════════════════════════

// Stats returns current bot statistics.
func (b *Bot) Stats() *StatsSnapshot {
	b.stats.mu.RLock()
	snap := &StatsSnapshot{
		StartedAt:       b.stats.StartedAt,
		UpdatesReceived: b.stats.UpdatesReceived,
		UpdatesHandled:  b.stats.UpdatesHandled,
		ErrorsCount:     b.stats.ErrorsCount,
	}
	b.stats.mu.RUnlock()

	if !snap.StartedAt.IsZero() {
		snap.Uptime = time.Since(snap.StartedAt).Round(time.Second).String()
	}
	snap.Running = b.IsRunning()
	snap.Requests = b.metricsMiddleware.Snapshot()
	return snap
}

// Router returns the router for handler registration.
func (b *Bot) Router() *Router {
	return b.router
}
