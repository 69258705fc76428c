// Package app assembles the bot's shared parts from configuration so the bot
// and the worker binaries open storage and schedule jobs the same way.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/classhub/classbot/config"
	"github.com/classhub/classbot/internal/application/admin"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/infrastructure/external/telegram"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/internal/infrastructure/persistence/postgres"
	"github.com/classhub/classbot/internal/infrastructure/persistence/redis"
	"github.com/classhub/classbot/internal/infrastructure/scheduler"
	"github.com/classhub/classbot/internal/infrastructure/scheduler/jobs"
	tgbot "github.com/classhub/classbot/internal/interface/telegram"
	"github.com/classhub/classbot/pkg/logger"
	"github.com/classhub/classbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CORE
// ══════════════════════════════════════════════════════════════════════════════

// Core holds the storage and application services every process needs.
type Core struct {
	Config *config.Config
	Logger *slog.Logger

	Store   persistence.Backend
	Records *persistence.Records
	Policy  *admin.Policy

	Client    *telegram.Client
	Transport *tgbot.Transport

	Sweeper *command.SweepHomeworkHandler
	Duty    *query.GetDutyHandler
}

// NewCore opens the record store and builds the services on top of it.
func NewCore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Core, error) {
	if log == nil {
		log = slog.Default()
	}

	cal, err := cfg.School.Calendar()
	if err != nil {
		return nil, fmt.Errorf("school calendar: %w", err)
	}

	store, err := persistence.Open(ctx, StoreOptions(cfg, log))
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	records := persistence.NewRecords(store, log)
	client := telegram.NewClient(telegram.ClientConfig{
		Token:         cfg.Telegram.Token,
		BaseURL:       cfg.Telegram.BaseURL,
		Timeout:       cfg.Telegram.RequestTimeout,
		RetryAttempts: cfg.Telegram.RetryAttempts,
		RetryDelay:    cfg.Telegram.RetryDelay,
		Logger:        log,
		Debug:         cfg.App.Debug,
	})

	return &Core{
		Config:    cfg,
		Logger:    log,
		Store:     store,
		Records:   records,
		Policy:    admin.NewPolicy(records, log),
		Client:    client,
		Transport: tgbot.NewTransport(client),
		Sweeper:   command.NewSweepHomeworkHandler(records, cfg.School.HomeworkTTLDays, timeutil.Today, log),
		Duty:      query.NewGetDutyHandler(records, cal, timeutil.Today),
	}, nil
}

// Close releases the record store.
func (c *Core) Close() error {
	return c.Store.Close()
}

// StoreOptions maps the storage section of cfg onto persistence options.
func StoreOptions(cfg *config.Config, log *slog.Logger) persistence.Options {
	pg := postgres.DefaultConfig()
	if cfg.Storage.MaxConns > 0 {
		pg.MaxConns = int32(cfg.Storage.MaxConns)
	}
	if cfg.Storage.MinConns > 0 {
		pg.MinConns = int32(cfg.Storage.MinConns)
	}
	if cfg.Storage.ConnMaxLifetime > 0 {
		pg.MaxConnLifetime = cfg.Storage.ConnMaxLifetime
	}
	if cfg.Storage.ConnMaxIdleTime > 0 {
		pg.MaxConnIdleTime = cfg.Storage.ConnMaxIdleTime
	}

	rc := redis.DefaultConfig()
	rc.Host = cfg.Storage.Redis.Host
	rc.Port = cfg.Storage.Redis.Port
	rc.Password = cfg.Storage.Redis.Password
	rc.DB = cfg.Storage.Redis.DB
	if cfg.Storage.Redis.KeyPrefix != "" {
		rc.KeyPrefix = cfg.Storage.Redis.KeyPrefix
	}
	if cfg.Storage.Redis.PoolSize > 0 {
		rc.PoolSize = cfg.Storage.Redis.PoolSize
	}

	return persistence.Options{
		Backend:     cfg.Storage.Backend,
		SQLitePath:  cfg.Storage.SQLitePath,
		DatabaseURL: cfg.Storage.DatabaseURL,
		Postgres:    pg,
		Redis:       rc,
		Migrate:     cfg.Storage.AutoMigrate,
		Logger:      log,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULED JOBS
// ══════════════════════════════════════════════════════════════════════════════

// NewScheduler registers the scheduled jobs enabled by the feature flags.
// A nil sessions skips the idle session cleanup, which only the bot has.
func (c *Core) NewScheduler(sessions jobs.SessionExpirer) (*scheduler.Scheduler, error) {
	cfg := c.Config
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   c.Logger,
		Timezone: cfg.Location(),
		Now:      timeutil.Now,
	})

	if cfg.Features.IsEnabled(config.FeatureDutyReminder) {
		at, err := scheduler.DailyAt(cfg.Scheduler.DutyReminderTime)
		if err != nil {
			return nil, fmt.Errorf("DUTY_REMINDER_TIME: %w", err)
		}
		job := jobs.NewDutyAnnouncementJob(c.Duty, c.Policy, c.Transport, c.Store, timeutil.Today, c.Logger)
		if err := sched.Register(job, at); err != nil {
			return nil, err
		}
	}

	if cfg.Features.IsEnabled(config.FeatureHomeworkSweep) {
		at, err := scheduler.DailyAt(cfg.Scheduler.HomeworkCleanupTime)
		if err != nil {
			return nil, fmt.Errorf("HOMEWORK_CLEANUP_TIME: %w", err)
		}
		if err := sched.Register(jobs.NewHomeworkSweepJob(c.Sweeper, c.Store, c.Logger), at); err != nil {
			return nil, err
		}
	}

	if sessions != nil {
		job := jobs.NewSessionCleanupJob(sessions, cfg.Telegram.SessionIdleTimeout, c.Logger)
		if err := sched.Register(job, scheduler.NewIntervalSchedule(cfg.Scheduler.SessionCleanupInterval)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(cfg *config.Config) *slog.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level.Slog()}

	var handler slog.Handler
	if strings.EqualFold(cfg.Observability.LogFormat, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("app", cfg.App.Name, "env", string(cfg.App.Environment))
	slog.SetDefault(log)
	return log
}

// AccessLogger wraps the process logger for the HTTP access log.
func AccessLogger(log *slog.Logger) *logger.Logger {
	return logger.FromSlog(log)
}

// ShutdownContext bounds a graceful shutdown by the configured timeout.
func ShutdownContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := cfg.App.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}
