// Package main is the entry point of the class Telegram bot.
//
// One process long-polls the Bot API, runs the scheduled duty announcement
// and homework cleanup, and serves the keep-alive endpoint for uptime
// pingers on free hosting.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/classhub/classbot/config"
	"github.com/classhub/classbot/internal/app"
	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/infrastructure/scheduler"
	httpserver "github.com/classhub/classbot/internal/interface/http"
	"github.com/classhub/classbot/internal/interface/http/handlers"
	"github.com/classhub/classbot/internal/interface/telegram"
	"github.com/classhub/classbot/internal/interface/telegram/conversation"
	"github.com/classhub/classbot/internal/interface/telegram/middleware"
	"github.com/classhub/classbot/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every layer together and blocks until a signal or a fatal error.
func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGER AND CLOCK
	// ─────────────────────────────────────────────────────────────────────────
	log := app.SetupLogger(cfg)
	timeutil.SetLocation(cfg.Location())
	log.Info("starting class bot",
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
		"timezone", cfg.Location().String(),
		"backend", cfg.Storage.Backend,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE AND APPLICATION SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Error("failed to close record store", "error", err)
		}
	}()

	records := core.Records
	roster := command.NewRosterHandler(records, log)
	broadcast := command.NewBroadcastHandler(core.Policy, core.Transport, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 4. CONVERSATION ENGINE
	// ─────────────────────────────────────────────────────────────────────────
	engine := conversation.NewEngine(conversation.Deps{
		Policy:    core.Policy,
		Duty:      core.Duty,
		Roster:    roster,
		Schedule:  command.NewReplaceScheduleHandler(records, log),
		Jokes:     command.NewAddJokeHandler(records, log),
		Broadcast: broadcast,
		Photos:    core.Transport,
	}, conversation.Config{
		TempDir:         cfg.App.TempDir,
		HomeworkTTLDays: cfg.School.HomeworkTTLDays,
	}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	botConfig := telegram.DefaultBotConfig()
	botConfig.PollingTimeout = cfg.Telegram.PollingTimeout
	botConfig.Workers = cfg.Telegram.Workers
	botConfig.HandlerTimeout = cfg.Telegram.HandlerTimeout
	botConfig.GracefulShutdownTimeout = cfg.App.ShutdownTimeout
	botConfig.Debug = cfg.App.Debug
	botConfig.Logger = log
	botConfig.RateLimit = middleware.RateLimitConfig{
		RequestsPerMinute: cfg.Telegram.UserRateLimit,
		BurstSize:         cfg.Telegram.UserRateBurst,
		CleanupInterval:   middleware.DefaultRateLimitConfig().CleanupInterval,
		BanDuration:       cfg.Telegram.UserRateLimitBan,
		BanThreshold:      middleware.DefaultRateLimitConfig().BanThreshold,
	}
	if !cfg.Features.IsEnabled(config.FeatureRateLimit) {
		botConfig.RateLimit.RequestsPerMinute = 0
	}

	bot, err := telegram.NewBot(botConfig, telegram.BotDependencies{
		Client:          core.Client,
		Engine:          engine,
		Policy:          core.Policy,
		Homework:        command.NewHomeworkHandler(records, core.Sweeper, log),
		Roster:          roster,
		Broadcast:       broadcast,
		GetHomework:     query.NewGetHomeworkHandler(core.Sweeper),
		ListHomework:    query.NewListHomeworkHandler(core.Sweeper),
		Schedule:        query.NewGetScheduleHandler(records),
		Duty:            core.Duty,
		Jokes:           query.NewRandomJokeHandler(records, nil),
		Today:           timeutil.Today,
		HomeworkTTLDays: cfg.School.HomeworkTTLDays,
	})
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := core.NewScheduler(engine)
	if err != nil {
		return fmt.Errorf("failed to set up scheduler: %w", err)
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		for _, job := range sched.ListJobs() {
			log.Info("job scheduled", "job", job.Name, "schedule", job.Schedule, "next_run", job.NextRun)
		}
	} else {
		log.Warn("scheduler disabled, no duty announcement or homework cleanup will run")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 2)

	var httpServer *httpserver.Server
	if cfg.HTTP.Enabled && cfg.Features.IsEnabled(config.FeatureKeepAlive) {
		health := handlers.NewCompositeHealthChecker(cfg.App.Version)
		health.AddCheck("store", handlers.NewPingCheck(core.Store))

		httpConfig := httpserver.DefaultConfig()
		httpConfig.Host = cfg.HTTP.Host
		httpConfig.Port = cfg.HTTP.Port
		httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
		httpConfig.StatsToken = cfg.HTTP.StatsToken

		httpServer = httpserver.NewServer(httpConfig, httpserver.Dependencies{
			Logger:        app.AccessLogger(log),
			HealthChecker: health,
			Bot:           bot,
			Jobs:          sched,
		})
		go func() {
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. POLLING
	// ─────────────────────────────────────────────────────────────────────────
	go func() {
		if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("telegram bot error: %w", err)
		}
	}()
	log.Info("class bot started")

	// ─────────────────────────────────────────────────────────────────────────
	// 9. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case runErr = <-errCh:
		log.Error("fatal component error", "error", runErr)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	shutdownCtx, cancel := app.ShutdownContext(cfg)
	defer cancel()

	shutdown(shutdownCtx, log, bot, sched, httpServer)
	return runErr
}

// shutdown stops polling first so no update starts while jobs and the HTTP
// server wind down.
func shutdown(ctx context.Context, log *slog.Logger, bot *telegram.Bot, sched *scheduler.Scheduler, httpServer *httpserver.Server) {
	var failed bool

	log.Info("stopping telegram bot...")
	if err := bot.Stop(ctx); err != nil {
		log.Error("failed to stop bot gracefully", "error", err)
		failed = true
	}

	if sched.IsRunning() {
		log.Info("stopping scheduler...")
		if err := sched.Stop(); err != nil {
			log.Error("failed to stop scheduler", "error", err)
			failed = true
		}
	}

	if httpServer != nil {
		log.Info("stopping HTTP server...")
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error("failed to stop HTTP server gracefully", "error", err)
			failed = true
		}
	}

	if failed {
		log.Warn("shutdown completed with errors")
	} else {
		log.Info("shutdown completed successfully")
	}
}
