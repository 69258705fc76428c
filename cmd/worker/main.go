// Package main is the operator CLI of the class bot.
//
// The worker runs the scheduled jobs without polling Telegram, so the daily
// duty announcement and homework cleanup keep working while the bot process
// is redeployed. Its one-shot commands run a single sweep, print or post
// today's duty, and apply postgres migrations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/classhub/classbot/config"
	"github.com/classhub/classbot/internal/app"
	"github.com/classhub/classbot/pkg/timeutil"
)

var formatFlag string

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:           "worker",
	Short:         "Scheduled jobs and maintenance for the class bot",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json or text")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the scheduler until interrupted",
		RunE:  runScheduler,
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runScheduler starts the enabled jobs and blocks until a signal arrives.
func runScheduler(cmd *cobra.Command, _ []string) error {
	return withCore(cmd, func(ctx context.Context, core *app.Core) error {
		sched, err := core.NewScheduler(nil)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
		for _, job := range sched.ListJobs() {
			core.Logger.Info("job scheduled", "job", job.Name, "schedule", job.Schedule, "next_run", job.NextRun)
		}
		core.Logger.Info("worker started")

		<-ctx.Done()
		core.Logger.Info("received shutdown signal")
		return sched.Stop()
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// loadConfig reads the configuration and installs the process logger and
// civil clock.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := app.SetupLogger(cfg).With("process", "worker")
	timeutil.SetLocation(cfg.Location())
	return cfg, log, nil
}

// withCore opens storage for the duration of fn.
func withCore(cmd *cobra.Command, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	core, err := app.NewCore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Error("failed to close record store", "error", err)
		}
	}()

	return fn(ctx, core)
}

// printResult writes v as indented JSON, or text when the format is text.
func printResult(cmd *cobra.Command, v any, text string) error {
	out := cmd.OutOrStdout()
	if formatFlag == "json" {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	_, err := fmt.Fprintln(out, text)
	return err
}
