package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classhub/classbot/config"
	"github.com/classhub/classbot/internal/app"
	"github.com/classhub/classbot/internal/infrastructure/persistence/postgres"
	"github.com/classhub/classbot/internal/infrastructure/scheduler/jobs"
	"github.com/classhub/classbot/pkg/timeutil"
)

var (
	announceFlag bool
	statusFlag   bool
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove expired homework once",
		RunE:  runSweep,
	})

	duty := &cobra.Command{
		Use:   "duty",
		Short: "Print today's duty",
		RunE:  runDuty,
	}
	duty.Flags().BoolVar(&announceFlag, "announce", false, "Post the duty to the broadcast chat unless it was posted today")
	rootCmd.AddCommand(duty)

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply postgres migrations",
		RunE:  runMigrate,
	}
	migrate.Flags().BoolVar(&statusFlag, "status", false, "List migrations without applying them")
	rootCmd.AddCommand(migrate)
}

type sweepOutput struct {
	Date      string `json:"date"`
	Removed   int    `json:"removed"`
	Remaining int    `json:"remaining"`
}

func runSweep(cmd *cobra.Command, _ []string) error {
	return withCore(cmd, func(ctx context.Context, core *app.Core) error {
		res, err := core.Sweeper.Handle(ctx)
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		out := sweepOutput{
			Date:      timeutil.FormatISO(res.Today),
			Removed:   res.Removed,
			Remaining: res.Remaining,
		}
		return printResult(cmd, out,
			fmt.Sprintf("removed %d expired entries, %d remaining", res.Removed, res.Remaining))
	})
}

type dutyOutput struct {
	Date     string `json:"date"`
	Assignee string `json:"assignee,omitempty"`
	Message  string `json:"message"`
	Sent     bool   `json:"sent"`
	Skipped  string `json:"skipped,omitempty"`
}

func runDuty(cmd *cobra.Command, _ []string) error {
	return withCore(cmd, func(ctx context.Context, core *app.Core) error {
		res := core.Duty.Handle(ctx)
		out := dutyOutput{
			Date:     timeutil.FormatISO(timeutil.Today()),
			Assignee: res.Assignee,
			Message:  res.Message(),
		}

		if announceFlag {
			job := jobs.NewDutyAnnouncementJob(core.Duty, core.Policy, core.Transport, core.Store, timeutil.Today, core.Logger)
			if err := job.Run(ctx); err != nil {
				return fmt.Errorf("announce: %w", err)
			}
			if stats := job.LastRun(); stats != nil {
				out.Sent = stats.Sent
				out.Skipped = stats.Skipped
			}
		}

		text := out.Message
		if out.Skipped != "" {
			text += "\n(not posted: " + out.Skipped + ")"
		} else if out.Sent {
			text += "\n(posted)"
		}
		return printResult(cmd, out, text)
	})
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != config.BackendPostgres {
		return errors.New("migrate: STORE_BACKEND is not postgres")
	}

	ctx := cmd.Context()
	opts := app.StoreOptions(cfg, log)
	conn, err := postgres.NewConnectionFromURL(ctx, opts.DatabaseURL, opts.Postgres)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer conn.Close()

	migrator := postgres.NewMigrator(conn)
	if statusFlag {
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		var sb strings.Builder
		for _, m := range migrations {
			state := "pending"
			if m.IsApplied {
				state = "applied " + m.AppliedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(&sb, "%03d %-24s %s\n", m.Version, m.Name, state)
		}
		return printResult(cmd, migrations, strings.TrimRight(sb.String(), "\n"))
	}

	ran, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrations applied", "count", ran)
	return printResult(cmd, map[string]int{"applied": ran}, fmt.Sprintf("applied %d migrations", ran))
}
