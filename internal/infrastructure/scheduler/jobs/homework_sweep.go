package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK SWEEP JOB
// ══════════════════════════════════════════════════════════════════════════════

// Sweeper removes expired homework.
type Sweeper interface {
	Today() time.Time
	Handle(ctx context.Context) (*command.SweepResult, error)
}

// HomeworkSweepJob removes homework past its retention window once a day.
type HomeworkSweepJob struct {
	sweeper Sweeper
	locker  persistence.Locker
	logger  *slog.Logger
	lockTTL time.Duration
}

// NewHomeworkSweepJob creates a HomeworkSweepJob. The locker may be nil.
func NewHomeworkSweepJob(sweeper Sweeper, locker persistence.Locker, logger *slog.Logger) *HomeworkSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomeworkSweepJob{
		sweeper: sweeper,
		locker:  locker,
		logger:  logger.With("job", "homework_sweep"),
		lockTTL: 20 * time.Hour,
	}
}

// Name returns the job name.
func (j *HomeworkSweepJob) Name() string {
	return "homework_sweep"
}

// Description returns a human-readable description.
func (j *HomeworkSweepJob) Description() string {
	return "Removes homework entries past their retention window"
}

// Run executes the sweep.
func (j *HomeworkSweepJob) Run(ctx context.Context) error {
	date := timeutil.FormatISO(j.sweeper.Today())
	lock := j.Name() + ":" + date
	ok, err := acquire(ctx, j.locker, lock, j.lockTTL)
	if err != nil {
		return fmt.Errorf("homework sweep: %w", err)
	}
	if !ok {
		j.logger.Info("sweep already ran today", "date", date)
		return nil
	}

	res, err := j.sweeper.Handle(ctx)
	if err != nil {
		release(ctx, j.locker, lock, j.logger)
		return fmt.Errorf("homework sweep: %w", err)
	}

	j.logger.Info("homework swept",
		"date", date,
		"removed", res.Removed,
		"remaining", res.Remaining,
	)
	return nil
}
