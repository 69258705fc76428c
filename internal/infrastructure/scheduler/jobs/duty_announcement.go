// Package jobs contains the scheduled jobs of the class bot.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/domain/calendar"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/infrastructure/persistence"
	"github.com/classhub/classbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DUTY ANNOUNCEMENT JOB
// ══════════════════════════════════════════════════════════════════════════════

// DutyResolver resolves today's duty assignee.
type DutyResolver interface {
	Handle(ctx context.Context) calendar.Resolution
}

// DutyAnnouncementJob posts today's duty message to the broadcast chat.
// Every trigger posts, including day-off and empty-roster messages.
type DutyAnnouncementJob struct {
	duty    DutyResolver
	targets command.TargetSource
	sender  command.Sender
	locker  persistence.Locker
	today   func() time.Time
	logger  *slog.Logger
	lockTTL time.Duration

	lastRun atomic.Value // *DutyAnnouncementStats
}

// DutyAnnouncementStats describes the last run.
type DutyAnnouncementStats struct {
	Date    time.Time
	Sent    bool
	Skipped string
	Message string
}

// NewDutyAnnouncementJob creates a DutyAnnouncementJob. The locker may be nil
// when only one process runs the scheduler.
func NewDutyAnnouncementJob(
	duty DutyResolver,
	targets command.TargetSource,
	sender command.Sender,
	locker persistence.Locker,
	today func() time.Time,
	logger *slog.Logger,
) *DutyAnnouncementJob {
	if today == nil {
		today = timeutil.Today
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DutyAnnouncementJob{
		duty:    duty,
		targets: targets,
		sender:  sender,
		locker:  locker,
		today:   today,
		logger:  logger.With("job", "duty_announcement"),
		lockTTL: 20 * time.Hour,
	}
}

// Name returns the job name.
func (j *DutyAnnouncementJob) Name() string {
	return "duty_announcement"
}

// Description returns a human-readable description.
func (j *DutyAnnouncementJob) Description() string {
	return "Posts today's duty assignee to the broadcast chat"
}

// Run executes the announcement.
func (j *DutyAnnouncementJob) Run(ctx context.Context) error {
	stats := &DutyAnnouncementStats{Date: j.today()}
	defer j.lastRun.Store(stats)

	chatID, err := j.targets.BroadcastTarget(ctx)
	if errors.Is(err, shared.ErrNoBroadcastTarget) {
		stats.Skipped = "no broadcast target"
		j.logger.Info("broadcast target not set, skipping announcement")
		return nil
	}
	if err != nil {
		return fmt.Errorf("duty announcement: %w", err)
	}

	lock := j.Name() + ":" + timeutil.FormatISO(stats.Date)
	ok, err := acquire(ctx, j.locker, lock, j.lockTTL)
	if err != nil {
		return fmt.Errorf("duty announcement: %w", err)
	}
	if !ok {
		stats.Skipped = "already announced"
		j.logger.Info("announcement already sent today", "date", timeutil.FormatISO(stats.Date))
		return nil
	}

	stats.Message = j.duty.Handle(ctx).Message()
	if err := j.sender.SendText(ctx, chatID, stats.Message, false); err != nil {
		release(ctx, j.locker, lock, j.logger)
		return fmt.Errorf("duty announcement: send to %d: %w", chatID, err)
	}
	stats.Sent = true

	j.logger.Info("duty announced", "chat_id", chatID, "message", stats.Message)
	return nil
}

// LastRun returns the stats of the last run, or nil.
func (j *DutyAnnouncementJob) LastRun() *DutyAnnouncementStats {
	s, _ := j.lastRun.Load().(*DutyAnnouncementStats)
	return s
}

// acquire takes a run-once lock. A nil locker always grants it.
func acquire(ctx context.Context, locker persistence.Locker, name string, ttl time.Duration) (bool, error) {
	if locker == nil {
		return true, nil
	}
	ok, err := locker.TryLock(ctx, name, ttl)
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", name, err)
	}
	return ok, nil
}

// release gives back a lock after a failed run so a later trigger retries.
func release(ctx context.Context, locker persistence.Locker, name string, logger *slog.Logger) {
	if locker == nil {
		return
	}
	if err := locker.Unlock(context.WithoutCancel(ctx), name); err != nil {
		logger.Warn("failed to release job lock", "lock", name, "error", err)
	}
}
