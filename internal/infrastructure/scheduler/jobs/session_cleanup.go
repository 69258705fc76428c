package jobs

import (
	"context"
	"log/slog"
	"time"
)

// SessionExpirer drops dialog sessions idle for longer than maxIdle.
type SessionExpirer interface {
	ExpireIdle(maxIdle time.Duration) int
}

// SessionCleanupJob abandons dialogs the user walked away from and removes
// their pending photo files.
type SessionCleanupJob struct {
	sessions SessionExpirer
	maxIdle  time.Duration
	logger   *slog.Logger
}

// NewSessionCleanupJob creates a SessionCleanupJob.
func NewSessionCleanupJob(sessions SessionExpirer, maxIdle time.Duration, logger *slog.Logger) *SessionCleanupJob {
	if maxIdle <= 0 {
		maxIdle = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCleanupJob{
		sessions: sessions,
		maxIdle:  maxIdle,
		logger:   logger.With("job", "session_cleanup"),
	}
}

// Name returns the job name.
func (j *SessionCleanupJob) Name() string {
	return "session_cleanup"
}

// Description returns a human-readable description.
func (j *SessionCleanupJob) Description() string {
	return "Drops idle dialog sessions and their temporary files"
}

// Run executes the cleanup.
func (j *SessionCleanupJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := j.sessions.ExpireIdle(j.maxIdle); n > 0 {
		j.logger.Info("idle sessions expired", "count", n, "max_idle", j.maxIdle.String())
	}
	return nil
}
