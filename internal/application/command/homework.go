// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK SWEEP
// One sweep implementation shared by the opportunistic pre-access sweep and
// the daily job, so both triggers always agree.
// ══════════════════════════════════════════════════════════════════════════════

// SweepResult describes one sweep run.
type SweepResult struct {
	Removed   int
	Remaining int
	Today     time.Time
}

// SweepHomeworkHandler removes expired homework entries.
type SweepHomeworkHandler struct {
	repo    homework.Repository
	ttlDays int
	today   func() time.Time
	logger  *slog.Logger
}

// NewSweepHomeworkHandler creates a SweepHomeworkHandler. A nil today uses
// timeutil.Today.
func NewSweepHomeworkHandler(
	repo homework.Repository,
	ttlDays int,
	today func() time.Time,
	logger *slog.Logger,
) *SweepHomeworkHandler {
	if ttlDays <= 0 {
		ttlDays = homework.DefaultTTLDays
	}
	if today == nil {
		today = timeutil.Today
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepHomeworkHandler{
		repo:    repo,
		ttlDays: ttlDays,
		today:   today,
		logger:  logger.With("component", "homework_sweep"),
	}
}

// TTLDays returns the configured homework lifetime.
func (h *SweepHomeworkHandler) TTLDays() int {
	return h.ttlDays
}

// Today returns the current civil date.
func (h *SweepHomeworkHandler) Today() time.Time {
	return h.today()
}

// Expiry returns the last day an entry dated d is kept.
func (h *SweepHomeworkHandler) Expiry(d time.Time) time.Time {
	return homework.Expiry(d, h.ttlDays)
}

// Current loads the homework map, sweeps it and returns the cleaned map.
// The store is written only when something was removed.
func (h *SweepHomeworkHandler) Current(ctx context.Context) (homework.Map, error) {
	m, _, err := h.sweep(ctx)
	return m, err
}

// Handle runs a sweep and reports what it did.
func (h *SweepHomeworkHandler) Handle(ctx context.Context) (*SweepResult, error) {
	m, removed, err := h.sweep(ctx)
	if err != nil {
		return nil, err
	}
	return &SweepResult{Removed: removed, Remaining: len(m), Today: h.today()}, nil
}

func (h *SweepHomeworkHandler) sweep(ctx context.Context) (homework.Map, int, error) {
	today := h.today()
	m, removed := homework.Sweep(h.repo.Homework(ctx), h.ttlDays, today)
	if removed == 0 {
		return m, 0, nil
	}
	if err := h.repo.SaveHomework(ctx, m); err != nil {
		return nil, 0, fmt.Errorf("homework_sweep: failed to save: %w", err)
	}
	h.logger.Info("expired homework removed",
		"removed", removed,
		"remaining", len(m),
		"today", timeutil.FormatISO(today),
	)
	return m, removed, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SET / EDIT / DELETE
// ══════════════════════════════════════════════════════════════════════════════

// SetHomeworkCommand assigns a task to a date, replacing any existing task.
type SetHomeworkCommand struct {
	Date time.Time
	Task string
}

// Validate validates the command.
func (c SetHomeworkCommand) Validate() error {
	if c.Date.IsZero() {
		return shared.ErrInvalidDate
	}
	if strings.TrimSpace(c.Task) == "" {
		return shared.ErrEmptyTask
	}
	return nil
}

// HomeworkResult describes the stored entry.
type HomeworkResult struct {
	Date   time.Time
	Task   string
	Expiry time.Time
}

// HomeworkHandler handles set, edit and delete. Every operation sweeps first.
type HomeworkHandler struct {
	repo    homework.Repository
	sweeper *SweepHomeworkHandler
	logger  *slog.Logger
}

// NewHomeworkHandler creates a HomeworkHandler.
func NewHomeworkHandler(repo homework.Repository, sweeper *SweepHomeworkHandler, logger *slog.Logger) *HomeworkHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HomeworkHandler{repo: repo, sweeper: sweeper, logger: logger.With("component", "homework")}
}

// Set stores a task for a date. Last write wins.
func (h *HomeworkHandler) Set(ctx context.Context, cmd SetHomeworkCommand) (*HomeworkResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("set_homework: validation failed: %w", err)
	}
	return h.put(ctx, cmd.Date, strings.TrimSpace(cmd.Task), false)
}

// Edit replaces the task of an existing entry.
func (h *HomeworkHandler) Edit(ctx context.Context, cmd SetHomeworkCommand) (*HomeworkResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("edit_homework: validation failed: %w", err)
	}
	return h.put(ctx, cmd.Date, strings.TrimSpace(cmd.Task), true)
}

// Delete removes the entry for a date.
func (h *HomeworkHandler) Delete(ctx context.Context, date time.Time) (*HomeworkResult, error) {
	m, err := h.sweeper.Current(ctx)
	if err != nil {
		return nil, err
	}
	key := homework.KeyOf(date)
	task, ok := m[key]
	if !ok {
		return nil, shared.ErrHomeworkNotFound
	}
	delete(m, key)
	if err := h.repo.SaveHomework(ctx, m); err != nil {
		return nil, fmt.Errorf("delete_homework: failed to save: %w", err)
	}
	h.logger.Info("homework deleted", "date", key)
	return &HomeworkResult{Date: date, Task: task, Expiry: h.sweeper.Expiry(date)}, nil
}

func (h *HomeworkHandler) put(ctx context.Context, date time.Time, task string, mustExist bool) (*HomeworkResult, error) {
	m, err := h.sweeper.Current(ctx)
	if err != nil {
		return nil, err
	}
	key := homework.KeyOf(date)
	if _, ok := m[key]; mustExist && !ok {
		return nil, shared.ErrHomeworkNotFound
	}
	m[key] = task
	if err := h.repo.SaveHomework(ctx, m); err != nil {
		return nil, fmt.Errorf("homework: failed to save %s: %w", key, err)
	}
	h.logger.Info("homework saved", "date", key, "edit", mustExist)
	return &HomeworkResult{Date: date, Task: task, Expiry: h.sweeper.Expiry(date)}, nil
}
