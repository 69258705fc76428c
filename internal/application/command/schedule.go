package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classhub/classbot/internal/domain/schedule"
)

// ReplaceScheduleHandler overwrites the whole schedule from five day texts.
type ReplaceScheduleHandler struct {
	repo   schedule.Repository
	logger *slog.Logger
}

// NewReplaceScheduleHandler creates a ReplaceScheduleHandler.
func NewReplaceScheduleHandler(repo schedule.Repository, logger *slog.Logger) *ReplaceScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReplaceScheduleHandler{repo: repo, logger: logger.With("component", "schedule")}
}

// Handle expands every alias and saves the map in one write.
func (h *ReplaceScheduleHandler) Handle(ctx context.Context, days [5]string) (schedule.Map, error) {
	m := schedule.Expand(days)
	if err := h.repo.SaveSchedule(ctx, m); err != nil {
		return nil, fmt.Errorf("replace_schedule: failed to save: %w", err)
	}
	h.logger.Info("schedule replaced", "keys", len(m))
	return m, nil
}
