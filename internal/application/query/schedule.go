package query

import (
	"context"

	"github.com/classhub/classbot/internal/domain/schedule"
)

// GetScheduleResult is either one day (Key/Text) or the whole week.
type GetScheduleResult struct {
	Key   string
	Text  string
	Found bool
	Week  []schedule.Day
}

// GetScheduleHandler answers schedule queries.
type GetScheduleHandler struct {
	repo schedule.Repository
}

// NewGetScheduleHandler creates a GetScheduleHandler.
func NewGetScheduleHandler(repo schedule.Repository) *GetScheduleHandler {
	return &GetScheduleHandler{repo: repo}
}

// Handle looks up one day. An empty query returns the week.
func (h *GetScheduleHandler) Handle(ctx context.Context, day string) *GetScheduleResult {
	m := h.repo.Schedule(ctx)
	if schedule.NormalizeQuery(day) == "" {
		return &GetScheduleResult{Week: m.Week()}
	}
	key, text, ok := m.Lookup(day)
	return &GetScheduleResult{Key: key, Text: text, Found: ok}
}
