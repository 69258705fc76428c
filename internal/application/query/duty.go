// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/classhub/classbot/internal/domain/calendar"
	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DUTY QUERY
// Answers "who is on duty today". The /d command and the daily announcement
// both use this handler.
// ══════════════════════════════════════════════════════════════════════════════

// GetDutyHandler resolves today's duty assignee.
type GetDutyHandler struct {
	repo  roster.Repository
	cal   calendar.Config
	today func() time.Time
}

// NewGetDutyHandler creates a GetDutyHandler. A nil today uses timeutil.Today.
func NewGetDutyHandler(repo roster.Repository, cal calendar.Config, today func() time.Time) *GetDutyHandler {
	if today == nil {
		today = timeutil.Today
	}
	return &GetDutyHandler{repo: repo, cal: cal, today: today}
}

// Handle resolves duty for today.
func (h *GetDutyHandler) Handle(ctx context.Context) calendar.Resolution {
	return calendar.ResolveDuty(h.repo.Roster(ctx), h.today(), h.cal)
}
