package handler

import (
	"context"

	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// DutyHandler handles /d.
type DutyHandler struct {
	dutyQuery *query.GetDutyHandler
}

// NewDutyHandler creates a DutyHandler.
func NewDutyHandler(dutyQuery *query.GetDutyHandler) *DutyHandler {
	return &DutyHandler{dutyQuery: dutyQuery}
}

// Handle tells who is on duty today.
func (h *DutyHandler) Handle(ctx context.Context, _ Request) (*presenter.Reply, error) {
	return presenter.Text(h.dutyQuery.Handle(ctx).Message()), nil
}
