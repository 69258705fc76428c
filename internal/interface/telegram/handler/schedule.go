package handler

import (
	"context"
	"strings"

	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// ScheduleHandler handles /r [day].
type ScheduleHandler struct {
	scheduleQuery *query.GetScheduleHandler
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(scheduleQuery *query.GetScheduleHandler) *ScheduleHandler {
	return &ScheduleHandler{scheduleQuery: scheduleQuery}
}

// Handle shows one day, or Monday to Friday when no day is given.
func (h *ScheduleHandler) Handle(ctx context.Context, req Request) (*presenter.Reply, error) {
	res := h.scheduleQuery.Handle(ctx, strings.Join(req.Tokens(), " "))

	switch {
	case res.Key == "":
		return presenter.HTML(presenter.ScheduleWeek(res.Week)), nil
	case res.Found:
		return presenter.HTML(presenter.ScheduleDay(res.Key, res.Text)), nil
	default:
		return presenter.HTML(presenter.MsgScheduleDayMissing), nil
	}
}
