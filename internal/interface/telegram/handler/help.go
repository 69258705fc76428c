package handler

import (
	"context"

	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// HelpHandler handles /help.
type HelpHandler struct {
	ttlDays int
}

// NewHelpHandler creates a HelpHandler.
func NewHelpHandler(ttlDays int) *HelpHandler {
	return &HelpHandler{ttlDays: ttlDays}
}

// Handle renders the command list as plain text.
func (h *HelpHandler) Handle(_ context.Context, _ Request) (*presenter.Reply, error) {
	return presenter.Text(presenter.Help(h.ttlDays)), nil
}
