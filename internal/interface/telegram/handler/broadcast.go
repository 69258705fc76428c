package handler

import (
	"context"
	"errors"

	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// BroadcastHandler handles /s and /test. Both are gated by the auth
// middleware and are silent for non-admins.
type BroadcastHandler struct {
	broadcast *command.BroadcastHandler
}

// NewBroadcastHandler creates a BroadcastHandler.
func NewBroadcastHandler(broadcast *command.BroadcastHandler) *BroadcastHandler {
	return &BroadcastHandler{broadcast: broadcast}
}

// Send handles /s <html>. The text after the command is sent as typed,
// line breaks included.
func (h *BroadcastHandler) Send(ctx context.Context, req Request) (*presenter.Reply, error) {
	if _, err := h.broadcast.Target(ctx); err != nil {
		return targetError(err)
	}
	if req.Args == "" {
		return presenter.Text(presenter.MsgBroadcastUsage), nil
	}

	if _, err := h.broadcast.SendHTML(ctx, req.Args); err != nil {
		return targetError(err)
	}
	return presenter.Text(presenter.MsgBroadcastSent), nil
}

// Test handles /test.
func (h *BroadcastHandler) Test(ctx context.Context, _ Request) (*presenter.Reply, error) {
	if _, err := h.broadcast.SendTest(ctx); err != nil {
		return targetError(err)
	}
	return presenter.Text(presenter.MsgTestSent), nil
}

func targetError(err error) (*presenter.Reply, error) {
	if errors.Is(err, shared.ErrNoBroadcastTarget) {
		return presenter.Text(presenter.MsgNoBroadcastTgt), nil
	}
	return nil, err
}
