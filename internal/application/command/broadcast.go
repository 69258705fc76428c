package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Sender delivers messages to a chat. HTML sends must fall back to plain text
// when the markup is rejected.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, html bool) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string, html bool) error
}

// TargetSource yields the configured broadcast target.
type TargetSource interface {
	BroadcastTarget(ctx context.Context) (int64, error)
}

// TestMessage is what /test posts to the broadcast chat.
const TestMessage = "Тестовое сообщение ✅"

// BroadcastHandler posts admin messages to the broadcast chat.
type BroadcastHandler struct {
	targets TargetSource
	sender  Sender
	logger  *slog.Logger
}

// NewBroadcastHandler creates a BroadcastHandler.
func NewBroadcastHandler(targets TargetSource, sender Sender, logger *slog.Logger) *BroadcastHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BroadcastHandler{targets: targets, sender: sender, logger: logger.With("component", "broadcast")}
}

// NormalizeOutgoing turns literal "\n" sequences typed by admins into line breaks.
func NormalizeOutgoing(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}

// Target returns the configured broadcast chat or shared.ErrNoBroadcastTarget.
func (h *BroadcastHandler) Target(ctx context.Context) (int64, error) {
	return h.targets.BroadcastTarget(ctx)
}

// SendHTML posts an HTML message to the broadcast chat.
func (h *BroadcastHandler) SendHTML(ctx context.Context, text string) (int64, error) {
	target, err := h.targets.BroadcastTarget(ctx)
	if err != nil {
		return 0, err
	}
	if err := h.sender.SendText(ctx, target, NormalizeOutgoing(text), true); err != nil {
		return 0, fmt.Errorf("broadcast: send to %d: %w", target, err)
	}
	h.logger.Info("broadcast sent", "chat_id", target)
	return target, nil
}

// SendTest posts the fixed test message.
func (h *BroadcastHandler) SendTest(ctx context.Context) (int64, error) {
	target, err := h.targets.BroadcastTarget(ctx)
	if err != nil {
		return 0, err
	}
	if err := h.sender.SendText(ctx, target, TestMessage, false); err != nil {
		return 0, fmt.Errorf("broadcast: test to %d: %w", target, err)
	}
	h.logger.Info("test message sent", "chat_id", target)
	return target, nil
}

// SendPhoto posts a downloaded photo with caption to target. The file at
// path is removed whether or not the send succeeds.
func (h *BroadcastHandler) SendPhoto(ctx context.Context, target int64, path, caption string) error {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.logger.Warn("failed to remove temp photo", "path", path, "error", err)
		}
	}()

	caption = NormalizeOutgoing(strings.TrimSpace(caption))
	if err := h.sender.SendPhoto(ctx, target, path, caption, true); err != nil {
		return fmt.Errorf("broadcast: photo to %d: %w", target, err)
	}
	h.logger.Info("photo broadcast sent", "chat_id", target)
	return nil
}
