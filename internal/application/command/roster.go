package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/shared"
)

// RosterHandler runs the duty-roster admin operations.
type RosterHandler struct {
	repo   roster.Repository
	logger *slog.Logger
}

// NewRosterHandler creates a RosterHandler.
func NewRosterHandler(repo roster.Repository, logger *slog.Logger) *RosterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterHandler{repo: repo, logger: logger.With("component", "roster")}
}

// List returns the roster in rotation order.
func (h *RosterHandler) List(ctx context.Context) roster.Roster {
	return h.repo.Roster(ctx)
}

// Add validates a typed handle and appends its entry. Duplicates are not checked.
func (h *RosterHandler) Add(ctx context.Context, text string) (string, error) {
	handle, err := roster.NormalizeHandle(text)
	if err != nil {
		return "", err
	}
	entry := roster.EntryFor(handle)
	if err := h.repo.SaveRoster(ctx, h.repo.Roster(ctx).Append(entry)); err != nil {
		return "", fmt.Errorf("roster_add: failed to save: %w", err)
	}
	h.logger.Info("roster entry added", "entry", entry)
	return entry, nil
}

// Remove drops every entry of a typed handle.
func (h *RosterHandler) Remove(ctx context.Context, text string) error {
	handle, err := roster.NormalizeHandle(text)
	if err != nil {
		return err
	}
	out, removed := h.repo.Roster(ctx).Remove(handle)
	if removed == 0 {
		return shared.ErrRosterEntryAbsent
	}
	if err := h.repo.SaveRoster(ctx, out); err != nil {
		return fmt.Errorf("roster_remove: failed to save: %w", err)
	}
	h.logger.Info("roster entry removed", "handle", handle, "count", removed)
	return nil
}

// Set replaces the roster with the valid handles in text.
func (h *RosterHandler) Set(ctx context.Context, text string) (int, error) {
	list := roster.ParseSet(text)
	if len(list) == 0 {
		return 0, shared.ErrEmptyRoster
	}
	if err := h.repo.SaveRoster(ctx, list); err != nil {
		return 0, fmt.Errorf("roster_set: failed to save: %w", err)
	}
	h.logger.Info("roster replaced", "size", len(list))
	return len(list), nil
}
