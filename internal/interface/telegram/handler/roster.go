package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// RosterHandler handles /d_set list|add|remove|set.
type RosterHandler struct {
	roster *command.RosterHandler
}

// NewRosterHandler creates a RosterHandler.
func NewRosterHandler(roster *command.RosterHandler) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// Handle dispatches on the subcommand.
func (h *RosterHandler) Handle(ctx context.Context, req Request) (*presenter.Reply, error) {
	action, rest := splitFirst(req.Args)
	if action == "" {
		return presenter.Text(presenter.MsgRosterUsage), nil
	}

	switch strings.ToLower(action) {
	case "list":
		return presenter.Text(presenter.RosterList(h.roster.List(ctx))), nil

	case "add":
		entry, err := h.roster.Add(ctx, rest)
		switch {
		case errors.Is(err, shared.ErrInvalidHandle):
			return presenter.Text(presenter.MsgRosterAddUsage), nil
		case err != nil:
			return nil, err
		}
		return presenter.Text(presenter.RosterAdded(entry)), nil

	case "remove":
		err := h.roster.Remove(ctx, rest)
		switch {
		case errors.Is(err, shared.ErrInvalidHandle):
			return presenter.Text(presenter.MsgRosterDelUsage), nil
		case errors.Is(err, shared.ErrRosterEntryAbsent):
			return presenter.Text(presenter.MsgRosterNotFound), nil
		case err != nil:
			return nil, err
		}
		return presenter.Text(presenter.MsgRosterRemoved), nil

	case "set":
		n, err := h.roster.Set(ctx, rest)
		switch {
		case errors.Is(err, shared.ErrEmptyRoster):
			return presenter.Text(presenter.MsgRosterSetEmpty), nil
		case err != nil:
			return nil, err
		}
		return presenter.Text(presenter.RosterReplaced(n)), nil
	}

	return presenter.Text(presenter.MsgRosterUnknown), nil
}
