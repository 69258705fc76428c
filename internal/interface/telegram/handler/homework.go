package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/classhub/classbot/internal/application/command"
	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/domain/shared"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK HANDLER
// Handles /dz, /dz_list, /dz_edit and /dz_del. Edit and delete are gated by
// the auth middleware.
// ══════════════════════════════════════════════════════════════════════════════

// HomeworkHandler handles the homework commands.
type HomeworkHandler struct {
	getQuery  *query.GetHomeworkHandler
	listQuery *query.ListHomeworkHandler
	commands  *command.HomeworkHandler
	today     func() time.Time
}

// NewHomeworkHandler creates a HomeworkHandler. today supplies the civil date
// relative dates are resolved against.
func NewHomeworkHandler(
	getQuery *query.GetHomeworkHandler,
	listQuery *query.ListHomeworkHandler,
	commands *command.HomeworkHandler,
	today func() time.Time,
) *HomeworkHandler {
	return &HomeworkHandler{
		getQuery:  getQuery,
		listQuery: listQuery,
		commands:  commands,
		today:     today,
	}
}

// Show handles /dz <date> [text]: with text it stores the task, without it
// shows the task for the date.
func (h *HomeworkHandler) Show(ctx context.Context, req Request) (*presenter.Reply, error) {
	tokens := req.Tokens()
	if len(tokens) == 0 {
		return presenter.Text(presenter.MsgHomeworkUsage), nil
	}

	date, consumed, ok := homework.ParseDate(tokens, h.today())
	if !ok {
		return presenter.Text(presenter.MsgHomeworkBadDate), nil
	}

	if rest := tokens[consumed:]; len(rest) > 0 {
		res, err := h.commands.Set(ctx, command.SetHomeworkCommand{Date: date, Task: strings.Join(rest, " ")})
		if err != nil {
			return nil, err
		}
		return presenter.Text(presenter.HomeworkSaved(res.Date, res.Expiry)), nil
	}

	res, err := h.getQuery.Handle(ctx, date)
	if err != nil {
		return nil, err
	}
	return presenter.Text(presenter.HomeworkShow(res)), nil
}

// List handles /dz_list [N].
func (h *HomeworkHandler) List(ctx context.Context, req Request) (*presenter.Reply, error) {
	n := homework.DefaultListCount
	if tokens := req.Tokens(); len(tokens) > 0 {
		v, err := strconv.Atoi(tokens[0])
		if err != nil {
			return presenter.Text(presenter.MsgHomeworkListUsage), nil
		}
		n = v
	}

	items, err := h.listQuery.Handle(ctx, n)
	if err != nil {
		return nil, err
	}
	return presenter.Text(presenter.HomeworkList(items)), nil
}

// Edit handles /dz_edit <date> <text>. Only existing entries can be edited.
func (h *HomeworkHandler) Edit(ctx context.Context, req Request) (*presenter.Reply, error) {
	tokens := req.Tokens()
	date, consumed, ok := homework.ParseDate(tokens, h.today())
	if !ok {
		return presenter.Text(presenter.MsgHomeworkEditUsage), nil
	}

	task := strings.TrimSpace(strings.Join(tokens[consumed:], " "))
	if task == "" {
		return presenter.Text(presenter.MsgHomeworkEditEmpty), nil
	}

	_, err := h.commands.Edit(ctx, command.SetHomeworkCommand{Date: date, Task: task})
	switch {
	case errors.Is(err, shared.ErrHomeworkNotFound):
		return presenter.Text(presenter.MsgHomeworkNoEntry), nil
	case err != nil:
		return nil, err
	}
	return presenter.Text(presenter.MsgDone), nil
}

// Delete handles /dz_del <date>.
func (h *HomeworkHandler) Delete(ctx context.Context, req Request) (*presenter.Reply, error) {
	date, _, ok := homework.ParseDate(req.Tokens(), h.today())
	if !ok {
		return presenter.Text(presenter.MsgHomeworkDelUsage), nil
	}

	res, err := h.commands.Delete(ctx, date)
	switch {
	case errors.Is(err, shared.ErrHomeworkNotFound):
		return presenter.Text(presenter.MsgHomeworkNoEntry), nil
	case err != nil:
		return nil, err
	}
	return presenter.Text(presenter.HomeworkDeleted(res.Date)), nil
}
