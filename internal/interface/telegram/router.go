// Package telegram wires the Telegram Bot API to the class bot: it receives
// updates, routes them to command handlers or the dialog engine and sends the
// replies back.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/classhub/classbot/internal/interface/telegram/conversation"
	"github.com/classhub/classbot/internal/interface/telegram/handler"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Debug enables debug logging for routing decisions.
	Debug bool
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Message is one incoming message reduced to what routing needs.
type Message struct {
	UserID   int64
	Username string
	ChatID   int64
	Private  bool

	// Command is the lowercased command without slash or @bot suffix.
	Command string

	// Args is the raw text after the command.
	Args string

	// Text is the full message text.
	Text string

	PhotoFileID string
	Caption     string
}

func (m Message) request() handler.Request {
	return handler.Request{
		UserID:   m.UserID,
		Username: m.Username,
		ChatID:   m.ChatID,
		Private:  m.Private,
		Command:  m.Command,
		Args:     m.Args,
	}
}

func (m Message) input() conversation.Input {
	return conversation.Input{
		UserID:      m.UserID,
		Username:    m.Username,
		ChatID:      m.ChatID,
		Private:     m.Private,
		Command:     m.Command,
		Text:        m.Text,
		PhotoFileID: m.PhotoFileID,
		Caption:     m.Caption,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// CommandHandler is the interface for one-shot command handlers.
type CommandHandler interface {
	Handle(ctx context.Context, req handler.Request) (*presenter.Reply, error)
}

// DialogHandler runs the stateful dialogs: entry commands and every
// non-command message.
type DialogHandler interface {
	Handle(ctx context.Context, in conversation.Input) (*presenter.Reply, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// ══════════════════════════════════════════════════════════════════════════════

// Router routes messages to command handlers or the dialog engine.
// Commands other than the entry commands never touch dialog state.
type Router struct {
	config  RouterConfig
	logger  *slog.Logger
	dialogs DialogHandler

	// Command handlers by command name (without /)
	commandHandlers   map[string]interface{}
	commandHandlersMu sync.RWMutex
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig, dialogs DialogHandler) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Router{
		config:          config,
		logger:          config.Logger.With("component", "router"),
		dialogs:         dialogs,
		commandHandlers: make(map[string]interface{}),
	}
}

// RegisterCommand registers a handler for a command without the leading "/".
// The handler is a CommandHandler, a handler.Func or a plain function of the
// same shape.
func (r *Router) RegisterCommand(command string, h interface{}) {
	r.commandHandlersMu.Lock()
	defer r.commandHandlersMu.Unlock()

	r.commandHandlers[command] = h

	if r.config.Debug {
		r.logger.Debug("registered command handler", "command", command)
	}
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	r.commandHandlersMu.RLock()
	defer r.commandHandlersMu.RUnlock()

	out := make([]string, 0, len(r.commandHandlers))
	for name := range r.commandHandlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// Route handles one message. A nil reply means nothing is sent.
func (r *Router) Route(ctx context.Context, msg Message) (*presenter.Reply, error) {
	switch {
	case msg.Command == "":
		return r.dialogs.Handle(ctx, msg.input())
	case conversation.IsEntry(msg.Command):
		return r.dialogs.Handle(ctx, msg.input())
	default:
		return r.HandleCommand(ctx, msg.Command, msg.request())
	}
}

// HandleCommand runs the handler registered for command. Unknown commands
// are ignored.
func (r *Router) HandleCommand(ctx context.Context, command string, req handler.Request) (*presenter.Reply, error) {
	r.commandHandlersMu.RLock()
	h, ok := r.commandHandlers[command]
	r.commandHandlersMu.RUnlock()

	if !ok {
		if r.config.Debug {
			r.logger.Debug("no handler for command", "command", command)
		}
		return nil, nil
	}

	return r.executeCommandHandler(ctx, h, command, req)
}

func (r *Router) executeCommandHandler(ctx context.Context, h interface{}, command string, req handler.Request) (*presenter.Reply, error) {
	switch hd := h.(type) {
	case handler.Func:
		return hd(ctx, req)
	case func(context.Context, handler.Request) (*presenter.Reply, error):
		return hd(ctx, req)
	case CommandHandler:
		return hd.Handle(ctx, req)
	default:
		r.logger.Warn("unknown handler type", "command", command, "type", fmt.Sprintf("%T", h))
		return nil, nil
	}
}
