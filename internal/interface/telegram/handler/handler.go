// Package handler contains Telegram command handlers. Each handler parses the
// arguments of one-shot commands, calls the application layer and renders a
// reply. Dialog commands live in the conversation package.
package handler

import (
	"context"
	"strings"
	"unicode"

	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// Request contains a parsed command message.
type Request struct {
	// UserID is the sender's Telegram ID.
	UserID int64

	// Username is the sender's public handle without "@". May be empty.
	Username string

	// ChatID is the chat the command was sent in.
	ChatID int64

	// Private reports whether the chat is a one-to-one chat with the bot.
	Private bool

	// Command is the lowercased command name without the slash.
	Command string

	// Args is the raw text after the command, line breaks kept.
	Args string
}

// Tokens returns the arguments split on whitespace.
func (r Request) Tokens() []string {
	return strings.Fields(r.Args)
}

// Func adapts a function to a command handler.
type Func func(ctx context.Context, req Request) (*presenter.Reply, error)

// Handle calls f.
func (f Func) Handle(ctx context.Context, req Request) (*presenter.Reply, error) {
	return f(ctx, req)
}

// splitFirst splits off the first whitespace-delimited word and returns it
// with the trimmed rest.
func splitFirst(s string) (first, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
