package handler

import (
	"context"

	"github.com/classhub/classbot/internal/application/query"
	"github.com/classhub/classbot/internal/interface/telegram/presenter"
)

// JokeHandler handles /joke.
type JokeHandler struct {
	jokeQuery *query.RandomJokeHandler
}

// NewJokeHandler creates a JokeHandler.
func NewJokeHandler(jokeQuery *query.RandomJokeHandler) *JokeHandler {
	return &JokeHandler{jokeQuery: jokeQuery}
}

// Handle replies with a random joke.
func (h *JokeHandler) Handle(ctx context.Context, _ Request) (*presenter.Reply, error) {
	text, ok := h.jokeQuery.Handle(ctx)
	if !ok {
		return presenter.Text(presenter.MsgJokesEmpty), nil
	}
	return presenter.Text(text), nil
}
