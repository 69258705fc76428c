package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/classhub/classbot/internal/domain/joke"
	"github.com/classhub/classbot/internal/domain/shared"
)

// AddJokeHandler appends a joke.
type AddJokeHandler struct {
	repo   joke.Repository
	logger *slog.Logger
}

// NewAddJokeHandler creates an AddJokeHandler.
func NewAddJokeHandler(repo joke.Repository, logger *slog.Logger) *AddJokeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AddJokeHandler{repo: repo, logger: logger.With("component", "jokes")}
}

// Handle stores the trimmed text. Empty text is rejected.
func (h *AddJokeHandler) Handle(ctx context.Context, text string) error {
	list, ok := h.repo.Jokes(ctx).Add(text)
	if !ok {
		return shared.NewDomainError("joke", "Add", shared.ErrEmptyValue, "joke text is empty")
	}
	if err := h.repo.SaveJokes(ctx, list); err != nil {
		return fmt.Errorf("add_joke: failed to save: %w", err)
	}
	h.logger.Info("joke added", "total", len(list))
	return nil
}
