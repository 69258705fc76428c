package query

import (
	"context"

	"github.com/classhub/classbot/internal/domain/joke"
)

// RandomJokeHandler picks a random joke.
type RandomJokeHandler struct {
	repo joke.Repository
	pick func(n int) int
}

// NewRandomJokeHandler creates a RandomJokeHandler. A nil pick uses math/rand.
func NewRandomJokeHandler(repo joke.Repository, pick func(n int) int) *RandomJokeHandler {
	return &RandomJokeHandler{repo: repo, pick: pick}
}

// Handle returns a joke, or false when the list is empty.
func (h *RandomJokeHandler) Handle(ctx context.Context) (string, bool) {
	return h.repo.Jokes(ctx).Random(h.pick)
}
