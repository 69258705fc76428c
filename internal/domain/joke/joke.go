// Package joke holds the freeform joke list.
package joke

import (
	"context"
	"math/rand/v2"
	"strings"
)

// List is the persisted joke list. Duplicates are allowed.
type List []string

// Repository persists the joke list.
type Repository interface {
	Jokes(ctx context.Context) List
	SaveJokes(ctx context.Context, l List) error
}

// Add returns a copy with the trimmed joke appended. Empty jokes are ignored.
func (l List) Add(text string) (List, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return l, false
	}
	out := make(List, 0, len(l)+1)
	out = append(out, l...)
	return append(out, text), true
}

// Random picks a joke using pick(n), which must return a value in [0, n).
// A nil pick uses math/rand.
func (l List) Random(pick func(n int) int) (string, bool) {
	if len(l) == 0 {
		return "", false
	}
	if pick == nil {
		pick = rand.IntN
	}
	return l[pick(len(l))], true
}
