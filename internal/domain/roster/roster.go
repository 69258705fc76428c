// Package roster models the duty roster: an ordered list of "nick, @nick"
// entries whose order defines the rotation.
package roster

import (
	"context"
	"regexp"
	"strings"

	"github.com/classhub/classbot/internal/domain/shared"
)

// Roster is the ordered duty list.
type Roster []string

// Repository persists the duty roster.
type Repository interface {
	Roster(ctx context.Context) Roster
	SaveRoster(ctx context.Context, r Roster) error
}

var (
	handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,64}$`)
	setSeparators = regexp.MustCompile(`[;\n,]+`)
)

// endWords terminate the student onboarding loop.
var endWords = map[string]struct{}{
	"end":  {},
	"все":  {},
	"стоп": {},
}

// IsEndWord reports whether text is a loop terminator, ignoring case.
func IsEndWord(text string) bool {
	_, ok := endWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// NormalizeHandle validates user-typed handle input and returns "@handle".
// End words are never handles, even though "end" would match the pattern.
func NormalizeHandle(text string) (string, error) {
	if IsEndWord(text) {
		return "", shared.ErrInvalidHandle
	}
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "@"))
	if !handlePattern.MatchString(s) {
		return "", shared.ErrInvalidHandle
	}
	return "@" + s, nil
}

// EntryFor formats the roster entry for a normalized "@handle".
func EntryFor(handle string) string {
	return strings.TrimPrefix(handle, "@") + ", " + handle
}

// Append returns a copy with entry added to the end.
func (r Roster) Append(entry string) Roster {
	out := make(Roster, 0, len(r)+1)
	out = append(out, r...)
	return append(out, entry)
}

// Remove drops every entry belonging to handle (matched by the ", @handle"
// suffix) and reports how many were removed.
func (r Roster) Remove(handle string) (Roster, int) {
	suffix := ", " + handle
	out := make(Roster, 0, len(r))
	removed := 0
	for _, e := range r {
		if strings.HasSuffix(e, suffix) {
			removed++
			continue
		}
		out = append(out, e)
	}
	return out, removed
}

// ParseSet turns a bulk "set" payload into entries. Items are separated by
// semicolons, commas or newlines; invalid handles are skipped.
func ParseSet(text string) Roster {
	out := Roster{}
	for _, part := range setSeparators.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		h, err := NormalizeHandle(part)
		if err != nil {
			continue
		}
		out = append(out, EntryFor(h))
	}
	return out
}
