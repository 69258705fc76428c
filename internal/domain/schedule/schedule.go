// Package schedule stores the weekly class schedule as a flat alias map:
// every alias of a weekday is its own lowercase key pointing at that day's text.
package schedule

import (
	"context"
	"strings"
)

// Map is the persisted schedule: lowercase query → schedule text.
type Map map[string]string

// Repository persists the schedule map.
type Repository interface {
	Schedule(ctx context.Context) Map
	SaveSchedule(ctx context.Context, m Map) error
}

// CanonicalDays are the school weekdays in display and edit order.
var CanonicalDays = [5]string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница"}

// extraAliases are the curated short, English and typo forms per weekday.
var extraAliases = map[string][]string{
	"Понедельник": {"пн", "понедельнк", "mon", "mn"},
	"Вторник":     {"вт", "tue", "tu"},
	"Среда":       {"ср", "wed", "we"},
	"Четверг":     {"чт", "thu", "th"},
	"Пятница":     {"пт", "fri", "fr"},
}

// BuildAliases returns the canonical name, its lowercase form and the curated
// aliases of a weekday. Unknown days get only the first two.
func BuildAliases(day string) []string {
	out := []string{day, strings.ToLower(day)}
	return append(out, extraAliases[day]...)
}

// NormalizeQuery trims and lowercases a user-typed day query.
func NormalizeQuery(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Expand builds the full alias map from one text per canonical day, Monday first.
func Expand(days [5]string) Map {
	out := make(Map, len(days)*7)
	for i, day := range CanonicalDays {
		for _, alias := range BuildAliases(day) {
			out[strings.ToLower(alias)] = days[i]
		}
	}
	return out
}

// Lookup resolves a raw query against the map.
func (m Map) Lookup(raw string) (key, text string, ok bool) {
	key = NormalizeQuery(raw)
	text, ok = m[key]
	return key, text, ok
}

// Day is one canonical day with its text.
type Day struct {
	Name string
	Text string
}

// Week returns the stored canonical days in order, skipping days with no text.
func (m Map) Week() []Day {
	out := make([]Day, 0, len(CanonicalDays))
	for _, day := range CanonicalDays {
		if text, ok := m[strings.ToLower(day)]; ok {
			out = append(out, Day{Name: day, Text: text})
		}
	}
	return out
}
