// Package homework implements date-keyed homework with a TTL measured from
// the assignment date, plus the parsing and listing rules around it.
package homework

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/classhub/classbot/pkg/timeutil"
)

// DefaultTTLDays is how long an entry survives after its date.
const DefaultTTLDays = 14

// List limits.
const (
	DefaultListCount = 10
	MinListCount     = 1
	MaxListCount     = 50
	maxPreviewRunes  = 120
)

// Map is the persisted homework record: ISO date → task text.
// Keys that are not ISO dates are kept as-is and ignored by expiry and listing.
type Map map[string]string

// Repository persists the homework map.
type Repository interface {
	Homework(ctx context.Context) Map
	SaveHomework(ctx context.Context, m Map) error
}

// Expiry returns the last day an entry dated d is kept.
func Expiry(d time.Time, ttlDays int) time.Time {
	return timeutil.AddDays(d, ttlDays)
}

// Expired reports whether an entry dated d is gone by today.
// An entry is retained iff today <= Expiry(d, ttlDays).
func Expired(d time.Time, ttlDays int, today time.Time) bool {
	return today.After(Expiry(d, ttlDays))
}

// Sweep returns m without expired entries and the number removed.
// The input map is never mutated. Sweeping a swept map removes nothing.
func Sweep(m Map, ttlDays int, today time.Time) (Map, int) {
	out := make(Map, len(m))
	removed := 0
	for k, v := range m {
		d, ok := ParseKey(k)
		if ok && Expired(d, ttlDays, today) {
			removed++
			continue
		}
		out[k] = v
	}
	return out, removed
}

// Item is one dated entry.
type Item struct {
	Date time.Time
	Task string
}

// Upcoming returns entries dated today or later, soonest first, at most n.
func Upcoming(m Map, today time.Time, n int) []Item {
	items := make([]Item, 0, len(m))
	for k, v := range m {
		d, ok := ParseKey(k)
		if !ok || d.Before(today) {
			continue
		}
		items = append(items, Item{Date: d, Task: v})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Date.Before(items[j].Date) })

	if n < len(items) {
		items = items[:n]
	}
	return items
}

// ClampCount bounds a requested list size to [MinListCount, MaxListCount].
func ClampCount(n int) int {
	if n < MinListCount {
		return MinListCount
	}
	if n > MaxListCount {
		return MaxListCount
	}
	return n
}

// Preview flattens a task to one line and cuts it to 120 characters.
func Preview(task string) string {
	s := strings.ReplaceAll(strings.TrimSpace(task), "\n", " ")
	runes := []rune(s)
	if len(runes) > maxPreviewRunes {
		return string(runes[:maxPreviewRunes-3]) + "..."
	}
	return s
}

// Expand breaks a stored task onto separate lines for the detailed view.
func Expand(task string) string {
	task = strings.ReplaceAll(task, ": ", ":\n")
	return strings.ReplaceAll(task, ";", ";\n")
}
