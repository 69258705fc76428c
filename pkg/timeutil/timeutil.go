// Package timeutil provides calendar-date helpers for the school's local clock.
// All school logic works on civil dates: a time.Time at midnight UTC that
// carries only year, month and day. Wall-clock instants are converted to a
// civil date in the configured location exactly once, at the edge.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	locMu    sync.RWMutex
	location = time.Local
)

// SetLocation sets the location used by Now. A nil location resets to time.Local.
func SetLocation(loc *time.Location) {
	locMu.Lock()
	defer locMu.Unlock()
	if loc == nil {
		loc = time.Local
	}
	location = loc
}

// Location returns the configured school location.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return location
}

// LoadLocation resolves a timezone name. An empty name means the process local clock.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	return loc, nil
}

// Now returns the current time in the school location.
func Now() time.Time {
	return time.Now().In(Location())
}

// Today returns the current civil date in the school location.
func Today() time.Time {
	return DateOf(Now())
}

// ══════════════════════════════════════════════════════════════════════════════
// CIVIL DATES
// ══════════════════════════════════════════════════════════════════════════════

// Date creates a civil date. Out-of-range values are normalized like time.Date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ValidDate creates a civil date and reports whether the components name a
// real calendar day (31.02 is rejected instead of rolling into March).
func ValidDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := Date(year, month, day)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// DateOf truncates t to its civil date, reading the fields in t's own location.
func DateOf(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// AddDays shifts a civil date by n days.
func AddDays(d time.Time, n int) time.Time {
	return d.AddDate(0, 0, n)
}

// DaysBetween returns the signed number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// WeekdayIndex returns the day of week with Monday = 0 and Sunday = 6.
func WeekdayIndex(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// IsWeekend checks if the given date is a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ══════════════════════════════════════════════════════════════════════════════
// FORMATTING & PARSING
// ══════════════════════════════════════════════════════════════════════════════

// Common date/time formats.
const (
	// FormatDate is the ISO date format (YYYY-MM-DD) used for storage keys.
	FormatDate = "2006-01-02"
	// FormatTime is the clock format (HH:MM) used for job triggers.
	FormatTime = "15:04"
	// FormatRussianDate is the Russian date format (DD.MM.YYYY) used in replies.
	FormatRussianDate = "02.01.2006"
)

// FormatISO formats a civil date as YYYY-MM-DD.
func FormatISO(d time.Time) string {
	return d.Format(FormatDate)
}

// FormatRussian formats a civil date as DD.MM.YYYY.
func FormatRussian(d time.Time) string {
	return d.Format(FormatRussianDate)
}

// ParseISODate parses a YYYY-MM-DD string into a civil date.
func ParseISODate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(FormatDate, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ParseClock parses an HH:MM trigger time.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("timeutil: invalid clock %q, want HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("timeutil: invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("timeutil: invalid minute in %q", value)
	}
	return hour, minute, nil
}
