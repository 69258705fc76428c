// Package calendar implements the school calendar and the duty rotation built
// on top of it. Every function here is pure and works on civil dates
// (see pkg/timeutil); "today" is always supplied by the caller.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/classhub/classbot/pkg/timeutil"
)

// Period is a closed interval of civil dates [Start, End].
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls inside the period, bounds included.
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// String renders the period in its config form "YYYY-MM-DD:YYYY-MM-DD".
func (p Period) String() string {
	return timeutil.FormatISO(p.Start) + ":" + timeutil.FormatISO(p.End)
}

// Config describes one school year.
type Config struct {
	// SchoolStart is the first day of the school year (day 1 if it is a school day).
	SchoolStart time.Time

	// Holidays are the closed intervals with no classes.
	Holidays []Period
}

// DefaultConfig returns the 2024/25 school year with the summer break as the only holiday.
func DefaultConfig() Config {
	return Config{
		SchoolStart: timeutil.Date(2024, time.September, 2),
		Holidays: []Period{
			{Start: timeutil.Date(2024, time.June, 1), End: timeutil.Date(2024, time.August, 31)},
		},
	}
}

// ParsePeriods parses a comma separated list of "start:end" ISO date pairs.
func ParsePeriods(raw string) ([]Period, error) {
	var out []Period
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		bounds := strings.Split(item, ":")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("calendar: period %q must look like YYYY-MM-DD:YYYY-MM-DD", item)
		}
		start, err := timeutil.ParseISODate(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("calendar: period %q start: %w", item, err)
		}
		end, err := timeutil.ParseISODate(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("calendar: period %q end: %w", item, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("calendar: period %q ends before it starts", item)
		}
		out = append(out, Period{Start: start, End: end})
	}
	return out, nil
}

// IsWeekend reports whether d is a Saturday or Sunday.
func IsWeekend(d time.Time) bool {
	return timeutil.IsWeekend(d)
}

// IsHoliday reports whether d falls inside any of the periods.
func IsHoliday(d time.Time, holidays []Period) bool {
	for _, p := range holidays {
		if p.Contains(d) {
			return true
		}
	}
	return false
}

// IsSchoolDay reports whether d is neither a weekend day nor a holiday.
func IsSchoolDay(d time.Time, holidays []Period) bool {
	return !IsWeekend(d) && !IsHoliday(d, holidays)
}

// SchoolDayIndex counts school days from start through d, both inclusive.
// Callers must reject d before start; the result is then 0 only when no
// school day has happened yet.
func SchoolDayIndex(d, start time.Time, holidays []Period) int {
	count := 0
	for day := start; !day.After(d); day = timeutil.AddDays(day, 1) {
		if IsSchoolDay(day, holidays) {
			count++
		}
	}
	return count
}

// TodaysDutyIndex maps a 1-based school day count onto a roster position.
// rosterLen must be positive.
func TodaysDutyIndex(schoolDayCount, rosterLen int) int {
	idx := (schoolDayCount - 1) % rosterLen
	if idx < 0 {
		idx += rosterLen
	}
	return idx
}
