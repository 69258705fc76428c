package calendar

import (
	"time"
)

// Outcome classifies a duty resolution.
type Outcome int

const (
	// OutcomeEmptyRoster means nobody is on the roster.
	OutcomeEmptyRoster Outcome = iota
	// OutcomeNotStarted means the school year has not begun.
	OutcomeNotStarted
	// OutcomeDayOff means today is a weekend day or a holiday.
	OutcomeDayOff
	// OutcomeAssigned means Assignee is on duty today.
	OutcomeAssigned
)

// Resolution is the answer to "who is on duty today".
type Resolution struct {
	Outcome  Outcome
	Assignee string
	Index    int
}

// Message renders the resolution exactly as users and the chat see it.
func (r Resolution) Message() string {
	switch r.Outcome {
	case OutcomeEmptyRoster:
		return "Список дежурных пуст."
	case OutcomeNotStarted:
		return "Учебный год ещё не начался."
	case OutcomeDayOff:
		return "Сегодня дежурных нет! Отдыхайте 😎"
	default:
		return "Сегодня дежурный: " + r.Assignee
	}
}

// ResolveDuty applies the duty policy for today. The interactive command and
// the daily announcement both go through here.
func ResolveDuty(roster []string, today time.Time, cfg Config) Resolution {
	if len(roster) == 0 {
		return Resolution{Outcome: OutcomeEmptyRoster}
	}
	if today.Before(cfg.SchoolStart) {
		return Resolution{Outcome: OutcomeNotStarted}
	}
	if !IsSchoolDay(today, cfg.Holidays) {
		return Resolution{Outcome: OutcomeDayOff}
	}

	count := SchoolDayIndex(today, cfg.SchoolStart, cfg.Holidays)
	idx := TodaysDutyIndex(count, len(roster))
	return Resolution{Outcome: OutcomeAssigned, Assignee: roster[idx], Index: idx}
}
