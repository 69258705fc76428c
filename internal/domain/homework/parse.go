package homework

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/classhub/classbot/pkg/timeutil"
)

var (
	weekdaysShort = []string{"пн", "вт", "ср", "чт", "пт", "сб", "вс"}
	weekdaysFull  = []string{"понедельник", "вторник", "среда", "четверг", "пятница", "суббота", "воскресенье"}

	months = map[string]time.Month{
		"январь": time.January, "февраль": time.February, "март": time.March,
		"апрель": time.April, "май": time.May, "июнь": time.June,
		"июль": time.July, "август": time.August, "сентябрь": time.September,
		"октябрь": time.October, "ноябрь": time.November, "декабрь": time.December,
		"января": time.January, "февраля": time.February, "марта": time.March,
		"апреля": time.April, "мая": time.May, "июня": time.June,
		"июля": time.July, "августа": time.August, "сентября": time.September,
		"октября": time.October, "ноября": time.November, "декабря": time.December,
	}

	numericDate  = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})$`)
	digitsOnly   = regexp.MustCompile(`^\d+$`)
	tomorrowWord = "завтра"
)

// ParseDate reads a date from the leading tokens of a command and reports how
// many tokens it consumed. Forms are tried in this order:
//
//	завтра              today + 1
//	пн … вс, понедельник … воскресенье
//	                    next such weekday strictly after today
//	D.M, D-M, D/M       current year
//	D M                 current year, two tokens
//	D <month name>      current year, two tokens, nominative or genitive
//
// The year is always today's year. Day/month pairs that name no real date
// (31.02) are treated as unparsed.
func ParseDate(tokens []string, today time.Time) (time.Time, int, bool) {
	if len(tokens) == 0 {
		return time.Time{}, 0, false
	}

	first := strings.ToLower(strings.TrimSpace(tokens[0]))

	if first == tomorrowWord {
		return timeutil.AddDays(today, 1), 1, true
	}
	if i := indexOf(weekdaysShort, first); i >= 0 {
		return NextWeekday(today, i), 1, true
	}
	if i := indexOf(weekdaysFull, first); i >= 0 {
		return NextWeekday(today, i), 1, true
	}

	if m := numericDate.FindStringSubmatch(first); m != nil {
		d, ok := dayMonth(today.Year(), m[1], m[2])
		return d, 1, ok
	}

	if len(tokens) < 2 || !digitsOnly.MatchString(tokens[0]) {
		return time.Time{}, 0, false
	}

	if digitsOnly.MatchString(tokens[1]) {
		d, ok := dayMonth(today.Year(), tokens[0], tokens[1])
		return d, 2, ok
	}

	if month, ok := months[strings.ToLower(strings.TrimSpace(tokens[1]))]; ok {
		day, err := strconv.Atoi(tokens[0])
		if err != nil {
			return time.Time{}, 0, false
		}
		d, ok := timeutil.ValidDate(today.Year(), month, day)
		return d, 2, ok
	}

	return time.Time{}, 0, false
}

// NextWeekday returns the first date strictly after from that falls on the
// weekday with the given Monday-based index. Same weekday means a week ahead.
func NextWeekday(from time.Time, mondayIndex int) time.Time {
	delta := (mondayIndex - timeutil.WeekdayIndex(from) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return timeutil.AddDays(from, delta)
}

// ParseKey parses a stored ISO date key.
func ParseKey(key string) (time.Time, bool) {
	d, err := timeutil.ParseISODate(key)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// KeyOf formats a date as a storage key.
func KeyOf(d time.Time) string {
	return timeutil.FormatISO(d)
}

func dayMonth(year int, dayStr, monthStr string) (time.Time, bool) {
	day, err := strconv.Atoi(dayStr)
	if err != nil {
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return time.Time{}, false
	}
	return timeutil.ValidDate(year, time.Month(month), day)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
