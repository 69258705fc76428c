package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/pkg/timeutil"
)

func noHolidays() Config {
	return Config{SchoolStart: timeutil.Date(2024, time.September, 2)}
}

func TestIsHoliday(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, IsHoliday(timeutil.Date(2024, time.June, 1), cfg.Holidays))
	assert.True(t, IsHoliday(timeutil.Date(2024, time.August, 31), cfg.Holidays))
	assert.False(t, IsHoliday(timeutil.Date(2024, time.September, 1), cfg.Holidays))
	assert.False(t, IsHoliday(timeutil.Date(2024, time.May, 31), cfg.Holidays))
}

func TestSchoolDayIndex(t *testing.T) {
	start := timeutil.Date(2024, time.September, 2) // Monday

	assert.Equal(t, 1, SchoolDayIndex(start, start, nil))
	assert.Equal(t, 5, SchoolDayIndex(timeutil.Date(2024, time.September, 6), start, nil))
	// weekend adds nothing
	assert.Equal(t, 5, SchoolDayIndex(timeutil.Date(2024, time.September, 8), start, nil))
	assert.Equal(t, 6, SchoolDayIndex(timeutil.Date(2024, time.September, 9), start, nil))

	holidays := []Period{{
		Start: timeutil.Date(2024, time.September, 4),
		End:   timeutil.Date(2024, time.September, 5),
	}}
	assert.Equal(t, 3, SchoolDayIndex(timeutil.Date(2024, time.September, 6), start, holidays))
}

func TestTodaysDutyIndex_RangeAndPeriod(t *testing.T) {
	for n := 1; n <= 7; n++ {
		for i := 1; i <= 40; i++ {
			idx := TodaysDutyIndex(i, n)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, n)
			assert.Equal(t, idx, TodaysDutyIndex(i+n, n))
		}
	}
}

func TestResolveDuty_Scenario(t *testing.T) {
	roster := []string{"A", "B", "C"}
	cfg := noHolidays()

	r := ResolveDuty(roster, timeutil.Date(2024, time.September, 2), cfg)
	require.Equal(t, OutcomeAssigned, r.Outcome)
	assert.Equal(t, 0, r.Index)
	assert.Equal(t, "Сегодня дежурный: A", r.Message())

	r = ResolveDuty(roster, timeutil.Date(2024, time.September, 4), cfg)
	assert.Equal(t, 2, r.Index)
	assert.Equal(t, "C", r.Assignee)

	// Monday after the first week: school day 6
	r = ResolveDuty(roster, timeutil.Date(2024, time.September, 9), cfg)
	assert.Equal(t, "C", r.Assignee)
}

func TestResolveDuty_PolicyOrder(t *testing.T) {
	cfg := DefaultConfig()

	r := ResolveDuty(nil, timeutil.Date(2024, time.August, 1), cfg)
	assert.Equal(t, OutcomeEmptyRoster, r.Outcome)
	assert.Equal(t, "Список дежурных пуст.", r.Message())

	r = ResolveDuty([]string{"A"}, timeutil.Date(2024, time.August, 1), cfg)
	assert.Equal(t, OutcomeNotStarted, r.Outcome)
	assert.Equal(t, "Учебный год ещё не начался.", r.Message())

	r = ResolveDuty([]string{"A"}, timeutil.Date(2024, time.September, 7), cfg)
	assert.Equal(t, OutcomeDayOff, r.Outcome)
	assert.Equal(t, "Сегодня дежурных нет! Отдыхайте 😎", r.Message())

	r = ResolveDuty([]string{"A"}, timeutil.Date(2025, time.June, 2), Config{
		SchoolStart: cfg.SchoolStart,
		Holidays:    []Period{{Start: timeutil.Date(2025, time.June, 1), End: timeutil.Date(2025, time.August, 31)}},
	})
	assert.Equal(t, OutcomeDayOff, r.Outcome)
}

func TestParsePeriods(t *testing.T) {
	got, err := ParsePeriods("2024-06-01:2024-08-31, 2024-12-30:2025-01-08")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-12-30:2025-01-08", got[1].String())

	got, err = ParsePeriods("")
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []string{"2024-06-01", "2024-08-31:2024-06-01", "x:y"} {
		_, err := ParsePeriods(bad)
		assert.Error(t, err, bad)
	}
}
