package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidDate(t *testing.T) {
	d, ok := ValidDate(2024, time.January, 25)
	require.True(t, ok)
	assert.Equal(t, "2024-01-25", FormatISO(d))

	_, ok = ValidDate(2024, time.February, 31)
	assert.False(t, ok)

	_, ok = ValidDate(2024, 13, 1)
	assert.False(t, ok)

	d, ok = ValidDate(2024, time.February, 29)
	require.True(t, ok)
	assert.Equal(t, "29.02.2024", FormatRussian(d))
}

func TestDateOf_UsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	late := time.Date(2024, time.September, 2, 23, 30, 0, 0, loc)
	assert.Equal(t, Date(2024, time.September, 2), DateOf(late))
}

func TestWeekdayIndex(t *testing.T) {
	assert.Equal(t, 0, WeekdayIndex(Date(2024, time.September, 2)))
	assert.Equal(t, 6, WeekdayIndex(Date(2024, time.September, 8)))
	assert.True(t, IsWeekend(Date(2024, time.September, 7)))
	assert.False(t, IsWeekend(Date(2024, time.September, 6)))
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2024-09-01")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.September, 1), d)

	_, err = ParseISODate("01.09.2024")
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("04:30")
	require.NoError(t, err)
	assert.Equal(t, 4, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "4", "24:00", "04:60", "aa:bb"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestDaysBetween(t *testing.T) {
	a := Date(2024, time.September, 1)
	assert.Equal(t, 14, DaysBetween(a, AddDays(a, 14)))
	assert.Equal(t, -1, DaysBetween(a, AddDays(a, -1)))
}
