package homework

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/pkg/timeutil"
)

// 2024-09-04 is a Wednesday.
var wednesday = timeutil.Date(2024, time.September, 4)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		want     time.Time
		consumed int
	}{
		{"tomorrow", []string{"завтра", "алгебра"}, timeutil.Date(2024, time.September, 5), 1},
		{"tomorrow uppercase", []string{"Завтра"}, timeutil.Date(2024, time.September, 5), 1},
		{"short weekday", []string{"пт"}, timeutil.Date(2024, time.September, 6), 1},
		{"full weekday", []string{"Понедельник"}, timeutil.Date(2024, time.September, 9), 1},
		{"same weekday jumps a week", []string{"ср"}, timeutil.Date(2024, time.September, 11), 1},
		{"dotted", []string{"25.01"}, timeutil.Date(2024, time.January, 25), 1},
		{"dashed", []string{"5-10", "x"}, timeutil.Date(2024, time.October, 5), 1},
		{"slashed", []string{"05/10"}, timeutil.Date(2024, time.October, 5), 1},
		{"two numbers", []string{"25", "1", "text"}, timeutil.Date(2024, time.January, 25), 2},
		{"genitive month", []string{"25", "января"}, timeutil.Date(2024, time.January, 25), 2},
		{"nominative month", []string{"3", "Март"}, timeutil.Date(2024, time.March, 3), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, consumed, ok := ParseDate(tt.tokens, wednesday)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.consumed, consumed)
		})
	}
}

func TestParseDate_Unparsed(t *testing.T) {
	for _, tokens := range [][]string{
		nil,
		{"вчера"},
		{"25"},
		{"31.02"},
		{"30", "февраля"},
		{"25", "jan"},
		{"1.2.2024"},
		{"13", "13"},
	} {
		_, _, ok := ParseDate(tokens, wednesday)
		assert.False(t, ok, "%v", tokens)
	}
}

func TestNextWeekday_NeverToday(t *testing.T) {
	for i := 0; i < 7; i++ {
		d := NextWeekday(wednesday, i)
		assert.True(t, d.After(wednesday))
		assert.LessOrEqual(t, timeutil.DaysBetween(wednesday, d), 7)
		assert.Equal(t, i, timeutil.WeekdayIndex(d))
	}
}

func TestExpiryAndSweep_Scenario(t *testing.T) {
	m := Map{"2024-09-01": "read"}
	assert.Equal(t, timeutil.Date(2024, time.September, 15), Expiry(timeutil.Date(2024, time.September, 1), 14))

	kept, removed := Sweep(m, 14, timeutil.Date(2024, time.September, 15))
	assert.Equal(t, 0, removed)
	assert.Equal(t, m, kept)

	kept, removed = Sweep(m, 14, timeutil.Date(2024, time.September, 16))
	assert.Equal(t, 1, removed)
	assert.Empty(t, kept)
}

func TestSweep_IdempotentAndKeepsUnparsedKeys(t *testing.T) {
	today := timeutil.Date(2024, time.October, 1)
	m := Map{
		"2024-09-01": "old",
		"2024-09-20": "recent",
		"2024-10-05": "future",
		"legacy":     "kept",
	}

	once, removed := Sweep(m, 14, today)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "kept", once["legacy"])
	assert.Len(t, m, 4, "input must not be mutated")

	twice, removed := Sweep(once, 14, today)
	assert.Equal(t, 0, removed)
	assert.Equal(t, once, twice)
}

func TestUpcoming(t *testing.T) {
	today := timeutil.Date(2024, time.September, 10)
	m := Map{
		"2024-09-12": "c",
		"2024-09-09": "past",
		"2024-09-10": "a",
		"2024-09-11": "b",
		"junk":       "skip",
	}

	items := Upcoming(m, today, 10)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Task)
	assert.Equal(t, "b", items[1].Task)
	assert.Equal(t, "c", items[2].Task)

	assert.Len(t, Upcoming(m, today, 2), 2)
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, 1, ClampCount(0))
	assert.Equal(t, 1, ClampCount(-5))
	assert.Equal(t, 10, ClampCount(10))
	assert.Equal(t, 50, ClampCount(500))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "line one line two", Preview("  line one\nline two  "))

	long := strings.Repeat("ж", 130)
	got := Preview(long)
	assert.Equal(t, 120, len([]rune(got)))
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("a", 120)
	assert.Equal(t, exact, Preview(exact))
}

func TestExpand(t *testing.T) {
	assert.Equal(t, "Алгебра:\n№1;\n №2", Expand("Алгебра: №1; №2"))
}
