package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/pkg/timeutil"
)

// chdirTemp runs the test in an empty directory so a developer's .env is not read.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, 30, cfg.Telegram.PollingTimeout)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "data/classbot.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 14, cfg.School.HomeworkTTLDays)
	assert.Equal(t, "04:30", cfg.Scheduler.DutyReminderTime)
	assert.Equal(t, "04:10", cfg.Scheduler.HomeworkCleanupTime)
	assert.Equal(t, 8081, cfg.HTTP.Port)
	assert.Equal(t, "tmp_uploads", cfg.App.TempDir)
	assert.True(t, cfg.Features.IsEnabled(FeatureDutyReminder))

	cal, err := cfg.School.Calendar()
	require.NoError(t, err)
	assert.Equal(t, timeutil.Date(2024, time.September, 2), cal.SchoolStart)
	require.Len(t, cal.Holidays, 1)
	assert.Equal(t, timeutil.Date(2024, time.August, 31), cal.Holidays[0].End)
}

func TestLoad_TokenAliasAndDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("TELEGRAM_BOT_TOKEN=from-file\nHOMEWORK_TTL_DAYS=7\n"), 0o600))
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("HOMEWORK_TTL_DAYS", "")
	// godotenv does not override variables that are already set, so the
	// empty values above are cleared first.
	require.NoError(t, os.Unsetenv("BOT_TOKEN"))
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))
	require.NoError(t, os.Unsetenv("HOMEWORK_TTL_DAYS"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Telegram.Token)
	assert.Equal(t, 7, cfg.School.HomeworkTTLDays)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("DUTY_REMINDER_TIME", "25:99")
	t.Setenv("HOLIDAY_PERIODS", "2024-08-31:2024-06-01")
	t.Setenv("LOG_FORMAT", "xml")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "BOT_TOKEN is required")
	assert.Contains(t, msg, `STORE_BACKEND "mongo"`)
	assert.Contains(t, msg, "DUTY_REMINDER_TIME")
	assert.Contains(t, msg, "HOLIDAY_PERIODS")
	assert.Contains(t, msg, `LOG_FORMAT "xml"`)
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BOT_TOKEN", "x")
	t.Setenv("STORE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")

	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "bot")
	t.Setenv("DB_PASSWORD", "pw")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://bot:pw@db:5432/postgres?sslmode=require", cfg.Storage.DatabaseURL)
}

func TestSchoolCalendar_MultiplePeriods(t *testing.T) {
	s := SchoolConfig{
		SchoolStart:    "2025-09-01",
		HolidayPeriods: "2025-10-27:2025-11-02, 2025-12-29:2026-01-07,",
	}
	cal, err := s.Calendar()
	require.NoError(t, err)
	require.Len(t, cal.Holidays, 2)
	assert.Equal(t, timeutil.Date(2025, time.December, 29), cal.Holidays[1].Start)

	_, err = SchoolConfig{SchoolStart: "01.09.2025"}.Calendar()
	assert.ErrorContains(t, err, "SCHOOL_START")

	_, err = SchoolConfig{SchoolStart: "2025-09-01", HolidayPeriods: "2025-10-27"}.Calendar()
	assert.ErrorContains(t, err, "HOLIDAY_PERIODS")
	assert.ErrorContains(t, err, "YYYY-MM-DD:YYYY-MM-DD")

	cal, err = SchoolConfig{SchoolStart: "2025-09-01", HolidayPeriods: "2025-10-27 : 2025-11-02"}.Calendar()
	require.NoError(t, err)
	require.Len(t, cal.Holidays, 1)
	assert.Equal(t, timeutil.Date(2025, time.November, 2), cal.Holidays[0].End)
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_DUTY_REMINDER", "false")
	t.Setenv("FEATURE_KEEP_ALIVE", "maybe")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureDutyReminder))
	assert.True(t, ff.IsEnabled(FeatureKeepAlive))
	assert.False(t, ff.IsEnabled("unknown"))

	require.NoError(t, ff.SetEnabled(FeatureDutyReminder, true))
	assert.True(t, ff.IsEnabled(FeatureDutyReminder))
	assert.ErrorIs(t, ff.SetEnabled("unknown", true), ErrFeatureNotFound)

	all := ff.GetAllFeatures()
	require.Len(t, all, 4)
	assert.Equal(t, FeatureDutyReminder, all[0].Name)
}
