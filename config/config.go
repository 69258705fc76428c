package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/classhub/classbot/internal/domain/calendar"
	"github.com/classhub/classbot/pkg/timeutil"
)

// Environment represents the application environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	// Application
	App AppConfig

	// Telegram Bot
	Telegram TelegramConfig

	// Record store
	Storage StorageConfig

	// School calendar and homework retention
	School SchoolConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Keep-alive HTTP server
	HTTP HTTPConfig

	// Feature Flags
	Features *FeatureFlags

	// Observability
	Observability ObservabilityConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string
	Environment Environment
	Debug       bool
	Version     string

	// Timezone for "today" and the daily jobs (empty: process local clock).
	Timezone string

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration

	// TempDir holds photos between download and broadcast.
	TempDir string
}

// TelegramConfig holds Telegram Bot settings.
type TelegramConfig struct {
	// Bot token from @BotFather
	Token string

	// BaseURL overrides the Bot API endpoint.
	BaseURL string

	// Long polling timeout in seconds.
	PollingTimeout int

	// HTTP request timeout and retries towards the Bot API.
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Update processing
	Workers        int
	HandlerTimeout time.Duration

	// Rate limiting
	UserRateLimit    int           // messages per minute per user
	UserRateBurst    int           // bucket size
	UserRateLimitBan time.Duration // ban duration for spammers

	// SessionIdleTimeout abandons dialogs nobody answered.
	SessionIdleTimeout time.Duration
}

// StorageConfig holds record store settings.
type StorageConfig struct {
	Backend string

	// SQLite
	SQLitePath string

	// PostgreSQL
	DatabaseURL     string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool

	// Redis
	Redis RedisConfig
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
	PoolSize  int
}

// SchoolConfig holds the calendar that drives duty rotation.
type SchoolConfig struct {
	// HomeworkTTLDays is how long an entry survives past its date.
	HomeworkTTLDays int

	// SchoolStart is the ISO date of the first school day.
	SchoolStart string

	// HolidayPeriods is a comma separated list of "start:end" ISO date pairs.
	HolidayPeriods string
}

// SchedulerConfig holds background job settings.
type SchedulerConfig struct {
	// Enable/disable scheduler
	Enabled bool

	// Daily run times "HH:MM" in the configured timezone.
	DutyReminderTime    string
	HomeworkCleanupTime string

	// How often idle dialogs are dropped.
	SessionCleanupInterval time.Duration
}

// HTTPConfig holds keep-alive server settings.
type HTTPConfig struct {
	Enabled            bool
	Host               string
	Port               int
	RateLimitPerMinute int
	StatsToken         string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// Load loads configuration from environment variables, after reading a .env
// file when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		App:           loadAppConfig(),
		Telegram:      loadTelegramConfig(),
		Storage:       loadStorageConfig(),
		School:        loadSchoolConfig(),
		Scheduler:     loadSchedulerConfig(),
		HTTP:          loadHTTPConfig(),
		Features:      LoadFeatureFlags(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func loadAppConfig() AppConfig {
	env := Environment(getEnv("APP_ENV", string(EnvProduction)))
	return AppConfig{
		Name:            getEnv("APP_NAME", "classbot"),
		Environment:     env,
		Debug:           env == EnvDevelopment || getEnvBool("APP_DEBUG", false),
		Version:         getEnv("APP_VERSION", "1.0.0"),
		Timezone:        getEnv("APP_TIMEZONE", ""),
		ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 30*time.Second),
		TempDir:         getEnv("TMP_UPLOADS_DIR", "tmp_uploads"),
	}
}

func loadTelegramConfig() TelegramConfig {
	return TelegramConfig{
		Token:              getEnv("BOT_TOKEN", getEnv("TELEGRAM_BOT_TOKEN", "")),
		BaseURL:            getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		PollingTimeout:     getEnvInt("POLL_TIMEOUT", 30),
		RequestTimeout:     getEnvDuration("TELEGRAM_REQUEST_TIMEOUT", 30*time.Second),
		RetryAttempts:      getEnvInt("TELEGRAM_RETRY_ATTEMPTS", 3),
		RetryDelay:         getEnvDuration("TELEGRAM_RETRY_DELAY", time.Second),
		Workers:            getEnvInt("MAX_CONCURRENT_UPDATES", 8),
		HandlerTimeout:     getEnvDuration("HANDLER_TIMEOUT", 60*time.Second),
		UserRateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		UserRateBurst:      getEnvInt("RATE_LIMIT_BURST", 10),
		UserRateLimitBan:   getEnvDuration("RATE_LIMIT_BAN", 5*time.Minute),
		SessionIdleTimeout: getEnvDuration("SESSION_IDLE_TIMEOUT", time.Hour),
	}
}

func loadStorageConfig() StorageConfig {
	url := getEnv("DATABASE_URL", "")
	if url == "" {
		host := getEnv("DB_HOST", "")
		user := getEnv("DB_USER", "")
		if host != "" && user != "" {
			url = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
				user, getEnv("DB_PASSWORD", ""), host, getEnv("DB_PORT", "5432"),
				getEnv("DB_NAME", "postgres"), getEnv("DB_SSLMODE", "require"))
		}
	}

	return StorageConfig{
		Backend:         strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
		SQLitePath:      getEnv("SQLITE_PATH", "data/classbot.db"),
		DatabaseURL:     url,
		MaxConns:        getEnvInt("DB_MAX_CONNS", 4),
		MinConns:        getEnvInt("DB_MIN_CONNS", 1),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "classbot:"),
			PoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
		},
	}
}

func loadSchoolConfig() SchoolConfig {
	return SchoolConfig{
		HomeworkTTLDays: getEnvInt("HOMEWORK_TTL_DAYS", 14),
		SchoolStart:     getEnv("SCHOOL_START", "2024-09-02"),
		HolidayPeriods:  getEnv("HOLIDAY_PERIODS", "2024-06-01:2024-08-31"),
	}
}

func loadSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:                getEnvBool("SCHEDULER_ENABLED", true),
		DutyReminderTime:       getEnv("DUTY_REMINDER_TIME", "04:30"),
		HomeworkCleanupTime:    getEnv("HOMEWORK_CLEANUP_TIME", "04:10"),
		SessionCleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
	}
}

func loadHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Enabled:            getEnvBool("HTTP_ENABLED", true),
		Host:               getEnv("HTTP_HOST", "0.0.0.0"),
		Port:               getEnvInt("HTTP_PORT", getEnvInt("PORT", 8081)),
		RateLimitPerMinute: getEnvInt("HTTP_RATE_LIMIT", 120),
		StatsToken:         getEnv("HTTP_STATS_TOKEN", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Telegram.Token == "" {
		add("BOT_TOKEN is required")
	}
	if c.Telegram.PollingTimeout < 0 {
		add("POLL_TIMEOUT must not be negative")
	}
	if c.Telegram.Workers <= 0 {
		add("MAX_CONCURRENT_UPDATES must be positive")
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			add("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			add("DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis, BackendMemory:
	default:
		add("STORE_BACKEND %q is not one of sqlite, postgres, redis, memory", c.Storage.Backend)
	}

	if c.School.HomeworkTTLDays <= 0 {
		add("HOMEWORK_TTL_DAYS must be positive")
	}
	if _, err := c.School.Calendar(); err != nil {
		errs = append(errs, err)
	}

	if _, _, err := timeutil.ParseClock(c.Scheduler.DutyReminderTime); err != nil {
		add("DUTY_REMINDER_TIME: %w", err)
	}
	if _, _, err := timeutil.ParseClock(c.Scheduler.HomeworkCleanupTime); err != nil {
		add("HOMEWORK_CLEANUP_TIME: %w", err)
	}
	if _, err := timeutil.LoadLocation(c.App.Timezone); err != nil {
		add("APP_TIMEZONE: %w", err)
	}

	if c.HTTP.Enabled && (c.HTTP.Port <= 0 || c.HTTP.Port > 65535) {
		add("HTTP_PORT must be 1-65535")
	}

	switch strings.ToLower(c.Observability.LogFormat) {
	case "json", "text":
	default:
		add("LOG_FORMAT %q is not json or text", c.Observability.LogFormat)
	}

	return errors.Join(errs...)
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := timeutil.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == EnvDevelopment
}

// Calendar parses the school start and holiday periods.
func (s SchoolConfig) Calendar() (calendar.Config, error) {
	start, err := timeutil.ParseISODate(strings.TrimSpace(s.SchoolStart))
	if err != nil {
		return calendar.Config{}, fmt.Errorf("SCHOOL_START: %w", err)
	}

	holidays, err := calendar.ParsePeriods(s.HolidayPeriods)
	if err != nil {
		return calendar.Config{}, fmt.Errorf("HOLIDAY_PERIODS: %w", err)
	}
	return calendar.Config{SchoolStart: start, Holidays: holidays}, nil
}

// --- Helper functions for environment variable parsing ---

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
