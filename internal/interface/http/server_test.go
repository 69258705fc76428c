package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
	"github.com/classhub/classbot/internal/infrastructure/scheduler"
	"github.com/classhub/classbot/internal/interface/http/handlers"
	tgbot "github.com/classhub/classbot/internal/interface/telegram"
	"github.com/classhub/classbot/pkg/logger"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedStats struct{ snap *tgbot.StatsSnapshot }

func (f fixedStats) Stats() *tgbot.StatsSnapshot { return f.snap }

type noopJob struct{}

func (noopJob) Name() string              { return "homework_sweep" }
func (noopJob) Description() string       { return "sweep" }
func (noopJob) Run(context.Context) error { return nil }

func newTestServer(t *testing.T, cfg Config, deps Dependencies) (*Server, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	deps.Logger = logger.New(logger.Options{Output: &logs, Level: logger.LevelInfo})
	return NewServer(cfg, deps), &logs
}

func get(t *testing.T, h http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_RootKeepAlive(t *testing.T) {
	s, logs := newTestServer(t, DefaultConfig(), Dependencies{})

	rec := get(t, s.Handler(), "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RootBody, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, logs.String(), `"msg":"http request"`)

	rec = get(t, s.Handler(), "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Healthz(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("store", handlers.NewPingCheck(memory.NewStore()))
	s, _ := newTestServer(t, DefaultConfig(), Dependencies{HealthChecker: checker})

	rec := get(t, s.Handler(), "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))

	var body struct {
		Success bool                  `json:"success"`
		Data    handlers.HealthStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.Data.Healthy)
	assert.Equal(t, "OK", body.Data.Checks["store"].Message)

	checker.AddCheck("redis", handlers.NewPingCheck(pingFunc(func(context.Context) error {
		return errors.New("connection refused")
	})))
	rec = get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Some checks failed: redis")
}

func TestServer_StatsRequiresToken(t *testing.T) {
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{Timezone: time.UTC})
	require.NoError(t, sched.Register(noopJob{}, scheduler.NewIntervalSchedule(time.Hour)))

	cfg := DefaultConfig()
	cfg.StatsToken = "secret"
	s, _ := newTestServer(t, cfg, Dependencies{
		Bot:  fixedStats{&tgbot.StatsSnapshot{UpdatesReceived: 7, UpdatesHandled: 6, ErrorsCount: 1}},
		Jobs: sched,
	})

	rec := get(t, s.Handler(), "/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, s.Handler(), "/stats", http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, s.Handler(), "/stats", http.Header{"X-Api-Key": {"secret"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Bot)
	assert.Equal(t, int64(7), body.Data.Bot.UpdatesReceived)
	require.Len(t, body.Data.Jobs, 1)
	assert.Equal(t, "homework_sweep", body.Data.Jobs[0].Name)
}

func TestServer_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	s, _ := newTestServer(t, cfg, Dependencies{})
	defer s.rateLimiter.Stop()

	header := http.Header{"X-Forwarded-For": {"10.0.0.1, 10.0.0.2"}}
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/", header).Code)
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/", header).Code)
	rec := get(t, s.Handler(), "/", header)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	other := http.Header{"X-Real-Ip": {"10.0.0.9"}}
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/", other).Code)
}

func TestServer_RecoversFromPanics(t *testing.T) {
	s, logs := newTestServer(t, DefaultConfig(), Dependencies{})
	h := s.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := get(t, h, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_server_error")
	assert.Contains(t, logs.String(), "panic recovered")
}
