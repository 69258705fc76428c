package middleware

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS MIDDLEWARE
// In-process counters per command, exposed through the keep-alive server.
// ══════════════════════════════════════════════════════════════════════════════

// MetricsConfig holds configuration for the metrics middleware.
type MetricsConfig struct {
	// SlowRequestThreshold defines what's considered a slow request.
	SlowRequestThreshold time.Duration

	// OnSlowRequest is called when a request exceeds the slow threshold.
	OnSlowRequest func(command string, duration time.Duration, userID int64)
}

// DefaultMetricsConfig returns sensible defaults for metrics middleware.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SlowRequestThreshold: 2 * time.Second,
	}
}

// MetricsMiddleware collects request metrics.
type MetricsMiddleware struct {
	config MetricsConfig

	totalRequests  atomic.Int64
	totalErrors    atomic.Int64
	activeRequests atomic.Int64

	commandMetrics sync.Map // map[string]*commandMetrics
	uniqueUsers    sync.Map // map[int64]time.Time
}

type commandMetrics struct {
	count         atomic.Int64
	errors        atomic.Int64
	totalDuration atomic.Int64
	maxDuration   atomic.Int64
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware(config MetricsConfig) *MetricsMiddleware {
	return &MetricsMiddleware{config: config}
}

// RequestContext tracks one request.
type RequestContext struct {
	Command   string
	UserID    int64
	StartTime time.Time

	middleware *MetricsMiddleware
}

// Start begins tracking a new request.
func (m *MetricsMiddleware) Start(command string, userID int64) *RequestContext {
	m.totalRequests.Add(1)
	m.activeRequests.Add(1)
	m.uniqueUsers.Store(userID, time.Now())

	return &RequestContext{
		Command:    command,
		UserID:     userID,
		StartTime:  time.Now(),
		middleware: m,
	}
}

// End completes tracking for a request.
func (rc *RequestContext) End(err error) {
	m := rc.middleware
	duration := time.Since(rc.StartTime)
	m.activeRequests.Add(-1)

	cm := m.getCommandMetrics(rc.Command)
	cm.count.Add(1)
	if err != nil {
		cm.errors.Add(1)
		m.totalErrors.Add(1)
	}

	nanos := duration.Nanoseconds()
	cm.totalDuration.Add(nanos)
	for {
		current := cm.maxDuration.Load()
		if current >= nanos || cm.maxDuration.CompareAndSwap(current, nanos) {
			break
		}
	}

	if m.config.OnSlowRequest != nil && duration > m.config.SlowRequestThreshold {
		m.config.OnSlowRequest(rc.Command, duration, rc.UserID)
	}
}

func (m *MetricsMiddleware) getCommandMetrics(command string) *commandMetrics {
	if v, ok := m.commandMetrics.Load(command); ok {
		return v.(*commandMetrics)
	}
	actual, _ := m.commandMetrics.LoadOrStore(command, &commandMetrics{})
	return actual.(*commandMetrics)
}

// MetricsSnapshot is a point-in-time view of all collected metrics.
type MetricsSnapshot struct {
	Timestamp          time.Time          `json:"timestamp"`
	TotalRequests      int64              `json:"total_requests"`
	TotalErrors        int64              `json:"total_errors"`
	ActiveRequests     int64              `json:"active_requests"`
	UniqueUsersLastDay int                `json:"unique_users_last_day"`
	Commands           []*CommandSnapshot `json:"commands"`
}

// CommandSnapshot holds metrics for a single command.
type CommandSnapshot struct {
	Name        string        `json:"name"`
	Count       int64         `json:"count"`
	Errors      int64         `json:"errors"`
	AvgDuration time.Duration `json:"avg_duration_ns"`
	MaxDuration time.Duration `json:"max_duration_ns"`
}

// Snapshot returns a point-in-time snapshot of all metrics. Commands are
// sorted by name.
func (m *MetricsMiddleware) Snapshot() *MetricsSnapshot {
	now := time.Now()
	snap := &MetricsSnapshot{
		Timestamp:      now,
		TotalRequests:  m.totalRequests.Load(),
		TotalErrors:    m.totalErrors.Load(),
		ActiveRequests: m.activeRequests.Load(),
	}

	m.commandMetrics.Range(func(key, value any) bool {
		cm := value.(*commandMetrics)
		cs := &CommandSnapshot{
			Name:        key.(string),
			Count:       cm.count.Load(),
			Errors:      cm.errors.Load(),
			MaxDuration: time.Duration(cm.maxDuration.Load()),
		}
		if cs.Count > 0 {
			cs.AvgDuration = time.Duration(cm.totalDuration.Load() / cs.Count)
		}
		snap.Commands = append(snap.Commands, cs)
		return true
	})
	sort.Slice(snap.Commands, func(i, j int) bool { return snap.Commands[i].Name < snap.Commands[j].Name })

	dayAgo := now.Add(-24 * time.Hour)
	m.uniqueUsers.Range(func(_, value any) bool {
		if value.(time.Time).After(dayAgo) {
			snap.UniqueUsersLastDay++
		}
		return true
	})

	return snap
}
