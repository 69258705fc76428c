// Package persistence wires the keyed record store to the domain repositories
// and opens the configured backend.
package persistence

import (
	"context"
	"log/slog"

	"github.com/classhub/classbot/internal/domain/homework"
	"github.com/classhub/classbot/internal/domain/joke"
	"github.com/classhub/classbot/internal/domain/record"
	"github.com/classhub/classbot/internal/domain/roster"
	"github.com/classhub/classbot/internal/domain/schedule"
	"github.com/classhub/classbot/internal/domain/settings"
)

// Records implements every domain repository on one record.Store.
// Loads never fail: missing or corrupt data yields the record's default.
type Records struct {
	store  record.Store
	logger *slog.Logger
}

// NewRecords creates the repository facade.
func NewRecords(store record.Store, logger *slog.Logger) *Records {
	if logger == nil {
		logger = slog.Default()
	}
	return &Records{store: store, logger: logger.With("component", "records")}
}

// Store returns the underlying store.
func (r *Records) Store() record.Store {
	return r.store
}

// Settings loads the settings record.
func (r *Records) Settings(ctx context.Context) settings.Settings {
	s := record.Load(ctx, r.store, record.KeySettings, settings.Default(), r.logger)
	if s.Admins == nil {
		s.Admins = []string{}
	}
	return s
}

// SaveSettings replaces the settings record.
func (r *Records) SaveSettings(ctx context.Context, s settings.Settings) error {
	return record.Save(ctx, r.store, record.KeySettings, s)
}

// Schedule loads the schedule map.
func (r *Records) Schedule(ctx context.Context) schedule.Map {
	m := record.Load(ctx, r.store, record.KeySchedule, schedule.Map{}, r.logger)
	if m == nil {
		m = schedule.Map{}
	}
	return m
}

// SaveSchedule replaces the schedule map.
func (r *Records) SaveSchedule(ctx context.Context, m schedule.Map) error {
	return record.Save(ctx, r.store, record.KeySchedule, m)
}

// Roster loads the duty roster.
func (r *Records) Roster(ctx context.Context) roster.Roster {
	return record.Load(ctx, r.store, record.KeyDuty, roster.Roster{}, r.logger)
}

// SaveRoster replaces the duty roster.
func (r *Records) SaveRoster(ctx context.Context, list roster.Roster) error {
	if list == nil {
		list = roster.Roster{}
	}
	return record.Save(ctx, r.store, record.KeyDuty, list)
}

// Homework loads the homework map without sweeping it.
func (r *Records) Homework(ctx context.Context) homework.Map {
	m := record.Load(ctx, r.store, record.KeyHomework, homework.Map{}, r.logger)
	if m == nil {
		m = homework.Map{}
	}
	return m
}

// SaveHomework replaces the homework map.
func (r *Records) SaveHomework(ctx context.Context, m homework.Map) error {
	return record.Save(ctx, r.store, record.KeyHomework, m)
}

// Jokes loads the joke list.
func (r *Records) Jokes(ctx context.Context) joke.List {
	return record.Load(ctx, r.store, record.KeyJokes, joke.List{}, r.logger)
}

// SaveJokes replaces the joke list.
func (r *Records) SaveJokes(ctx context.Context, l joke.List) error {
	if l == nil {
		l = joke.List{}
	}
	return record.Save(ctx, r.store, record.KeyJokes, l)
}

var (
	_ settings.Repository = (*Records)(nil)
	_ schedule.Repository = (*Records)(nil)
	_ roster.Repository   = (*Records)(nil)
	_ homework.Repository = (*Records)(nil)
	_ joke.Repository     = (*Records)(nil)
)
