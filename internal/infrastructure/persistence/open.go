package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/classhub/classbot/internal/domain/record"
	"github.com/classhub/classbot/internal/infrastructure/persistence/memory"
	"github.com/classhub/classbot/internal/infrastructure/persistence/postgres"
	"github.com/classhub/classbot/internal/infrastructure/persistence/redis"
	"github.com/classhub/classbot/internal/infrastructure/persistence/sqlite"
	"github.com/classhub/classbot/pkg/retry"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Locker takes run-once locks so a scheduled job fires once per trigger even
// when both the bot and the worker run the scheduler.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	// Unlock releases name so the next TryLock succeeds. Releasing a lock
	// that is not held is not an error.
	Unlock(ctx context.Context, name string) error
}

// Backend is a record store that can also hand out job locks.
type Backend interface {
	record.Store
	Locker
}

// Options selects and configures a backend.
type Options struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
	Postgres    postgres.Config
	Redis       redis.Config
	// Migrate applies postgres migrations on open.
	Migrate bool
	Logger  *slog.Logger
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case "", BackendSQLite:
		s, err := sqlite.Open(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("record store opened", "backend", BackendSQLite, "path", opts.SQLitePath)
		return s, nil

	case BackendPostgres:
		var conn *postgres.Connection
		err := connectRetrier(logger, BackendPostgres).Do(ctx, func(ctx context.Context) error {
			var err error
			conn, err = postgres.NewConnectionFromURL(ctx, opts.DatabaseURL, opts.Postgres)
			return err
		})
		if err != nil {
			return nil, err
		}
		if opts.Migrate {
			ran, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, err
			}
			logger.Info("postgres migrations applied", "count", ran)
		}
		logger.Info("record store opened", "backend", BackendPostgres)
		return postgres.NewRecordStore(conn), nil

	case BackendRedis:
		var s *redis.Store
		err := connectRetrier(logger, BackendRedis).Do(ctx, func(ctx context.Context) error {
			var err error
			s, err = redis.NewStore(ctx, opts.Redis)
			return err
		})
		if err != nil {
			return nil, err
		}
		logger.Info("record store opened", "backend", BackendRedis, "addr", opts.Redis.Addr())
		return s, nil

	case BackendMemory:
		logger.Warn("record store is in-memory, data is lost on restart")
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf("persistence: unknown backend %q", opts.Backend)
	}
}

// connectRetrier retries backend connects and logs each failed attempt.
func connectRetrier(logger *slog.Logger, backend string) *retry.Retrier {
	return retry.BackendRetrier(func(attempt int, err error, delay time.Duration) {
		logger.Warn("store connect failed, retrying",
			"backend", backend,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	})
}
