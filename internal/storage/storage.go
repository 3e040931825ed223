// Package storage selects and opens the configured persistence backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/config"
	"github.com/felixgeelhaar/finplan/internal/expense"
	"github.com/felixgeelhaar/finplan/internal/plan"
	"github.com/felixgeelhaar/finplan/internal/storage/memory"
	"github.com/felixgeelhaar/finplan/internal/storage/mongodb"
	"github.com/felixgeelhaar/finplan/internal/storage/postgres"
	"github.com/felixgeelhaar/finplan/internal/storage/redis"
	"github.com/felixgeelhaar/finplan/internal/storage/sqlite"
)

// Backend bundles the stores the API depends on
type Backend struct {
	Users    auth.UserStore
	Sessions auth.SessionStore
	Expenses expense.Store
	Plans    plan.Store

	// Name identifies the primary backend, e.g. "sqlite"
	Name string

	pings   []func(context.Context) error
	closers []func() error
}

// Ping checks every underlying connection
func (b *Backend) Ping(ctx context.Context) error {
	for _, ping := range b.pings {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases connections in reverse order of opening
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open connects the backend named by cfg.StoreBackend and, when
// cfg.SessionBackend is redis, moves session storage to Redis.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Backend{Name: cfg.StoreBackend}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		s := memory.New()
		b.Users, b.Sessions, b.Expenses, b.Plans = s, s, s, s
		b.pings = append(b.pings, s.Ping)

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		b.Users = sqlite.NewUserStore(db)
		b.Sessions = sqlite.NewSessionStore(db)
		b.Expenses = sqlite.NewExpenseStore(db)
		b.Plans = sqlite.NewPlanStore(db)
		b.pings = append(b.pings, db.PingContext)
		b.closers = append(b.closers, db.Close)

	case config.BackendPostgres:
		s, db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.Users, b.Sessions, b.Expenses, b.Plans = s, s, s, s
		b.pings = append(b.pings, db.PingContext)
		b.closers = append(b.closers, db.Close)

	case config.BackendMongo:
		s, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		b.Users, b.Sessions, b.Expenses, b.Plans = s, s, s, s
		b.pings = append(b.pings, s.Ping)
		b.closers = append(b.closers, s.Close)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.SessionBackend == config.SessionsInRedis {
		client, err := redis.Connect(ctx, cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		sessions := redis.NewSessionStore(client, redis.DefaultPrefix, cfg.RedisRetention)
		b.Sessions = sessions
		b.pings = append(b.pings, sessions.Ping)
		b.closers = append(b.closers, client.Close)
	}

	logger.Info("storage opened",
		"backend", b.Name,
		"sessions", cfg.SessionBackend,
	)
	return b, nil
}
