// Package api wires the services into an HTTP handler.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/felixgeelhaar/finplan/internal/advisor"
	"github.com/felixgeelhaar/finplan/internal/api/middleware"
	"github.com/felixgeelhaar/finplan/internal/auth"
	"github.com/felixgeelhaar/finplan/internal/config"
	"github.com/felixgeelhaar/finplan/internal/events"
	"github.com/felixgeelhaar/finplan/internal/expense"
	"github.com/felixgeelhaar/finplan/internal/llm"
	"github.com/felixgeelhaar/finplan/internal/plan"
	"github.com/felixgeelhaar/finplan/internal/storage"
)

// App holds all application dependencies
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Store         *storage.Backend
	Publisher     events.Publisher
	Auth          *auth.Service
	Authenticator *auth.Authenticator
	Expenses      *expense.Service
	Plans         *plan.Service
	Advisor       *advisor.Advisor
	Metrics       *middleware.Metrics

	closers []func() error
}

// AppConfig holds configuration for application initialization. Nil
// dependencies are built from Config.
type AppConfig struct {
	Config    *config.Config
	Logger    *slog.Logger
	Backend   *storage.Backend
	Provider  llm.Provider
	Publisher events.Publisher
	Clock     func() time.Time
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(ctx context.Context, cfg AppConfig) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	app := &App{
		Config: cfg.Config,
		Logger: logger,
		Store:  cfg.Backend,
	}

	if app.Store == nil {
		backend, err := storage.Open(ctx, cfg.Config, logger)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		app.Store = backend
		app.closers = append(app.closers, backend.Close)
	}

	app.Publisher = cfg.Publisher
	if app.Publisher == nil {
		pub, err := app.openPublisher()
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Publisher = pub
	}

	provider := cfg.Provider
	if provider == nil {
		rp, err := llm.New(cfg.Config, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init llm provider: %w", err)
		}
		app.closers = append(app.closers, rp.Close)
		provider = rp
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = middleware.NewMetrics(reg)

	authOpts := []auth.Option{
		auth.WithClock(clock),
		auth.WithLogger(logger),
		auth.WithObserver(app.Metrics.ObserveAuth),
		auth.WithBcryptCost(cfg.Config.BcryptCost),
		auth.WithPublisher(app.Publisher),
	}
	app.Auth = auth.NewService(app.Store.Users, app.Store.Sessions, authOpts...)
	app.Authenticator = auth.NewAuthenticator(app.Store.Users, app.Store.Sessions, authOpts...)

	loc := cfg.Config.Location()
	app.Expenses = expense.NewService(app.Store.Expenses, app.Publisher, loc)
	app.Expenses.SetClock(clock)
	app.Plans = plan.NewService(app.Store.Plans, app.Publisher, loc)
	app.Plans.SetClock(clock)

	app.Advisor = advisor.New(provider, logger)

	return app, nil
}

// openPublisher dials RabbitMQ when configured. Events are dropped otherwise.
func (a *App) openPublisher() (events.Publisher, error) {
	if a.Config.RabbitMQURL == "" {
		a.Logger.Info("event publishing disabled", "reason", "RABBITMQ_URL not set")
		return events.Discard, nil
	}
	conn, err := events.Dial(a.Config.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	a.closers = append(a.closers, conn.Close)
	return events.NewAMQPPublisher(conn), nil
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
