// Package daemon runs the API as a long-lived process: it owns the HTTP server
// lifecycle and the process-wide logger.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixgeelhaar/finplan/internal/api"
	"github.com/felixgeelhaar/finplan/internal/config"
)

// Server represents the finplan API HTTP server
type Server struct {
	cfg    *config.Config
	app    *api.App
	server *http.Server
	logger *slog.Logger
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config *config.Config
	Logger *slog.Logger

	// App replaces the application built from Config. Used by tests.
	App *api.App
}

// NewServer creates a new API server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := cfg.App
	if app == nil {
		var err error
		app, err = api.NewApp(ctx, api.AppConfig{Config: cfg.Config, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("create app: %w", err)
		}
	}

	s := &Server{
		cfg:    cfg.Config,
		app:    app,
		logger: logger,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// AI calls can take a while
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start listens on the configured port and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting finplan api",
		"addr", ln.Addr().String(),
		"store", s.app.Store.Name,
		"timezone", s.cfg.Timezone,
	)
	return s.server.Serve(ln)
}

// Shutdown drains in-flight requests and then releases the application's
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api...")

	err := s.server.Shutdown(ctx)
	if cerr := s.app.Close(); cerr != nil {
		s.logger.Warn("failed to close app resources", "error", cerr)
		err = errors.Join(err, cerr)
	}
	return err
}
