package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/felixgeelhaar/finplan/internal/config"
	"github.com/felixgeelhaar/finplan/internal/daemon"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logs, err := daemon.SetupLogging(os.Stderr, cfg.LogDir, "finplan-api", daemon.ParseLogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logs != nil {
		defer logs.Close()
	}

	ctx := context.Background()
	server, err := daemon.NewServer(ctx, daemon.ServerConfig{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("api stopped")
	return nil
}
