// Command finplan-worker consumes domain events from RabbitMQ and writes an
// audit log line for each one.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/finplan/internal/config"
	"github.com/felixgeelhaar/finplan/internal/daemon"
	"github.com/felixgeelhaar/finplan/internal/events"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logs, err := daemon.SetupLogging(os.Stderr, cfg.LogDir, "finplan-worker", daemon.ParseLogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logs != nil {
		defer logs.Close()
	}

	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required")
	}

	conn, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer conn.Close()

	consumer := events.NewConsumer(conn, events.AuditLog(logger.With("component", "audit")), events.ConsumerConfig{
		Workers:  cfg.WorkerCount,
		Prefetch: cfg.WorkerPrefetch,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	<-ctx.Done()
	logger.Info("received signal, draining workers")
	consumer.Stop()
	logger.Info("worker stopped")
	return nil
}
