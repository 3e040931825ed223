package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLogLevel maps a LOG_LEVEL value to a slog level, defaulting to info
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Log file retention
const (
	logMaxSizeMB  = 100
	logMaxAgeDays = 14
)

// SetupLogging installs the default logger. Text goes to stderr. When dir is
// set, JSON records are also written to dir/<name>.log and error records
// additionally to dir/errors.log; both files are rotated at logMaxSizeMB,
// compressed, and pruned after logMaxAgeDays. The returned closer, if any,
// must be closed by the caller.
func SetupLogging(stderr io.Writer, dir, name string, level slog.Level) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: level}
	console := slog.NewTextHandler(stderr, opts)

	if dir == "" {
		logger := slog.New(console)
		slog.SetDefault(logger)
		return logger, nil, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	appLog := rotatingFile(filepath.Join(dir, name+".log"))
	errLog := rotatingFile(filepath.Join(dir, "errors.log"))

	logger := slog.New(&multiHandler{
		handlers: []slog.Handler{
			slog.NewJSONHandler(appLog, opts),
			slog.NewJSONHandler(errLog, &slog.HandlerOptions{Level: slog.LevelError}),
			console,
		},
	})
	slog.SetDefault(logger)
	return logger, closers{appLog, errLog}, nil
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:  path,
		MaxSize:   logMaxSizeMB,
		MaxAge:    logMaxAgeDays,
		Compress:  true,
		LocalTime: true,
	}
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
