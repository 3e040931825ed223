package events

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// AuditLog returns a handler that records each event as one structured log line
func AuditLog(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, ev domain.Event) error {
		if ev.Type == "" {
			logger.WarnContext(ctx, "dropping event without type", "event_id", ev.ID)
			return nil
		}
		logger.InfoContext(ctx, "audit",
			"event_id", ev.ID,
			"type", ev.Type,
			"user_id", ev.UserID,
			"subject_id", ev.SubjectID,
			"occurred_at", ev.OccurredAt,
		)
		return nil
	}
}
