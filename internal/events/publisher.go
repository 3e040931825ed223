package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// AMQPPublisher publishes domain events to the event queue
type AMQPPublisher struct {
	conn *Connection
}

// NewAMQPPublisher creates a publisher on conn
func NewAMQPPublisher(conn *Connection) *AMQPPublisher {
	return &AMQPPublisher{conn: conn}
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev domain.Event) error {
	if err := p.conn.PublishJSON(ctx, QueueName, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	slog.Debug("published event",
		"event_id", ev.ID,
		"type", ev.Type,
		"user_id", ev.UserID,
		"subject_id", ev.SubjectID,
	)
	return nil
}
