// Package events ships domain events to RabbitMQ so audit and analytics
// consumers can react to changes without coupling to the API.
package events

import (
	"context"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// QueueName is the durable queue carrying domain events
const QueueName = "finplan.events"

// Publisher delivers domain events. Callers treat publishing as best effort.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(ctx context.Context, ev domain.Event) error

func (f PublisherFunc) Publish(ctx context.Context, ev domain.Event) error {
	return f(ctx, ev)
}

// Discard drops every event. Used when no broker is configured.
var Discard Publisher = PublisherFunc(func(context.Context, domain.Event) error { return nil })
