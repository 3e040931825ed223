package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/finplan/internal/domain"
)

// Handler processes one event. Returning an error requeues the message once.
type Handler func(ctx context.Context, ev domain.Event) error

// Consumer reads events from the queue with a pool of workers
type Consumer struct {
	conn       *Connection
	handler    Handler
	workers    int
	prefetch   int
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int
	Prefetch int
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  2,
		Prefetch: 10,
	}
}

// NewConsumer creates a consumer that dispatches to handler
func NewConsumer(conn *Connection, handler Handler, cfg ConsumerConfig) *Consumer {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 10
	}
	return &Consumer{
		conn:     conn,
		handler:  handler,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		QueueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.Info("starting event consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("event channel closed", "worker_id", id)
				return
			}
			c.process(ctx, id, msg)
		}
	}
}

// process decodes and dispatches a single delivery, then acks, requeues or rejects it
func (c *Consumer) process(ctx context.Context, workerID int, msg amqp.Delivery) {
	var ev domain.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		slog.Error("dropping malformed event", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}

	if err := c.handler(ctx, ev); err != nil {
		slog.Error("event handler failed",
			"worker_id", workerID,
			"event_id", ev.ID,
			"type", ev.Type,
			"redelivered", msg.Redelivered,
			"error", err,
		)
		// one retry, then drop
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack event", "worker_id", workerID, "event_id", ev.ID, "error", err)
	}
}

// Stop cancels the workers and waits for them to exit
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("event consumer stopped")
}
