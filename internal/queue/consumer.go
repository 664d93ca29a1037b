package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// handlerTimeout bounds a single event handler call
const handlerTimeout = 30 * time.Second

// Handlers receive decoded events. Queues whose handler is nil are not consumed.
type Handlers struct {
	Mistake      func(ctx context.Context, ev *MistakeRecorded) error
	XPAwarded    func(ctx context.Context, ev *XPAwarded) error
	ExamFinished func(ctx context.Context, ev *ExamFinished) error
}

// ErrMalformedEvent marks a message that can never be processed
var ErrMalformedEvent = errors.New("malformed event")

// Consumer consumes prepwise events
type Consumer struct {
	conn       *Connection
	handlers   Handlers
	workers    int
	prefetch   int
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers  int // workers per queue
	Prefetch int // prefetch count per channel
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  2,
		Prefetch: 1,
	}
}

// NewConsumer creates a consumer dispatching to handlers
func NewConsumer(conn *Connection, handlers Handlers, cfg ConsumerConfig) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}

	return &Consumer{
		conn:     conn,
		handlers: handlers,
		workers:  cfg.Workers,
		prefetch: cfg.Prefetch,
		logger:   slog.Default().With("component", "queue-consumer"),
	}
}

// Start begins consuming every queue that has a handler
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	for _, queue := range c.queues() {
		msgs, err := ch.Consume(
			queue,
			"",    // consumer tag (auto-generated)
			false, // auto-ack (manual ack for reliability)
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			c.cancelFunc()
			return fmt.Errorf("failed to consume %s: %w", queue, err)
		}

		c.logger.Info("consuming queue", "queue", queue, "workers", c.workers)
		for i := 0; i < c.workers; i++ {
			c.wg.Add(1)
			go c.worker(ctx, queue, i, msgs)
		}
	}
	return nil
}

func (c *Consumer) queues() []string {
	var qs []string
	if c.handlers.Mistake != nil {
		qs = append(qs, MistakeQueueName)
	}
	if c.handlers.XPAwarded != nil {
		qs = append(qs, XPQueueName)
	}
	if c.handlers.ExamFinished != nil {
		qs = append(qs, ExamFinishedQueueName)
	}
	return qs
}

func (c *Consumer) worker(ctx context.Context, queue string, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-msgs:
			if !ok {
				c.logger.Info("message channel closed", "queue", queue, "worker_id", id)
				return
			}
			c.processMessage(ctx, queue, msg)
		}
	}
}

// processMessage dispatches one delivery. Malformed messages are rejected,
// failed handlers get one redelivery, successes are acked.
func (c *Consumer) processMessage(ctx context.Context, queue string, msg amqp.Delivery) {
	hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	start := time.Now()
	err := c.dispatch(hctx, queue, msg.Body)

	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", "queue", queue, "error", ackErr)
		}
		c.logger.Debug("event handled", "queue", queue, "duration", time.Since(start))

	case errors.Is(err, ErrMalformedEvent):
		c.logger.Error("dropping malformed event", "queue", queue, "error", err)
		_ = msg.Reject(false)

	default:
		requeue := !msg.Redelivered
		c.logger.Error("event handler failed",
			"queue", queue,
			"error", err,
			"requeue", requeue,
		)
		_ = msg.Nack(false, requeue)
	}
}

func (c *Consumer) dispatch(ctx context.Context, queue string, body []byte) error {
	switch queue {
	case MistakeQueueName:
		var ev MistakeRecorded
		if err := decode(body, &ev); err != nil {
			return err
		}
		if ev.User == "" {
			return fmt.Errorf("%w: mistake without user", ErrMalformedEvent)
		}
		return c.handlers.Mistake(ctx, &ev)

	case XPQueueName:
		var ev XPAwarded
		if err := decode(body, &ev); err != nil {
			return err
		}
		return c.handlers.XPAwarded(ctx, &ev)

	case ExamFinishedQueueName:
		var ev ExamFinished
		if err := decode(body, &ev); err != nil {
			return err
		}
		return c.handlers.ExamFinished(ctx, &ev)
	}
	return fmt.Errorf("%w: unknown queue %s", ErrMalformedEvent, queue)
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.logger.Info("consumer stopped")
}
