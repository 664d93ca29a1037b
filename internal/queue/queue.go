// Package queue carries prepwise domain events over RabbitMQ: recorded
// mistakes, XP awards and finished exams.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names
const (
	MistakeQueueName      = "prepwise.mistakes"
	XPQueueName           = "prepwise.xp"
	ExamFinishedQueueName = "prepwise.exams"
)

// Event types, carried in the AMQP Type header
const (
	TypeMistakeRecorded = "mistake.recorded"
	TypeXPAwarded       = "xp.awarded"
	TypeExamFinished    = "exam.finished"
)

// MistakeRecorded asks the consumer to append a mistake to a user's journal
type MistakeRecorded struct {
	ID        uuid.UUID      `json:"id"`
	User      string         `json:"user"`
	Mistake   domain.Mistake `json:"mistake"`
	CreatedAt time.Time      `json:"created_at"`
}

// XPAwarded announces an XP grant that has already been applied
type XPAwarded struct {
	ID        uuid.UUID `json:"id"`
	User      string    `json:"user"`
	Amount    int       `json:"amount"`
	Badges    []string  `json:"badges,omitempty"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

// ExamFinished announces a scored exam attempt
type ExamFinished struct {
	ID          uuid.UUID       `json:"id"`
	AttemptID   string          `json:"attempt_id"`
	User        string          `json:"user"`
	ExamMode    domain.ExamMode `json:"exam_mode,omitempty"`
	Score       int             `json:"score"`
	Total       int             `json:"total"`
	Mistakes    int             `json:"mistakes"`
	TimeExpired bool            `json:"time_expired"`
	FinishedAt  time.Time       `json:"finished_at"`
}

// queueSpec describes one declared queue
type queueSpec struct {
	name string
	ttl  time.Duration
}

// Mistakes must survive a consumer outage; announcements are short-lived.
var queueSpecs = []queueSpec{
	{MistakeQueueName, 24 * time.Hour},
	{XPQueueName, 10 * time.Minute},
	{ExamFinishedQueueName, 10 * time.Minute},
}

// JSONPublisher publishes JSON bodies to a named queue
type JSONPublisher interface {
	PublishJSON(ctx context.Context, queue, eventType string, data any) error
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
	logger     *slog.Logger
}

// NewConnection dials RabbitMQ and declares the prepwise queues
func NewConnection(url string) (*Connection, error) {
	c := &Connection{
		url:    url,
		logger: slog.Default().With("component", "queue"),
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	c.conn, err = amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := c.declareQueues(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return err
	}

	go c.handleReconnect(c.conn)

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

func (c *Connection) declareQueues() error {
	for _, q := range queueSpecs {
		_, err := c.channel.QueueDeclare(
			q.name,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			amqp.Table{
				"x-message-ttl": int32(q.ttl / time.Millisecond),
			},
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

// handleReconnect waits for conn to close and redials with exponential backoff
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if err == nil {
		return // normal close
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect",
		"error", err,
		"reconnects", c.reconnects,
	)

	for i := 0; i < 10; i++ {
		c.reconnects++
		time.Sleep(reconnectBackoff(i))

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}

		c.logger.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}

	c.logger.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// reconnectBackoff doubles from one second and caps at 30 seconds
func reconnectBackoff(attempt int) time.Duration {
	backoff := time.Duration(1<<attempt) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a persistent JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue, eventType string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         eventType,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL hides the password of an AMQP URL for logging
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "amqp://<invalid>"
	}
	return u.Redacted()
}
