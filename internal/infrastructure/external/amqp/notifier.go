package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Config holds the broker connection settings
type Config struct {
	URL   string
	Queue string
}

// Message is the JSON body published for every status notification
type Message struct {
	Contact     string    `json:"contact"`
	Name        string    `json:"name"`
	RequestID   int64     `json:"request_id"`
	StatusLabel string    `json:"status"`
	SentAt      time.Time `json:"sent_at"`
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Notifier publishes status notifications to a durable RabbitMQ queue.
// A downstream consumer delivers them.
type Notifier struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	queue  string
	logger *zap.Logger
}

// NewNotifier dials the broker and declares the queue
func NewNotifier(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if cfg.Queue == "" {
		return nil, errors.New("amqp queue name is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	logger.Info("AMQP notifier ready", zap.String("queue", cfg.Queue))
	return &Notifier{conn: conn, ch: ch, queue: cfg.Queue, logger: logger}, nil
}

// Notify implements port.Notifier
func (n *Notifier) Notify(ctx context.Context, contact, name string, requestID int64, statusLabel string) error {
	body, err := json.Marshal(Message{
		Contact:     contact,
		Name:        name,
		RequestID:   requestID,
		StatusLabel: statusLabel,
		SentAt:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.ch.PublishWithContext(ctx, "", n.queue, false, false, pub); err != nil {
		n.logger.Error("Failed to publish notification", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	var errs []error
	if n.ch != nil {
		errs = append(errs, n.ch.Close())
	}
	if n.conn != nil {
		errs = append(errs, n.conn.Close())
	}
	return errors.Join(errs...)
}
