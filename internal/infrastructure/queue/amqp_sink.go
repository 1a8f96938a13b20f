package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/finaidhub/hub/internal/core/domain"
)

// publisher is the subset of *amqp.Channel the sink needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink forwards audit events to a durable RabbitMQ queue as persistent
// JSON messages. The connection is opened lazily and reopened after a
// publish failure. Safe for concurrent use.
type AMQPSink struct {
	queue string
	dial  func() (publisher, func() error, error)

	mu        sync.Mutex
	ch        publisher
	closeConn func() error
}

func NewAMQPSink(url, queue string) *AMQPSink {
	return &AMQPSink{
		queue: queue,
		dial: func() (publisher, func() error, error) {
			return dialQueue(url, queue)
		},
	}
}

func dialQueue(url, queue string) (publisher, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	// durable, not auto-deleted, not exclusive
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	return ch, conn.Close, nil
}

// Send publishes event to the default exchange with the queue name as routing key.
func (s *AMQPSink) Send(ctx context.Context, event domain.AuthEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		ch, closeConn, err := s.dial()
		if err != nil {
			return err
		}
		s.ch, s.closeConn = ch, closeConn
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Body:         body,
	}
	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, msg); err != nil {
		s.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func (s *AMQPSink) reset() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.closeConn != nil {
		_ = s.closeConn()
	}
	s.ch, s.closeConn = nil, nil
}
