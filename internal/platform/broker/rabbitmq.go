package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ publishes domain events as persistent JSON messages on a topic exchange.
type RabbitMQ struct {
	conn     *amqp.Connection
	mu       sync.Mutex // guards channel
	channel  *amqp.Channel
	exchange string
}

// NewRabbitMQ dials url and declares the durable topic exchange.
func NewRabbitMQ(url, exchange string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &RabbitMQ{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends payload with eventType as the routing key.
func (r *RabbitMQ) Publish(ctx context.Context, eventType string, payload any) error {
	msg, err := newPublishing(eventType, payload, time.Now())
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel.PublishWithContext(ctx,
		r.exchange,
		eventType,
		false, // mandatory
		false, // immediate
		msg,
	)
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func newPublishing(eventType string, payload any, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Type:         eventType,
		Body:         body,
	}, nil
}

// Nop discards events. Used when RABBITMQ_URL is unset.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
