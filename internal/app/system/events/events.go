// Package events publishes storefront domain events to a RabbitMQ topic
// exchange. Publishing is best effort: request handlers never fail because
// the broker is down.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys.
const (
	OrderPlaced        = "order.placed"
	OrderStatusChanged = "order.status_changed"
	ReviewApproved     = "review.approved"
	ReviewDeleted      = "review.deleted"
)

// Envelope wraps every published payload.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Publisher is what handlers and services depend on.
type Publisher interface {
	Publish(ctx context.Context, key string, data any)
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) {}
func (Nop) Close() error                          { return nil }

// AMQP publishes JSON envelopes to a topic exchange.
type AMQP struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

// Dial connects to url and declares a durable topic exchange.
func Dial(url, exchange string, log *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQP{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Publish sends data under key. Failures are logged and swallowed.
func (p *AMQP) Publish(ctx context.Context, key string, data any) {
	body, err := Encode(key, data, time.Now().UTC())
	if err != nil {
		p.log.Error("events: encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	// amqp channels are not safe for concurrent publishes.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.log.Warn("events: publish failed", zap.String("key", key), zap.Error(err))
	}
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Encode builds the JSON body for an event.
func Encode(key string, data any, at time.Time) ([]byte, error) {
	return json.Marshal(Envelope{Type: key, OccurredAt: at, Data: data})
}

// Recorder keeps published events in memory. Tests use it to assert on
// side effects.
type Recorder struct {
	mu     sync.Mutex
	Events []Envelope
}

func (r *Recorder) Publish(_ context.Context, key string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Envelope{Type: key, OccurredAt: time.Now().UTC(), Data: data})
}

func (r *Recorder) Close() error { return nil }

// Types returns the routing keys recorded so far, in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
