package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPRelay mirrors events onto a RabbitMQ topic exchange. Messages are
// transient and unroutable ones are dropped by the broker. A connection lost
// to a broker restart is redialed on the next Relay call.
type AMQPRelay struct {
	mu       sync.Mutex
	url      string
	exchange string
	conn     *amqp.Connection
	ch       *amqp.Channel
	closed   bool
}

const (
	amqpDialTimeout = 5 * time.Second
	amqpHeartbeat   = 10 * time.Second
)

// ErrRelayClosed is returned by Relay after Close.
var ErrRelayClosed = errors.New("notify: relay closed")

// NewAMQPRelay dials url and declares the topic exchange.
func NewAMQPRelay(url, exchange string) (*AMQPRelay, error) {
	r := &AMQPRelay{url: url, exchange: exchange}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

// connect opens a connection and channel and declares the exchange.
// Callers hold r.mu or own r exclusively.
func (r *AMQPRelay) connect() error {
	conn, err := amqp.DialConfig(r.url, amqp.Config{
		Heartbeat: amqpHeartbeat,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(amqpDialTimeout),
	})
	if err != nil {
		return fmt.Errorf("notify: dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(r.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("notify: declare exchange: %w", err)
	}
	r.conn, r.ch = conn, ch
	return nil
}

func (r *AMQPRelay) healthy() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.ch != nil && !r.ch.IsClosed()
}

func (r *AMQPRelay) reset() {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		_ = r.conn.Close()
	}
	r.conn, r.ch = nil, nil
}

// Relay publishes event with routing key "<event>.<recipient>".
func (r *AMQPRelay) Relay(ctx context.Context, recipient string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRelayClosed
	}
	if !r.healthy() {
		r.reset()
		if err := r.connect(); err != nil {
			return fmt.Errorf("notify: reconnect: %w", err)
		}
	}

	err := r.ch.PublishWithContext(ctx, r.exchange, routingKey(event.Name, recipient), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		MessageId:    event.ID,
		Type:         event.Name,
		Body:         event.Data,
	})
	if err != nil {
		return fmt.Errorf("notify: amqp publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	var err error
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		err = r.conn.Close()
	}
	r.conn, r.ch = nil, nil
	return err
}

func routingKey(eventName, recipient string) string {
	return eventName + "." + normalizeRecipient(recipient)
}
