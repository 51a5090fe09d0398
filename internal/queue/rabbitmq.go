package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dlxExchangeName = "reminder.dlx"
	connectTimeout  = 15 * time.Second
	minBackoff      = time.Second
	maxBackoff      = 30 * time.Second

	// A trigger that waits longer than this is dead-lettered instead of
	// starting a run long after the tick that produced it.
	runTriggerTTL = 6 * time.Hour
)

// DialFunc opens a broker connection.
type DialFunc func(url string) (*amqp.Connection, error)

// RabbitMQ owns one broker connection shared by the run publisher and
// consumers. The run topology is declared once per connection.
type RabbitMQ struct {
	url  string
	dial DialFunc

	mu   sync.Mutex
	conn *amqp.Connection
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	return NewRabbitMQWithDialer(url, amqp.Dial)
}

func NewRabbitMQWithDialer(url string, dial DialFunc) (*RabbitMQ, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if dial == nil {
		return nil, fmt.Errorf("rabbitmq dialer is required")
	}

	r := &RabbitMQ{url: url, dial: dial}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if _, err := r.connection(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}
	return conn.Close()
}

// channel opens a channel on a live connection, redialing once the current
// connection is gone.
func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := r.connection(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err == nil {
		return ch, nil
	}

	r.drop(conn)
	conn, err = r.connection(ctx)
	if err != nil {
		return nil, err
	}
	ch, err = conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open rabbitmq channel after reconnect: %w", err)
	}
	return ch, nil
}

// connection returns the current connection or dials a new one with
// exponential backoff until ctx is done.
func (r *RabbitMQ) connection(ctx context.Context) (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn, nil
	}

	wait := minBackoff
	for {
		conn, dialErr := r.dial(r.url)
		if dialErr == nil {
			if err := declareRunTopology(conn); err != nil {
				_ = conn.Close()
				return nil, err
			}
			r.conn = conn
			return conn, nil
		}

		if err := sleepContext(ctx, wait); err != nil {
			return nil, fmt.Errorf("rabbitmq connect canceled: %w (last dial error: %v)", err, dialErr)
		}
		wait = nextBackoff(wait)
	}
}

func (r *RabbitMQ) drop(conn *amqp.Connection) {
	r.mu.Lock()
	if r.conn == conn {
		r.conn = nil
	}
	r.mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}

// declareRunTopology declares the run queue and its dead-letter queue:
// reminder.runs -> (reject/nack without requeue/TTL) -> reminder.dlx -> dlq.reminder.runs.
func declareRunTopology(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open topology channel: %w", err)
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.ExchangeDeclare(dlxExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", dlxExchangeName, err)
	}
	if _, err := ch.QueueDeclare(RunDLQName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", RunDLQName, err)
	}
	if err := ch.QueueBind(RunDLQName, runRoutingKey, dlxExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", RunDLQName, err)
	}

	if _, err := ch.QueueDeclare(RunQueueName, true, false, false, false, runQueueArgs()); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", RunQueueName, err)
	}
	return nil
}

func runQueueArgs() amqp.Table {
	return amqp.Table{
		"x-message-ttl":             runTriggerTTL.Milliseconds(),
		"x-dead-letter-exchange":    dlxExchangeName,
		"x-dead-letter-routing-key": runRoutingKey,
	}
}

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
