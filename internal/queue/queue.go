package queue

import "context"

// Publisher publishes run messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg RunMessage) error
	Close() error
}

// MessageHandler handles a consumed run message.
type MessageHandler func(ctx context.Context, msg RunMessage) error

// Consumer consumes run messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	// RunQueueName carries run triggers published by the trigger scheduler or
	// by operators.
	RunQueueName = "reminder.runs"
	// RunDLQName receives malformed, expired and twice-failed run messages.
	RunDLQName = "dlq.reminder.runs"

	runRoutingKey = "reminder.runs"
)
