package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const consumerTagPrefix = "renewal-reminder-worker"

type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleDeadLetter
)

// settlementFor decides the fate of a decoded run message. A failed run is
// retried once; the redelivery that fails again goes to the dead-letter queue.
func settlementFor(handlerErr error, redelivered bool) settlement {
	switch {
	case handlerErr == nil:
		return settleAck
	case redelivered:
		return settleDeadLetter
	default:
		return settleRequeue
	}
}

// RabbitMQConsumer consumes run messages with manual acks and resumes
// consuming after channel or connection loss.
type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:   client,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Consume blocks until ctx is done. Broker failures are logged and retried.
func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	wait := minBackoff
	for ctx.Err() == nil {
		err := c.consumeOnce(ctx, queue, handler)
		if ctx.Err() != nil {
			break
		}
		if err == nil {
			wait = minBackoff
			continue
		}

		c.logger.Warn("run consumer interrupted, resubscribing",
			zap.String("queue", queue),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if sleepContext(ctx, wait) != nil {
			break
		}
		wait = nextBackoff(wait)
	}
	return nil
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	tag := fmt.Sprintf("%s-%p", consumerTagPrefix, c)
	deliveries, err := ch.ConsumeWithContext(ctx, queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %q closed", queue)
			}
			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// handleDelivery settles exactly one delivery. Only a failed ack/nack/reject
// is returned; it means the channel is unusable.
func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler MessageHandler) error {
	msg, err := decodeRunMessage(d.Body)
	if err != nil {
		c.logger.Warn("dead-lettering malformed run message",
			zap.String("messageId", d.MessageId),
			zap.Error(err),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject run message: %w", rejectErr)
		}
		return nil
	}

	log := c.logger.With(
		zap.String("runId", msg.RunID),
		zap.String("correlationId", msg.CorrelationID),
		zap.String("mode", msg.Mode.String()),
		zap.Bool("redelivered", d.Redelivered),
	)

	handlerErr := handler(ctx, msg)
	switch settlementFor(handlerErr, d.Redelivered) {
	case settleRequeue:
		log.Error("run failed, requeueing once", zap.Error(handlerErr))
		if err := d.Nack(false, true); err != nil {
			return fmt.Errorf("failed to requeue run message: %w", err)
		}
	case settleDeadLetter:
		log.Error("run failed again, dead-lettering", zap.Error(handlerErr))
		if err := d.Nack(false, false); err != nil {
			return fmt.Errorf("failed to dead-letter run message: %w", err)
		}
	default:
		if err := d.Ack(false); err != nil {
			return fmt.Errorf("failed to ack run message: %w", err)
		}
	}
	return nil
}

func decodeRunMessage(body []byte) (RunMessage, error) {
	var msg RunMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return RunMessage{}, fmt.Errorf("invalid run message json: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return RunMessage{}, fmt.Errorf("invalid run message: %w", err)
	}
	return msg, nil
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
