package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded message.
type Handler func(ctx context.Context, msg Message) error

// RabbitConsumer reads notification jobs from a durable queue with manual acknowledgement.
type RabbitConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

// NewRabbitConsumer dials the broker, declares the exchange and queue, and binds notify.* to it.
func NewRabbitConsumer(amqpURL, exchange, queue string, prefetch int) (*RabbitConsumer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	c := &RabbitConsumer{conn: conn, channel: ch, exchange: exchange, queue: queue}
	if err := c.setup(prefetch); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *RabbitConsumer) setup(prefetch int) error {
	if err := declareExchange(c.channel, c.exchange); err != nil {
		return err
	}
	if _, err := c.channel.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	if err := c.channel.QueueBind(c.queue, "notify.*", c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", c.queue, err)
	}
	if prefetch > 0 {
		if err := c.channel.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}
	return nil
}

// Consume blocks until ctx is cancelled or the delivery channel closes.
func (c *RabbitConsumer) Consume(ctx context.Context, handle Handler) error {
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			ack(d, HandleDelivery(ctx, d.Body, handle))
		}
	}
}

// Outcome tells the consumer how to acknowledge a delivery.
type Outcome int

const (
	OutcomeAck Outcome = iota
	OutcomeDrop
	OutcomeRequeue
)

// HandleDelivery decodes body and runs handle. Undeliverable messages are dropped; transient failures are requeued.
func HandleDelivery(ctx context.Context, body []byte, handle Handler) Outcome {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		zap.L().Error("drop malformed notification", zap.Error(err))
		return OutcomeDrop
	}
	if err := handle(ctx, msg); err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			zap.L().Error("drop undeliverable notification", zap.String("channel", msg.Channel), zap.Error(err))
			return OutcomeDrop
		}
		zap.L().Warn("notification delivery failed, requeueing", zap.String("channel", msg.Channel), zap.Error(err))
		return OutcomeRequeue
	}
	return OutcomeAck
}

func ack(d amqp.Delivery, outcome Outcome) {
	var err error
	switch outcome {
	case OutcomeAck:
		err = d.Ack(false)
	case OutcomeDrop:
		err = d.Nack(false, false)
	case OutcomeRequeue:
		err = d.Nack(false, true)
	}
	if err != nil {
		zap.L().Warn("acknowledge delivery failed", zap.Error(err))
	}
}

func (c *RabbitConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
