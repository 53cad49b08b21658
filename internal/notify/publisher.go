package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher queues a notification for delivery.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close()
}

// RabbitPublisher publishes messages to a durable topic exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(amqpURL, exchange string) (*RabbitPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends msg as persistent JSON. A failed publish reopens the channel and retries once.
func (p *RabbitPublisher) Publish(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, msg.RoutingKey(), false, false, publishing)
	if err == nil {
		return nil
	}
	zap.L().Warn("notification publish failed; reopening channel", zap.String("routing_key", msg.RoutingKey()), zap.Error(err))

	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return fmt.Errorf("reopen channel: %w", errors.Join(err, chErr))
	}
	if exErr := declareExchange(ch, p.exchange); exErr != nil {
		ch.Close()
		return exErr
	}
	p.channel = ch
	if err := p.channel.PublishWithContext(ctx, p.exchange, msg.RoutingKey(), false, false, publishing); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// InlinePublisher delivers in-process when no broker is configured.
type InlinePublisher struct {
	dispatcher *Dispatcher
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewInlinePublisher(dispatcher *Dispatcher) *InlinePublisher {
	return &InlinePublisher{dispatcher: dispatcher, timeout: 15 * time.Second}
}

// Publish validates msg and dispatches it on a background goroutine.
func (p *InlinePublisher) Publish(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := p.dispatcher.Dispatch(ctx, msg); err != nil {
			zap.L().Warn("inline notification failed", zap.String("channel", msg.Channel), zap.Error(err))
		}
	}()
	return nil
}

// Close waits for in-flight deliveries.
func (p *InlinePublisher) Close() {
	p.wg.Wait()
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", fmt.Errorf("parse amqp url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
