package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LargeSettlementAlert is emitted when a settlement meets the alert threshold.
type LargeSettlementAlert struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	UserID        uuid.UUID     `json:"user_id"`
	Service       string        `json:"service"`
	Kind          string        `json:"kind"`
	Amount        domain.Amount `json:"amount"`
	Status        string        `json:"status"`
	SettledAt     time.Time     `json:"settled_at"`
}

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertProducer publishes large-settlement alerts to Kafka.
type AlertProducer struct {
	writer    MessageWriter
	threshold domain.Amount
}

// NewAlertProducer builds an async Kafka writer for topic. An empty broker list disables alerts.
func NewAlertProducer(brokers []string, topic string, threshold domain.Amount) *AlertProducer {
	if len(brokers) == 0 {
		return &AlertProducer{threshold: threshold}
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				zap.L().Warn("kafka alert delivery failed", zap.Int("messages", len(messages)), zap.Error(err))
			}
		},
	}
	zap.L().Info("kafka alert producer initialised", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &AlertProducer{writer: writer, threshold: threshold}
}

// NewAlertProducerWithWriter is used by tests to inject a writer.
func NewAlertProducerWithWriter(w MessageWriter, threshold domain.Amount) *AlertProducer {
	return &AlertProducer{writer: w, threshold: threshold}
}

// PublishSettlement sends alert if its amount meets the threshold. It reports whether a message was written.
func (p *AlertProducer) PublishSettlement(ctx context.Context, alert LargeSettlementAlert) (bool, error) {
	if p == nil || p.writer == nil || alert.Amount < p.threshold {
		return false, nil
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return false, fmt.Errorf("marshal settlement alert: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte("user_" + alert.UserID.String()),
		Value: payload,
		Time:  alert.SettledAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return false, fmt.Errorf("write settlement alert: %w", err)
	}
	return true, nil
}

func (p *AlertProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
