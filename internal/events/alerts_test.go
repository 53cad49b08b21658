package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/bitway/bitway-api/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestAlertProducer_Threshold(t *testing.T) {
	w := &recordingWriter{}
	p := NewAlertProducerWithWriter(w, domain.Amount(1_000_000_00))
	userID := uuid.New()

	sent, err := p.PublishSettlement(context.Background(), LargeSettlementAlert{UserID: userID, Amount: 999_999_99})
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, w.messages)

	sent, err = p.PublishSettlement(context.Background(), LargeSettlementAlert{
		TransactionID: uuid.New(),
		UserID:        userID,
		Service:       "Withdrawal",
		Amount:        1_000_000_00,
		Status:        domain.TxStatusSuccess,
		SettledAt:     time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, sent)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "user_"+userID.String(), string(w.messages[0].Key))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "1000000.00", decoded["amount"])
}

func TestAlertProducer_DisabledWithoutBrokers(t *testing.T) {
	p := NewAlertProducer(nil, "alerts", 0)
	sent, err := p.PublishSettlement(context.Background(), LargeSettlementAlert{Amount: 1})
	require.NoError(t, err)
	assert.False(t, sent)
	require.NoError(t, p.Close())
}
