package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/models"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (c *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{w: w, logger: zap.NewNop()}

	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	ev := FromEntry(models.JournalEntry{
		ID:              "01J0",
		PlayerID:        17,
		TransactionType: models.TransactionBuy,
		Symbol:          "NVDA",
		Quantity:        2,
		Success:         true,
		Duration:        1500 * time.Millisecond,
		CreatedAt:       at,
	})
	require.NoError(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Close())

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "17", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)
	assert.True(t, w.closed)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "buy", got["transaction_type"])
	assert.Equal(t, float64(1500), got["duration_ms"])
}

func TestNew_NoBrokers(t *testing.T) {
	p := New(nil, "transactions", zap.NewNop())
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Publish(context.Background(), TransactionEvent{}))
}
