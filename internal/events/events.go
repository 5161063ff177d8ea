package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xtrntr/sharktank/internal/models"
)

// TransactionEvent is published once per dispatched transaction
type TransactionEvent struct {
	ID              string                 `json:"id"`
	PlayerID        int                    `json:"player_id"`
	TransactionType models.TransactionType `json:"transaction_type"`
	Symbol          string                 `json:"symbol,omitempty"`
	Quantity        int                    `json:"quantity,omitempty"`
	Success         bool                   `json:"success"`
	Message         string                 `json:"message,omitempty"`
	DurationMS      int64                  `json:"duration_ms"`
	TS              time.Time              `json:"ts"`
}

func FromEntry(e models.JournalEntry) TransactionEvent {
	return TransactionEvent{
		ID:              e.ID,
		PlayerID:        e.PlayerID,
		TransactionType: e.TransactionType,
		Symbol:          e.Symbol,
		Quantity:        e.Quantity,
		Success:         e.Success,
		Message:         e.Message,
		DurationMS:      e.Duration.Milliseconds(),
		TS:              e.CreatedAt.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev TransactionEvent) error
	Close() error
}

// messageWriter is the part of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	w      messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher writes to topic; the player id is the message key so a
// player's events stay ordered within a partition.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Dialer:       &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
		Async:        true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Sugar().Errorf(msg, args...)
		}),
	})
	return &KafkaPublisher{w: w, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev TransactionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(ev.PlayerID)),
		Value: b,
		Time:  ev.TS,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// Nop drops events when no brokers are configured
type Nop struct{}

func (Nop) Publish(context.Context, TransactionEvent) error { return nil }
func (Nop) Close() error                                    { return nil }

// New returns a Kafka publisher, or Nop when brokers is empty
func New(brokers []string, topic string, logger *zap.Logger) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	logger.Info("publishing transaction events", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return NewKafkaPublisher(brokers, topic, logger)
}
