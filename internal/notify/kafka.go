package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"consolerent-backend/internal/clock"
	"consolerent-backend/internal/domain"
	"consolerent-backend/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes intents to a topic consumed by the delivery service.
// Messages are keyed by user so one user's notifications stay ordered.
type KafkaDispatcher struct {
	writer messageWriter
	topic  string
	clock  clock.Clock
}

func NewKafkaDispatcher(brokers []string, topic string, clk clock.Clock) *KafkaDispatcher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaDispatcher(w, topic, clk)
}

func newKafkaDispatcher(w messageWriter, topic string, clk clock.Clock) *KafkaDispatcher {
	return &KafkaDispatcher{writer: w, topic: topic, clock: clk}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, userID string, kind domain.NotificationKind, payload map[string]string) error {
	value, err := json.Marshal(Intent{
		UserID:    userID,
		Kind:      string(kind),
		Payload:   payload,
		EmittedAt: d.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification intent: %w", err)
	}

	logger.ExternalServiceCall("kafka", "WriteMessages", "topic", d.topic, "kind", string(kind))
	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(userID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
		},
	})
	logger.ExternalServiceResult("kafka", "WriteMessages", err)
	if err != nil {
		return fmt.Errorf("publish %s notification: %w", kind, err)
	}
	return nil
}

func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
