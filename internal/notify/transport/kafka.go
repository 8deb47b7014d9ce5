package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"kitmatch/internal/notify/models"
)

// Producer publishes one record synchronously.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Kafka publishes the message as JSON keyed by match ID, so every record for
// a match lands on the same partition.
type Kafka struct {
	producer Producer
	topic    string
}

func NewKafka(producer Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (t *Kafka) Name() string { return NameKafka }

func (t *Kafka) Send(ctx context.Context, msg *models.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := t.producer.Publish(ctx, t.topic, []byte(msg.MatchID.String()), payload); err != nil {
		return fmt.Errorf("publish notification to %s: %w", t.topic, err)
	}
	return nil
}
