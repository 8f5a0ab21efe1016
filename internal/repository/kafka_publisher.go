package repository

import (
	"context"

	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/kafka"
)

// KafkaPublisher fans notifications out on a single topic, keyed by item so
// consumers see per-item ordering.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *kafka.Producer, topic string) drepo.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	return p.producer.Publish(ctx, p.topic, []byte(key), event)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
