package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/bus"
)

// FanoutPublisher decorates the outbound publisher with an in-process echo
// on the event bus, so local components can react to notifications without
// consuming the Kafka topic.
type FanoutPublisher struct {
	next drepo.Publisher
	bus  *bus.Bus
}

func NewFanoutPublisher(next drepo.Publisher, b *bus.Bus) drepo.Publisher {
	return &FanoutPublisher{next: next, bus: b}
}

func (p *FanoutPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	err := p.next.Publish(ctx, key, event)
	p.bus.Publish(busTopic(event), event)
	return err
}

func busTopic(event interface{}) string {
	switch event.(type) {
	case models.FlashMarketCreated:
		return models.NotifyFlashMarketCreated
	case models.TrendUpdated:
		return models.NotifyTrendUpdated
	default:
		return "notification"
	}
}

func (p *FanoutPublisher) Close() error {
	return p.next.Close()
}
