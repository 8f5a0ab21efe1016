package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/logger"
)

// EngagementHandler consumes marketplace comment/like events from Kafka and
// persists them; they feed the socialActivity factor.
type EngagementHandler struct {
	topic    string
	activity drepo.ActivityStore
	metrics  drepo.Metrics
	log      *logger.Logger
}

func NewEngagementHandler(topic string, activity drepo.ActivityStore, metrics drepo.Metrics, log *logger.Logger) *EngagementHandler {
	return &EngagementHandler{topic: topic, activity: activity, metrics: metrics, log: log}
}

// Topic returns the subscribed Kafka topic.
func (h *EngagementHandler) Topic() string { return h.topic }

// Handle decodes and persists one engagement event.
func (h *EngagementHandler) Handle(ctx context.Context, data []byte) error {
	var ev models.EngagementEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		h.metrics.RecordError("engagement_decode")
		return fmt.Errorf("engagement decode: %w", err)
	}
	if ev.ItemID == "" {
		return fmt.Errorf("engagement event missing item id")
	}

	switch ev.Kind {
	case models.EngagementComment:
		return h.activity.RecordComment(ctx, &models.Comment{
			ID:        uuid.NewString(),
			ItemID:    ev.ItemID,
			Author:    ev.UserID,
			Body:      ev.Body,
			CreatedAt: ev.Timestamp,
		})
	case models.EngagementLike:
		return h.activity.RecordLike(ctx, &models.Like{
			ItemID:    ev.ItemID,
			UserID:    ev.UserID,
			CreatedAt: ev.Timestamp,
		})
	default:
		h.log.Debug("dropping unknown engagement kind", logger.String("kind", ev.Kind))
		return nil
	}
}
