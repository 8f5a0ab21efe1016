package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
)

func TestEngagementCommentPersisted(t *testing.T) {
	activity := &fakeActivityStore{}
	h := NewEngagementHandler("marketplace.engagement", activity, &fakeMetrics{}, testLogger(t))

	data, _ := json.Marshal(models.EngagementEvent{
		Kind:      models.EngagementComment,
		ItemID:    "i1",
		UserID:    "u1",
		Body:      "to the moon",
		Timestamp: time.Now(),
	})
	require.NoError(t, h.Handle(context.Background(), data))

	require.Len(t, activity.comments, 1)
	assert.Equal(t, "i1", activity.comments[0].ItemID)
	assert.Equal(t, "to the moon", activity.comments[0].Body)
	assert.NotEmpty(t, activity.comments[0].ID)
}

func TestEngagementLikePersisted(t *testing.T) {
	activity := &fakeActivityStore{}
	h := NewEngagementHandler("marketplace.engagement", activity, &fakeMetrics{}, testLogger(t))

	data, _ := json.Marshal(models.EngagementEvent{
		Kind:      models.EngagementLike,
		ItemID:    "i1",
		UserID:    "u1",
		Timestamp: time.Now(),
	})
	require.NoError(t, h.Handle(context.Background(), data))

	require.Len(t, activity.likes, 1)
	assert.Equal(t, "u1", activity.likes[0].UserID)
}

func TestEngagementUnknownKindDropped(t *testing.T) {
	activity := &fakeActivityStore{}
	h := NewEngagementHandler("marketplace.engagement", activity, &fakeMetrics{}, testLogger(t))

	data, _ := json.Marshal(models.EngagementEvent{Kind: "repost", ItemID: "i1"})
	assert.NoError(t, h.Handle(context.Background(), data))
	assert.Empty(t, activity.comments)
	assert.Empty(t, activity.likes)
}

func TestEngagementBadPayload(t *testing.T) {
	h := NewEngagementHandler("marketplace.engagement", &fakeActivityStore{}, &fakeMetrics{}, testLogger(t))

	assert.Error(t, h.Handle(context.Background(), []byte("not json")))

	data, _ := json.Marshal(models.EngagementEvent{Kind: models.EngagementLike})
	assert.Error(t, h.Handle(context.Background(), data)) // missing item id
}

func TestEngagementTopic(t *testing.T) {
	h := NewEngagementHandler("marketplace.engagement", &fakeActivityStore{}, &fakeMetrics{}, testLogger(t))
	assert.Equal(t, "marketplace.engagement", h.Topic())
}
