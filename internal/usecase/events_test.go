package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
	"TrendPulse/pkg/cache"
)

func newTestProcessor(t *testing.T, items *fakeItemStore, activity *fakeActivityStore, trends *fakeTrendStore) *EventProcessor {
	t.Helper()
	results := cache.NewMemoryCache(cache.Options{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = results.Close() })
	orch := NewOrchestrator(items, trends, &fakeCollector{}, &fakeScorer{}, &fakeLedger{}, &fakePublisher{}, results, &fakeMetrics{}, OrchestratorConfig{}, testLogger(t))
	return NewEventProcessor(items, activity, trends, orch, &fakeMetrics{}, testLogger(t))
}

func TestPurchaseRecordsTradeAndVolume(t *testing.T) {
	items := &fakeItemStore{}
	activity := &fakeActivityStore{}
	trends := &fakeTrendStore{}
	p := newTestProcessor(t, items, activity, trends)

	ev := &models.LedgerEvent{
		Kind:      models.EventPurchase,
		ItemID:    "i1",
		Wallet:    "w1",
		Amount:    3,
		Price:     1_000_000,
		Timestamp: time.Now(),
	}
	require.NoError(t, p.Process(context.Background(), ev))

	require.Len(t, activity.trades, 1)
	assert.Equal(t, "buy", activity.trades[0].Side)
	assert.Equal(t, int64(3), activity.trades[0].Amount)
	assert.Equal(t, 3.0, trends.volumes["i1"])
	assert.Equal(t, 1, items.statsSets)
}

func TestSaleRecordsSellSide(t *testing.T) {
	activity := &fakeActivityStore{}
	p := newTestProcessor(t, &fakeItemStore{}, activity, &fakeTrendStore{})

	ev := &models.LedgerEvent{
		Kind:      models.EventSale,
		ItemID:    "i1",
		Amount:    1,
		Price:     500,
		Timestamp: time.Now(),
	}
	require.NoError(t, p.Process(context.Background(), ev))

	require.Len(t, activity.trades, 1)
	assert.Equal(t, "sell", activity.trades[0].Side)
}

func TestStakeOnlyMarksForUpdate(t *testing.T) {
	items := &fakeItemStore{}
	activity := &fakeActivityStore{}
	p := newTestProcessor(t, items, activity, &fakeTrendStore{})

	ev := &models.LedgerEvent{Kind: models.EventStake, ItemID: "i1", Timestamp: time.Now()}
	require.NoError(t, p.Process(context.Background(), ev))

	assert.Empty(t, activity.trades)
	assert.Equal(t, 0, items.statsSets)
}

func TestUnknownEventKindRejected(t *testing.T) {
	p := newTestProcessor(t, &fakeItemStore{}, &fakeActivityStore{}, &fakeTrendStore{})

	ev := &models.LedgerEvent{Kind: "airdrops", ItemID: "i1", Timestamp: time.Now()}
	assert.Error(t, p.Process(context.Background(), ev))
}
