package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
	"TrendPulse/pkg/cache"
)

func newTestOrchestrator(t *testing.T, items *fakeItemStore, trends *fakeTrendStore, scorer *fakeScorer, led *fakeLedger, pub *fakePublisher) *Orchestrator {
	t.Helper()
	results := cache.NewMemoryCache(cache.Options{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = results.Close() })
	return NewOrchestrator(
		items, trends,
		&fakeCollector{factors: models.TrendFactors{Sentiment: 0.5}},
		scorer, led, pub, results, &fakeMetrics{},
		OrchestratorConfig{BatchSize: 2, BatchPause: time.Millisecond, CacheTTL: time.Minute},
		testLogger(t),
	)
}

func TestTickScoresAllCandidates(t *testing.T) {
	items := &fakeItemStore{candidates: []*models.Item{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}}
	trends := &fakeTrendStore{}
	scorer := &fakeScorer{score: 55}
	led := &fakeLedger{}
	pub := &fakePublisher{}
	o := newTestOrchestrator(t, items, trends, scorer, led, pub)

	o.Tick(context.Background())

	assert.Len(t, trends.appended, 3)
	assert.Equal(t, 55.0, items.trendSets["a"])
	assert.Equal(t, 55.0, led.pushed["b"])
	assert.Len(t, pub.events, 3)

	st := o.Status()
	assert.Equal(t, 3, st.LastUpdated)
	assert.False(t, st.Running)
}

func TestCachedResultSkipsRescore(t *testing.T) {
	items := &fakeItemStore{candidates: []*models.Item{{ID: "a"}}}
	scorer := &fakeScorer{score: 55}
	o := newTestOrchestrator(t, items, &fakeTrendStore{}, scorer, &fakeLedger{}, &fakePublisher{})
	ctx := context.Background()

	o.Tick(ctx)
	o.Tick(ctx)

	assert.Equal(t, 1, scorer.calls)
}

func TestMarkForUpdateInvalidatesCache(t *testing.T) {
	items := &fakeItemStore{candidates: []*models.Item{{ID: "a"}}}
	scorer := &fakeScorer{score: 55}
	o := newTestOrchestrator(t, items, &fakeTrendStore{}, scorer, &fakeLedger{}, &fakePublisher{})
	ctx := context.Background()

	o.Tick(ctx)
	o.MarkForUpdate(ctx, "a")
	o.Tick(ctx)

	assert.Equal(t, 2, scorer.calls)
}

func TestScorerFailureSkipsItemOnly(t *testing.T) {
	items := &fakeItemStore{candidates: []*models.Item{{ID: "a"}, {ID: "b"}}}
	trends := &fakeTrendStore{}
	scorer := &fakeScorer{err: errors.New("inference down")}
	o := newTestOrchestrator(t, items, trends, scorer, &fakeLedger{}, &fakePublisher{})

	o.Tick(context.Background())

	assert.Empty(t, trends.appended)
	st := o.Status()
	assert.Equal(t, 0, st.LastUpdated)
	assert.Equal(t, 2, st.LastSkipped)
}

func TestLedgerPushFailureIsNonFatal(t *testing.T) {
	items := &fakeItemStore{candidates: []*models.Item{{ID: "a"}}}
	trends := &fakeTrendStore{}
	led := &fakeLedger{err: errors.New("rpc down")}
	o := newTestOrchestrator(t, items, trends, &fakeScorer{score: 70}, led, &fakePublisher{})

	o.Tick(context.Background())

	assert.Len(t, trends.appended, 1)
	assert.Equal(t, 70.0, items.trendSets["a"])
}

func TestOverlappingTickDropped(t *testing.T) {
	items := &fakeItemStore{candidates: []*models.Item{{ID: "a"}}}
	scorer := &fakeScorer{score: 55}
	o := newTestOrchestrator(t, items, &fakeTrendStore{}, scorer, &fakeLedger{}, &fakePublisher{})

	o.running.Store(true)
	o.Tick(context.Background())
	assert.Equal(t, 0, scorer.calls)

	o.running.Store(false)
	o.Tick(context.Background())
	assert.Equal(t, 1, scorer.calls)
}

func TestPriorityAssignment(t *testing.T) {
	o := newTestOrchestrator(t, &fakeItemStore{}, &fakeTrendStore{}, &fakeScorer{}, &fakeLedger{}, &fakePublisher{})
	now := time.Now()

	cases := []struct {
		name string
		item *models.Item
		want string
	}{
		{"never scored", &models.Item{ID: "x"}, PriorityHigh},
		{"high volume", &models.Item{ID: "x", Volume24h: 11, TrendUpdatedAt: now}, PriorityHigh},
		{"very stale", &models.Item{ID: "x", TrendUpdatedAt: now.Add(-3 * time.Hour)}, PriorityHigh},
		{"medium volume", &models.Item{ID: "x", Volume24h: 2, TrendUpdatedAt: now}, PriorityMedium},
		{"stale", &models.Item{ID: "x", TrendUpdatedAt: now.Add(-90 * time.Minute)}, PriorityMedium},
		{"quiet and fresh", &models.Item{ID: "x", Volume24h: 0.5, TrendUpdatedAt: now}, PriorityLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, o.priorityFor(tc.item, now), tc.name)
	}
}

func TestStopIdempotent(t *testing.T) {
	o := newTestOrchestrator(t, &fakeItemStore{}, &fakeTrendStore{}, &fakeScorer{}, &fakeLedger{}, &fakePublisher{})
	o.Start(context.Background())

	o.Stop()
	o.Stop()
}

func TestVelocityPersisted(t *testing.T) {
	base := time.Now()
	trends := &fakeTrendStore{points: map[string][]models.TrendPoint{
		"a": {{Score: 40, Timestamp: base.Add(-10 * time.Second)}},
	}}
	items := &fakeItemStore{candidates: []*models.Item{{ID: "a"}}}
	pub := &fakePublisher{}
	o := newTestOrchestrator(t, items, trends, &fakeScorer{score: 60}, &fakeLedger{}, pub)

	o.Tick(context.Background())

	require.Len(t, trends.appended, 1)
	require.Len(t, pub.events, 1)
	// new score 60 vs previous 40 roughly 10s earlier -> ~2 points/sec
	ev := pub.events[0].(models.TrendUpdated)
	assert.InDelta(t, 2.0, ev.Velocity, 0.2)
	assert.Equal(t, 60.0, items.trendSets["a"])
}
