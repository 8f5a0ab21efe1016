package usecase

import (
	"context"
	"sync"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
)

type fakeTrendStore struct {
	mu       sync.Mutex
	points   map[string][]models.TrendPoint
	appended []*models.TrendResult
	volumes  map[string]float64
}

func (f *fakeTrendStore) Init(context.Context) error { return nil }

func (f *fakeTrendStore) AppendResult(_ context.Context, r *models.TrendResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appended = append(f.appended, r)
	if f.points == nil {
		f.points = make(map[string][]models.TrendPoint)
	}
	pt := models.TrendPoint{Score: r.Score, Timestamp: r.Timestamp}
	f.points[r.ItemID] = append([]models.TrendPoint{pt}, f.points[r.ItemID]...)
	return nil
}

func (f *fakeTrendStore) RecentPoints(_ context.Context, itemID string, limit int) ([]models.TrendPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pts := f.points[itemID]
	if len(pts) > limit {
		pts = pts[:limit]
	}
	return pts, nil
}

func (f *fakeTrendStore) VolumeSeries(context.Context, string, time.Time, time.Time) ([]models.VolumeBucket, error) {
	return nil, nil
}

func (f *fakeTrendStore) TopVolumeSeries(context.Context, string, time.Time, time.Time, int) (map[string][]models.VolumeBucket, error) {
	return nil, nil
}

func (f *fakeTrendStore) AddVolume(_ context.Context, itemID string, _ time.Time, volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.volumes == nil {
		f.volumes = make(map[string]float64)
	}
	f.volumes[itemID] += volume
	return nil
}

func (f *fakeTrendStore) Health(context.Context) error { return nil }
func (f *fakeTrendStore) Close() error                 { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	spikes int
}

func (f *fakeMetrics) RecordTrendUpdate(string, string) {}
func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errors == nil {
		f.errors = make(map[string]int)
	}
	f.errors[kind]++
}
func (f *fakeMetrics) RecordTrendScore(string, float64) {}
func (f *fakeMetrics) SetOpenFlashMarkets(int)          {}
func (f *fakeMetrics) RecordSpike() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spikes++
}
func (f *fakeMetrics) RecordInferenceResult(string)  {}
func (f *fakeMetrics) RecordLatency(string, float64) {}

type fakeItemStore struct {
	mu         sync.Mutex
	items      map[string]*models.Item
	candidates []*models.Item
	trending   []*models.Item
	trendSets  map[string]float64
	statsSets  int
}

func (f *fakeItemStore) Item(_ context.Context, id string) (*models.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, nil
}

func (f *fakeItemStore) TrendCandidates(context.Context, time.Time, time.Time) ([]*models.Item, error) {
	return f.candidates, nil
}

func (f *fakeItemStore) Trending(context.Context, float64, int) ([]*models.Item, error) {
	return f.trending, nil
}

func (f *fakeItemStore) UpdateTrend(_ context.Context, id string, score, _ float64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trendSets == nil {
		f.trendSets = make(map[string]float64)
	}
	f.trendSets[id] = score
	return nil
}

func (f *fakeItemStore) UpdateStats(_ context.Context, _ string, _ int64, _, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsSets++
	return nil
}

func (f *fakeItemStore) Close() error { return nil }

type fakeActivityStore struct {
	mu       sync.Mutex
	trades   []*models.Trade
	comments []*models.Comment
	likes    []*models.Like
}

func (f *fakeActivityStore) Window(context.Context, string, time.Time) (*models.ActivityWindow, error) {
	return &models.ActivityWindow{}, nil
}

func (f *fakeActivityStore) RecordTrade(_ context.Context, t *models.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, t)
	return nil
}

func (f *fakeActivityStore) Trades24h(context.Context, string, time.Time) ([]*models.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Trade, len(f.trades))
	copy(out, f.trades)
	return out, nil
}

func (f *fakeActivityStore) RecordComment(_ context.Context, c *models.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments = append(f.comments, c)
	return nil
}

func (f *fakeActivityStore) RecordLike(_ context.Context, l *models.Like) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.likes = append(f.likes, l)
	return nil
}

type fakeFlashStore struct {
	mu        sync.Mutex
	markets   map[string]*models.FlashMarket
	positions map[string][]*models.FlashPosition
	settled   []*models.FlashPosition
}

func newFakeFlashStore() *fakeFlashStore {
	return &fakeFlashStore{
		markets:   make(map[string]*models.FlashMarket),
		positions: make(map[string][]*models.FlashPosition),
	}
}

func (f *fakeFlashStore) CreateMarket(_ context.Context, m *models.FlashMarket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[m.ID] = m
	return nil
}

func (f *fakeFlashStore) Market(_ context.Context, id string) (*models.FlashMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markets[id], nil
}

func (f *fakeFlashStore) OpenMarkets(context.Context) ([]*models.FlashMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FlashMarket
	for _, m := range f.markets {
		if m.IsActive && !m.IsResolved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeFlashStore) ExpiredUnresolved(_ context.Context, now time.Time) ([]*models.FlashMarket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FlashMarket
	for _, m := range f.markets {
		if !m.IsResolved && m.Expired(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeFlashStore) ResolveMarket(_ context.Context, m *models.FlashMarket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markets[m.ID] = m
	return nil
}

func (f *fakeFlashStore) UnresolvedPositions(_ context.Context, marketID string) ([]*models.FlashPosition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.FlashPosition
	for _, p := range f.positions[marketID] {
		if !p.IsResolved {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFlashStore) SettlePositions(_ context.Context, positions []*models.FlashPosition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settled = append(f.settled, positions...)
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	pushed  map[string]float64
	created []*models.FlashMarket
	closed  []string
	err     error
}

func (f *fakeLedger) MarketAccount(context.Context, string) (*drepo.MarketAccount, error) {
	return nil, nil
}

func (f *fakeLedger) PushTrendScore(_ context.Context, itemID string, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.pushed == nil {
		f.pushed = make(map[string]float64)
	}
	f.pushed[itemID] = score
	return nil
}

func (f *fakeLedger) CreateFlashMarket(_ context.Context, m *models.FlashMarket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, m)
	return f.err
}

func (f *fakeLedger) CloseFlashMarket(_ context.Context, marketID string, _ models.Side) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, marketID)
	return f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []interface{}
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeCollector struct {
	factors models.TrendFactors
	err     error
}

func (f *fakeCollector) Collect(context.Context, *models.Item) (models.TrendFactors, error) {
	return f.factors, f.err
}

type fakeScorer struct {
	mu    sync.Mutex
	score float64
	err   error
	calls int
}

func (f *fakeScorer) Score(_ context.Context, item *models.Item, factors models.TrendFactors) (*models.TrendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.TrendResult{
		ItemID:     item.ID,
		Score:      f.score,
		Factors:    factors,
		Weights:    models.DefaultWeights(),
		Confidence: 0.8,
		Timestamp:  time.Now(),
	}, nil
}
