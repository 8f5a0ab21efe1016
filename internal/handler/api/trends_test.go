package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/breaker"
	"TrendPulse/internal/usecase"
	xcache "TrendPulse/pkg/cache"
	"TrendPulse/pkg/logger"
)

type stubItems struct {
	drepo.ItemStore
	items    map[string]*models.Item
	trending []*models.Item
}

func (s *stubItems) Item(_ context.Context, id string) (*models.Item, error) {
	if it, ok := s.items[id]; ok {
		return it, nil
	}
	return nil, assert.AnError
}

func (s *stubItems) Trending(_ context.Context, _ float64, _ int) ([]*models.Item, error) {
	return s.trending, nil
}

type stubTrends struct {
	drepo.TrendStore
	points []models.TrendPoint
}

func (s *stubTrends) RecentPoints(_ context.Context, _ string, limit int) ([]models.TrendPoint, error) {
	if limit < len(s.points) {
		return s.points[:limit], nil
	}
	return s.points, nil
}

type stubFlash struct {
	drepo.FlashStore
	open []*models.FlashMarket
}

func (s *stubFlash) OpenMarkets(_ context.Context) ([]*models.FlashMarket, error) {
	return s.open, nil
}

type stubLedger struct {
	drepo.Ledger
	account *drepo.MarketAccount
}

func (s *stubLedger) MarketAccount(_ context.Context, _ string) (*drepo.MarketAccount, error) {
	if s.account == nil {
		return nil, assert.AnError
	}
	return s.account, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordTrendUpdate(string, string)  {}
func (noopMetrics) RecordError(string)                {}
func (noopMetrics) RecordTrendScore(string, float64)  {}
func (noopMetrics) SetOpenFlashMarkets(int)           {}
func (noopMetrics) RecordSpike()                      {}
func (noopMetrics) RecordInferenceResult(string)      {}
func (noopMetrics) RecordLatency(string, float64)     {}

func newTestHandler(t *testing.T, items *stubItems, trends *stubTrends, flash *stubFlash) (*TrendsHandler, xcache.Service) {
	t.Helper()
	return newTestHandlerWithLedger(t, items, trends, flash, &stubLedger{})
}

func newTestHandlerWithLedger(t *testing.T, items *stubItems, trends *stubTrends, flash *stubFlash, ldg *stubLedger) (*TrendsHandler, xcache.Service) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	results := xcache.NewMemoryCache(xcache.DefaultOptions())
	t.Cleanup(func() { _ = results.Close() })

	orch := usecase.NewOrchestrator(
		items, trends, nil, nil, nil, nil, results, noopMetrics{},
		usecase.OrchestratorConfig{}, log)
	b := breaker.New(5, time.Minute, log)
	t.Cleanup(b.Stop)

	return NewTrendsHandler(log, items, trends, flash, results, orch, b, ldg), results
}

func doRequest(h *TrendsHandler, method, target string) *httptest.ResponseRecorder {
	return doJSONRequest(h, method, target, "")
}

func doJSONRequest(h *TrendsHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTrendReturnsStoredState(t *testing.T) {
	items := &stubItems{items: map[string]*models.Item{
		"item-1": {ID: "item-1", TrendScore: 72.5, TrendVelocity: 3.1, TrendUpdatedAt: time.Now()},
	}}
	h, _ := newTestHandler(t, items, &stubTrends{}, &stubFlash{})

	rec := doRequest(h, http.MethodGet, "/api/v1/items/item-1/trend")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"score":72.5`)
	assert.Contains(t, rec.Body.String(), `"velocity":3.1`)
}

func TestTrendIncludesCachedFactors(t *testing.T) {
	items := &stubItems{items: map[string]*models.Item{
		"item-1": {ID: "item-1", TrendScore: 50, TrendUpdatedAt: time.Now()},
	}}
	h, results := newTestHandler(t, items, &stubTrends{}, &stubFlash{})

	res := models.TrendResult{
		ItemID:     "item-1",
		Score:      50,
		Confidence: 0.9,
		Reasoning:  "steady accumulation",
	}
	require.NoError(t, results.Set(context.Background(), xcache.GenerateKey("trend", "item-1"), res, time.Minute))

	rec := doRequest(h, http.MethodGet, "/api/v1/items/item-1/trend")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"confidence":0.9`)
	assert.Contains(t, rec.Body.String(), "steady accumulation")
}

func TestTrendNeverScored(t *testing.T) {
	items := &stubItems{items: map[string]*models.Item{
		"fresh": {ID: "fresh"},
	}}
	h, _ := newTestHandler(t, items, &stubTrends{}, &stubFlash{})

	rec := doRequest(h, http.MethodGet, "/api/v1/items/fresh/trend")

	assert.Contains(t, rec.Body.String(), "no trend score yet")
}

func TestTrendHistoryLimit(t *testing.T) {
	now := time.Now()
	trends := &stubTrends{points: []models.TrendPoint{
		{Score: 80, Timestamp: now},
		{Score: 70, Timestamp: now.Add(-time.Minute)},
		{Score: 60, Timestamp: now.Add(-2 * time.Minute)},
	}}
	h, _ := newTestHandler(t, &stubItems{}, trends, &stubFlash{})

	rec := doRequest(h, http.MethodGet, "/api/v1/items/item-1/trend/history?limit=2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), `"score"`))
}

func TestTrendingList(t *testing.T) {
	items := &stubItems{trending: []*models.Item{
		{ID: "hot-1", TrendScore: 91},
		{ID: "hot-2", TrendScore: 77},
	}}
	h, _ := newTestHandler(t, items, &stubTrends{}, &stubFlash{})

	rec := doRequest(h, http.MethodGet, "/api/v1/trending")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hot-1")
	assert.Contains(t, rec.Body.String(), `"total":2`)
}

func TestOpenFlashMarkets(t *testing.T) {
	flash := &stubFlash{open: []*models.FlashMarket{
		{ID: "fm-1", ParentItemID: "item-1", IsActive: true},
	}}
	h, _ := newTestHandler(t, &stubItems{}, &stubTrends{}, flash)

	rec := doRequest(h, http.MethodGet, "/api/v1/flash-markets")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fm-1")
}

func TestRefreshQueuesRescore(t *testing.T) {
	items := &stubItems{items: map[string]*models.Item{
		"item-1": {ID: "item-1", TrendScore: 40, TrendUpdatedAt: time.Now()},
	}}
	h, results := newTestHandler(t, items, &stubTrends{}, &stubFlash{})

	key := xcache.GenerateKey("trend", "item-1")
	require.NoError(t, results.Set(context.Background(), key, models.TrendResult{ItemID: "item-1"}, time.Minute))

	rec := doRequest(h, http.MethodPost, "/api/v1/items/item-1/trend/refresh")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queued")
	_, err := results.Get(context.Background(), key)
	assert.ErrorIs(t, err, xcache.ErrCacheMiss)
}

func TestQuoteLinearBuy(t *testing.T) {
	items := &stubItems{items: map[string]*models.Item{
		"item-1": {ID: "item-1", MarketAddress: "MktAddr111"},
	}}
	ldg := &stubLedger{account: &drepo.MarketAccount{
		Address:           "MktAddr111",
		CirculatingSupply: 0,
		CurveType:         models.CurveLinear,
		BasePrice:         1_000_000,
	}}
	h, _ := newTestHandlerWithLedger(t, items, &stubTrends{}, &stubFlash{}, ldg)

	rec := doJSONRequest(h, http.MethodPost, "/api/v1/items/item-1/quote", `{"side":"buy","amount":10}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cost":10005000`)
	assert.Contains(t, rec.Body.String(), `"averagePrice":1000500`)
}

func TestQuoteDefaultsToSingleUnit(t *testing.T) {
	items := &stubItems{items: map[string]*models.Item{
		"item-1": {ID: "item-1", MarketAddress: "MktAddr111"},
	}}
	ldg := &stubLedger{account: &drepo.MarketAccount{
		Address:   "MktAddr111",
		CurveType: models.CurveLinear,
		BasePrice: 1_000_000,
	}}
	h, _ := newTestHandlerWithLedger(t, items, &stubTrends{}, &stubFlash{}, ldg)

	rec := doJSONRequest(h, http.MethodPost, "/api/v1/items/item-1/quote", `{"side":"buy"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"amount":1`)
	assert.Contains(t, rec.Body.String(), `"cost":1000050`)
}

func TestQuoteRejectsBadInput(t *testing.T) {
	h, _ := newTestHandler(t, &stubItems{}, &stubTrends{}, &stubFlash{})

	rec := doJSONRequest(h, http.MethodPost, "/api/v1/items/item-1/quote", `{"side":"hold","amount":10}`)
	assert.Contains(t, rec.Body.String(), "must be one of")

	rec = doJSONRequest(h, http.MethodPost, "/api/v1/items/item-1/quote", `{"side":"buy","amount":-5}`)
	assert.Contains(t, rec.Body.String(), "must be greater than 0")
}

func TestStatusExposesBreakerState(t *testing.T) {
	h, _ := newTestHandler(t, &stubItems{}, &stubTrends{}, &stubFlash{})

	rec := doRequest(h, http.MethodGet, "/api/v1/status")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"open":false`)
}
