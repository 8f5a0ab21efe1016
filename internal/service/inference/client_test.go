package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/service/breaker"
	"TrendPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := testLogger(t)
	b := breaker.New(5, time.Minute, log)
	t.Cleanup(b.Stop)

	return NewClient(Config{BaseURL: srv.URL, APIKey: "test", Model: "scorer-1"}, b, log)
}

func completionHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func testItem() *models.Item {
	return &models.Item{ID: "item-1", Title: "Story", Creator: "alice"}
}

func testFactors() models.TrendFactors {
	return models.TrendFactors{
		Sentiment:       0.5,
		TradingVelocity: 1.2,
		VolumeSpike:     0.3,
		PriceMomentum:   0.1,
		SocialActivity:  4,
		HolderMomentum:  0.8,
		CrossMarketCorr: 0.2,
	}
}

func TestScoreParsesModelOutput(t *testing.T) {
	content := `Here is my analysis:
{"weights": {"sentiment": 0.3, "tradingVelocity": 0.2, "volumeSpike": 0.2, "priceMomentum": 0.1, "socialActivity": 0.1, "holderMomentum": 0.05, "crossMarketCorr": 0.05}, "score": 72.5, "confidence": 0.9, "reasoning": "strong volume"}`
	c := newTestClient(t, completionHandler(content))

	r, err := c.Score(context.Background(), testItem(), testFactors())
	require.NoError(t, err)

	assert.Equal(t, "item-1", r.ItemID)
	assert.Equal(t, 72.5, r.Score)
	assert.Equal(t, 0.9, r.Confidence)
	assert.Equal(t, "strong volume", r.Reasoning)
	assert.InDelta(t, 1.0, r.Weights.Sum(), 1e-6)
}

func TestScoreNormalizesWeights(t *testing.T) {
	// weights sum to 2.0 and must be rescaled
	content := `{"weights": {"sentiment": 0.6, "tradingVelocity": 0.4, "volumeSpike": 0.4, "priceMomentum": 0.2, "socialActivity": 0.2, "holderMomentum": 0.1, "crossMarketCorr": 0.1}, "score": 50, "confidence": 0.8, "reasoning": "x"}`
	c := newTestClient(t, completionHandler(content))

	r, err := c.Score(context.Background(), testItem(), testFactors())
	require.NoError(t, err)

	assert.InDelta(t, 1.0, r.Weights.Sum(), 1e-6)
	assert.InDelta(t, 0.3, r.Weights.Sentiment, 1e-6)
}

func TestScoreClampsRanges(t *testing.T) {
	content := `{"weights": {"sentiment": 0.3, "tradingVelocity": 0.2, "volumeSpike": 0.2, "priceMomentum": 0.1, "socialActivity": 0.1, "holderMomentum": 0.05, "crossMarketCorr": 0.05}, "score": 140, "confidence": 1.7, "reasoning": "x"}`
	c := newTestClient(t, completionHandler(content))

	r, err := c.Score(context.Background(), testItem(), testFactors())
	require.NoError(t, err)

	assert.Equal(t, 100.0, r.Score)
	assert.Equal(t, 1.0, r.Confidence)
}

func TestScoreFallbackOnMalformedOutput(t *testing.T) {
	c := newTestClient(t, completionHandler("I cannot produce JSON today."))

	f := testFactors()
	r, err := c.Score(context.Background(), testItem(), f)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultWeights(), r.Weights)
	assert.Equal(t, 0.5, r.Confidence)
	assert.Equal(t, models.WeightedScore(f, models.DefaultWeights()), r.Score)
}

func TestScoreFallbackOnMissingWeightKey(t *testing.T) {
	content := `{"weights": {"sentiment": 0.5, "tradingVelocity": 0.5}, "score": 60, "confidence": 0.8, "reasoning": "x"}`
	c := newTestClient(t, completionHandler(content))

	r, err := c.Score(context.Background(), testItem(), testFactors())
	require.NoError(t, err)

	assert.Equal(t, models.DefaultWeights(), r.Weights)
}

func TestScoreUnavailableCountsAgainstBreaker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := c.Score(context.Background(), testItem(), testFactors())
	require.Error(t, err)
	assert.Equal(t, 1, c.Breaker().State().FailureCount)
}

func TestSentiment(t *testing.T) {
	c := newTestClient(t, completionHandler("0.7"))

	v, err := c.Sentiment(context.Background(), "Big news", "content")
	require.NoError(t, err)
	assert.Equal(t, 0.7, v)
}

func TestSentimentClamped(t *testing.T) {
	c := newTestClient(t, completionHandler("-3.5"))

	v, err := c.Sentiment(context.Background(), "h", "c")
	require.NoError(t, err)
	assert.Equal(t, -1.0, v)
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`text {"a":{"b":2}} trailing`, `{"a":{"b":2}}`, true},
		{`{"s":"with } brace"}`, `{"s":"with } brace"}`, true},
		{`no json here`, "", false},
		{`{"unclosed":`, "", false},
	}
	for i, tc := range cases {
		got, err := extractJSON(tc.in)
		if tc.ok {
			require.NoError(t, err, fmt.Sprintf("case %d", i))
			assert.Equal(t, tc.want, got)
		} else {
			assert.Error(t, err)
		}
	}
}
