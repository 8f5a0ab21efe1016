// Package inference calls the external scoring service that turns the seven
// trend factors into a weighted trend score. All calls go through the
// circuit breaker; malformed model output degrades to a heuristic score,
// never an error.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/service/breaker"
	apphttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/logger"
)

// Sources reported to metrics for each scoring outcome.
const (
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// Config holds the scorer endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client scores trend factors through the external model.
type Client struct {
	cfg     Config
	httpc   *apphttp.Client
	breaker *breaker.Breaker
	log     *logger.Logger
}

func NewClient(cfg Config, b *breaker.Breaker, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		httpc:   apphttp.NewClient(apphttp.WithTimeout(timeout)),
		breaker: b,
		log:     log,
	}
}

// Breaker exposes the protecting breaker for status introspection.
func (c *Client) Breaker() *breaker.Breaker { return c.breaker }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type scorePayload struct {
	Weights    map[string]float64 `json:"weights"`
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Reasoning  string             `json:"reasoning"`
}

var weightKeys = []string{
	"sentiment", "tradingVelocity", "volumeSpike", "priceMomentum",
	"socialActivity", "holderMomentum", "crossMarketCorr",
}

// Score sends the factors to the model and returns a TrendResult. The call
// errors only when the scorer is unavailable; unparseable output falls back
// to the default weight vector and a direct weighted score.
func (c *Client) Score(ctx context.Context, item *models.Item, factors models.TrendFactors) (*models.TrendResult, error) {
	prompt := buildScorePrompt(item, factors)

	completion, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	result := &models.TrendResult{
		ItemID:    item.ID,
		Factors:   factors,
		Timestamp: time.Now(),
	}

	payload, perr := parseScorePayload(completion)
	if perr != nil {
		c.log.Warn("unparseable scorer output, using fallback weights",
			logger.String("item", item.ID), logger.Error(perr))
		result.Weights = models.DefaultWeights()
		result.Score = models.WeightedScore(factors, result.Weights)
		result.Confidence = 0.5
		result.Reasoning = "heuristic weighted score (scorer output unparseable)"
		return result, nil
	}

	result.Weights = models.TrendWeights{
		Sentiment:       payload.Weights["sentiment"],
		TradingVelocity: payload.Weights["tradingVelocity"],
		VolumeSpike:     payload.Weights["volumeSpike"],
		PriceMomentum:   payload.Weights["priceMomentum"],
		SocialActivity:  payload.Weights["socialActivity"],
		HolderMomentum:  payload.Weights["holderMomentum"],
		CrossMarketCorr: payload.Weights["crossMarketCorr"],
	}.Normalized()
	result.Score = models.ClampScore(payload.Score)
	result.Confidence = models.ClampConfidence(payload.Confidence)
	result.Reasoning = payload.Reasoning
	return result, nil
}

// Sentiment scores a piece of content on [-1,1]. Callers treat any error as
// a neutral 0.
func (c *Client) Sentiment(ctx context.Context, headline, content string) (float64, error) {
	prompt := buildSentimentPrompt(headline, content)

	completion, err := c.complete(ctx, prompt)
	if err != nil {
		return 0, err
	}

	var v float64
	if _, serr := fmt.Sscanf(strings.TrimSpace(completion), "%f", &v); serr != nil {
		return 0, fmt.Errorf("inference: sentiment not numeric: %q", completion)
	}
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return v, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	var resp chatResponse
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.httpc.SendAndParse(ctx, &apphttp.RequestOptions{
			Method: apphttp.MethodPost,
			URL:    c.cfg.BaseURL + "/chat/completions",
			Headers: map[string]string{
				"Authorization": "Bearer " + c.cfg.APIKey,
			},
			Body: chatRequest{
				Model:       c.cfg.Model,
				Messages:    []chatMessage{{Role: "user", Content: prompt}},
				Temperature: 0.2,
			},
		}, &resp)
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apphttp.ServiceUnavailableError("scorer returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// parseScorePayload extracts the first JSON object from the completion and
// validates it carries all seven weight keys.
func parseScorePayload(completion string) (*scorePayload, error) {
	raw, err := extractJSON(completion)
	if err != nil {
		return nil, err
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload.Weights == nil {
		return nil, fmt.Errorf("payload has no weights")
	}
	for _, key := range weightKeys {
		if _, ok := payload.Weights[key]; !ok {
			return nil, fmt.Errorf("payload missing weight %q", key)
		}
	}
	return &payload, nil
}

// extractJSON returns the first balanced {...} block in s.
func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in completion")
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in completion")
}
