// Package ledger is the RPC and stream surface of the settlement layer.
// Market-account reads go through the resilient cache so repeated pricing
// lookups coalesce instead of hammering the RPC node.
package ledger

import (
	"context"
	"fmt"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	rescache "TrendPulse/internal/service/cache"
	apphttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/logger"
)

const accountCacheTTL = 10 * time.Second

// Client implements repository.Ledger over the settlement RPC endpoint.
type Client struct {
	rpcURL    string
	authority string
	httpc     *apphttp.Client
	cache     *rescache.Resilient
	log       *logger.Logger
}

func NewClient(rpcURL, authority string, timeout time.Duration, cache *rescache.Resilient, log *logger.Logger) drepo.Ledger {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		rpcURL:    rpcURL,
		authority: authority,
		httpc:     apphttp.NewClient(apphttp.WithTimeout(timeout)),
		cache:     cache,
		log:       log,
	}
}

// marketAccountWire is the RPC shape of a market account. This is the only
// place it is decoded; shape mismatches are rejected here.
type marketAccountWire struct {
	Address           string `json:"address"`
	CirculatingSupply int64  `json:"circulatingSupply"`
	CurveType         string `json:"curveType"`
	BasePrice         int64  `json:"basePrice"`
}

func (w *marketAccountWire) toDomain() (*drepo.MarketAccount, error) {
	switch models.CurveType(w.CurveType) {
	case models.CurveLinear, models.CurveExponential, models.CurveLogarithmic:
	default:
		return nil, fmt.Errorf("ledger: unknown curve type %q for %s", w.CurveType, w.Address)
	}
	if w.CirculatingSupply < 0 || w.BasePrice <= 0 {
		return nil, fmt.Errorf("ledger: malformed market account %s", w.Address)
	}
	return &drepo.MarketAccount{
		Address:           w.Address,
		CirculatingSupply: w.CirculatingSupply,
		CurveType:         models.CurveType(w.CurveType),
		BasePrice:         w.BasePrice,
	}, nil
}

// MarketAccount reads the on-ledger market state for pricing.
func (c *Client) MarketAccount(ctx context.Context, address string) (*drepo.MarketAccount, error) {
	return rescache.GetAs(ctx, c.cache, "market:"+address, accountCacheTTL,
		func(ctx context.Context) (*drepo.MarketAccount, error) {
			var wire marketAccountWire
			err := c.httpc.SendAndParse(ctx, &apphttp.RequestOptions{
				Method: apphttp.MethodGet,
				URL:    fmt.Sprintf("%s/accounts/market/%s", c.rpcURL, address),
			}, &wire)
			if err != nil {
				return nil, err
			}
			return wire.toDomain()
		})
}

// PushTrendScore submits a fresh score to the settlement layer. Best-effort
// at the call sites; failures are logged there, not retried here.
func (c *Client) PushTrendScore(ctx context.Context, itemID string, score float64) error {
	return c.httpc.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodPost,
		URL:    c.rpcURL + "/instructions/trend-score",
		Body: map[string]interface{}{
			"authority": c.authority,
			"itemId":    itemID,
			"score":     score,
		},
	}, nil)
}

// CreateFlashMarket submits the market-creation instruction.
func (c *Client) CreateFlashMarket(ctx context.Context, m *models.FlashMarket) error {
	return c.httpc.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodPost,
		URL:    c.rpcURL + "/instructions/flash-market",
		Body: map[string]interface{}{
			"authority":       c.authority,
			"marketId":        m.ID,
			"itemId":          m.ParentItemID,
			"endTime":         m.EndTime.UnixMilli(),
			"initialVelocity": m.InitialVelocity,
		},
	}, nil)
}

// CloseFlashMarket submits the market-close instruction with the outcome.
func (c *Client) CloseFlashMarket(ctx context.Context, marketID string, winningSide models.Side) error {
	return c.httpc.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodPost,
		URL:    c.rpcURL + "/instructions/flash-market/close",
		Body: map[string]interface{}{
			"authority":   c.authority,
			"marketId":    marketID,
			"winningSide": string(winningSide),
		},
	}, nil)
}
