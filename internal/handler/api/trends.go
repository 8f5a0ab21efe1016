package api

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/domain/pricing"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/internal/service/breaker"
	"TrendPulse/internal/usecase"
	xcache "TrendPulse/pkg/cache"
	xhttp "TrendPulse/pkg/http"
	xlogger "TrendPulse/pkg/logger"
)

const (
	defaultTrendingMinScore = 30.0
	defaultTrendingLimit    = 20
	defaultHistoryLimit     = 50
)

// TrendsHandler serves the read side: latest trend per item, trend history,
// the trending list, open flash markets, and service status.
type TrendsHandler struct {
	logger  *xlogger.Logger
	items   drepo.ItemStore
	trends  drepo.TrendStore
	flash   drepo.FlashStore
	results xcache.Service
	orch    *usecase.Orchestrator
	breaker *breaker.Breaker
	ledger  drepo.Ledger
}

func NewTrendsHandler(
	logger *xlogger.Logger,
	items drepo.ItemStore,
	trends drepo.TrendStore,
	flash drepo.FlashStore,
	results xcache.Service,
	orch *usecase.Orchestrator,
	b *breaker.Breaker,
	ledger drepo.Ledger,
) *TrendsHandler {
	return &TrendsHandler{
		logger:  logger,
		items:   items,
		trends:  trends,
		flash:   flash,
		results: results,
		orch:    orch,
		breaker: b,
		ledger:  ledger,
	}
}

func (h *TrendsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/items/:id/trend", h.Trend)
	g.POST("/items/:id/quote", h.Quote)
	g.GET("/items/:id/trend/history", h.TrendHistory)
	g.POST("/items/:id/trend/refresh", h.Refresh)
	g.GET("/trending", h.Trending)
	g.GET("/flash-markets", h.FlashMarkets)
	g.GET("/flash-markets/:id", h.FlashMarket)
	g.GET("/status", h.Status)
}

// trendView is the last-known-good trend for an item. Factors and reasoning
// are present only while the full result is still cached.
type trendView struct {
	ItemID     string               `json:"itemId"`
	Score      float64              `json:"score"`
	Velocity   float64              `json:"velocity"`
	UpdatedAt  int64                `json:"updatedAt"`
	Confidence *float64             `json:"confidence,omitempty"`
	Factors    *models.TrendFactors `json:"factors,omitempty"`
	Reasoning  string               `json:"reasoning,omitempty"`
}

func (h *TrendsHandler) Trend(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	item, err := h.items.Item(ctx, id)
	if err != nil {
		h.logger.Error("trend item lookup failed", xlogger.String("item", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if item.NeverScored() {
		return xhttp.NotFoundResponse(c, "item has no trend score yet")
	}

	view := trendView{
		ItemID:    item.ID,
		Score:     item.TrendScore,
		Velocity:  item.TrendVelocity,
		UpdatedAt: item.TrendUpdatedAt.Unix(),
	}
	if cached, err := xcache.GetTyped[models.TrendResult](ctx, h.results, xcache.GenerateKey("trend", id)); err == nil {
		view.Confidence = &cached.Confidence
		view.Factors = &cached.Factors
		view.Reasoning = cached.Reasoning
	}
	return xhttp.SuccessResponse(c, view)
}

type quoteRequest struct {
	Side   string `json:"side" validate:"required,oneof=buy sell"`
	Amount int64  `json:"amount" default:"1" validate:"gt=0"`
}

// quoteView prices a prospective trade against the live on-ledger supply.
type quoteView struct {
	ItemID       string           `json:"itemId"`
	Side         string           `json:"side"`
	Amount       int64            `json:"amount"`
	CurveType    models.CurveType `json:"curveType"`
	Cost         int64            `json:"cost"`
	AveragePrice int64            `json:"averagePrice"`
	SpotPrice    int64            `json:"spotPrice"`
	Supply       int64            `json:"supply"`
}

func (h *TrendsHandler) Quote(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	var req quoteRequest
	if verr := xhttp.ReadAndValidateRequest(c, &req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	item, err := h.items.Item(ctx, id)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	account, err := h.ledger.MarketAccount(ctx, item.MarketAddress)
	if err != nil {
		h.logger.Error("market account read failed", xlogger.String("item", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	params := pricing.DefaultParams()
	params.BasePrice = account.BasePrice

	var cost int64
	if req.Side == "buy" {
		cost, err = pricing.BuyCost(account.CurveType, params, account.CirculatingSupply, req.Amount)
	} else {
		cost, err = pricing.SellRefund(account.CurveType, params, account.CirculatingSupply, req.Amount)
	}
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidAmount) || errors.Is(err, pricing.ErrInsufficientSupply) {
			return xhttp.BadRequestResponse(c, err.Error())
		}
		return xhttp.AppErrorResponse(c, err)
	}
	spot, err := pricing.PriceAtSupply(account.CurveType, params, account.CirculatingSupply)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}

	return xhttp.SuccessResponse(c, quoteView{
		ItemID:       id,
		Side:         req.Side,
		Amount:       req.Amount,
		CurveType:    account.CurveType,
		Cost:         cost,
		AveragePrice: pricing.AveragePrice(cost, req.Amount),
		SpotPrice:    spot,
		Supply:       account.CirculatingSupply,
	})
}

func (h *TrendsHandler) TrendHistory(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	points, err := h.trends.RecentPoints(ctx, id, limit)
	if err != nil {
		h.logger.Error("trend history failed", xlogger.String("item", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, points, int64(len(points)))
}

// Refresh drops the cached score so the next orchestrator pass rescores the
// item regardless of staleness.
func (h *TrendsHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if _, err := h.items.Item(ctx, id); err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	h.orch.MarkForUpdate(ctx, id)
	return xhttp.SuccessResponse(c, map[string]string{"itemId": id, "state": "queued"})
}

func (h *TrendsHandler) Trending(c echo.Context) error {
	ctx := c.Request().Context()
	minScore := queryFloat(c, "minScore", defaultTrendingMinScore)
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), defaultTrendingLimit)
	if limit <= 0 {
		limit = defaultTrendingLimit
	}

	items, err := h.items.Trending(ctx, minScore, limit)
	if err != nil {
		h.logger.Error("trending query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, items, int64(len(items)))
}

func (h *TrendsHandler) FlashMarkets(c echo.Context) error {
	markets, err := h.flash.OpenMarkets(c.Request().Context())
	if err != nil {
		h.logger.Error("open markets query failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, markets, int64(len(markets)))
}

func (h *TrendsHandler) FlashMarket(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	market, err := h.flash.Market(ctx, id)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	positions, err := h.flash.UnresolvedPositions(ctx, id)
	if err != nil {
		h.logger.Error("positions query failed", xlogger.String("market", id), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"market":        market,
		"openPositions": positions,
	})
}

func (h *TrendsHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"orchestrator": h.orch.Status(),
		"scorer":       h.breaker.State(),
	})
}

func queryFloat(c echo.Context, name string, def float64) float64 {
	s := c.QueryParam(name)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
