package repository

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
)

// ItemStore is the system of record for items and their latest trend state.
type ItemStore interface {
	Item(ctx context.Context, id string) (*models.Item, error)
	TrendCandidates(ctx context.Context, activeSince time.Time, staleBefore time.Time) ([]*models.Item, error)
	Trending(ctx context.Context, minScore float64, limit int) ([]*models.Item, error)
	UpdateTrend(ctx context.Context, id string, score, velocity float64, at time.Time) error
	UpdateStats(ctx context.Context, id string, price int64, volume24h, priceChange24h float64) error
	Close() error
}

// ActivityStore reads and writes the raw activity the collector aggregates.
type ActivityStore interface {
	Window(ctx context.Context, itemID string, now time.Time) (*models.ActivityWindow, error)
	RecordTrade(ctx context.Context, t *models.Trade) error
	Trades24h(ctx context.Context, itemID string, now time.Time) ([]*models.Trade, error)
	RecordComment(ctx context.Context, c *models.Comment) error
	RecordLike(ctx context.Context, l *models.Like) error
}

// TrendStore is the append-only trend history and volume-bucket log.
type TrendStore interface {
	Init(ctx context.Context) error
	AppendResult(ctx context.Context, r *models.TrendResult) error
	RecentPoints(ctx context.Context, itemID string, limit int) ([]models.TrendPoint, error)
	VolumeSeries(ctx context.Context, itemID string, from, to time.Time) ([]models.VolumeBucket, error)
	TopVolumeSeries(ctx context.Context, excludeItemID string, from, to time.Time, limit int) (map[string][]models.VolumeBucket, error)
	AddVolume(ctx context.Context, itemID string, bucket time.Time, volume float64) error
	Health(ctx context.Context) error
	Close() error
}

// FlashStore persists flash markets and their positions.
type FlashStore interface {
	CreateMarket(ctx context.Context, m *models.FlashMarket) error
	Market(ctx context.Context, id string) (*models.FlashMarket, error)
	OpenMarkets(ctx context.Context) ([]*models.FlashMarket, error)
	ExpiredUnresolved(ctx context.Context, now time.Time) ([]*models.FlashMarket, error)
	ResolveMarket(ctx context.Context, m *models.FlashMarket) error
	UnresolvedPositions(ctx context.Context, marketID string) ([]*models.FlashPosition, error)
	SettlePositions(ctx context.Context, positions []*models.FlashPosition) error
}

// Publisher broadcasts notifications to the outbound channel.
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}

// LedgerStream delivers decoded settlement-layer events.
type LedgerStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.LedgerEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Ledger is the settlement-layer RPC surface this service consumes.
type Ledger interface {
	MarketAccount(ctx context.Context, address string) (*MarketAccount, error)
	PushTrendScore(ctx context.Context, itemID string, score float64) error
	CreateFlashMarket(ctx context.Context, m *models.FlashMarket) error
	CloseFlashMarket(ctx context.Context, marketID string, winningSide models.Side) error
}

// MarketAccount is the decoded on-ledger market state used for pricing.
type MarketAccount struct {
	Address           string
	CirculatingSupply int64
	CurveType         models.CurveType
	BasePrice         int64
}

// Metrics records operational measurements.
type Metrics interface {
	RecordTrendUpdate(priority, result string)
	RecordError(kind string)
	RecordTrendScore(item string, score float64)
	SetOpenFlashMarkets(n int)
	RecordSpike()
	RecordInferenceResult(source string)
	RecordLatency(op string, seconds float64)
}
