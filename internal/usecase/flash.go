package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/cache"
	"TrendPulse/pkg/logger"
)

// FlashConfig holds the flash market scanner knobs.
type FlashConfig struct {
	ScanInterval    time.Duration // spike scan, default 2s
	ResolveInterval time.Duration // expiry scan, default 5s
	Window          time.Duration // betting window, fixed 60s
	MinTrendScore   float64       // only scan items above this score
	CandidateLimit  int           // top-N trending items per scan
}

func (c *FlashConfig) withDefaults() {
	if c.ScanInterval <= 0 {
		c.ScanInterval = 2 * time.Second
	}
	if c.ResolveInterval <= 0 {
		c.ResolveInterval = 5 * time.Second
	}
	if c.Window <= 0 {
		c.Window = 60 * time.Second
	}
	if c.MinTrendScore <= 0 {
		c.MinTrendScore = 30
	}
	if c.CandidateLimit <= 0 {
		c.CandidateLimit = 20
	}
}

// FlashLifecycle opens 60-second side-bet markets on detected velocity
// spikes and resolves them after expiry.
type FlashLifecycle struct {
	items    drepo.ItemStore
	flash    drepo.FlashStore
	trends   drepo.TrendStore
	detector *SpikeDetector
	ledger   drepo.Ledger
	pub      drepo.Publisher
	results  cache.Service
	metrics  drepo.Metrics
	cfg      FlashConfig
	log      *logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFlashLifecycle(
	items drepo.ItemStore,
	flash drepo.FlashStore,
	trends drepo.TrendStore,
	detector *SpikeDetector,
	ledger drepo.Ledger,
	pub drepo.Publisher,
	results cache.Service,
	metrics drepo.Metrics,
	cfg FlashConfig,
	log *logger.Logger,
) *FlashLifecycle {
	cfg.withDefaults()
	return &FlashLifecycle{
		items:    items,
		flash:    flash,
		trends:   trends,
		detector: detector,
		ledger:   ledger,
		pub:      pub,
		results:  results,
		metrics:  metrics,
		cfg:      cfg,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the spike scan and expiry scan loops.
func (f *FlashLifecycle) Start(ctx context.Context) {
	f.wg.Add(2)
	go f.loop(ctx, f.cfg.ScanInterval, f.Scan)
	go f.loop(ctx, f.cfg.ResolveInterval, f.ResolveExpired)
}

func (f *FlashLifecycle) loop(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	defer f.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// Stop cancels the loops. Safe to call multiple times.
func (f *FlashLifecycle) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
	f.wg.Wait()
}

// Scan checks the top trending items for velocity spikes and opens a
// market per detection.
func (f *FlashLifecycle) Scan(ctx context.Context) {
	items, err := f.items.Trending(ctx, f.cfg.MinTrendScore, f.cfg.CandidateLimit)
	if err != nil {
		f.metrics.RecordError("flash_scan")
		f.log.Error("flash scan candidate read failed", logger.Error(err))
		return
	}

	for _, it := range items {
		velocity, spiked, err := f.detector.Check(ctx, it.ID)
		if err != nil {
			f.log.Debug("spike check failed", logger.String("item", it.ID), logger.Error(err))
			continue
		}
		if !spiked {
			continue
		}
		if err := f.openMarket(ctx, it, velocity); err != nil {
			f.metrics.RecordError("flash_create")
			f.log.Error("flash market creation failed", logger.String("item", it.ID), logger.Error(err))
		}
	}

	if open, err := f.flash.OpenMarkets(ctx); err == nil {
		f.metrics.SetOpenFlashMarkets(len(open))
	}
}

// OnTrendUpdate runs an immediate spike check for one item, without waiting
// for the next scan tick. Wired to the in-process trend-update event.
func (f *FlashLifecycle) OnTrendUpdate(ctx context.Context, itemID string) {
	item, err := f.items.Item(ctx, itemID)
	if err != nil || item == nil {
		f.log.Debug("spike check item read failed", logger.String("item", itemID), logger.Error(err))
		return
	}
	if item.TrendScore <= f.cfg.MinTrendScore {
		return
	}
	velocity, spiked, err := f.detector.Check(ctx, item.ID)
	if err != nil || !spiked {
		return
	}
	if err := f.openMarket(ctx, item, velocity); err != nil {
		f.metrics.RecordError("flash_create")
		f.log.Error("flash market creation failed", logger.String("item", item.ID), logger.Error(err))
	}
}

func (f *FlashLifecycle) openMarket(ctx context.Context, item *models.Item, velocity float64) error {
	now := time.Now()
	market := &models.FlashMarket{
		ID:              uuid.NewString(),
		ParentItemID:    item.ID,
		SnapshotWeights: f.currentWeights(ctx, item.ID),
		StartTime:       now,
		EndTime:         now.Add(f.cfg.Window),
		InitialVelocity: velocity,
		IsActive:        true,
	}

	if err := f.flash.CreateMarket(ctx, market); err != nil {
		return err
	}

	// best-effort, non-fatal
	if err := f.ledger.CreateFlashMarket(ctx, market); err != nil {
		f.log.Warn("ledger flash create failed", logger.String("market", market.ID), logger.Error(err))
	}
	if err := f.pub.Publish(ctx, item.ID, models.FlashMarketCreated{
		Type:     models.NotifyFlashMarketCreated,
		MarketID: market.ID,
		ItemID:   item.ID,
		Velocity: velocity,
		EndTime:  market.EndTime,
	}); err != nil {
		f.log.Warn("flash create publish failed", logger.String("market", market.ID), logger.Error(err))
	}

	f.log.Info("flash market opened",
		logger.String("market", market.ID),
		logger.String("item", item.ID),
		logger.Float64("velocity", velocity))
	return nil
}

// currentWeights snapshots the parent item's latest weight vector from the
// result cache, falling back to the defaults.
func (f *FlashLifecycle) currentWeights(ctx context.Context, itemID string) models.TrendWeights {
	r, err := cache.GetTyped[models.TrendResult](ctx, f.results, resultKey(itemID))
	if err != nil {
		return models.DefaultWeights()
	}
	return r.Weights
}

// ResolveExpired settles every market whose window has closed. A market
// with fewer than two history points is deferred to the next poll.
func (f *FlashLifecycle) ResolveExpired(ctx context.Context) {
	markets, err := f.flash.ExpiredUnresolved(ctx, time.Now())
	if err != nil {
		f.metrics.RecordError("flash_resolve")
		f.log.Error("expired market read failed", logger.Error(err))
		return
	}

	for _, m := range markets {
		if err := f.Resolve(ctx, m); err != nil {
			f.metrics.RecordError("flash_resolve")
			f.log.Error("flash market resolution failed", logger.String("market", m.ID), logger.Error(err))
		}
	}
}

// Resolve computes the winning side from post-expiry velocity and settles
// all unresolved positions exactly once.
func (f *FlashLifecycle) Resolve(ctx context.Context, m *models.FlashMarket) error {
	points, err := f.trends.RecentPoints(ctx, m.ParentItemID, 2)
	if err != nil {
		return err
	}
	if len(points) < 2 {
		f.log.Debug("deferring resolution, insufficient history", logger.String("market", m.ID))
		return nil
	}

	finalVelocity := models.Velocity(points[0], points[1])
	side := models.SideDown
	if finalVelocity-m.InitialVelocity >= 0 {
		side = models.SideUp
	}

	positions, err := f.flash.UnresolvedPositions(ctx, m.ID)
	if err != nil {
		return err
	}
	SettlePositions(positions, side)
	if len(positions) > 0 {
		if err := f.flash.SettlePositions(ctx, positions); err != nil {
			return err
		}
	}

	m.FinalVelocity = &finalVelocity
	m.WinningSide = &side
	m.IsActive = false
	m.IsResolved = true
	if err := f.flash.ResolveMarket(ctx, m); err != nil {
		return err
	}

	// best-effort, non-fatal
	if err := f.ledger.CloseFlashMarket(ctx, m.ID, side); err != nil {
		f.log.Warn("ledger flash close failed", logger.String("market", m.ID), logger.Error(err))
	}

	f.log.Info("flash market resolved",
		logger.String("market", m.ID),
		logger.String("side", string(side)),
		logger.Float64("final_velocity", finalVelocity),
		logger.Int("positions", len(positions)))
	return nil
}
