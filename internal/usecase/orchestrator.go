package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/cache"
	"TrendPulse/pkg/logger"
)

// Collector gathers the factor vector for an item.
type Collector interface {
	Collect(ctx context.Context, item *models.Item) (models.TrendFactors, error)
}

// Scorer turns factors into a TrendResult.
type Scorer interface {
	Score(ctx context.Context, item *models.Item, factors models.TrendFactors) (*models.TrendResult, error)
}

// Update priorities, highest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// OrchestratorConfig holds the scheduler knobs.
type OrchestratorConfig struct {
	UpdateInterval  time.Duration // default 5m
	InitialDelay    time.Duration // first run shortly after start
	ActiveThreshold time.Duration // default 1h
	CacheTTL        time.Duration // default 5m
	BatchSize       int           // default 5
	BatchPause      time.Duration // default 1s
}

func (c *OrchestratorConfig) withDefaults() {
	if c.UpdateInterval <= 0 {
		c.UpdateInterval = 5 * time.Minute
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 5 * time.Second
	}
	if c.ActiveThreshold <= 0 {
		c.ActiveThreshold = time.Hour
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.BatchPause <= 0 {
		c.BatchPause = time.Second
	}
}

// Status is the orchestrator's introspection snapshot.
type Status struct {
	Running     bool      `json:"running"`
	LastRun     time.Time `json:"lastRun"`
	LastUpdated int       `json:"lastUpdated"`
	LastSkipped int       `json:"lastSkipped"`
}

// Orchestrator periodically rescores trending candidates in batches. One
// item's failure never aborts a batch or the timer.
type Orchestrator struct {
	items     drepo.ItemStore
	trends    drepo.TrendStore
	collector Collector
	scorer    Scorer
	ledger    drepo.Ledger
	pub       drepo.Publisher
	results   cache.Service
	metrics   drepo.Metrics
	cfg       OrchestratorConfig
	log       *logger.Logger

	running  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu     sync.Mutex
	status Status
}

func NewOrchestrator(
	items drepo.ItemStore,
	trends drepo.TrendStore,
	col Collector,
	scorer Scorer,
	ledger drepo.Ledger,
	pub drepo.Publisher,
	results cache.Service,
	metrics drepo.Metrics,
	cfg OrchestratorConfig,
	log *logger.Logger,
) *Orchestrator {
	cfg.withDefaults()
	return &Orchestrator{
		items:     items,
		trends:    trends,
		collector: col,
		scorer:    scorer,
		ledger:    ledger,
		pub:       pub,
		results:   results,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the update loop: one run after InitialDelay, then every
// UpdateInterval.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		initial := time.NewTimer(o.cfg.InitialDelay)
		defer initial.Stop()
		ticker := time.NewTicker(o.cfg.UpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			case <-initial.C:
				o.Tick(ctx)
			case <-ticker.C:
				o.Tick(ctx)
			}
		}
	}()
}

// Stop cancels the timers and waits for an in-flight cycle to finish.
// Safe to call multiple times.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

// Status returns the last cycle's snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := o.status
	st.Running = o.running.Load()
	return st
}

// MarkForUpdate drops the cached result so the next cycle rescore the item.
func (o *Orchestrator) MarkForUpdate(ctx context.Context, itemID string) {
	if err := o.results.Delete(ctx, resultKey(itemID)); err != nil {
		o.log.Debug("cache invalidation failed", logger.String("item", itemID), logger.Error(err))
	}
}

// Tick runs one full update cycle. Overlapping fires are dropped.
func (o *Orchestrator) Tick(ctx context.Context) {
	if !o.running.CompareAndSwap(false, true) {
		o.log.Warn("trend update cycle still running, skipping tick")
		return
	}
	defer o.running.Store(false)

	start := time.Now()
	candidates, err := o.selectCandidates(ctx)
	if err != nil {
		o.metrics.RecordError("candidate_select")
		o.log.Error("candidate selection failed", logger.Error(err))
		return
	}
	if len(candidates) == 0 {
		return
	}

	o.log.Info("trend update cycle started", logger.Int("candidates", len(candidates)))

	var updated, skipped int64
	for i := 0; i < len(candidates); i += o.cfg.BatchSize {
		end := i + o.cfg.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}

		var wg sync.WaitGroup
		for _, c := range candidates[i:end] {
			wg.Add(1)
			go func(c candidate) {
				defer wg.Done()
				if o.UpdateItem(ctx, c.item, c.priority, false) {
					atomic.AddInt64(&updated, 1)
				} else {
					atomic.AddInt64(&skipped, 1)
				}
			}(c)
		}
		wg.Wait()

		if end < len(candidates) {
			select {
			case <-time.After(o.cfg.BatchPause):
			case <-o.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}

	elapsed := time.Since(start)
	o.metrics.RecordLatency("trend_update_cycle", elapsed.Seconds())
	o.log.Info("trend update cycle finished",
		logger.Int("updated", int(updated)),
		logger.Int("skipped", int(skipped)),
		logger.Duration("elapsed", elapsed))

	o.mu.Lock()
	o.status = Status{LastRun: start, LastUpdated: int(updated), LastSkipped: int(skipped)}
	o.mu.Unlock()
}

type candidate struct {
	item     *models.Item
	priority string
}

// selectCandidates picks items needing a rescore and orders them by
// priority. Priority informs ordering and logging only; batches run
// priority-agnostic.
func (o *Orchestrator) selectCandidates(ctx context.Context) ([]candidate, error) {
	now := time.Now()
	items, err := o.items.TrendCandidates(ctx, now.Add(-o.cfg.ActiveThreshold), now.Add(-o.cfg.ActiveThreshold))
	if err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0, len(items))
	for _, it := range items {
		candidates = append(candidates, candidate{item: it, priority: o.priorityFor(it, now)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return priorityRank(candidates[i].priority) < priorityRank(candidates[j].priority)
	})
	return candidates, nil
}

func (o *Orchestrator) priorityFor(it *models.Item, now time.Time) string {
	staleness := now.Sub(it.TrendUpdatedAt)
	switch {
	case it.Volume24h > 10 || staleness > 2*time.Hour || it.NeverScored():
		return PriorityHigh
	case it.Volume24h > 1 || staleness > time.Hour:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func priorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// UpdateItem rescores one item unless a fresh cached result exists. It
// returns true when a new result was produced. Failures are logged and
// swallowed so they stay isolated to this item.
func (o *Orchestrator) UpdateItem(ctx context.Context, item *models.Item, priority string, force bool) bool {
	key := resultKey(item.ID)

	if !force {
		if _, err := cache.GetTyped[models.TrendResult](ctx, o.results, key); err == nil {
			o.metrics.RecordTrendUpdate(priority, "cached")
			return false
		}
	}

	factors, err := o.collector.Collect(ctx, item)
	if err != nil {
		o.metrics.RecordError("collect")
		o.metrics.RecordTrendUpdate(priority, "error")
		o.log.Error("factor collection failed", logger.String("item", item.ID), logger.Error(err))
		return false
	}

	result, err := o.scorer.Score(ctx, item, factors)
	if err != nil {
		o.metrics.RecordError("inference")
		o.metrics.RecordTrendUpdate(priority, "error")
		o.log.Error("scoring failed", logger.String("item", item.ID), logger.Error(err))
		return false
	}

	velocity := o.velocityFor(ctx, item.ID, result)

	if err := o.trends.AppendResult(ctx, result); err != nil {
		o.metrics.RecordError("persist")
		o.metrics.RecordTrendUpdate(priority, "error")
		o.log.Error("history append failed", logger.String("item", item.ID), logger.Error(err))
		return false
	}
	if err := o.items.UpdateTrend(ctx, item.ID, result.Score, velocity, result.Timestamp); err != nil {
		o.metrics.RecordError("persist")
		o.metrics.RecordTrendUpdate(priority, "error")
		o.log.Error("item trend update failed", logger.String("item", item.ID), logger.Error(err))
		return false
	}

	if err := o.results.Set(ctx, key, *result, o.cfg.CacheTTL); err != nil {
		o.log.Debug("result cache write failed", logger.String("item", item.ID), logger.Error(err))
	}

	// best-effort, non-fatal
	if err := o.ledger.PushTrendScore(ctx, item.ID, result.Score); err != nil {
		o.log.Warn("ledger score push failed", logger.String("item", item.ID), logger.Error(err))
	}
	if err := o.pub.Publish(ctx, item.ID, models.TrendUpdated{
		Type:      models.NotifyTrendUpdated,
		ItemID:    item.ID,
		Score:     result.Score,
		Velocity:  velocity,
		Timestamp: result.Timestamp,
	}); err != nil {
		o.log.Warn("trend update publish failed", logger.String("item", item.ID), logger.Error(err))
	}

	o.metrics.RecordTrendUpdate(priority, "ok")
	o.metrics.RecordTrendScore(item.ID, result.Score)
	return true
}

// velocityFor derives points/sec from the previous latest history point.
func (o *Orchestrator) velocityFor(ctx context.Context, itemID string, result *models.TrendResult) float64 {
	points, err := o.trends.RecentPoints(ctx, itemID, 1)
	if err != nil || len(points) == 0 {
		return 0
	}
	return models.Velocity(models.TrendPoint{Score: result.Score, Timestamp: result.Timestamp}, points[0])
}

func resultKey(itemID string) string {
	return cache.GenerateKey("trend", itemID)
}
