package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"TrendPulse/internal/domain/models"
	drepo "TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/logger"
)

// SpikeDetector flags sudden trend-score movement from persisted history.
// A per-item cooldown suppresses repeated triggers; the cooldown stamp is
// recorded at detection time so concurrent scans cannot double-fire.
type SpikeDetector struct {
	trends    drepo.TrendStore
	metrics   drepo.Metrics
	threshold float64 // points/sec
	cooldown  time.Duration
	log       *logger.Logger

	mu        sync.Mutex
	lastFired map[string]time.Time
}

func NewSpikeDetector(trends drepo.TrendStore, metrics drepo.Metrics, threshold float64, cooldown time.Duration, log *logger.Logger) *SpikeDetector {
	if threshold <= 0 {
		threshold = 5.0
	}
	if cooldown <= 0 {
		cooldown = 120 * time.Second
	}
	return &SpikeDetector{
		trends:    trends,
		metrics:   metrics,
		threshold: threshold,
		cooldown:  cooldown,
		log:       log,
		lastFired: make(map[string]time.Time),
	}
}

// Check computes the current trend velocity for an item and reports whether
// it spiked. Items with fewer than two history points never spike.
func (d *SpikeDetector) Check(ctx context.Context, itemID string) (float64, bool, error) {
	points, err := d.trends.RecentPoints(ctx, itemID, 2)
	if err != nil {
		return 0, false, err
	}
	if len(points) < 2 {
		return 0, false, nil
	}

	velocity := models.Velocity(points[0], points[1])
	if math.Abs(velocity) <= d.threshold {
		return velocity, false, nil
	}

	now := time.Now()
	d.mu.Lock()
	if last, ok := d.lastFired[itemID]; ok && now.Sub(last) < d.cooldown {
		d.mu.Unlock()
		return velocity, false, nil
	}
	d.lastFired[itemID] = now
	d.mu.Unlock()

	d.metrics.RecordSpike()
	d.log.Info("velocity spike detected",
		logger.String("item", itemID),
		logger.Float64("velocity", velocity),
		logger.Float64("threshold", d.threshold))
	return velocity, true, nil
}
