// Package collector gathers the seven normalized trend factors for an item
// from its recent marketplace activity.
package collector

import (
	"context"
	"time"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/domain/repository"
	"TrendPulse/pkg/logger"
)

// Sentimenter scores item content on [-1,1].
type Sentimenter interface {
	Sentiment(ctx context.Context, headline, content string) (float64, error)
}

const (
	factorWindow   = time.Hour
	baselineWindow = 24 * time.Hour
	topSeriesLimit = 10
)

// Collector computes TrendFactors from stored activity.
type Collector struct {
	activity  repository.ActivityStore
	trends    repository.TrendStore
	sentiment Sentimenter
	log       *logger.Logger
}

func New(activity repository.ActivityStore, trends repository.TrendStore, sentiment Sentimenter, log *logger.Logger) *Collector {
	return &Collector{activity: activity, trends: trends, sentiment: sentiment, log: log}
}

// Collect builds the factor vector for item over a trailing 1-hour window,
// with a 24-hour window for the volume baseline.
func (c *Collector) Collect(ctx context.Context, item *models.Item) (models.TrendFactors, error) {
	now := time.Now()

	window, err := c.activity.Window(ctx, item.ID, now)
	if err != nil {
		return models.TrendFactors{}, err
	}

	factors := models.TrendFactors{
		TradingVelocity: float64(window.TradeCount1h) / 60,
		PriceMomentum:   item.PriceChange24h / 100,
		SocialActivity:  float64(window.CommentCount1h + window.LikeCount1h),
		HolderMomentum:  float64(item.HolderCount) / 10,
	}

	sentiment, err := c.sentiment.Sentiment(ctx, item.Title, item.Content)
	if err != nil {
		c.log.Debug("sentiment scorer failed, using neutral",
			logger.String("item", item.ID), logger.Error(err))
		sentiment = 0
	}
	factors.Sentiment = sentiment

	factors.VolumeSpike = c.volumeSpike(ctx, item.ID, window, now)
	factors.CrossMarketCorr = c.crossMarketCorr(ctx, item.ID, now)

	return factors, nil
}

// volumeSpike compares the last hour's volume to the average per-minute
// bucket over 24h. Zero when there is no baseline.
func (c *Collector) volumeSpike(ctx context.Context, itemID string, window *models.ActivityWindow, now time.Time) float64 {
	buckets, err := c.trends.VolumeSeries(ctx, itemID, now.Add(-baselineWindow), now)
	if err != nil {
		c.log.Debug("volume baseline read failed", logger.String("item", itemID), logger.Error(err))
		return 0
	}
	if len(buckets) == 0 {
		return 0
	}

	var total float64
	for _, b := range buckets {
		total += b.Volume
	}
	avg := total / float64(len(buckets))
	if avg == 0 {
		return 0
	}
	return (window.Volume1h - avg) / avg
}

// crossMarketCorr averages the Pearson correlation of this item's
// per-minute volume series against the top-volume other items over the
// same hour. Zero when no comparable series exist.
func (c *Collector) crossMarketCorr(ctx context.Context, itemID string, now time.Time) float64 {
	from := now.Add(-factorWindow)

	own, err := c.trends.VolumeSeries(ctx, itemID, from, now)
	if err != nil || len(own) == 0 {
		return 0
	}

	others, err := c.trends.TopVolumeSeries(ctx, itemID, from, now, topSeriesLimit)
	if err != nil || len(others) == 0 {
		return 0
	}

	ownVec := bucketVector(own, from, now)

	var sum float64
	var count int
	for _, series := range others {
		r, ok := pearson(ownVec, bucketVector(series, from, now))
		if !ok {
			continue
		}
		sum += r
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// bucketVector expands a sparse bucket series into one value per minute of
// [from, to), missing minutes as zero.
func bucketVector(series []models.VolumeBucket, from, to time.Time) []float64 {
	n := int(to.Sub(from) / time.Minute)
	if n <= 0 {
		return nil
	}
	vec := make([]float64, n)
	start := from.Truncate(time.Minute)
	for _, b := range series {
		idx := int(b.Bucket.Sub(start) / time.Minute)
		if idx >= 0 && idx < n {
			vec[idx] += b.Volume
		}
	}
	return vec
}
