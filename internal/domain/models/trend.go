package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"
)

// TrendFactors are the seven normalized signals collected per item each
// scoring cycle. They are never persisted standalone, only inside a result.
type TrendFactors struct {
	Sentiment       float64 `json:"sentiment"`       // [-1,1]
	TradingVelocity float64 `json:"tradingVelocity"` // trades per minute
	VolumeSpike     float64 `json:"volumeSpike"`     // signed ratio vs 24h baseline
	PriceMomentum   float64 `json:"priceMomentum"`   // priceChange24h / 100
	SocialActivity  float64 `json:"socialActivity"`  // comments+likes over 1h
	HolderMomentum  float64 `json:"holderMomentum"`  // scaled holder count
	CrossMarketCorr float64 `json:"crossMarketCorr"` // [-1,1]
}

// TrendWeights maps each factor to a non-negative weight summing to 1.0.
type TrendWeights struct {
	Sentiment       float64 `json:"sentiment"`
	TradingVelocity float64 `json:"tradingVelocity"`
	VolumeSpike     float64 `json:"volumeSpike"`
	PriceMomentum   float64 `json:"priceMomentum"`
	SocialActivity  float64 `json:"socialActivity"`
	HolderMomentum  float64 `json:"holderMomentum"`
	CrossMarketCorr float64 `json:"crossMarketCorr"`
}

// DefaultWeights is the fixed fallback vector used when the scorer's
// output cannot be parsed.
func DefaultWeights() TrendWeights {
	return TrendWeights{
		Sentiment:       0.25,
		TradingVelocity: 0.20,
		VolumeSpike:     0.20,
		PriceMomentum:   0.15,
		SocialActivity:  0.10,
		HolderMomentum:  0.05,
		CrossMarketCorr: 0.05,
	}
}

// Sum returns the total of all seven weights.
func (w TrendWeights) Sum() float64 {
	return w.Sentiment + w.TradingVelocity + w.VolumeSpike +
		w.PriceMomentum + w.SocialActivity + w.HolderMomentum + w.CrossMarketCorr
}

// Normalized rescales the weights so they sum to 1.0 when the sum deviates
// from 1.0 by more than 0.01. A zero vector is replaced by the defaults.
func (w TrendWeights) Normalized() TrendWeights {
	sum := w.Sum()
	if sum == 0 {
		return DefaultWeights()
	}
	if math.Abs(sum-1.0) <= 0.01 {
		return w
	}
	return TrendWeights{
		Sentiment:       w.Sentiment / sum,
		TradingVelocity: w.TradingVelocity / sum,
		VolumeSpike:     w.VolumeSpike / sum,
		PriceMomentum:   w.PriceMomentum / sum,
		SocialActivity:  w.SocialActivity / sum,
		HolderMomentum:  w.HolderMomentum / sum,
		CrossMarketCorr: w.CrossMarketCorr / sum,
	}
}

// WeightedScore computes the direct factor-weighted score on a 0-100 scale.
func WeightedScore(f TrendFactors, w TrendWeights) float64 {
	s := (f.Sentiment*w.Sentiment +
		f.TradingVelocity*w.TradingVelocity +
		f.VolumeSpike*w.VolumeSpike +
		f.PriceMomentum*w.PriceMomentum +
		f.SocialActivity*w.SocialActivity +
		f.HolderMomentum*w.HolderMomentum +
		f.CrossMarketCorr*w.CrossMarketCorr) * 100
	return ClampScore(s)
}

// ClampScore bounds a score to [0,100].
func ClampScore(s float64) float64 {
	return math.Min(100, math.Max(0, s))
}

// ClampConfidence bounds a confidence to [0,1].
func ClampConfidence(c float64) float64 {
	return math.Min(1, math.Max(0, c))
}

// TrendResult is one scoring outcome: written to the item's latest-state
// record and appended to the immutable history log.
type TrendResult struct {
	ItemID     string       `json:"itemId"`
	Score      float64      `json:"score"`
	Factors    TrendFactors `json:"factors"`
	Weights    TrendWeights `json:"weights"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
	Timestamp  time.Time    `json:"timestamp"`
}

// FactorsHash is the sha256 of the canonical factor encoding, stored with
// history rows for verification.
func (r *TrendResult) FactorsHash() string {
	f := r.Factors
	canonical := fmt.Sprintf("%.6f|%.6f|%.6f|%.6f|%.6f|%.6f|%.6f",
		f.Sentiment, f.TradingVelocity, f.VolumeSpike, f.PriceMomentum,
		f.SocialActivity, f.HolderMomentum, f.CrossMarketCorr)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// TrendPoint is a single (score, time) sample from the history log,
// ordered most-recent-first when fetched for velocity math.
type TrendPoint struct {
	Score     float64
	Timestamp time.Time
}

// Velocity returns points/second between two history samples, most recent
// first. Zero when the samples share a timestamp.
func Velocity(newest, previous TrendPoint) float64 {
	dt := newest.Timestamp.Sub(previous.Timestamp).Seconds()
	if dt <= 0 {
		return 0
	}
	return (newest.Score - previous.Score) / dt
}
