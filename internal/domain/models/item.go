package models

import "time"

// CurveType selects the bonding curve a market trades on.
type CurveType string

const (
	CurveLinear      CurveType = "linear"
	CurveExponential CurveType = "exponential"
	CurveLogarithmic CurveType = "logarithmic"
)

// Item is a tradable tokenized-content listing.
type Item struct {
	ID             string
	Title          string
	Content        string
	Creator        string
	MarketAddress  string
	CurveType      CurveType
	BasePrice      int64 // lamports
	Supply         int64
	HolderCount    int
	Price          int64   // lamports, last trade price
	Volume24h      float64 // base units traded over 24h
	PriceChange24h float64 // percent
	TrendScore     float64
	TrendVelocity  float64 // points/sec, from the last two results
	TrendUpdatedAt time.Time
	CreatedAt      time.Time
}

// NeverScored reports whether the item has no trend result yet.
func (i *Item) NeverScored() bool {
	return i.TrendUpdatedAt.IsZero()
}
