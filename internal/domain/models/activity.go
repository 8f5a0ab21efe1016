package models

import "time"

// Trade is one executed buy or sell against an item's market.
type Trade struct {
	ID        string
	ItemID    string
	Buyer     string
	Side      string // "buy" | "sell"
	Amount    int64  // units
	Price     int64  // lamports per unit
	Volume    float64
	Timestamp time.Time
}

// Comment is a marketplace comment on an item; feeds socialActivity.
type Comment struct {
	ID        string
	ItemID    string
	Author    string
	Body      string
	CreatedAt time.Time
}

// Like is a marketplace like on an item; feeds socialActivity.
type Like struct {
	ItemID    string
	UserID    string
	CreatedAt time.Time
}

// VolumeBucket is one per-minute traded-volume sample for an item.
type VolumeBucket struct {
	ItemID string
	Bucket time.Time // minute-truncated
	Volume float64
}

// ActivityWindow aggregates the raw inputs the factor collector reads for
// one item over its trailing windows.
type ActivityWindow struct {
	TradeCount1h   int
	Volume1h       float64
	Volume24h      float64
	CommentCount1h int
	LikeCount1h    int
}
