package models

import "time"

// Ledger event kinds streamed from the settlement layer.
const (
	EventPurchase = "purchase"
	EventSale     = "sale"
	EventStake    = "stake"
	EventUnstake  = "unstake"
	EventFeeClaim = "fee_claim"
)

// LedgerEvent is one decoded settlement-layer event. Each kind is decoded
// at a single boundary; unknown shapes are rejected there, not propagated.
type LedgerEvent struct {
	Kind      string    `json:"kind"`
	ItemID    string    `json:"itemId"`
	Wallet    string    `json:"wallet"`
	Amount    int64     `json:"amount"`
	Price     int64     `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification types published on the outbound channel.
const (
	NotifyFlashMarketCreated = "FLASH_MARKET_CREATED"
	NotifyTrendUpdated       = "TREND_UPDATED"
)

// FlashMarketCreated is the broadcast payload for a newly opened market.
type FlashMarketCreated struct {
	Type     string    `json:"type"`
	MarketID string    `json:"marketId"`
	ItemID   string    `json:"itemId"`
	Velocity float64   `json:"velocity"`
	EndTime  time.Time `json:"endTime"`
}

// TrendUpdated is the broadcast payload for a fresh trend result.
type TrendUpdated struct {
	Type      string    `json:"type"`
	ItemID    string    `json:"itemId"`
	Score     float64   `json:"score"`
	Velocity  float64   `json:"velocity"`
	Timestamp time.Time `json:"timestamp"`
}

// Engagement event kinds consumed from the marketplace topic.
const (
	EngagementComment = "comment"
	EngagementLike    = "like"
)

// EngagementEvent is a comment or like produced by the marketplace.
type EngagementEvent struct {
	Kind      string    `json:"kind"`
	ItemID    string    `json:"itemId"`
	UserID    string    `json:"userId"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
