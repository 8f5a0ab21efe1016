package models

import "time"

// Side is a flash market bet direction.
type Side string

const (
	SideUp   Side = "up"
	SideDown Side = "down"
)

// FlashMarket is a fixed 60-second side-bet opened on a detected
// trend-velocity spike. Mutated only by the lifecycle's resolve step;
// terminal once IsResolved.
type FlashMarket struct {
	ID              string
	ParentItemID    string
	SnapshotWeights TrendWeights
	StartTime       time.Time
	EndTime         time.Time
	InitialVelocity float64
	FinalVelocity   *float64
	WinningSide     *Side
	IsActive        bool
	IsResolved      bool
}

// Expired reports whether the betting window has closed.
func (m *FlashMarket) Expired(now time.Time) bool {
	return !now.Before(m.EndTime)
}

// FlashPosition is a user's stake on one side of a flash market. Created
// externally when a user joins; settled exactly once here.
type FlashPosition struct {
	ID          string
	MarketID    string
	UserID      string
	Direction   Side
	StakeAmount int64 // lamports
	Payout      int64
	ProfitLoss  int64
	IsResolved  bool
}
