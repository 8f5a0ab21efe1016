package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"TrendPulse/internal/domain/models"
)

func pos(dir models.Side, stake int64) *models.FlashPosition {
	return &models.FlashPosition{Direction: dir, StakeAmount: stake}
}

func totalPayout(positions []*models.FlashPosition) int64 {
	var sum int64
	for _, p := range positions {
		sum += p.Payout
	}
	return sum
}

func TestSettleWinnersSplitLosersPool(t *testing.T) {
	positions := []*models.FlashPosition{
		pos(models.SideUp, 100),
		pos(models.SideUp, 300),
		pos(models.SideDown, 200),
	}

	SettlePositions(positions, models.SideUp)

	// winner shares: 100/400 and 300/400 of the 200 pool
	assert.Equal(t, int64(150), positions[0].Payout)
	assert.Equal(t, int64(50), positions[0].ProfitLoss)
	assert.Equal(t, int64(450), positions[1].Payout)
	assert.Equal(t, int64(150), positions[1].ProfitLoss)
	assert.Equal(t, int64(0), positions[2].Payout)
	assert.Equal(t, int64(-200), positions[2].ProfitLoss)

	for _, p := range positions {
		assert.True(t, p.IsResolved)
	}
}

func TestSettleConservesFunds(t *testing.T) {
	positions := []*models.FlashPosition{
		pos(models.SideUp, 333),
		pos(models.SideUp, 667),
		pos(models.SideUp, 11),
		pos(models.SideDown, 1000),
		pos(models.SideDown, 7),
	}

	SettlePositions(positions, models.SideUp)

	var totalStake int64
	for _, p := range positions {
		totalStake += p.StakeAmount
	}
	assert.Equal(t, totalStake, totalPayout(positions))
}

func TestSettleZeroWinners(t *testing.T) {
	positions := []*models.FlashPosition{
		pos(models.SideDown, 500),
		pos(models.SideDown, 250),
	}

	SettlePositions(positions, models.SideUp)

	for _, p := range positions {
		assert.Equal(t, int64(0), p.Payout)
		assert.Equal(t, -p.StakeAmount, p.ProfitLoss)
		assert.True(t, p.IsResolved)
	}
}

func TestSettleNoLosers(t *testing.T) {
	positions := []*models.FlashPosition{
		pos(models.SideUp, 500),
	}

	SettlePositions(positions, models.SideUp)

	assert.Equal(t, int64(500), positions[0].Payout)
	assert.Equal(t, int64(0), positions[0].ProfitLoss)
}

func TestSettleEmpty(t *testing.T) {
	SettlePositions(nil, models.SideUp)
}
