package usecase

import "TrendPulse/internal/domain/models"

// SettlePositions fills payout and profit/loss on every unresolved position
// of a resolved market. Winners split the losers' pool pro rata by stake;
// losers get nothing back. With zero stake on the winning side no payouts
// are computable and everyone gets 0 (the pool stays with the house).
// Funds are conserved: with winners present, total payout equals total
// stake, so any lamports lost to floor division go to the last winner.
func SettlePositions(positions []*models.FlashPosition, winningSide models.Side) {
	var winnersTotal, losersTotal int64
	for _, p := range positions {
		if p.Direction == winningSide {
			winnersTotal += p.StakeAmount
		} else {
			losersTotal += p.StakeAmount
		}
	}

	var distributed int64
	var lastWinner *models.FlashPosition
	for _, p := range positions {
		if winnersTotal > 0 && p.Direction == winningSide {
			share := losersTotal * p.StakeAmount / winnersTotal
			p.Payout = p.StakeAmount + share
			distributed += share
			lastWinner = p
		} else {
			p.Payout = 0
		}
		p.ProfitLoss = p.Payout - p.StakeAmount
		p.IsResolved = true
	}

	if lastWinner != nil && distributed < losersTotal {
		remainder := losersTotal - distributed
		lastWinner.Payout += remainder
		lastWinner.ProfitLoss += remainder
	}
}
