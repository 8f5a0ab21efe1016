// Package pricing implements the bonding-curve math used to price buys and
// sells against an item's market without an order book. All monetary values
// are int64 lamports; floor rounding matches on-ledger settlement.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"TrendPulse/internal/domain/models"
)

var (
	ErrInvalidAmount      = errors.New("pricing: amount must be positive")
	ErrInsufficientSupply = errors.New("pricing: amount exceeds circulating supply")
)

// scaleUnit is the exponential curve's fixed-point denominator.
const scaleUnit = 10000

// Params are the per-market curve parameters read from the ledger account.
type Params struct {
	BasePrice int64 // lamports
	Slope     int64 // lamports per unit of supply (linear)
	LogScale  int64 // lamports per doubling (logarithmic)
}

// DefaultParams mirrors the ledger program's defaults.
func DefaultParams() Params {
	return Params{BasePrice: 1_000_000, Slope: 100, LogScale: 1000}
}

// BuyCost returns the lamports required to buy amount units when the market
// holds supply circulating units.
func BuyCost(curve models.CurveType, p Params, supply, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if supply < 0 {
		return 0, ErrInsufficientSupply
	}

	switch curve {
	case models.CurveLinear:
		start := p.BasePrice + supply*p.Slope
		end := p.BasePrice + (supply+amount)*p.Slope
		return (start + end) * amount / 2, nil
	case models.CurveExponential:
		var cost int64
		for i := int64(0); i < amount; i++ {
			cost += p.BasePrice * (scaleUnit + supply + i) / scaleUnit
		}
		return cost, nil
	case models.CurveLogarithmic:
		var cost int64
		for i := int64(1); i <= amount; i++ {
			cost += int64(math.Floor(float64(p.BasePrice) + float64(p.LogScale)*math.Log2(float64(supply+i))))
		}
		return cost, nil
	default:
		return 0, fmt.Errorf("pricing: unknown curve type %q", curve)
	}
}

// SellRefund returns the lamports refunded for selling amount units at the
// given supply. Selling reverses the buy integral window, so the refund
// equals the cost of buying the same amount at supply-amount.
func SellRefund(curve models.CurveType, p Params, supply, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if amount > supply {
		return 0, ErrInsufficientSupply
	}
	return BuyCost(curve, p, supply-amount, amount)
}

// PriceAtSupply returns the per-unit price of the next unit at the given
// supply.
func PriceAtSupply(curve models.CurveType, p Params, supply int64) (int64, error) {
	return BuyCost(curve, p, supply, 1)
}

// TotalValue returns the definite integral of the curve from zero supply,
// used for market-cap estimation.
func TotalValue(curve models.CurveType, p Params, supply int64) (int64, error) {
	if supply == 0 {
		return 0, nil
	}
	return BuyCost(curve, p, 0, supply)
}

// AveragePrice returns cost divided by amount, floored.
func AveragePrice(cost, amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return cost / amount
}
