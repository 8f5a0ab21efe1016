package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
)

func TestLinearBuyCost(t *testing.T) {
	p := Params{BasePrice: 1_000_000, Slope: 100}

	cost, err := BuyCost(models.CurveLinear, p, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10_005_000), cost)
}

func TestExponentialBuyCost(t *testing.T) {
	p := Params{BasePrice: 1_000_000}

	// per-unit prices 1,000,000 / 1,000,100 / 1,000,200
	cost, err := BuyCost(models.CurveExponential, p, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_300), cost)
}

func TestLogarithmicBuyCost(t *testing.T) {
	p := Params{BasePrice: 1_000_000, LogScale: 1000}

	// units at supply 0: log2(1)=0, log2(2)=1, log2(3)~1.585, log2(4)=2
	cost, err := BuyCost(models.CurveLogarithmic, p, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000+1_001_000+1_001_584+1_002_000), cost)
}

func TestCurveSymmetry(t *testing.T) {
	p := DefaultParams()
	curves := []models.CurveType{models.CurveLinear, models.CurveExponential, models.CurveLogarithmic}

	cases := []struct {
		supply int64
		amount int64
	}{
		{10, 3},
		{100, 100},
		{5000, 1},
		{777, 42},
	}

	for _, curve := range curves {
		for _, tc := range cases {
			refund, err := SellRefund(curve, p, tc.supply, tc.amount)
			require.NoError(t, err)

			cost, err := BuyCost(curve, p, tc.supply-tc.amount, tc.amount)
			require.NoError(t, err)

			assert.Equal(t, cost, refund, "curve=%s supply=%d amount=%d", curve, tc.supply, tc.amount)
		}
	}
}

func TestInvalidAmount(t *testing.T) {
	p := DefaultParams()

	_, err := BuyCost(models.CurveLinear, p, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = BuyCost(models.CurveExponential, p, 10, -1)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = SellRefund(models.CurveLinear, p, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestInsufficientSupply(t *testing.T) {
	p := DefaultParams()

	_, err := SellRefund(models.CurveLinear, p, 5, 6)
	assert.ErrorIs(t, err, ErrInsufficientSupply)
}

func TestUnknownCurve(t *testing.T) {
	_, err := BuyCost(models.CurveType("bezier"), DefaultParams(), 0, 1)
	assert.Error(t, err)
}

func TestPriceAtSupply(t *testing.T) {
	p := Params{BasePrice: 1_000_000, Slope: 100}

	price, err := PriceAtSupply(models.CurveLinear, p, 0)
	require.NoError(t, err)
	// trapezoid of one unit: (1,000,000 + 1,000,100)/2
	assert.Equal(t, int64(1_000_050), price)
}

func TestTotalValue(t *testing.T) {
	p := Params{BasePrice: 1_000_000}

	v, err := TotalValue(models.CurveExponential, p, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	v, err = TotalValue(models.CurveExponential, p, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_300), v)
}

func TestAveragePrice(t *testing.T) {
	assert.Equal(t, int64(1_000_500), AveragePrice(10_005_000, 10))
	assert.Equal(t, int64(0), AveragePrice(100, 0))
}
