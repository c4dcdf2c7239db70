package solver

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carblue/pricing-cli/internal/commission"
	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/feetable"
	"github.com/carblue/pricing-cli/internal/margin"
	"github.com/carblue/pricing-cli/internal/model"
)

func TestSolveScenario(t *testing.T) {
	t.Parallel()
	got := Solve(Input{DirectCost: 25, FixedFee: 6, VariableRate: 0.20 + 0.09, TargetMarginPct: 30})

	require.True(t, got.Feasible)
	assert.InDelta(t, 0.41, got.Denominator, 1e-9)
	assert.InDelta(t, 75.61, got.Price, 0.005)
	assert.InDelta(t, 31/0.41, got.Price, 1e-9)
	assert.InDelta(t, got.Price*0.30, got.Profit, 1e-9)
	assert.Equal(t, ReasonNone, got.Reason)
}

func TestSolveInfeasible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Input
	}{
		{"zero denominator", Input{DirectCost: 10, VariableRate: 0.5, TargetMarginPct: 50}},
		{"negative denominator", Input{DirectCost: 10, VariableRate: 0.6, TargetMarginPct: 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Solve(tt.in)
			assert.False(t, got.Feasible)
			assert.Equal(t, ReasonInfeasible, got.Reason)
			assert.Zero(t, got.Price)
			assert.Zero(t, got.Profit)
		})
	}
}

func TestFloorPriceUsesMinimumMargin(t *testing.T) {
	t.Parallel()
	in := Input{DirectCost: 25, FixedFee: 6, VariableRate: 0.29, TargetMarginPct: 30}

	floor := FloorPrice(in, 10)
	require.True(t, floor.Feasible)
	assert.InDelta(t, 31/0.61, floor.Price, 1e-9)
	assert.InDelta(t, floor.Price*0.10, floor.Profit, 1e-9)

	q := Quote(in, 10)
	assert.Equal(t, Solve(in), q.Suggested)
	assert.Equal(t, floor, q.Floor)
	assert.Less(t, q.Floor.Price, q.Suggested.Price)
}

func TestInputValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Input{DirectCost: 1, VariableRate: 0.2, TargetMarginPct: 30}.Validate())
	assert.True(t, model.IsValidation(Input{DirectCost: -1}.Validate()))
	assert.True(t, model.IsValidation(Input{VariableRate: 1.2}.Validate()))
	assert.True(t, model.IsValidation(Input{TargetMarginPct: 100}.Validate()))
}

// Solving for a target and pricing the row at the solved price must give
// back the target net margin.
func TestSolveRoundTripsThroughMargin(t *testing.T) {
	t.Parallel()
	calc := margin.NewCalculator(commission.NewRules(feetable.Default(), config.DefaultMarketplaces()))
	rng := rand.New(rand.NewPCG(3, 5))

	for i := 0; i < 200; i++ {
		market := config.MarketplaceConfig{
			Slug:           "flat",
			CommissionKind: config.CommissionFlat,
			CommissionRate: rng.Float64() * 0.25,
			FixedFee:       rng.Float64() * 10,
			ReturnRate:     rng.Float64() * 0.05,
		}
		regime := config.TaxRegimeConfig{Slug: "r", Components: []config.TaxComponent{
			{Name: "a", Rate: rng.Float64() * 0.1},
			{Name: "b", Rate: rng.Float64() * 0.1},
		}}
		p := margin.Params{
			AdRate:             rng.Float64() * 0.1,
			FixedOperatingCost: rng.Float64() * 3,
			TargetMarginPct:    rng.Float64() * 40,
			MinMarginPct:       0,
		}
		row := model.ProductRow{SKU: "RT", UnitCost: 1 + rng.Float64()*200, ShippingCost: rng.Float64() * 20}

		in := Input{
			DirectCost:      row.DirectCost(),
			FixedFee:        market.FixedFee + p.FixedOperatingCost,
			VariableRate:    market.CommissionRate + regime.Total() + p.AdRate + market.ReturnRate,
			TargetMarginPct: p.TargetMarginPct,
		}
		res := Solve(in)
		if !res.Feasible {
			continue
		}
		row.Price = res.Price
		priced, err := calc.ComputeRow(row, market, regime, p)
		require.NoError(t, err)
		assert.InDelta(t, p.TargetMarginPct, priced.NetMarginPct, 1e-6, "trial %d", i)
		assert.InDelta(t, res.Profit, priced.NetProfit, 1e-6, "trial %d", i)
	}
}

func TestIterateConvergesOnPriceDependentFee(t *testing.T) {
	t.Parallel()
	// Fee of 5 below 50, 10 from 50 on.
	feeAt := func(price float64) (float64, float64, error) {
		if price < 50 {
			return 5, 0.2, nil
		}
		return 10, 0.2, nil
	}
	in := Input{DirectCost: 20, FixedFee: 5, VariableRate: 0.2, TargetMarginPct: 30}

	closed := Solve(in)
	assert.InDelta(t, 50.0, closed.Price, 1e-9)

	it, err := Iterate(in, feeAt, 10, 1e-6)
	require.NoError(t, err)
	assert.True(t, it.Converged)
	assert.InDelta(t, 60.0, it.Price, 1e-9)
	assert.Equal(t, 2, it.Iterations)
}

func TestIterateReportsOscillation(t *testing.T) {
	t.Parallel()
	// Crossing 50 raises the fee enough to push the price back below it
	// and vice versa.
	feeAt := func(price float64) (float64, float64, error) {
		if price <= 50 {
			return 30, 0.2, nil
		}
		return 0, 0.2, nil
	}
	in := Input{DirectCost: 20, FixedFee: 0, VariableRate: 0.2, TargetMarginPct: 30}

	it, err := Iterate(in, feeAt, 6, 1e-6)
	require.NoError(t, err)
	assert.False(t, it.Converged)
	assert.Equal(t, 6, it.Iterations)
	assert.True(t, it.Feasible)
}

func TestIterateFeeError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Iterate(Input{DirectCost: 1, TargetMarginPct: 10}, func(float64) (float64, float64, error) {
		return 0, 0, boom
	}, 3, 1e-6)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}

func TestIterateStopsWhenInfeasible(t *testing.T) {
	t.Parallel()
	it, err := Iterate(Input{DirectCost: 10, VariableRate: 0.2, TargetMarginPct: 30}, func(float64) (float64, float64, error) {
		return 0, 0.9, nil
	}, 5, 1e-6)
	require.NoError(t, err)
	assert.False(t, it.Feasible)
	assert.Equal(t, ReasonInfeasible, it.Reason)
	assert.Equal(t, 2, it.Iterations)
}
