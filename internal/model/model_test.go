package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductRowValidate(t *testing.T) {
	t.Parallel()

	valid := ProductRow{SKU: "MLB1", UnitCost: 20, ShippingCost: 5, Price: 100}

	tests := []struct {
		name      string
		mutate    func(p *ProductRow)
		wantField string
	}{
		{"valid row", func(p *ProductRow) {}, ""},
		{"zero price allowed", func(p *ProductRow) { p.Price = 0 }, ""},
		{"negative price allowed", func(p *ProductRow) { p.Price = -3 }, ""},
		{"missing sku", func(p *ProductRow) { p.SKU = "" }, "SKU"},
		{"negative unit cost", func(p *ProductRow) { p.UnitCost = -1 }, "UnitCost"},
		{"negative shipping", func(p *ProductRow) { p.ShippingCost = -0.01 }, "ShippingCost"},
		{"negative weight", func(p *ProductRow) { p.WeightKg = -2 }, "WeightKg"},
		{"NaN cost", func(p *ProductRow) { p.UnitCost = math.NaN() }, "UnitCost"},
		{"infinite price", func(p *ProductRow) { p.Price = math.Inf(1) }, "Price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			row := valid
			tt.mutate(&row)
			err := row.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestSalesRevenue(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 500.0, ProductRow{Price: 50, UnitsSold: 10}.SalesRevenue(), 1e-9)
	assert.InDelta(t, 42.0, ProductRow{Price: 50, UnitsSold: 10, Revenue: 42}.SalesRevenue(), 1e-9)
	assert.InDelta(t, 25.0, ProductRow{UnitCost: 20, ShippingCost: 5}.DirectCost(), 1e-9)
}

func TestParseAdTier(t *testing.T) {
	t.Parallel()
	assert.Equal(t, AdTierPremium, ParseAdTier(" Premium "))
	assert.Equal(t, AdTierClassic, ParseAdTier("Clássico"))
	assert.Equal(t, AdTierClassic, ParseAdTier(""))
}

func TestParseABCTier(t *testing.T) {
	t.Parallel()
	assert.Equal(t, TierA, ParseABCTier("a"))
	assert.Equal(t, TierC, ParseABCTier("C"))
	assert.Equal(t, TierUnclassified, ParseABCTier("Sem Curva"))
}

func TestWithTierCopiesFallbacks(t *testing.T) {
	t.Parallel()
	r := PricedRow{Fallbacks: []string{"weight"}}
	out := r.WithTier(TierB)
	out.Fallbacks[0] = "changed"
	assert.Equal(t, "weight", r.Fallbacks[0])
	assert.Equal(t, TierB, out.Tier)
	assert.Equal(t, ABCTier(""), r.Tier)
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "validation: UnitCost must be >= 0", (&ValidationError{Field: "UnitCost", Reason: "must be >= 0"}).Error())
	assert.Equal(t, "validation: empty catalog", NewValidationError("", "empty catalog").Error())
}
