package margin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carblue/pricing-cli/internal/commission"
	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/feetable"
	"github.com/carblue/pricing-cli/internal/model"
)

func newCalculator() *Calculator {
	return NewCalculator(commission.NewRules(feetable.Default(), config.DefaultMarketplaces()))
}

func marketplace(t *testing.T, slug string) config.MarketplaceConfig {
	t.Helper()
	for _, m := range config.DefaultMarketplaces() {
		if m.Slug == slug {
			return m
		}
	}
	t.Fatalf("no marketplace %s", slug)
	return config.MarketplaceConfig{}
}

func regime(t *testing.T, slug string) config.TaxRegimeConfig {
	t.Helper()
	for _, r := range config.DefaultRegimes() {
		if r.Slug == slug {
			return r
		}
	}
	t.Fatalf("no regime %s", slug)
	return config.TaxRegimeConfig{}
}

func flatMarket(rate float64) config.MarketplaceConfig {
	return config.MarketplaceConfig{Slug: "flat", CommissionKind: config.CommissionFlat, CommissionRate: rate}
}

func flatRegime(rate float64) config.TaxRegimeConfig {
	return config.TaxRegimeConfig{Slug: "flat", Components: []config.TaxComponent{{Name: "all", Rate: rate}}}
}

func zero() *float64 {
	z := 0.0
	return &z
}

func TestComputeRowScenarioWithTaxes(t *testing.T) {
	t.Parallel()
	row := model.ProductRow{SKU: "S1", UnitCost: 20, ShippingCost: 5, Price: 100}
	p := Params{AdRate: 0.03, ReturnRate: zero(), TargetMarginPct: 30, MinMarginPct: 10}

	got, err := newCalculator().ComputeRow(row, flatMarket(0.14), flatRegime(0.05), p)
	require.NoError(t, err)

	assert.InDelta(t, 25.0, got.DirectCost, 1e-9)
	assert.InDelta(t, 14.0, got.CommissionValue, 1e-9)
	assert.InDelta(t, 0.0, got.FixedFee, 1e-9)
	assert.InDelta(t, 5.0, got.TaxValue, 1e-9)
	assert.InDelta(t, 3.0, got.AdValue, 1e-9)
	assert.InDelta(t, 56.0, got.GrossProfit, 1e-9)
	assert.InDelta(t, 56.0, got.GrossMarginPct, 1e-9)
	assert.InDelta(t, 53.0, got.NetProfit, 1e-9)
	assert.InDelta(t, 53.0, got.NetMarginPct, 1e-9)
	assert.Equal(t, model.StatusHealthy, got.Status)
}

// Without taxes the same row yields 61 gross and 58 net.
func TestComputeRowScenarioWithoutTaxes(t *testing.T) {
	t.Parallel()
	row := model.ProductRow{SKU: "S1", UnitCost: 20, ShippingCost: 5, Price: 100}
	p := Params{AdRate: 0.03, ReturnRate: zero(), TargetMarginPct: 30, MinMarginPct: 10}

	got, err := newCalculator().ComputeRow(row, flatMarket(0.14), flatRegime(0), p)
	require.NoError(t, err)
	assert.InDelta(t, 61.0, got.GrossProfit, 1e-9)
	assert.InDelta(t, 61.0, got.GrossMarginPct, 1e-9)
	assert.InDelta(t, 58.0, got.NetProfit, 1e-9)
	assert.InDelta(t, 58.0, got.NetMarginPct, 1e-9)
}

func TestComputeRowZeroPrice(t *testing.T) {
	t.Parallel()
	for _, price := range []float64{0, -10} {
		row := model.ProductRow{SKU: "Z", UnitCost: 20, ShippingCost: 5, Price: price}
		got, err := newCalculator().ComputeRow(row, marketplace(t, config.MercadoLivre), regime(t, config.SimplesNacional), Params{AdRate: 0.03, TargetMarginPct: 30, MinMarginPct: 10})
		require.NoError(t, err)

		assert.Equal(t, model.StatusLoss, got.Status)
		assert.Zero(t, got.DirectCost)
		assert.Zero(t, got.CommissionValue)
		assert.Zero(t, got.FixedFee)
		assert.Zero(t, got.TaxValue)
		assert.Zero(t, got.GrossProfit)
		assert.Zero(t, got.NetProfit)
		assert.Zero(t, got.GrossMarginPct)
		assert.Zero(t, got.NetMarginPct)
		assert.Zero(t, got.MaxDiscountPct)
		assert.Equal(t, row, got.ProductRow)
	}
}

func TestComputeRowMercadoLivreBelowThreshold(t *testing.T) {
	t.Parallel()
	row := model.ProductRow{SKU: "ML1", UnitCost: 15, ShippingCost: 5, Price: 45, WeightKg: 0.25, Category: "Agro", AdTier: model.AdTierClassic}
	got, err := newCalculator().ComputeRow(row, marketplace(t, config.MercadoLivre), regime(t, config.SimplesNacional), Params{AdRate: 0.03, TargetMarginPct: 30, MinMarginPct: 10})
	require.NoError(t, err)

	assert.True(t, got.CategoryKnown)
	assert.Equal(t, "geral", got.CategoryGroup)
	assert.InDelta(t, 0.115, got.CommissionRate, 1e-9)
	assert.InDelta(t, 5.175, got.CommissionValue, 1e-9)
	assert.InDelta(t, 6.55, got.FixedFee, 1e-9)
	assert.Zero(t, got.ShippingSubsidy)
	assert.InDelta(t, 2.25, got.TaxValue, 1e-9)
	assert.InDelta(t, 0.9, got.ReturnValue, 1e-9)
	assert.InDelta(t, 11.025, got.GrossProfit, 1e-9)
	assert.InDelta(t, 8.775, got.NetProfit, 1e-9)
	assert.InDelta(t, 19.5, got.NetMarginPct, 1e-9)
	assert.Equal(t, model.StatusWarning, got.Status)
	assert.Empty(t, got.Fallbacks)
}

func TestComputeRowMercadoLivreFreeShipping(t *testing.T) {
	t.Parallel()
	row := model.ProductRow{SKU: "ML2", UnitCost: 45, ShippingCost: 5, Price: 150, WeightKg: 0.4, Category: "Informática", AdTier: model.AdTierPremium}
	got, err := newCalculator().ComputeRow(row, marketplace(t, config.MercadoLivre), regime(t, config.SimplesNacional), Params{TargetMarginPct: 30, MinMarginPct: 10, ReturnRate: zero()})
	require.NoError(t, err)

	assert.InDelta(t, 0.16, got.CommissionRate, 1e-9)
	assert.Zero(t, got.FixedFee)
	assert.InDelta(t, 19.85, got.ShippingSubsidy, 1e-9)
	assert.InDelta(t, 48.65, got.GrossProfit, 1e-9)
}

func TestComputeRowFreeShippingStartsAtThreshold(t *testing.T) {
	t.Parallel()
	calc := newCalculator()
	ml := marketplace(t, config.MercadoLivre)

	below, err := calc.Fees(model.ProductRow{SKU: "B", Price: 78.99, WeightKg: 0.3}, ml, 78.99)
	require.NoError(t, err)
	assert.InDelta(t, 7.75, below.FixedFee, 1e-9)
	assert.Zero(t, below.ShippingSubsidy)

	at, err := calc.Fees(model.ProductRow{SKU: "A", Price: 79, WeightKg: 0.3}, ml, 79)
	require.NoError(t, err)
	assert.Zero(t, at.FixedFee)
	assert.InDelta(t, 12.35, at.ShippingSubsidy, 1e-9)
}

func TestFeesCategoryGroups(t *testing.T) {
	t.Parallel()
	calc := newCalculator()
	ml := marketplace(t, config.MercadoLivre)

	tests := []struct {
		name    string
		row     model.ProductRow
		wantFee float64
		wantGrp string
	}{
		{"books", model.ProductRow{Category: "Livros, Revistas e Comics", WeightKg: 0.3, Price: 30}, 3.28, "livros"},
		{"books heavier", model.ProductRow{Category: "Livros, Revistas e Comics", WeightKg: 0.5, Price: 35}, 3.38, "livros"},
		{"supermarket", model.ProductRow{Category: "Alimentos e Bebidas", WeightKg: 0.3, Price: 25}, 1.5, "supermercado"},
		{"general cap below 19", model.ProductRow{Category: "Agro", WeightKg: 0.25, Price: 10}, 5, "geral"},
		{"supermarket cap below 29", model.ProductRow{Category: "Alimentos e Bebidas", WeightKg: 0.25, Price: 4}, 1, "supermercado"},
		{"general no cap", model.ProductRow{Category: "Agro", WeightKg: 0.25, Price: 12}, 5.65, "geral"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := calc.Fees(tt.row, ml, tt.row.Price)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantFee, f.FixedFee, 1e-9)
			assert.Equal(t, tt.wantGrp, f.Group)
		})
	}
}

func TestComputeRowShopeeCredit(t *testing.T) {
	t.Parallel()
	row := model.ProductRow{SKU: "SH1", UnitCost: 25, ShippingCost: 5, Price: 89.90}
	got, err := newCalculator().ComputeRow(row, marketplace(t, config.Shopee), regime(t, config.MEI), Params{ReturnRate: zero(), TargetMarginPct: 30, MinMarginPct: 10})
	require.NoError(t, err)

	assert.InDelta(t, 0.14, got.CommissionRate, 1e-9)
	assert.InDelta(t, 16.0, got.FixedFee, 1e-9)
	assert.InDelta(t, 4.495, got.CreditValue, 1e-9)
	assert.InDelta(t, 89.90-30-12.586-16+4.495, got.GrossProfit, 1e-9)
}

func TestComputeRowFallbacks(t *testing.T) {
	t.Parallel()
	row := model.ProductRow{SKU: "HEAVY", UnitCost: 10, Price: 50, WeightKg: 3.2, Category: "Categoria Inventada"}
	got, err := newCalculator().ComputeRow(row, marketplace(t, config.MercadoLivre), regime(t, config.SimplesNacional), Params{TargetMarginPct: 30, MinMarginPct: 10})
	require.NoError(t, err)

	assert.False(t, got.CategoryKnown)
	assert.InDelta(t, 0.14, got.CommissionRate, 1e-9)
	assert.InDelta(t, 8.15, got.FixedFee, 1e-9)
	assert.Contains(t, got.Fallbacks, "category:Categoria Inventada")
	assert.Contains(t, got.Fallbacks, "weight:mercado_livre/geral")

	kind, detail := FallbackKind(got.Fallbacks[1])
	assert.Equal(t, FallbackWeight, kind)
	assert.Equal(t, "mercado_livre/geral", detail)
}

func TestFeesMissingGroupMatrixFallsBackToGeneral(t *testing.T) {
	t.Parallel()
	snap := feetable.DefaultSnapshot()
	delete(snap.Matrices, feetable.Key(feetable.MercadoLivre, feetable.GroupBooks))
	cat, err := feetable.Build(snap)
	require.NoError(t, err)

	calc := NewCalculator(commission.NewRules(cat, config.DefaultMarketplaces()))
	f, err := calc.Fees(model.ProductRow{Category: "Livros, Revistas e Comics", WeightKg: 0.3, Price: 30}, marketplace(t, config.MercadoLivre), 30)
	require.NoError(t, err)
	assert.InDelta(t, 6.55, f.FixedFee, 1e-9)
	assert.Contains(t, f.Fallbacks, "group:livros")
}

func TestComputeRowValidation(t *testing.T) {
	t.Parallel()
	calc := newCalculator()
	ml := marketplace(t, config.MercadoLivre)
	sn := regime(t, config.SimplesNacional)

	for _, row := range []model.ProductRow{
		{SKU: "NEG", UnitCost: -1, Price: 10},
		{SKU: "SHIP", ShippingCost: -0.5, Price: 10},
		{SKU: "W", WeightKg: -1, Price: 10},
		{UnitCost: 1, Price: 10},
	} {
		_, err := calc.ComputeRow(row, ml, sn, Params{})
		require.Error(t, err, row.SKU)
		assert.True(t, model.IsValidation(err), row.SKU)
	}
}

func TestComputeRowIdempotent(t *testing.T) {
	t.Parallel()
	calc := newCalculator()
	row := model.ProductRow{SKU: "I", UnitCost: 12, ShippingCost: 3, Price: 59.9, WeightKg: 2.5, Category: "x"}
	p := Params{AdRate: 0.05, FixedOperatingCost: 1.5, TargetMarginPct: 25, MinMarginPct: 5}

	a, err := calc.ComputeRow(row, marketplace(t, config.MercadoLivre), regime(t, config.LucroReal), p)
	require.NoError(t, err)
	b, err := calc.ComputeRow(row, marketplace(t, config.MercadoLivre), regime(t, config.LucroReal), p)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestClassifyHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		net  float64
		want model.HealthStatus
	}{
		{35, model.StatusHealthy},
		{30, model.StatusHealthy},
		{29.999, model.StatusWarning},
		{10, model.StatusWarning},
		{9.99, model.StatusLoss},
		{-50, model.StatusLoss},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyHealth(tt.net, 30, 10), "net %.3f", tt.net)
	}
}

func TestMaxDiscountPct(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 44.4444, MaxDiscountPct(100, 50, 10), 1e-3)
	assert.Zero(t, MaxDiscountPct(50, 60, 10))
	assert.Zero(t, MaxDiscountPct(0, 10, 10))
	assert.Zero(t, MaxDiscountPct(100, 10, 100))
}

func TestParamsFromConfig(t *testing.T) {
	t.Parallel()
	r := 0.04
	p := ParamsFromConfig(config.PricingConfig{AdRate: 0.03, FixedOperatingCost: 2, ReturnRate: &r, TargetMarginPct: 30, MinMarginPct: 10})
	assert.InDelta(t, 0.03, p.AdRate, 1e-9)
	require.NotNil(t, p.ReturnRate)
	assert.InDelta(t, 0.04, *p.ReturnRate, 1e-9)
	assert.InDelta(t, 30.0, p.TargetMarginPct, 1e-9)
}
