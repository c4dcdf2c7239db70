package feetable

import "sync"

// Default catalog keys.
const (
	MercadoLivre = "mercado_livre"
	Shopee       = "shopee"

	GroupGeneral     = "geral"
	GroupBooks       = "livros"
	GroupSupermarket = "supermercado"

	DefaultVersion = "2026-03"
)

// MercadoLivreFreeShippingThreshold is the price from which Mercado Livre
// stops charging the fixed fee and the seller subsidizes free shipping.
const MercadoLivreFreeShippingThreshold = 79.0

func f(v float64) *float64 { return &v }

var generalPriceUppers = []*float64{f(18.99), f(48.99), f(78.99), f(99.99), f(119.99), f(149.99), f(199.99), nil}

var generalPriceLabels = []string{
	"R$ 0-18,99", "R$ 19-48,99", "R$ 49-78,99", "R$ 79-99,99",
	"R$ 100-119,99", "R$ 120-149,99", "R$ 150-199,99", "A partir de R$ 200",
}

var supermarketPriceUppers = []*float64{f(18.99), f(28.99), f(48.99), f(78.99), f(98.99), f(198.99), nil}

var supermarketPriceLabels = []string{
	"R$ 0-18,99", "R$ 19-28,99", "R$ 29-48,99", "R$ 49-78,99",
	"R$ 79-98,99", "R$ 99-198,99", "A partir de R$ 199",
}

func priceRow(uppers []*float64, labels []string, values ...float64) []PriceSpec {
	out := make([]PriceSpec, len(values))
	for i, v := range values {
		out[i] = PriceSpec{Upper: uppers[i], Label: labels[i], Value: v}
	}
	return out
}

// DefaultSnapshot returns the 2026 Mercado Livre operating-cost matrices
// and the 2025 Shopee commission tiers.
func DefaultSnapshot() Snapshot {
	gen := func(values ...float64) []PriceSpec {
		return priceRow(generalPriceUppers, generalPriceLabels, values...)
	}
	sup := func(values ...float64) []PriceSpec {
		return priceRow(supermarketPriceUppers, supermarketPriceLabels, values...)
	}

	return Snapshot{
		Version: DefaultVersion,
		Matrices: map[string]MatrixSpec{
			Key(MercadoLivre, GroupGeneral): {Weights: []WeightSpec{
				{Upper: f(0.3), Label: "Até 0,3 kg", Prices: gen(5.65, 6.55, 7.75, 12.35, 14.35, 16.45, 18.45, 20.95)},
				{Upper: f(0.5), Label: "0,3 a 0,5 kg", Prices: gen(5.95, 6.65, 7.85, 13.25, 15.45, 17.65, 19.85, 22.55)},
				{Upper: f(1), Label: "0,5 a 1 kg", Prices: gen(6.05, 6.75, 7.95, 13.85, 16.15, 18.45, 20.75, 23.65)},
				{Upper: f(2), Label: "1 a 2 kg", Prices: gen(6.25, 6.95, 8.15, 14.45, 16.85, 19.25, 21.65, 24.65)},
			}},
			Key(MercadoLivre, GroupBooks): {Weights: []WeightSpec{
				{Upper: f(0.3), Label: "Até 0,3 kg", Prices: gen(2.83, 3.28, 3.88, 12.35, 14.35, 16.45, 18.45, 20.95)},
				{Upper: f(1), Label: "0,3 a 1 kg", Prices: gen(3.03, 3.38, 3.98, 13.85, 16.15, 18.45, 20.75, 23.65)},
			}},
			Key(MercadoLivre, GroupSupermarket): {Weights: []WeightSpec{
				{Upper: f(0.3), Label: "Até 0,3 kg", Prices: sup(1.25, 1.5, 2, 3, 4, 6, 20.95)},
				{Upper: f(1), Label: "0,3 a 1 kg", Prices: sup(1.25, 1.5, 2, 3, 4, 6, 23.65)},
			}},
		},
		Tiers: map[string][]TierSpec{
			Shopee: {
				{Upper: f(79.99), Label: "Até R$ 79,99", Rate: 0.20, Fixed: 4.0},
				{Upper: f(99.99), Label: "R$ 80,00 - R$ 99,99", Rate: 0.14, Fixed: 16.0, Credit: 0.05},
				{Upper: f(199.99), Label: "R$ 100,00 - R$ 199,99", Rate: 0.14, Fixed: 20.0, Credit: 0.05},
				{Upper: f(499.99), Label: "R$ 200,00 - R$ 499,99", Rate: 0.14, Fixed: 26.0, Credit: 0.05},
				{Label: "Acima de R$ 500,00", Rate: 0.14, Fixed: 26.0, Credit: 0.08},
			},
		},
	}
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := Build(DefaultSnapshot())
	if err != nil {
		panic("feetable: default snapshot is invalid: " + err.Error())
	}
	return c
})

// Default returns the built-in catalog. It is shared and read-only.
func Default() *Catalog {
	return defaultCatalog()
}
