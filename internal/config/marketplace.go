package config

import (
	"github.com/rotisserie/eris"

	"github.com/carblue/pricing-cli/internal/model"
)

// Marketplace slugs.
const (
	MercadoLivre = "mercado_livre"
	Shopee       = "shopee"
	Amazon       = "amazon"
	Magalu       = "magalu"
	Other        = "outros"
)

// Tax regime slugs.
const (
	SimplesNacional = "simples_nacional"
	LucroPresumido  = "lucro_presumido"
	LucroReal       = "lucro_real"
	MEI             = "mei"
)

// CommissionKind selects how a marketplace's commission rate is resolved.
type CommissionKind string

const (
	CommissionFlat        CommissionKind = "flat"
	CommissionCategory    CommissionKind = "category"
	CommissionPriceTiered CommissionKind = "price_tiered"
)

// CategoryRate is the commission pair of one category, per ad tier.
type CategoryRate struct {
	Name    string  `yaml:"name" mapstructure:"name" validate:"required"`
	Classic float64 `yaml:"classic" mapstructure:"classic" validate:"gte=0,lt=1"`
	Premium float64 `yaml:"premium" mapstructure:"premium" validate:"gte=0,lt=1"`
}

// LowPriceCap limits the fixed fee of cheap items in a category group to a
// share of the price.
type LowPriceCap struct {
	Group    string  `yaml:"group" mapstructure:"group" validate:"required"`
	Below    float64 `yaml:"below" mapstructure:"below" validate:"gt=0"`
	MaxShare float64 `yaml:"max_share" mapstructure:"max_share" validate:"gt=0,lte=1"`
}

// MarketplaceConfig describes how one marketplace charges a seller.
type MarketplaceConfig struct {
	Slug           string         `yaml:"slug" mapstructure:"slug" validate:"required"`
	Name           string         `yaml:"name" mapstructure:"name"`
	CommissionKind CommissionKind `yaml:"commission_kind" mapstructure:"commission_kind" validate:"oneof=flat category price_tiered"`
	CommissionRate float64        `yaml:"commission_rate" mapstructure:"commission_rate" validate:"gte=0,lt=1"`
	FixedFee       float64        `yaml:"fixed_fee" mapstructure:"fixed_fee" validate:"gte=0"`
	ReturnRate     float64        `yaml:"return_rate" mapstructure:"return_rate" validate:"gte=0,lt=1"`

	// FeeMatrix is the catalog prefix of the weight × price matrices, one
	// per category group. Below FreeShippingThreshold the matrix gives the
	// fixed fee; at or above it, the free-shipping subsidy.
	FeeMatrix             string  `yaml:"fee_matrix" mapstructure:"fee_matrix"`
	FreeShippingThreshold float64 `yaml:"free_shipping_threshold" mapstructure:"free_shipping_threshold" validate:"gte=0"`

	// TierTable is the catalog key of a price-tiered commission table.
	TierTable string `yaml:"tier_table" mapstructure:"tier_table"`

	DefaultClassicRate float64        `yaml:"default_classic_rate" mapstructure:"default_classic_rate" validate:"gte=0,lt=1"`
	DefaultPremiumRate float64        `yaml:"default_premium_rate" mapstructure:"default_premium_rate" validate:"gte=0,lt=1"`
	Categories         []CategoryRate `yaml:"categories" mapstructure:"categories" validate:"dive"`
	LowPriceCaps       []LowPriceCap  `yaml:"low_price_caps" mapstructure:"low_price_caps" validate:"dive"`
}

// TaxComponent is one percentage-of-price tax.
type TaxComponent struct {
	Name string  `yaml:"name" mapstructure:"name" validate:"required"`
	Rate float64 `yaml:"rate" mapstructure:"rate" validate:"gte=0,lt=1"`
}

// TaxRegimeConfig is a named set of tax components.
type TaxRegimeConfig struct {
	Slug       string         `yaml:"slug" mapstructure:"slug" validate:"required"`
	Name       string         `yaml:"name" mapstructure:"name"`
	Components []TaxComponent `yaml:"components" mapstructure:"components" validate:"dive"`
}

// Total returns the summed tax rate.
func (r TaxRegimeConfig) Total() float64 {
	var sum float64
	for _, c := range r.Components {
		sum += c.Rate
	}
	return sum
}

// Marketplace returns the marketplace configured under slug.
func (c *Config) Marketplace(slug string) (MarketplaceConfig, bool) {
	for _, m := range c.Marketplaces {
		if m.Slug == slug {
			return m, true
		}
	}
	return MarketplaceConfig{}, false
}

// Regime returns the tax regime configured under slug.
func (c *Config) Regime(slug string) (TaxRegimeConfig, bool) {
	for _, r := range c.Regimes {
		if r.Slug == slug {
			return r, true
		}
	}
	return TaxRegimeConfig{}, false
}

// Validate checks the configuration for values the engine cannot price with.
func (c *Config) Validate() error {
	if err := model.ValidateStruct(c); err != nil {
		return eris.Wrap(err, "config: validate")
	}
	if c.Pricing.MinMarginPct > c.Pricing.TargetMarginPct {
		return model.NewValidationError("pricing.min_margin_pct", "must not exceed target_margin_pct")
	}
	if !(c.ABC.A <= c.ABC.B && c.ABC.B <= c.ABC.C) {
		return model.NewValidationError("abc", "limits must be ascending")
	}

	seen := make(map[string]bool, len(c.Marketplaces))
	for _, m := range c.Marketplaces {
		if seen[m.Slug] {
			return model.NewValidationError("marketplaces", "duplicate slug %q", m.Slug)
		}
		seen[m.Slug] = true
		switch m.CommissionKind {
		case CommissionPriceTiered:
			if m.TierTable == "" {
				return model.NewValidationError(m.Slug, "price_tiered commission needs tier_table")
			}
		case CommissionCategory:
			if m.DefaultClassicRate == 0 && m.DefaultPremiumRate == 0 {
				return model.NewValidationError(m.Slug, "category commission needs default rates")
			}
		}
	}

	seen = make(map[string]bool, len(c.Regimes))
	for _, r := range c.Regimes {
		if seen[r.Slug] {
			return model.NewValidationError("regimes", "duplicate slug %q", r.Slug)
		}
		seen[r.Slug] = true
	}

	if _, ok := c.Marketplace(c.Pricing.Marketplace); !ok {
		return eris.Wrapf(model.ErrUnknownMarketplace, "config: pricing.marketplace %q", c.Pricing.Marketplace)
	}
	if _, ok := c.Regime(c.Pricing.Regime); !ok {
		return eris.Wrapf(model.ErrUnknownRegime, "config: pricing.regime %q", c.Pricing.Regime)
	}
	return nil
}

// DefaultMarketplaces returns the 2026 marketplace set.
func DefaultMarketplaces() []MarketplaceConfig {
	return []MarketplaceConfig{
		{
			Slug:                  MercadoLivre,
			Name:                  "Mercado Livre",
			CommissionKind:        CommissionCategory,
			CommissionRate:        0.14,
			ReturnRate:            0.02,
			FeeMatrix:             "mercado_livre",
			FreeShippingThreshold: 79.0,
			DefaultClassicRate:    0.14,
			DefaultPremiumRate:    0.19,
			Categories:            DefaultMercadoLivreCategories(),
			LowPriceCaps: []LowPriceCap{
				{Group: "geral", Below: 19, MaxShare: 0.5},
				{Group: "livros", Below: 19, MaxShare: 0.5},
				{Group: "supermercado", Below: 29, MaxShare: 0.25},
			},
		},
		{
			Slug:           Shopee,
			Name:           "Shopee",
			CommissionKind: CommissionPriceTiered,
			CommissionRate: 0.20,
			ReturnRate:     0.02,
			TierTable:      "shopee",
		},
		{Slug: Amazon, Name: "Amazon", CommissionKind: CommissionFlat, CommissionRate: 0.15, ReturnRate: 0.02},
		{Slug: Magalu, Name: "Magalu", CommissionKind: CommissionFlat, CommissionRate: 0.18, ReturnRate: 0.02},
		{Slug: Other, Name: "Outros", CommissionKind: CommissionFlat, CommissionRate: 0.18, ReturnRate: 0.02},
	}
}

// DefaultMercadoLivreCategories returns the 2026 category commission table.
func DefaultMercadoLivreCategories() []CategoryRate {
	return []CategoryRate{
		{"Acessórios para Veículos", 0.12, 0.17},
		{"Agro", 0.115, 0.165},
		{"Alimentos e Bebidas", 0.14, 0.19},
		{"Antiguidades e Coleções", 0.115, 0.165},
		{"Arte, Papelaria e Armarinho", 0.115, 0.165},
		{"Bebês", 0.14, 0.19},
		{"Beleza e Cuidado Pessoal", 0.14, 0.19},
		{"Brinquedos e Hobbies", 0.115, 0.165},
		{"Calçados, Roupas e Bolsas", 0.14, 0.19},
		{"Câmeras e Acessórios", 0.11, 0.16},
		{"Casa, Móveis e Decoração", 0.115, 0.165},
		{"Construção", 0.115, 0.165},
		{"Eletrodomésticos", 0.11, 0.16},
		{"Eletrônicos, Áudio e Vídeo", 0.13, 0.18},
		{"Esportes e Fitness", 0.14, 0.19},
		{"Festas e Lembrancinhas", 0.115, 0.165},
		{"Games", 0.13, 0.18},
		{"Informática", 0.11, 0.16},
		{"Indústria e Comércio", 0.12, 0.17},
		{"Ingressos", 0.115, 0.165},
		{"Instrumentos Musicais", 0.115, 0.165},
		{"Joias e Relógios", 0.125, 0.175},
		{"Livros, Revistas e Comics", 0.12, 0.17},
		{"Música, Filmes e Seriados", 0.12, 0.17},
		{"Pet Shop", 0.125, 0.175},
		{"Saúde", 0.12, 0.17},
	}
}

// DefaultRegimes returns the Brazilian tax regimes with the 2026 IBS/CBS
// transition rates.
func DefaultRegimes() []TaxRegimeConfig {
	transition := func(encargos float64) []TaxComponent {
		return []TaxComponent{
			{Name: "ibs", Rate: 0.001},
			{Name: "cbs", Rate: 0.009},
			{Name: "encargos", Rate: encargos},
		}
	}
	return []TaxRegimeConfig{
		{Slug: SimplesNacional, Name: "Simples Nacional", Components: transition(0.04)},
		{Slug: LucroPresumido, Name: "Lucro Presumido", Components: transition(0.13)},
		{Slug: LucroReal, Name: "Lucro Real", Components: transition(0.18)},
		{Slug: MEI, Name: "MEI", Components: []TaxComponent{}},
	}
}
