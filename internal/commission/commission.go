// Package commission resolves the commission a marketplace charges for a
// listing: a flat rate, a category × ad-tier rate, or a price-tiered tuple.
package commission

import (
	"github.com/rotisserie/eris"

	"github.com/carblue/pricing-cli/internal/category"
	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/feetable"
	"github.com/carblue/pricing-cli/internal/model"
)

// Source names the rule that produced a quote.
type Source string

const (
	SourceFlat            Source = "flat"
	SourceCategory        Source = "category"
	SourceCategoryDefault Source = "category_default"
	SourcePriceTier       Source = "price_tier"
)

// Quote is a resolved commission.
type Quote struct {
	Rate          float64             `json:"rate"`
	FixedAmount   float64             `json:"fixed_amount"`
	CreditRate    float64             `json:"credit_rate"`
	CategoryKnown bool                `json:"category_known"`
	Tier          feetable.Resolution `json:"tier"`
	Source        Source              `json:"source"`
}

// Rules resolves commissions against a fixed set of marketplaces and a fee
// catalog. It is read-only after construction and safe for concurrent use.
type Rules struct {
	catalog      *feetable.Catalog
	marketplaces map[string]config.MarketplaceConfig
	categories   map[string]map[string]config.CategoryRate
}

// NewRules indexes the marketplaces' category tables by normalized name.
func NewRules(cat *feetable.Catalog, marketplaces []config.MarketplaceConfig) *Rules {
	r := &Rules{
		catalog:      cat,
		marketplaces: make(map[string]config.MarketplaceConfig, len(marketplaces)),
		categories:   make(map[string]map[string]config.CategoryRate, len(marketplaces)),
	}
	for _, m := range marketplaces {
		r.marketplaces[m.Slug] = m
		if len(m.Categories) == 0 {
			continue
		}
		idx := make(map[string]config.CategoryRate, len(m.Categories))
		for _, c := range m.Categories {
			idx[category.Normalize(c.Name)] = c
		}
		r.categories[m.Slug] = idx
	}
	return r
}

// Catalog returns the fee catalog the rules resolve tiers against.
func (r *Rules) Catalog() *feetable.Catalog { return r.catalog }

// Marketplace returns the configuration of slug.
func (r *Rules) Marketplace(slug string) (config.MarketplaceConfig, bool) {
	m, ok := r.marketplaces[slug]
	return m, ok
}

// Quote resolves the commission for one listing at price.
func (r *Rules) Quote(marketplace, cat string, tier model.AdTier, price float64) (Quote, error) {
	m, ok := r.marketplaces[marketplace]
	if !ok {
		return Quote{}, eris.Wrapf(model.ErrUnknownMarketplace, "commission: %q", marketplace)
	}
	return r.QuoteFor(m, cat, tier, price)
}

// QuoteFor resolves the commission under an explicit marketplace config.
func (r *Rules) QuoteFor(m config.MarketplaceConfig, cat string, tier model.AdTier, price float64) (Quote, error) {
	switch m.CommissionKind {
	case config.CommissionCategory:
		if rate, ok := r.categoryRate(m, cat); ok {
			return Quote{Rate: pick(tier, rate.Classic, rate.Premium), CategoryKnown: true, Source: SourceCategory}, nil
		}
		return Quote{Rate: pick(tier, m.DefaultClassicRate, m.DefaultPremiumRate), Source: SourceCategoryDefault}, nil

	case config.CommissionPriceTiered:
		tiers, ok := r.catalog.Tiers(m.TierTable)
		if !ok {
			return Quote{}, model.NewValidationError(m.Slug, "tier table %q not in fee catalog %s", m.TierTable, r.catalog.Version())
		}
		t, res, err := tiers.Resolve(price)
		if err != nil {
			return Quote{}, eris.Wrapf(err, "commission: resolve %s tier", m.Slug)
		}
		return Quote{
			Rate:          t.Rate,
			FixedAmount:   t.FixedAmount,
			CreditRate:    t.CreditRate,
			CategoryKnown: true,
			Tier:          res,
			Source:        SourcePriceTier,
		}, nil

	default:
		return Quote{Rate: m.CommissionRate, CategoryKnown: true, Source: SourceFlat}, nil
	}
}

func (r *Rules) categoryRate(m config.MarketplaceConfig, cat string) (config.CategoryRate, bool) {
	key := category.Normalize(cat)
	if key == "" {
		return config.CategoryRate{}, false
	}
	if idx, ok := r.categories[m.Slug]; ok && len(idx) == len(m.Categories) {
		rate, ok := idx[key]
		return rate, ok
	}
	for _, c := range m.Categories {
		if category.Normalize(c.Name) == key {
			return c, true
		}
	}
	return config.CategoryRate{}, false
}

func pick(tier model.AdTier, classic, premium float64) float64 {
	if tier == model.AdTierPremium {
		return premium
	}
	return classic
}
