// Package margin computes the forward economics of a listing: fees, taxes,
// profit, margins and a health status for a product at its current price.
package margin

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/carblue/pricing-cli/internal/category"
	"github.com/carblue/pricing-cli/internal/commission"
	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/feetable"
	"github.com/carblue/pricing-cli/internal/model"
)

// Fallback kinds recorded on PricedRow.Fallbacks as "kind:detail".
const (
	FallbackWeight   = "weight"
	FallbackPrice    = "price"
	FallbackTier     = "tier"
	FallbackCategory = "category"
	FallbackGroup    = "group"
)

// Params are the batch-wide cost parameters. Margins are percentages,
// rates are fractions of price.
type Params struct {
	AdRate             float64
	FixedOperatingCost float64
	// ReturnRate overrides the marketplace return rate when set.
	ReturnRate      *float64
	TargetMarginPct float64
	MinMarginPct    float64
}

// ParamsFromConfig builds Params from the pricing section of the config.
func ParamsFromConfig(p config.PricingConfig) Params {
	return Params{
		AdRate:             p.AdRate,
		FixedOperatingCost: p.FixedOperatingCost,
		ReturnRate:         p.ReturnRate,
		TargetMarginPct:    p.TargetMarginPct,
		MinMarginPct:       p.MinMarginPct,
	}
}

// Calculator prices rows. It holds no per-call state.
type Calculator struct {
	rules *commission.Rules
}

// NewCalculator returns a Calculator resolving commissions and fee tables
// through rules.
func NewCalculator(rules *commission.Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Fees is the price-dependent part of a listing's cost: the commission
// quote plus the fixed fee or free-shipping subsidy in effect at a price.
type Fees struct {
	Quote           commission.Quote
	Group           string
	FixedFee        float64
	ShippingSubsidy float64
	Fallbacks       []string
}

// VariableRate is the share of price charged as commission net of credit.
func (f Fees) VariableRate() float64 {
	return f.Quote.Rate - f.Quote.CreditRate
}

// Fees resolves the commission and fixed charges for row at price.
func (c *Calculator) Fees(row model.ProductRow, market config.MarketplaceConfig, price float64) (Fees, error) {
	q, err := c.rules.QuoteFor(market, row.Category, row.AdTier, price)
	if err != nil {
		return Fees{}, err
	}
	f := Fees{Quote: q, Group: category.Group(row.Category)}
	if !q.CategoryKnown {
		f.Fallbacks = append(f.Fallbacks, FallbackCategory+":"+row.Category)
	}
	if q.Tier.Fallback {
		f.Fallbacks = append(f.Fallbacks, FallbackTier+":"+q.Tier.Table)
	}

	switch {
	case market.FeeMatrix != "":
		m, key, ok := c.matrix(market.FeeMatrix, f.Group)
		if !ok {
			return Fees{}, model.NewValidationError(market.Slug, "no fee matrix %q in catalog %s", feetable.Key(market.FeeMatrix, f.Group), c.rules.Catalog().Version())
		}
		if key != feetable.Key(market.FeeMatrix, f.Group) {
			f.Fallbacks = append(f.Fallbacks, FallbackGroup+":"+f.Group)
		}
		v, res, err := m.Resolve(row.WeightKg, price)
		if err != nil {
			return Fees{}, eris.Wrapf(err, "margin: resolve %s", key)
		}
		if res.Weight.Fallback {
			f.Fallbacks = append(f.Fallbacks, FallbackWeight+":"+res.Weight.Table)
		}
		if res.Price.Fallback {
			f.Fallbacks = append(f.Fallbacks, FallbackPrice+":"+res.Price.Table)
		}
		if market.FreeShippingThreshold > 0 && price >= market.FreeShippingThreshold {
			f.ShippingSubsidy = v
		} else {
			f.FixedFee = capLowPrice(market.LowPriceCaps, f.Group, price, v)
		}
	case q.Source == commission.SourcePriceTier:
		f.FixedFee = q.FixedAmount
	default:
		f.FixedFee = market.FixedFee
	}
	return f, nil
}

func (c *Calculator) matrix(prefix, group string) (*feetable.Matrix, string, bool) {
	key := feetable.Key(prefix, group)
	if m, ok := c.rules.Catalog().Matrix(key); ok {
		return m, key, true
	}
	key = feetable.Key(prefix, category.GroupGeneral)
	m, ok := c.rules.Catalog().Matrix(key)
	return m, key, ok
}

func capLowPrice(caps []config.LowPriceCap, group string, price, fee float64) float64 {
	for _, cp := range caps {
		if cp.Group == group && price < cp.Below {
			fee = min(fee, price*cp.MaxShare)
		}
	}
	return fee
}

// ComputeRow prices one row. A row with price <= 0 is returned zeroed with
// status Loss; invalid rows are rejected with a ValidationError.
func (c *Calculator) ComputeRow(row model.ProductRow, market config.MarketplaceConfig, regime config.TaxRegimeConfig, p Params) (model.PricedRow, error) {
	if err := row.Validate(); err != nil {
		return model.PricedRow{}, err
	}
	out := model.PricedRow{
		ProductRow:    row,
		Marketplace:   market.Slug,
		Regime:        regime.Slug,
		CategoryGroup: category.Group(row.Category),
		Status:        model.StatusLoss,
		Tier:          model.TierUnclassified,
	}
	price := row.Price
	if price <= 0 {
		return out, nil
	}

	fees, err := c.Fees(row, market, price)
	if err != nil {
		return model.PricedRow{}, eris.Wrapf(err, "margin: row %s", row.SKU)
	}
	returnRate := market.ReturnRate
	if p.ReturnRate != nil {
		returnRate = *p.ReturnRate
	}

	out.CategoryKnown = fees.Quote.CategoryKnown
	out.Fallbacks = fees.Fallbacks
	out.CommissionRate = fees.Quote.Rate
	out.TaxRate = regime.Total()

	out.DirectCost = row.DirectCost()
	out.CommissionValue = price * fees.Quote.Rate
	out.FixedFee = fees.FixedFee
	out.ShippingSubsidy = fees.ShippingSubsidy
	out.CreditValue = price * fees.Quote.CreditRate
	out.TaxValue = price * out.TaxRate
	out.AdValue = price * p.AdRate
	out.ReturnValue = price * returnRate
	out.FixedOperatingCost = p.FixedOperatingCost

	out.GrossProfit = price - out.DirectCost - out.CommissionValue - out.FixedFee - out.ShippingSubsidy - out.TaxValue + out.CreditValue
	out.NetProfit = out.GrossProfit - out.AdValue - out.ReturnValue - out.FixedOperatingCost
	out.GrossMarginPct = out.GrossProfit / price * 100
	out.NetMarginPct = out.NetProfit / price * 100
	out.Status = ClassifyHealth(out.NetMarginPct, p.TargetMarginPct, p.MinMarginPct)
	out.MaxDiscountPct = MaxDiscountPct(price, out.DirectCost, p.MinMarginPct)
	return out, nil
}

// ClassifyHealth maps a net margin to a health status: at or above target is
// healthy, between min and target is a warning, below min is a loss.
func ClassifyHealth(netMarginPct, targetPct, minPct float64) model.HealthStatus {
	switch {
	case netMarginPct >= targetPct:
		return model.StatusHealthy
	case netMarginPct >= minPct:
		return model.StatusWarning
	default:
		return model.StatusLoss
	}
}

// MaxDiscountPct is the largest discount, in percent, that keeps price above
// directCost / (1 - minMarginPct/100). Never negative.
func MaxDiscountPct(price, directCost, minMarginPct float64) float64 {
	if price <= 0 || minMarginPct >= 100 {
		return 0
	}
	floor := directCost / (1 - minMarginPct/100)
	return max(0, (price-floor)/price*100)
}

// FallbackKind splits a Fallbacks entry into its kind and detail.
func FallbackKind(entry string) (kind, detail string) {
	kind, detail, _ = strings.Cut(entry, ":")
	return kind, detail
}
