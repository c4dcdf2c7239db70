package model

// HealthStatus classifies a priced row against the configured margin thresholds.
type HealthStatus string

const (
	StatusHealthy HealthStatus = "healthy"
	StatusWarning HealthStatus = "warning"
	StatusLoss    HealthStatus = "loss"
)

// ABCTier is the Pareto class of a row within its catalog.
type ABCTier string

const (
	TierA            ABCTier = "A"
	TierB            ABCTier = "B"
	TierC            ABCTier = "C"
	TierUnclassified ABCTier = "unclassified"
)

// ParseABCTier maps a tier label to an ABCTier.
func ParseABCTier(s string) ABCTier {
	switch s {
	case "A", "a":
		return TierA
	case "B", "b":
		return TierB
	case "C", "c":
		return TierC
	default:
		return TierUnclassified
	}
}

// PricedRow is the engine's immutable output for one ProductRow.
type PricedRow struct {
	ProductRow

	Marketplace   string `json:"marketplace"`
	Regime        string `json:"regime"`
	CategoryGroup string `json:"category_group,omitempty"`
	CategoryKnown bool   `json:"category_known"`

	DirectCost         float64 `json:"direct_cost"`
	CommissionRate     float64 `json:"commission_rate"`
	CommissionValue    float64 `json:"commission_value"`
	FixedFee           float64 `json:"fixed_fee"`
	ShippingSubsidy    float64 `json:"shipping_subsidy"`
	CreditValue        float64 `json:"credit_value"`
	TaxRate            float64 `json:"tax_rate"`
	TaxValue           float64 `json:"tax_value"`
	AdValue            float64 `json:"ad_value"`
	ReturnValue        float64 `json:"return_value"`
	FixedOperatingCost float64 `json:"fixed_operating_cost"`

	GrossProfit    float64      `json:"gross_profit"`
	NetProfit      float64      `json:"net_profit"`
	GrossMarginPct float64      `json:"gross_margin_pct"`
	NetMarginPct   float64      `json:"net_margin_pct"`
	MaxDiscountPct float64      `json:"max_discount_pct"`
	Status         HealthStatus `json:"status"`
	Tier           ABCTier      `json:"tier"`

	// Fallbacks lists the fee tables that resolved past their last bracket.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// WithTier returns a copy of the row carrying the given ABC tier.
func (r PricedRow) WithTier(t ABCTier) PricedRow {
	out := r
	if len(r.Fallbacks) > 0 {
		out.Fallbacks = append([]string(nil), r.Fallbacks...)
	}
	out.Tier = t
	return out
}

// RowFailure reports a row the engine could not price. Batches keep going.
type RowFailure struct {
	Index int    `json:"index"`
	SKU   string `json:"sku"`
	Error string `json:"error"`
}
