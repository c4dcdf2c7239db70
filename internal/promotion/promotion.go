// Package promotion applies discounts to priced rows and reports the
// aggregate impact. Which rows are discounted is decided by a caller
// supplied Filter.
package promotion

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/carblue/pricing-cli/internal/model"
)

// Discounted is one row after a discount.
type Discounted struct {
	// Index is the position of the source row in the input slice.
	Index           int                `json:"index"`
	SKU             string             `json:"sku"`
	Description     string             `json:"description,omitempty"`
	Tier            model.ABCTier      `json:"tier"`
	Status          model.HealthStatus `json:"status"`
	OriginalPrice   float64            `json:"original_price"`
	DiscountedPrice float64            `json:"discounted_price"`
	DiscountAmount  float64            `json:"discount_amount"`
	DiscountPct     float64            `json:"discount_pct"`
	MaxDiscountPct  float64            `json:"max_discount_pct"`
	FloorPrice      float64            `json:"floor_price,omitempty"`
	Safe            bool               `json:"safe"`
}

// TierImpact is the discount total of one ABC tier.
type TierImpact struct {
	Tier          model.ABCTier `json:"tier"`
	ItemCount     int           `json:"item_count"`
	TotalDiscount float64       `json:"total_discount"`
}

// Impact summarizes a promotion. All fields are zero when nothing was
// selected.
type Impact struct {
	ItemCount          int          `json:"item_count"`
	TotalDiscount      float64      `json:"total_discount"`
	AvgDiscount        float64      `json:"avg_discount"`
	AvgOriginalPrice   float64      `json:"avg_original_price"`
	AvgDiscountedPrice float64      `json:"avg_discounted_price"`
	AvgDiscountPct     float64      `json:"avg_discount_pct"`
	UnsafeCount        int          `json:"unsafe_count"`
	ByTier             []TierImpact `json:"by_tier,omitempty"`
}

// Result is the discounted selection and its impact.
type Result struct {
	Rows   []Discounted `json:"rows"`
	Impact Impact       `json:"impact"`
}

// FloorFunc returns the promotional floor price of a row, if known.
type FloorFunc func(model.PricedRow) (float64, bool)

// TierRules maps ABC tiers to discount fractions.
type TierRules map[model.ABCTier]float64

// Calculator applies discounts. Floor, when set, supplies the floor price
// that marks a discounted row safe; otherwise the row's MaxDiscountPct does.
type Calculator struct {
	Floor FloorFunc
}

// Apply discounts the rows selected by filter with the default Calculator.
func Apply(rows []model.PricedRow, discount float64, filter Filter) (Result, error) {
	return Calculator{}.Apply(rows, discount, filter)
}

// ApplyRules discounts each row by the rule of its tier with the default
// Calculator.
func ApplyRules(rows []model.PricedRow, rules TierRules, filter Filter) (Result, error) {
	return Calculator{}.ApplyRules(rows, rules, filter)
}

// Apply discounts the rows selected by filter by discount, a fraction in
// [0, 1).
func (c Calculator) Apply(rows []model.PricedRow, discount float64, filter Filter) (Result, error) {
	if err := checkDiscount(discount); err != nil {
		return Result{}, err
	}
	return c.apply(rows, filter, func(model.PricedRow) (float64, bool) { return discount, true })
}

// ApplyRules discounts each selected row by its tier's rule. Rows whose
// tier has no rule, or a zero rule, are skipped.
func (c Calculator) ApplyRules(rows []model.PricedRow, rules TierRules, filter Filter) (Result, error) {
	for _, d := range rules {
		if err := checkDiscount(d); err != nil {
			return Result{}, err
		}
	}
	return c.apply(rows, filter, func(r model.PricedRow) (float64, bool) {
		d, ok := rules[r.Tier]
		return d, ok && d > 0
	})
}

func checkDiscount(d float64) error {
	if math.IsNaN(d) || d < 0 || d >= 1 {
		return model.NewValidationError("discount", "must be in [0, 1), got %v", d)
	}
	return nil
}

func (c Calculator) apply(rows []model.PricedRow, filter Filter, discountOf func(model.PricedRow) (float64, bool)) (Result, error) {
	if filter == nil {
		filter = All()
	}
	res := Result{Rows: []Discounted{}}
	for i, r := range rows {
		if !filter(r) {
			continue
		}
		d, ok := discountOf(r)
		if !ok {
			continue
		}
		out := c.discount(r, d)
		out.Index = i
		res.Rows = append(res.Rows, out)
	}
	res.Impact = summarize(res.Rows)
	return res, nil
}

func (c Calculator) discount(r model.PricedRow, d float64) Discounted {
	original := decimal.NewFromFloat(r.Price)
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(d))
	discounted := original.Mul(factor).Round(2)

	out := Discounted{
		SKU:             r.SKU,
		Description:     r.Description,
		Tier:            r.Tier,
		Status:          r.Status,
		OriginalPrice:   r.Price,
		DiscountedPrice: discounted.InexactFloat64(),
		DiscountAmount:  original.Sub(discounted).InexactFloat64(),
		DiscountPct:     d * 100,
		MaxDiscountPct:  r.MaxDiscountPct,
	}
	if c.Floor != nil {
		if floor, ok := c.Floor(r); ok {
			out.FloorPrice = floor
			out.Safe = out.DiscountedPrice >= floor
			return out
		}
	}
	out.Safe = out.DiscountPct <= r.MaxDiscountPct+1e-9
	return out
}

// RoundPrice rounds a price half-up to two decimals.
func RoundPrice(p float64) float64 {
	return decimal.NewFromFloat(p).Round(2).InexactFloat64()
}

func summarize(rows []Discounted) Impact {
	if len(rows) == 0 {
		return Impact{}
	}
	var total, orig, disc decimal.Decimal
	var pct float64
	imp := Impact{ItemCount: len(rows)}
	byTier := make(map[model.ABCTier]*TierImpact)
	var order []model.ABCTier
	for _, r := range rows {
		amount := decimal.NewFromFloat(r.DiscountAmount)
		total = total.Add(amount)
		orig = orig.Add(decimal.NewFromFloat(r.OriginalPrice))
		disc = disc.Add(decimal.NewFromFloat(r.DiscountedPrice))
		pct += r.DiscountPct
		if !r.Safe {
			imp.UnsafeCount++
		}
		t, ok := byTier[r.Tier]
		if !ok {
			t = &TierImpact{Tier: r.Tier}
			byTier[r.Tier] = t
			order = append(order, r.Tier)
		}
		t.ItemCount++
		t.TotalDiscount = decimal.NewFromFloat(t.TotalDiscount).Add(amount).InexactFloat64()
	}
	n := decimal.NewFromInt(int64(len(rows)))
	imp.TotalDiscount = total.InexactFloat64()
	imp.AvgDiscount = total.Div(n).Round(2).InexactFloat64()
	imp.AvgOriginalPrice = orig.Div(n).Round(2).InexactFloat64()
	imp.AvgDiscountedPrice = disc.Div(n).Round(2).InexactFloat64()
	imp.AvgDiscountPct = pct / float64(len(rows))
	for _, tier := range order {
		imp.ByTier = append(imp.ByTier, *byTier[tier])
	}
	return imp
}
