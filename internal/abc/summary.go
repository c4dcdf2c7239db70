package abc

import (
	"sort"

	"github.com/carblue/pricing-cli/internal/model"
)

// TierSummary aggregates the rows of one tier.
type TierSummary struct {
	Tier     model.ABCTier `json:"tier"`
	Count    int           `json:"count"`
	Revenue  float64       `json:"revenue"`
	Share    float64       `json:"share"`
	AvgPrice float64       `json:"avg_price"`
	Units    float64       `json:"units"`
}

var tierOrder = []model.ABCTier{model.TierA, model.TierB, model.TierC, model.TierUnclassified}

// Summarize groups classified rows by tier. Tiers A, B and C are always
// present; unclassified only when it has rows.
func Summarize(rows []model.PricedRow) []TierSummary {
	byTier := make(map[model.ABCTier]*TierSummary, len(tierOrder))
	for _, t := range tierOrder {
		byTier[t] = &TierSummary{Tier: t}
	}

	var total float64
	priceSum := make(map[model.ABCTier]float64, len(tierOrder))
	for _, r := range rows {
		t := r.Tier
		if _, ok := byTier[t]; !ok {
			t = model.TierUnclassified
		}
		s := byTier[t]
		rev := max(r.SalesRevenue(), 0)
		s.Count++
		s.Revenue += rev
		s.Units += r.UnitsSold
		priceSum[t] += r.Price
		total += rev
	}

	out := make([]TierSummary, 0, len(tierOrder))
	for _, t := range tierOrder {
		s := byTier[t]
		if t == model.TierUnclassified && s.Count == 0 {
			continue
		}
		if s.Count > 0 {
			s.AvgPrice = priceSum[t] / float64(s.Count)
		}
		if total > 0 {
			s.Share = s.Revenue / total
		}
		out = append(out, *s)
	}
	return out
}

// Opportunities returns tier B and C rows whose gross margin exceeds
// minMarginPct, highest revenue first.
func Opportunities(rows []model.PricedRow, minMarginPct float64) []model.PricedRow {
	var out []model.PricedRow
	for _, r := range rows {
		if IsOpportunity(r, minMarginPct) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].SalesRevenue() > out[b].SalesRevenue() })
	return out
}

// IsOpportunity reports whether r is a tier B or C row above minMarginPct
// gross margin.
func IsOpportunity(r model.PricedRow, minMarginPct float64) bool {
	return (r.Tier == model.TierB || r.Tier == model.TierC) && r.GrossMarginPct > minMarginPct
}
