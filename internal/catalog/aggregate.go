package catalog

import (
	"github.com/carblue/pricing-cli/internal/model"
)

// Aggregate merges rows sharing a SKU, keeping first-appearance order. The
// price is the mean of the merged rows, units and revenue are summed, and
// every other field comes from the first row.
func Aggregate(rows []model.ProductRow) []model.ProductRow {
	index := make(map[string]int, len(rows))
	counts := make([]int, 0, len(rows))
	out := make([]model.ProductRow, 0, len(rows))

	for _, r := range rows {
		i, ok := index[r.SKU]
		if !ok {
			index[r.SKU] = len(out)
			r.Revenue = r.SalesRevenue()
			out = append(out, r)
			counts = append(counts, 1)
			continue
		}
		agg := &out[i]
		agg.Price += r.Price
		agg.UnitsSold += r.UnitsSold
		agg.Revenue += r.SalesRevenue()
		counts[i]++
	}
	for i := range out {
		out[i].Price /= float64(counts[i])
	}
	return out
}

// ValidateSales checks that a sales report can be ranked: at least minRows
// rows and a positive total revenue.
func ValidateSales(rows []model.ProductRow, minRows int) error {
	if len(rows) == 0 {
		return model.NewValidationError("report", "is empty")
	}
	if len(rows) < minRows {
		return model.NewValidationError("report", "needs at least %d products, got %d", minRows, len(rows))
	}
	var total float64
	for _, r := range rows {
		total += r.SalesRevenue()
	}
	if total <= 0 {
		return model.NewValidationError("report", "total revenue must be positive")
	}
	return nil
}
