// Package catalog imports sales and cost reports from CSV and XLSX files
// into ProductRows.
package catalog

import (
	"sort"
	"strings"

	"github.com/carblue/pricing-cli/internal/category"
	"github.com/carblue/pricing-cli/internal/model"
)

// Column is a ProductRow field a report column can map to.
type Column int

const (
	ColSKU Column = iota
	ColDescription
	ColUnitCost
	ColShipping
	ColPrice
	ColUnits
	ColRevenue
	ColWeight
	ColCategory
	ColAdTier
)

var columnNames = map[Column]string{
	ColSKU:         "sku",
	ColDescription: "description",
	ColUnitCost:    "unit_cost",
	ColShipping:    "shipping_cost",
	ColPrice:       "price",
	ColUnits:       "units_sold",
	ColRevenue:     "revenue",
	ColWeight:      "weight_kg",
	ColCategory:    "category",
	ColAdTier:      "ad_tier",
}

func (c Column) String() string { return columnNames[c] }

// synonyms maps normalized header labels to columns. Labels are compared
// after accent folding, lowercasing and unit-suffix removal.
var synonyms = map[string]Column{
	"sku":                ColSKU,
	"id":                 ColSKU,
	"mlb":                ColSKU,
	"sku/mlb":            ColSKU,
	"codigo":             ColSKU,
	"# de anuncio":       ColSKU,
	"produto":            ColDescription,
	"titulo":             ColDescription,
	"descricao":          ColDescription,
	"nome":               ColDescription,
	"description":        ColDescription,
	"title":              ColDescription,
	"custo":              ColUnitCost,
	"custo produto":      ColUnitCost,
	"custo unitario":     ColUnitCost,
	"cost":               ColUnitCost,
	"unit_cost":          ColUnitCost,
	"frete":              ColShipping,
	"custo frete":        ColShipping,
	"shipping":           ColShipping,
	"shipping_cost":      ColShipping,
	"preco":              ColPrice,
	"preco atual":        ColPrice,
	"preco de venda":     ColPrice,
	"price":              ColPrice,
	"quantidade":         ColUnits,
	"quantidade vendida": ColUnits,
	"vendas":             ColUnits,
	"unidades":           ColUnits,
	"units":              ColUnits,
	"units_sold":         ColUnits,
	"faturamento":        ColRevenue,
	"receita":            ColRevenue,
	"total vendido":      ColRevenue,
	"revenue":            ColRevenue,
	"peso":               ColWeight,
	"peso kg":            ColWeight,
	"weight":             ColWeight,
	"weight_kg":          ColWeight,
	"categoria":          ColCategory,
	"category":           ColCategory,
	"tipo de anuncio":    ColAdTier,
	"tipo anuncio":       ColAdTier,
	"anuncio":            ColAdTier,
	"ad_tier":            ColAdTier,
	"listing type":       ColAdTier,
}

// unitSuffixes are stripped from header labels before lookup.
var unitSuffixes = []string{"(r$)", "r$", "(kg)", "(%)", "(un)"}

// HeaderKey normalizes a header label for synonym lookup.
func HeaderKey(label string) string {
	k := category.Normalize(strings.TrimPrefix(label, "\ufeff"))
	for _, s := range unitSuffixes {
		k = strings.TrimSpace(strings.ReplaceAll(k, s, ""))
	}
	k = strings.Trim(k, ":")
	return strings.Join(strings.Fields(k), " ")
}

// Layout maps columns to their index in a record.
type Layout map[Column]int

// required columns every report must carry.
var required = []Column{ColSKU, ColPrice}

// MapHeader resolves header labels to columns. The first label matching a
// column wins; unknown labels are ignored.
func MapHeader(header []string) (Layout, error) {
	l := make(Layout, len(header))
	for i, h := range header {
		col, ok := synonyms[HeaderKey(h)]
		if !ok {
			continue
		}
		if _, seen := l[col]; !seen {
			l[col] = i
		}
	}

	var missing []string
	for _, c := range required {
		if _, ok := l[c]; !ok {
			missing = append(missing, c.String())
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, model.NewValidationError("header", "missing required columns: %s", strings.Join(missing, ", "))
	}
	return l, nil
}

// Has reports whether the layout maps c.
func (l Layout) Has(c Column) bool {
	_, ok := l[c]
	return ok
}

func (l Layout) cell(record []string, c Column) string {
	i, ok := l[c]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
