package promotion

import (
	"slices"
	"strings"

	"github.com/carblue/pricing-cli/internal/abc"
	"github.com/carblue/pricing-cli/internal/model"
)

// Filter selects the rows a promotion applies to.
type Filter func(model.PricedRow) bool

// All selects every row.
func All() Filter {
	return func(model.PricedRow) bool { return true }
}

// ByTier selects rows in any of the given ABC tiers.
func ByTier(tiers ...model.ABCTier) Filter {
	return func(r model.PricedRow) bool { return slices.Contains(tiers, r.Tier) }
}

// ByStatus selects rows with any of the given health statuses.
func ByStatus(statuses ...model.HealthStatus) Filter {
	return func(r model.PricedRow) bool { return slices.Contains(statuses, r.Status) }
}

// MinGrossMargin selects rows whose gross margin exceeds pct.
func MinGrossMargin(pct float64) Filter {
	return func(r model.PricedRow) bool { return r.GrossMarginPct > pct }
}

// Opportunity selects tier B and C rows with gross margin above pct.
func Opportunity(pct float64) Filter {
	return func(r model.PricedRow) bool { return abc.IsOpportunity(r, pct) }
}

// And selects rows matching every filter.
func And(filters ...Filter) Filter {
	return func(r model.PricedRow) bool {
		for _, f := range filters {
			if !f(r) {
				return false
			}
		}
		return true
	}
}

// FilterNames lists the names ParseFilter accepts.
var FilterNames = []string{"all", "opportunity", "tier_a", "tier_b", "tier_c", "healthy", "warning", "loss"}

// ParseFilter returns a built-in filter by name. minMarginPct parameterizes
// the opportunity filter.
func ParseFilter(name string, minMarginPct float64) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "all":
		return All(), nil
	case "opportunity":
		return Opportunity(minMarginPct), nil
	case "tier_a":
		return ByTier(model.TierA), nil
	case "tier_b":
		return ByTier(model.TierB), nil
	case "tier_c":
		return ByTier(model.TierC), nil
	case "healthy":
		return ByStatus(model.StatusHealthy), nil
	case "warning":
		return ByStatus(model.StatusWarning), nil
	case "loss":
		return ByStatus(model.StatusLoss), nil
	default:
		return nil, model.NewValidationError("filter", "unknown filter %q, want one of %s", name, strings.Join(FilterNames, ", "))
	}
}
