// Package abc ranks a catalog by revenue and assigns Pareto tiers from the
// cumulative revenue share.
package abc

import (
	"math"
	"sort"

	"github.com/carblue/pricing-cli/internal/model"
)

// epsilon absorbs float drift when a cumulative share lands on a limit.
const epsilon = 1e-9

// Limits are cumulative revenue-share ceilings, as fractions, for tiers A, B
// and C. Items past C stay unclassified.
type Limits struct {
	A float64 `json:"a" yaml:"a"`
	B float64 `json:"b" yaml:"b"`
	C float64 `json:"c" yaml:"c"`
}

// DefaultLimits is the 80/15/5 split.
func DefaultLimits() Limits {
	return Limits{A: 0.80, B: 0.95, C: 1.00}
}

// Validate checks that limits are ascending fractions.
func (l Limits) Validate() error {
	if !(l.A > 0 && l.A <= l.B && l.B <= l.C && l.C <= 1) {
		return model.NewValidationError("abc", "limits must satisfy 0 < A <= B <= C <= 1, got %.2f/%.2f/%.2f", l.A, l.B, l.C)
	}
	return nil
}

func (l Limits) tier(cumulative float64) model.ABCTier {
	switch {
	case cumulative <= l.A+epsilon:
		return model.TierA
	case cumulative <= l.B+epsilon:
		return model.TierB
	case cumulative <= l.C+epsilon:
		return model.TierC
	default:
		return model.TierUnclassified
	}
}

// Item is one catalog entry to rank.
type Item struct {
	ID      string  `json:"id"`
	Revenue float64 `json:"revenue"`
}

// Ranked is an item's position in the revenue ranking.
type Ranked struct {
	Item
	Index           int           `json:"index"`
	Rank            int           `json:"rank"`
	Share           float64       `json:"share"`
	CumulativeShare float64       `json:"cumulative_share"`
	Tier            model.ABCTier `json:"tier"`
}

// Classifier assigns ABC tiers. It holds only its limits.
type Classifier struct {
	limits Limits
}

// NewClassifier validates limits and returns a Classifier.
func NewClassifier(limits Limits) (*Classifier, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{limits: limits}, nil
}

// Limits returns the classifier's limits.
func (c *Classifier) Limits() Limits { return c.limits }

// Rank orders the items with positive revenue by descending revenue. Equal
// revenues keep their input order. Items without positive revenue are
// appended unranked and unclassified, in input order.
func (c *Classifier) Rank(items []Item) ([]Ranked, error) {
	if len(items) == 0 {
		return nil, model.NewValidationError("catalog", "is empty, nothing to classify")
	}

	var total float64
	ranked := make([]Ranked, 0, len(items))
	var rest []Ranked
	for i, it := range items {
		if math.IsNaN(it.Revenue) || math.IsInf(it.Revenue, 0) {
			return nil, model.NewValidationError(it.ID, "revenue must be a finite number")
		}
		r := Ranked{Item: it, Index: i, Tier: model.TierUnclassified}
		if it.Revenue > 0 {
			total += it.Revenue
			ranked = append(ranked, r)
		} else {
			rest = append(rest, r)
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Revenue > ranked[b].Revenue })

	if total > 0 {
		var cum float64
		for i := range ranked {
			cum += ranked[i].Revenue
			ranked[i].Rank = i + 1
			ranked[i].Share = ranked[i].Revenue / total
			ranked[i].CumulativeShare = cum / total
			ranked[i].Tier = c.limits.tier(ranked[i].CumulativeShare)
		}
	}
	return append(ranked, rest...), nil
}

// Assign returns the tier of every item, indexed like the input.
func (c *Classifier) Assign(items []Item) ([]model.ABCTier, error) {
	ranked, err := c.Rank(items)
	if err != nil {
		return nil, err
	}
	out := make([]model.ABCTier, len(items))
	for _, r := range ranked {
		out[r.Index] = r.Tier
	}
	return out, nil
}

// Classify maps item IDs to tiers. When IDs repeat, the later item wins.
func (c *Classifier) Classify(items []Item) (map[string]model.ABCTier, error) {
	tiers, err := c.Assign(items)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.ABCTier, len(items))
	for i, it := range items {
		out[it.ID] = tiers[i]
	}
	return out, nil
}

// ItemsFromRows extracts (SKU, revenue) pairs from priced rows.
func ItemsFromRows(rows []model.PricedRow) []Item {
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = Item{ID: r.SKU, Revenue: r.SalesRevenue()}
	}
	return items
}
