package feetable

import (
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/carblue/pricing-cli/internal/model"
)

// Tier is one row of a price-tiered commission table.
type Tier struct {
	Rate        float64 `json:"rate"`
	FixedAmount float64 `json:"fixed_amount"`
	CreditRate  float64 `json:"credit_rate"`
}

// Catalog is an immutable, versioned set of fee matrices and commission
// tier tables.
type Catalog struct {
	version  string
	matrices map[string]*Matrix
	tiers    map[string]*Table[Tier]
	snapshot Snapshot
}

// Key joins a marketplace and category group into a catalog key.
func Key(marketplace, group string) string {
	return marketplace + "/" + group
}

// Version returns the snapshot version the catalog was built from.
func (c *Catalog) Version() string { return c.version }

// Matrix returns the fee matrix stored under key.
func (c *Catalog) Matrix(key string) (*Matrix, bool) {
	m, ok := c.matrices[key]
	return m, ok
}

// Tiers returns the commission tier table stored under key.
func (c *Catalog) Tiers(key string) (*Table[Tier], bool) {
	t, ok := c.tiers[key]
	return t, ok
}

// Keys lists matrix and tier keys in sorted order.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.matrices)+len(c.tiers))
	for k := range c.matrices {
		keys = append(keys, k)
	}
	for k := range c.tiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns the declarative form the catalog was built from.
func (c *Catalog) Snapshot() Snapshot { return c.snapshot }

// Snapshot is the YAML form of a fee catalog. A bracket without an upper
// bound is open-ended; lower bounds are implied by the previous bracket.
type Snapshot struct {
	Version  string                `yaml:"version"`
	Matrices map[string]MatrixSpec `yaml:"matrices"`
	Tiers    map[string][]TierSpec `yaml:"tiers,omitempty"`
}

// MatrixSpec declares a weight × price matrix.
type MatrixSpec struct {
	Weights []WeightSpec `yaml:"weights"`
}

// WeightSpec declares one weight class and its price brackets.
type WeightSpec struct {
	Upper  *float64    `yaml:"upper,omitempty"`
	Label  string      `yaml:"label,omitempty"`
	Prices []PriceSpec `yaml:"prices"`
}

// PriceSpec declares one price bracket of a matrix row.
type PriceSpec struct {
	Upper *float64 `yaml:"upper,omitempty"`
	Label string   `yaml:"label,omitempty"`
	Value float64  `yaml:"value"`
}

// TierSpec declares one price bracket of a tiered commission table.
type TierSpec struct {
	Upper  *float64 `yaml:"upper,omitempty"`
	Label  string   `yaml:"label,omitempty"`
	Rate   float64  `yaml:"rate"`
	Fixed  float64  `yaml:"fixed"`
	Credit float64  `yaml:"credit"`
}

// Build validates a snapshot and returns the catalog.
func Build(s Snapshot) (*Catalog, error) {
	c := &Catalog{
		version:  s.Version,
		matrices: make(map[string]*Matrix, len(s.Matrices)),
		tiers:    make(map[string]*Table[Tier], len(s.Tiers)),
		snapshot: s,
	}

	for key, ms := range s.Matrices {
		rows := make([]Bracket[[]Bracket[float64]], len(ms.Weights))
		lower := 0.0
		for i, w := range ms.Weights {
			upper := upperOf(w.Upper)
			prices := make([]Bracket[float64], len(w.Prices))
			plower := 0.0
			for j, p := range w.Prices {
				pupper := upperOf(p.Upper)
				prices[j] = Bracket[float64]{Lower: plower, Upper: pupper, Value: p.Value, Label: p.Label}
				plower = pupper
			}
			rows[i] = Bracket[[]Bracket[float64]]{Lower: lower, Upper: upper, Value: prices, Label: w.Label}
			lower = upper
		}
		m, err := NewMatrix(key, rows)
		if err != nil {
			return nil, eris.Wrapf(err, "feetable: build matrix %s", key)
		}
		c.matrices[key] = m
	}

	for key, ts := range s.Tiers {
		brackets := make([]Bracket[Tier], len(ts))
		lower := 0.0
		for i, t := range ts {
			if t.Rate < 0 || t.Rate >= 1 || t.Credit < 0 || t.Credit >= 1 || t.Fixed < 0 {
				return nil, model.NewValidationError(key, "tier %d has out-of-range rate, credit or fixed amount", i)
			}
			upper := upperOf(t.Upper)
			brackets[i] = Bracket[Tier]{
				Lower: lower, Upper: upper, Label: t.Label,
				Value: Tier{Rate: t.Rate, FixedAmount: t.Fixed, CreditRate: t.Credit},
			}
			lower = upper
		}
		tbl, err := NewTable(key, brackets)
		if err != nil {
			return nil, eris.Wrapf(err, "feetable: build tiers %s", key)
		}
		c.tiers[key] = tbl
	}

	return c, nil
}

// LoadCatalog reads a YAML fee snapshot from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "feetable: read snapshot %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a catalog from YAML bytes.
func ParseCatalog(data []byte) (*Catalog, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, eris.Wrap(err, "feetable: parse snapshot")
	}
	if len(s.Matrices) == 0 && len(s.Tiers) == 0 {
		return nil, model.NewValidationError("snapshot", "contains no matrices or tiers")
	}
	return Build(s)
}

// YAML renders the catalog's snapshot.
func (c *Catalog) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c.snapshot)
	if err != nil {
		return nil, eris.Wrap(err, "feetable: marshal snapshot")
	}
	return out, nil
}

func upperOf(p *float64) float64 {
	if p == nil {
		return math.Inf(1)
	}
	return *p
}
