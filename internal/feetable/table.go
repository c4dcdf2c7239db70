// Package feetable resolves marketplace fees from static bracket tables.
//
// A table is an ordered list of contiguous brackets over one dimension
// (price or weight). Each bracket covers (Lower, Upper]; the first bracket
// also covers its Lower bound. A value sitting exactly on an upper bound
// therefore belongs to that bracket and never to the next one, which keeps
// round price points such as 79.00 from jumping a tier.
package feetable

import (
	"math"
	"sort"

	"github.com/carblue/pricing-cli/internal/model"
)

// Unbounded marks the open upper end of the last bracket.
var Unbounded = math.Inf(1)

// Bracket maps a contiguous sub-range of one dimension to a value.
type Bracket[V any] struct {
	Lower float64
	Upper float64
	Value V
	Label string
}

// Resolution describes which bracket answered a lookup.
type Resolution struct {
	Table    string `json:"table"`
	Index    int    `json:"index"`
	Label    string `json:"label,omitempty"`
	Fallback bool   `json:"fallback"`
}

// Table is an immutable, validated bracket list.
type Table[V any] struct {
	name     string
	brackets []Bracket[V]
}

// NewTable validates brackets and returns a Table. Brackets must start at
// zero, be strictly increasing and contiguous (each Lower equals the
// previous Upper).
func NewTable[V any](name string, brackets []Bracket[V]) (*Table[V], error) {
	if len(brackets) == 0 {
		return nil, model.NewValidationError(name, "fee table has no brackets")
	}
	for i, b := range brackets {
		if math.IsNaN(b.Lower) || math.IsNaN(b.Upper) {
			return nil, model.NewValidationError(name, "bracket %d has NaN bounds", i)
		}
		if b.Upper <= b.Lower {
			return nil, model.NewValidationError(name, "bracket %d upper %.4f not above lower %.4f", i, b.Upper, b.Lower)
		}
		if i == 0 {
			if b.Lower != 0 {
				return nil, model.NewValidationError(name, "first bracket must start at 0, got %.4f", b.Lower)
			}
			continue
		}
		if prev := brackets[i-1].Upper; b.Lower != prev {
			return nil, model.NewValidationError(name, "bracket %d lower %.4f does not continue previous upper %.4f", i, b.Lower, prev)
		}
	}
	out := make([]Bracket[V], len(brackets))
	copy(out, brackets)
	return &Table[V]{name: name, brackets: out}, nil
}

// Name returns the table's identifier.
func (t *Table[V]) Name() string { return t.name }

// Len returns the number of brackets.
func (t *Table[V]) Len() int { return len(t.brackets) }

// Brackets returns a copy of the bracket list.
func (t *Table[V]) Brackets() []Bracket[V] {
	out := make([]Bracket[V], len(t.brackets))
	copy(out, t.brackets)
	return out
}

// Resolve returns the value of the bracket containing x. When x lies beyond
// the last bracket the last value is returned with Fallback set.
func (t *Table[V]) Resolve(x float64) (V, Resolution, error) {
	var zero V
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return zero, Resolution{}, model.NewValidationError(t.name, "lookup value must be finite")
	}
	if x < 0 {
		return zero, Resolution{}, model.NewValidationError(t.name, "lookup value %.4f must be non-negative", x)
	}

	n := len(t.brackets)
	i := sort.Search(n, func(i int) bool { return x <= t.brackets[i].Upper })
	fallback := false
	if i == n {
		i = n - 1
		fallback = true
	}
	b := t.brackets[i]
	return b.Value, Resolution{Table: t.name, Index: i, Label: b.Label, Fallback: fallback}, nil
}

// Ladder builds contiguous brackets from ascending upper bounds. Use
// Unbounded as the last upper for an open-ended table.
func Ladder[V any](uppers []float64, values []V, labels []string) []Bracket[V] {
	n := min(len(uppers), len(values))
	out := make([]Bracket[V], n)
	lower := 0.0
	for i := 0; i < n; i++ {
		out[i] = Bracket[V]{Lower: lower, Upper: uppers[i], Value: values[i]}
		if i < len(labels) {
			out[i].Label = labels[i]
		}
		lower = uppers[i]
	}
	return out
}
