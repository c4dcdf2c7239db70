package feetable

import (
	"github.com/carblue/pricing-cli/internal/model"
)

// Matrix is a two-dimensional fee table: weight selects a price table.
type Matrix struct {
	name    string
	weights *Table[*Table[float64]]
}

// MatrixResolution reports the bracket chosen in each dimension.
type MatrixResolution struct {
	Weight Resolution `json:"weight"`
	Price  Resolution `json:"price"`
}

// Fallback reports whether either dimension resolved past its last bracket.
func (r MatrixResolution) Fallback() bool {
	return r.Weight.Fallback || r.Price.Fallback
}

// NewMatrix builds a Matrix from weight brackets whose values are price
// brackets. Every price table is validated independently.
func NewMatrix(name string, rows []Bracket[[]Bracket[float64]]) (*Matrix, error) {
	if len(rows) == 0 {
		return nil, model.NewValidationError(name, "fee matrix has no weight classes")
	}
	weights := make([]Bracket[*Table[float64]], len(rows))
	for i, r := range rows {
		label := r.Label
		if label == "" {
			label = name
		}
		prices, err := NewTable(name+"/"+label, r.Value)
		if err != nil {
			return nil, err
		}
		weights[i] = Bracket[*Table[float64]]{Lower: r.Lower, Upper: r.Upper, Value: prices, Label: r.Label}
	}
	wt, err := NewTable(name, weights)
	if err != nil {
		return nil, err
	}
	return &Matrix{name: name, weights: wt}, nil
}

// Name returns the matrix identifier.
func (m *Matrix) Name() string { return m.name }

// Resolve looks up the fee for a weight (kg) and price.
func (m *Matrix) Resolve(weightKg, price float64) (float64, MatrixResolution, error) {
	prices, wres, err := m.weights.Resolve(weightKg)
	if err != nil {
		return 0, MatrixResolution{}, err
	}
	v, pres, err := prices.Resolve(price)
	if err != nil {
		return 0, MatrixResolution{}, err
	}
	return v, MatrixResolution{Weight: wres, Price: pres}, nil
}

// Rows returns the weight brackets with their price tables.
func (m *Matrix) Rows() []Bracket[*Table[float64]] {
	return m.weights.Brackets()
}
