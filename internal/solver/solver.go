// Package solver inverts the margin equation: given costs, the share of
// price lost to percentage fees and a target margin, it returns the price
// that yields that margin.
//
//	price = (directCost + fixedFee) / (1 - variableRate - target/100)
//
// The closed form treats fixedFee as independent of price. Iterate
// re-resolves price-bracketed fees at each candidate price for callers that
// need the exact fixed point.
package solver

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/carblue/pricing-cli/internal/model"
)

// Reason explains an infeasible result.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonInfeasible Reason = "infeasible_target"
	ReasonInvalid    Reason = "invalid_input"
)

// Input is the cost structure of one product. VariableRate is a fraction of
// price; TargetMarginPct a percentage.
type Input struct {
	DirectCost      float64 `json:"direct_cost" validate:"gte=0"`
	FixedFee        float64 `json:"fixed_fee" validate:"gte=0"`
	VariableRate    float64 `json:"variable_rate" validate:"gte=0,lt=1"`
	TargetMarginPct float64 `json:"target_margin_pct" validate:"lt=100"`
}

// Validate rejects inputs that cannot describe a real cost structure.
func (in Input) Validate() error {
	for _, v := range []float64{in.DirectCost, in.FixedFee, in.VariableRate, in.TargetMarginPct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.NewValidationError("solver", "inputs must be finite")
		}
	}
	return model.ValidateStruct(in)
}

// Result is a solved price. An infeasible target yields Price 0 and Profit 0
// with Feasible false.
type Result struct {
	Price       float64 `json:"price"`
	Profit      float64 `json:"profit"`
	MarginPct   float64 `json:"margin_pct"`
	Denominator float64 `json:"denominator"`
	Feasible    bool    `json:"feasible"`
	Reason      Reason  `json:"reason,omitempty"`
}

// Solve returns the price that yields in.TargetMarginPct.
func Solve(in Input) Result {
	return solveAt(in.DirectCost+in.FixedFee, in.VariableRate, in.TargetMarginPct)
}

// FloorPrice returns the promotional floor: the lowest price that still
// yields minMarginPct under the same cost structure.
func FloorPrice(in Input, minMarginPct float64) Result {
	return solveAt(in.DirectCost+in.FixedFee, in.VariableRate, minMarginPct)
}

func solveAt(cost, variableRate, marginPct float64) Result {
	if math.IsNaN(cost) || math.IsNaN(variableRate) || math.IsNaN(marginPct) {
		return Result{Reason: ReasonInvalid}
	}
	target := marginPct / 100
	den := 1 - variableRate - target
	if den <= 0 {
		return Result{Denominator: den, MarginPct: marginPct, Reason: ReasonInfeasible}
	}
	price := cost / den
	return Result{
		Price:       price,
		Profit:      price * target,
		MarginPct:   marginPct,
		Denominator: den,
		Feasible:    true,
	}
}

// Quotation pairs the suggested price with the promotional floor.
type Quotation struct {
	Suggested Result `json:"suggested"`
	Floor     Result `json:"floor"`
}

// Quote solves both the target and the minimum margin.
func Quote(in Input, minMarginPct float64) Quotation {
	return Quotation{Suggested: Solve(in), Floor: FloorPrice(in, minMarginPct)}
}

// FeeFunc returns the fixed fee and variable rate in effect at price.
type FeeFunc func(price float64) (fixedFee, variableRate float64, err error)

// Iteration is the outcome of Iterate.
type Iteration struct {
	Result
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
}

// Iterate starts from the closed-form price and re-resolves fees at each
// candidate until two successive prices differ by at most tol. A fee table
// that flips between brackets can keep the price oscillating; Converged is
// false in that case and the last candidate is returned.
func Iterate(in Input, feeAt FeeFunc, maxIter int, tol float64) (Iteration, error) {
	if maxIter < 1 {
		maxIter = 1
	}
	cur := Solve(in)
	for i := 1; i <= maxIter; i++ {
		if !cur.Feasible {
			return Iteration{Result: cur, Iterations: i}, nil
		}
		fixedFee, rate, err := feeAt(cur.Price)
		if err != nil {
			return Iteration{}, eris.Wrapf(err, "solver: resolve fees at %.2f", cur.Price)
		}
		next := solveAt(in.DirectCost+fixedFee, rate, in.TargetMarginPct)
		if next.Feasible && math.Abs(next.Price-cur.Price) <= tol {
			return Iteration{Result: next, Iterations: i, Converged: true}, nil
		}
		cur = next
	}
	return Iteration{Result: cur, Iterations: maxIter}, nil
}
