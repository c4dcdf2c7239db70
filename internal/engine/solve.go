package engine

import (
	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/margin"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/solver"
)

// SolverInput derives the solver's cost structure for row from the fees in
// effect at row.Price.
func (e *Engine) SolverInput(row model.ProductRow, req Request) (solver.Input, error) {
	market, regime, err := e.resolve(req)
	if err != nil {
		return solver.Input{}, err
	}
	if err := row.Validate(); err != nil {
		return solver.Input{}, err
	}
	row = e.prepare(row)
	fees, err := e.calc.Fees(row, market, max(row.Price, 0))
	if err != nil {
		return solver.Input{}, err
	}
	return solver.Input{
		DirectCost:      row.DirectCost(),
		FixedFee:        fees.FixedFee + fees.ShippingSubsidy + req.Params.FixedOperatingCost,
		VariableRate:    fees.VariableRate() + regime.Total() + req.Params.AdRate + returnRate(market, req.Params),
		TargetMarginPct: req.Params.TargetMarginPct,
	}, nil
}

// SolveRow suggests a price and promotional floor for row. Fixed fees are
// taken at the row's current price.
func (e *Engine) SolveRow(row model.ProductRow, req Request) (solver.Quotation, error) {
	in, err := e.SolverInput(row, req)
	if err != nil {
		return solver.Quotation{}, err
	}
	return solver.Quote(in, req.Params.MinMarginPct), nil
}

// SolveRowIterative re-resolves fees at each candidate price until the
// suggested price settles.
func (e *Engine) SolveRowIterative(row model.ProductRow, req Request, maxIter int, tol float64) (solver.Iteration, error) {
	in, err := e.SolverInput(row, req)
	if err != nil {
		return solver.Iteration{}, err
	}
	market, regime, _ := e.resolve(req)
	row = e.prepare(row)
	feeAt := func(price float64) (float64, float64, error) {
		f, err := e.calc.Fees(row, market, price)
		if err != nil {
			return 0, 0, err
		}
		fixed := f.FixedFee + f.ShippingSubsidy + req.Params.FixedOperatingCost
		rate := f.VariableRate() + regime.Total() + req.Params.AdRate + returnRate(market, req.Params)
		return fixed, rate, nil
	}
	return solver.Iterate(in, feeAt, maxIter, tol)
}

func returnRate(m config.MarketplaceConfig, p margin.Params) float64 {
	if p.ReturnRate != nil {
		return *p.ReturnRate
	}
	return m.ReturnRate
}
