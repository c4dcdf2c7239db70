package engine

import (
	"github.com/rotisserie/eris"

	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/promotion"
	"github.com/carblue/pricing-cli/internal/solver"
)

// Promotion is a discount applied to a priced batch, with every discounted
// row repriced at its promotional price.
type Promotion struct {
	promotion.Result
	Repriced []model.PricedRow `json:"repriced"`
}

// Promote discounts the batch rows selected by filter. A row is safe when
// its discounted price stays at or above the floor price for the minimum
// margin.
func (e *Engine) Promote(batch *Batch, req Request, discount float64, filter promotion.Filter) (*Promotion, error) {
	calc := e.promotionCalculator(req)
	res, err := calc.Apply(batch.Rows, discount, filter)
	if err != nil {
		return nil, err
	}
	return e.reprice(batch, req, res)
}

// PromoteByTier discounts each batch row by its tier's rule.
func (e *Engine) PromoteByTier(batch *Batch, req Request, rules promotion.TierRules, filter promotion.Filter) (*Promotion, error) {
	res, err := e.promotionCalculator(req).ApplyRules(batch.Rows, rules, filter)
	if err != nil {
		return nil, err
	}
	return e.reprice(batch, req, res)
}

func (e *Engine) promotionCalculator(req Request) promotion.Calculator {
	return promotion.Calculator{Floor: func(r model.PricedRow) (float64, bool) {
		in, err := e.SolverInput(r.ProductRow, req)
		if err != nil {
			return 0, false
		}
		floor := solver.FloorPrice(in, req.Params.MinMarginPct)
		return floor.Price, floor.Feasible
	}}
}

func (e *Engine) reprice(batch *Batch, req Request, res promotion.Result) (*Promotion, error) {
	out := &Promotion{Result: res, Repriced: make([]model.PricedRow, 0, len(res.Rows))}
	for _, d := range res.Rows {
		if d.Index < 0 || d.Index >= len(batch.Rows) {
			return nil, eris.Errorf("engine: discounted row %s has no batch row %d", d.SKU, d.Index)
		}
		orig := batch.Rows[d.Index]
		row := orig.ProductRow
		row.Price = d.DiscountedPrice
		row.Revenue = 0
		priced, err := e.ComputeRow(row, req)
		if err != nil {
			return nil, eris.Wrapf(err, "engine: reprice %s", d.SKU)
		}
		out.Repriced = append(out.Repriced, priced.WithTier(orig.Tier))
	}
	return out, nil
}
