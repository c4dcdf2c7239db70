package api

import (
	"context"
	"net/http"

	"github.com/carblue/pricing-cli/internal/abc"
	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/promotion"
	"github.com/carblue/pricing-cli/internal/solver"
)

// Overrides replaces configured pricing parameters for one request.
type Overrides struct {
	Marketplace        string   `json:"marketplace,omitempty"`
	Regime             string   `json:"regime,omitempty"`
	TargetMarginPct    *float64 `json:"target_margin_pct,omitempty"`
	MinMarginPct       *float64 `json:"min_margin_pct,omitempty"`
	AdRate             *float64 `json:"ad_rate,omitempty"`
	FixedOperatingCost *float64 `json:"fixed_operating_cost,omitempty"`
	ReturnRate         *float64 `json:"return_rate,omitempty"`
}

func (o Overrides) apply(req engine.Request) (engine.Request, error) {
	if o.Marketplace != "" {
		req.Marketplace = o.Marketplace
	}
	if o.Regime != "" {
		req.Regime = o.Regime
	}
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&req.Params.TargetMarginPct, o.TargetMarginPct)
	set(&req.Params.MinMarginPct, o.MinMarginPct)
	set(&req.Params.AdRate, o.AdRate)
	set(&req.Params.FixedOperatingCost, o.FixedOperatingCost)
	if o.ReturnRate != nil {
		rr := *o.ReturnRate
		req.Params.ReturnRate = &rr
	}
	if req.Params.MinMarginPct > req.Params.TargetMarginPct {
		return req, model.NewValidationError("min_margin_pct", "must not exceed target_margin_pct")
	}
	return req, nil
}

func (s *Server) request(o Overrides) (engine.Request, error) {
	return o.apply(s.engine.DefaultRequest())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"fee_version": s.engine.Catalog().Version(),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	data, err := s.engine.Catalog().YAML()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// PriceRequest is the body of POST /v1/price.
type PriceRequest struct {
	Overrides
	Rows []model.ProductRow `json:"rows"`
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	var body PriceRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := s.request(body.Overrides)
	if err != nil {
		writeError(w, r, err)
		return
	}
	batch, err := s.engine.PriceCatalog(r.Context(), body.Rows, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.alerter != nil {
		go s.alerter.Check(context.WithoutCancel(r.Context()), batch)
	}
	writeJSON(w, http.StatusOK, batch)
}

// SolveRequest is the body of POST /v1/solve. Either Input, a raw cost
// structure, or Row, a product priced under the request's marketplace, must
// be set.
type SolveRequest struct {
	Overrides
	Input   *SolveInput       `json:"input,omitempty"`
	Row     *model.ProductRow `json:"row,omitempty"`
	Iterate bool              `json:"iterate,omitempty"`
}

// SolveInput is a raw cost structure. When TargetMarginPct is absent the
// request's target applies; an explicit 0 asks for the break-even price.
type SolveInput struct {
	DirectCost      float64  `json:"direct_cost"`
	FixedFee        float64  `json:"fixed_fee"`
	VariableRate    float64  `json:"variable_rate"`
	TargetMarginPct *float64 `json:"target_margin_pct,omitempty"`
}

func (si SolveInput) resolve(defaultTarget float64) solver.Input {
	in := solver.Input{
		DirectCost:      si.DirectCost,
		FixedFee:        si.FixedFee,
		VariableRate:    si.VariableRate,
		TargetMarginPct: defaultTarget,
	}
	if si.TargetMarginPct != nil {
		in.TargetMarginPct = *si.TargetMarginPct
	}
	return in
}

// SolveResponse is the reply of POST /v1/solve.
type SolveResponse struct {
	solver.Quotation
	Input      solver.Input `json:"input"`
	Iterations int          `json:"iterations,omitempty"`
	Converged  *bool        `json:"converged,omitempty"`
}

const (
	solveMaxIter   = 25
	solveTolerance = 0.005
)

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var body SolveRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := s.request(body.Overrides)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var resp SolveResponse
	switch {
	case body.Row != nil:
		in, err := s.engine.SolverInput(*body.Row, req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.Input = in
		resp.Quotation = solver.Quote(in, req.Params.MinMarginPct)
		if body.Iterate {
			it, err := s.engine.SolveRowIterative(*body.Row, req, solveMaxIter, solveTolerance)
			if err != nil {
				writeError(w, r, err)
				return
			}
			resp.Suggested = it.Result
			resp.Iterations = it.Iterations
			resp.Converged = &it.Converged
		}
	case body.Input != nil:
		in := body.Input.resolve(req.Params.TargetMarginPct)
		if err := in.Validate(); err != nil {
			writeError(w, r, err)
			return
		}
		resp.Input = in
		resp.Quotation = solver.Quote(in, req.Params.MinMarginPct)
	default:
		writeError(w, r, model.NewValidationError("body", "needs input or row"))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ABCRequest is the body of POST /v1/abc.
type ABCRequest struct {
	Items []abc.Item `json:"items"`
}

// ABCResponse is the reply of POST /v1/abc.
type ABCResponse struct {
	Ranked []abc.Ranked `json:"ranked"`
	Limits abc.Limits   `json:"limits"`
}

func (s *Server) handleABC(w http.ResponseWriter, r *http.Request) {
	var body ABCRequest
	if !decode(w, r, &body) {
		return
	}
	ranked, err := s.engine.Classify(body.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ABCResponse{Ranked: ranked, Limits: s.engine.Limits()})
}

// PromotionRequest is the body of POST /v1/promotion. The rows are priced
// and ranked first; TierRules, when set, replaces the flat Discount.
type PromotionRequest struct {
	Overrides
	Rows      []model.ProductRow        `json:"rows"`
	Discount  float64                   `json:"discount"`
	TierRules map[model.ABCTier]float64 `json:"tier_rules,omitempty"`
	Filter    string                    `json:"filter,omitempty"`
}

func (s *Server) handlePromotion(w http.ResponseWriter, r *http.Request) {
	var body PromotionRequest
	if !decode(w, r, &body) {
		return
	}
	req, err := s.request(body.Overrides)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter, err := promotion.ParseFilter(body.Filter, req.Params.MinMarginPct)
	if err != nil {
		writeError(w, r, err)
		return
	}
	batch, err := s.engine.PriceCatalog(r.Context(), body.Rows, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var promo *engine.Promotion
	if len(body.TierRules) > 0 {
		promo, err = s.engine.PromoteByTier(batch, req, promotion.TierRules(body.TierRules), filter)
	} else {
		promo, err = s.engine.Promote(batch, req, body.Discount, filter)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promo)
}
