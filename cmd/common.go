package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/carblue/pricing-cli/internal/category"
	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/report"
)

// pricingFlags are the per-run overrides shared by the pricing commands.
type pricingFlags struct {
	marketplace string
	regime      string
	target      float64
	min         float64
	adRate      float64
	fixedCost   float64
	returnRate  float64
}

func (f *pricingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.marketplace, "marketplace", "", "marketplace slug (default from config)")
	cmd.Flags().StringVar(&f.regime, "regime", "", "tax regime slug (default from config)")
	cmd.Flags().Float64Var(&f.target, "target", 0, "target net margin in percent (default from config)")
	cmd.Flags().Float64Var(&f.min, "min", 0, "minimum net margin in percent (default from config)")
	cmd.Flags().Float64Var(&f.adRate, "ad-rate", 0, "advertising share of price, as a fraction (default from config)")
	cmd.Flags().Float64Var(&f.fixedCost, "fixed-cost", 0, "fixed operating cost per unit (default from config)")
	cmd.Flags().Float64Var(&f.returnRate, "return-rate", 0, "return share of price, overriding the marketplace's")
}

// request applies the flags the user set on top of the configured defaults.
func (f *pricingFlags) request(cmd *cobra.Command, e *engine.Engine) (engine.Request, error) {
	req := e.DefaultRequest()
	changed := cmd.Flags().Changed
	if f.marketplace != "" {
		req.Marketplace = f.marketplace
	}
	if f.regime != "" {
		req.Regime = f.regime
	}
	if changed("target") {
		req.Params.TargetMarginPct = f.target
	}
	if changed("min") {
		req.Params.MinMarginPct = f.min
	}
	if changed("ad-rate") {
		req.Params.AdRate = f.adRate
	}
	if changed("fixed-cost") {
		req.Params.FixedOperatingCost = f.fixedCost
	}
	if changed("return-rate") {
		rr := f.returnRate
		req.Params.ReturnRate = &rr
	}
	if req.Params.MinMarginPct > req.Params.TargetMarginPct {
		return req, model.NewValidationError("min", "must not exceed target")
	}
	return req, nil
}

type engineOptions struct {
	guess bool
	obs   engine.Observer
}

func newEngine(opts engineOptions) (*engine.Engine, error) {
	cat, err := engine.LoadCatalog(cfg.Fees.SnapshotPath)
	if err != nil {
		return nil, eris.Wrap(err, "load fee tables")
	}
	var eo []engine.Option
	if opts.guess {
		eo = append(eo, engine.WithGuesser(category.NewKeywordGuesser(category.DefaultRules())))
	}
	if opts.obs != nil {
		eo = append(eo, engine.WithObserver(opts.obs))
	}
	return engine.New(cfg, cat, eo...)
}

// writeOutput writes v as JSON when path ends in .json or is "-", and the
// tables otherwise.
func writeOutput(w io.Writer, path string, v any, tables ...report.Table) error {
	if path == "-" || report.FormatOf(path) == report.FormatJSON {
		out := w
		if path != "-" {
			f, err := os.Create(path)
			if err != nil {
				return eris.Wrap(err, "create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode json")
		}
		return nil
	}
	return report.Write(path, tables...)
}

// parseTierRules reads "A=0.05,B=0.1" into tier rules.
func parseTierRules(s string) (map[model.ABCTier]float64, error) {
	rules := make(map[model.ABCTier]float64)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, model.NewValidationError("tier-rules", "expected TIER=DISCOUNT, got %q", part)
		}
		tier := model.ParseABCTier(strings.TrimSpace(k))
		if tier == model.TierUnclassified {
			return nil, model.NewValidationError("tier-rules", "unknown tier %q", k)
		}
		var d float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &d); err != nil {
			return nil, model.NewValidationError("tier-rules", "bad discount %q", v)
		}
		rules[tier] = d
	}
	return rules, nil
}
