package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/promotion"
	"github.com/carblue/pricing-cli/internal/report"
)

var (
	promoInput     inputFlags
	promoOutput    string
	promoDiscount  float64
	promoTierRules string
	promoFilter    string
	promoTemplate  string
	promoPricing   pricingFlags
)

var promoCmd = &cobra.Command{
	Use:   "promo",
	Short: "Simulate a promotion over a priced catalog",
	Long: "Prices the catalog, selects rows by filter and applies either a flat discount " +
		"(--discount) or per-tier discounts (--tier-rules A=0.05,B=0.1). Each discounted row " +
		"is checked against its floor price and repriced.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tmpl, ok := report.LookupTemplate(promoTemplate)
		if !ok {
			return model.NewValidationError("template", "unknown template %q (known: %s)",
				promoTemplate, strings.Join(report.TemplateNames(), ", "))
		}
		if (promoTierRules == "") == !cmd.Flags().Changed("discount") {
			return model.NewValidationError("discount", "set exactly one of --discount and --tier-rules")
		}

		eng, err := newEngine(engineOptions{guess: cfg.Import.GuessCategory})
		if err != nil {
			return err
		}
		req, err := promoPricing.request(cmd, eng)
		if err != nil {
			return err
		}
		filter, err := promotion.ParseFilter(promoFilter, req.Params.MinMarginPct)
		if err != nil {
			return err
		}

		rows, err := readRows(ctx, promoInput)
		if err != nil {
			return err
		}
		batch, err := eng.PriceCatalog(ctx, rows, req)
		if err != nil {
			return err
		}

		var promo *engine.Promotion
		if promoTierRules != "" {
			rules, perr := parseTierRules(promoTierRules)
			if perr != nil {
				return perr
			}
			promo, err = eng.PromoteByTier(batch, req, rules, filter)
		} else {
			promo, err = eng.Promote(batch, req, promoDiscount, filter)
		}
		if err != nil {
			return err
		}

		if promoOutput != "" {
			repriced := report.PricedRows(promo.Repriced)
			repriced.Sheet = "Repreçificado"
			tables := []report.Table{report.Promotion(promo.Rows, tmpl), report.Impact(promo.Impact), repriced}
			if err := writeOutput(cmd.OutOrStdout(), promoOutput, promo, tables...); err != nil {
				return err
			}
		}

		imp := promo.Impact
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Selected %d of %d rows, %d below floor\n", imp.ItemCount, len(batch.Rows), imp.UnsafeCount)
		fmt.Fprintf(w, "Total discount %.2f  avg %.2f (%.2f%%)  avg price %.2f -> %.2f\n",
			imp.TotalDiscount, imp.AvgDiscount, imp.AvgDiscountPct, imp.AvgOriginalPrice, imp.AvgDiscountedPrice)
		for _, t := range imp.ByTier {
			fmt.Fprintf(w, "  tier %s: %d items, discount %.2f\n", t.Tier, t.ItemCount, t.TotalDiscount)
		}
		return nil
	},
}

func init() {
	promoCmd.Flags().StringVar(&promoInput.path, "input", "", "marketplace report (.csv or .xlsx)")
	promoCmd.Flags().StringVar(&promoInput.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	promoCmd.Flags().BoolVar(&promoInput.aggregate, "aggregate", false, "merge rows sharing a SKU")
	promoCmd.Flags().Float64Var(&promoDiscount, "discount", 0, "flat discount as a fraction of price")
	promoCmd.Flags().StringVar(&promoTierRules, "tier-rules", "", "per-tier discounts, e.g. A=0.05,B=0.1")
	promoCmd.Flags().StringVar(&promoFilter, "filter", "all",
		"row selection: "+strings.Join(promotion.FilterNames, ", "))
	promoCmd.Flags().StringVar(&promoTemplate, "template", "detalhe",
		"export layout: "+strings.Join(report.TemplateNames(), ", "))
	promoCmd.Flags().StringVar(&promoOutput, "output", "", "output file (.csv, .xlsx, .json or - for JSON on stdout)")
	promoPricing.register(promoCmd)
	_ = promoCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(promoCmd)
}
