package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/monitoring"
	"github.com/carblue/pricing-cli/internal/report"
)

var (
	priceInput   inputFlags
	priceOutput  string
	priceGuess   bool
	pricePricing pricingFlags
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price a marketplace catalog report",
	Long: "Reads a marketplace report (CSV or XLSX), computes fees, taxes and net margin " +
		"for every row, classifies the catalog into ABC tiers and writes the result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine(engineOptions{guess: priceGuess || cfg.Import.GuessCategory})
		if err != nil {
			return err
		}
		req, err := pricePricing.request(cmd, eng)
		if err != nil {
			return err
		}
		rows, err := readRows(ctx, priceInput)
		if err != nil {
			return err
		}

		batch, err := eng.PriceCatalog(ctx, rows, req)
		if err != nil {
			return err
		}

		if sent := monitoring.NewAlerter(cfg.Monitoring).Check(ctx, batch); sent > 0 {
			zap.L().Info("price: alerts sent", zap.Int("count", sent))
		}

		if priceOutput != "" {
			tables := []report.Table{report.PricedRows(batch.Rows), report.Summary(batch.Summary)}
			if len(batch.Failures) > 0 {
				tables = append(tables, report.Failures(batch.Failures))
			}
			if err := writeOutput(cmd.OutOrStdout(), priceOutput, batch, tables...); err != nil {
				return err
			}
		}

		printBatch(cmd.OutOrStdout(), batch)
		return nil
	},
}

func printBatch(w io.Writer, b *engine.Batch) {
	snap := monitoring.Snapshot(b)
	fmt.Fprintf(w, "Batch %s  %s/%s  fees %s\n", b.ID, b.Marketplace, b.Regime, b.FeeVersion)
	fmt.Fprintf(w, "Priced %d  failed %d  healthy %d  warning %d  loss %d\n",
		snap.Priced, snap.Failed, snap.Healthy, snap.Warning, snap.Loss)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tITEMS\tREVENUE\tSHARE\tAVG PRICE")
	for _, s := range b.Summary {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.1f%%\t%.2f\n", s.Tier, s.Count, s.Revenue, s.Share*100, s.AvgPrice)
	}
	_ = tw.Flush()
}

func init() {
	priceCmd.Flags().StringVar(&priceInput.path, "input", "", "marketplace report (.csv or .xlsx)")
	priceCmd.Flags().StringVar(&priceInput.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	priceCmd.Flags().BoolVar(&priceInput.aggregate, "aggregate", false, "merge rows sharing a SKU")
	priceCmd.Flags().StringVar(&priceOutput, "output", "", "output file (.csv, .xlsx, .json or - for JSON on stdout)")
	priceCmd.Flags().BoolVar(&priceGuess, "guess-category", false, "guess missing categories from descriptions")
	pricePricing.register(priceCmd)
	_ = priceCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(priceCmd)
}
