package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carblue/pricing-cli/internal/abc"
	"github.com/carblue/pricing-cli/internal/catalog"
	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/report"
)

var (
	abcInput   inputFlags
	abcOutput  string
	abcMinRows int
	abcTop     int
)

var abcCmd = &cobra.Command{
	Use:   "abc",
	Short: "Rank a sales report into ABC tiers",
	Long: "Ranks products by revenue and assigns each one to tier A, B or C by cumulative " +
		"revenue share. Duplicate SKUs are merged before ranking.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(engineOptions{})
		if err != nil {
			return err
		}

		in := abcInput
		in.aggregate = true
		rows, err := readRows(cmd.Context(), in)
		if err != nil {
			return err
		}
		if err := catalog.ValidateSales(rows, abcMinRows); err != nil {
			return err
		}

		items := make([]abc.Item, len(rows))
		for i, r := range rows {
			items[i] = abc.Item{ID: r.SKU, Revenue: r.SalesRevenue()}
		}
		ranked, err := eng.Classify(items)
		if err != nil {
			return err
		}

		classified := make([]model.PricedRow, len(rows))
		for _, r := range ranked {
			classified[r.Index] = model.PricedRow{ProductRow: rows[r.Index]}.WithTier(r.Tier)
		}
		summary := abc.Summarize(classified)

		if abcOutput != "" {
			v := struct {
				Limits  abc.Limits        `json:"limits"`
				Ranked  []abc.Ranked      `json:"ranked"`
				Summary []abc.TierSummary `json:"summary"`
			}{eng.Limits(), ranked, summary}
			if err := writeOutput(cmd.OutOrStdout(), abcOutput, v, report.Ranking(ranked), report.Summary(summary)); err != nil {
				return err
			}
		}

		w := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIER\tITEMS\tREVENUE\tSHARE\tAVG PRICE")
		for _, s := range summary {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.1f%%\t%.2f\n", s.Tier, s.Count, s.Revenue, s.Share*100, s.AvgPrice)
		}
		_ = tw.Flush()

		if abcTop > 0 {
			fmt.Fprintln(w)
			tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tSKU\tREVENUE\tCUMULATIVE\tTIER")
			for i, r := range ranked {
				if i >= abcTop || r.Rank == 0 {
					break
				}
				fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.1f%%\t%s\n", r.Rank, r.ID, r.Revenue, r.CumulativeShare*100, r.Tier)
			}
			_ = tw.Flush()
		}
		return nil
	},
}

func init() {
	abcCmd.Flags().StringVar(&abcInput.path, "input", "", "sales report (.csv or .xlsx)")
	abcCmd.Flags().StringVar(&abcInput.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	abcCmd.Flags().StringVar(&abcOutput, "output", "", "output file (.csv, .xlsx, .json or - for JSON on stdout)")
	abcCmd.Flags().IntVar(&abcMinRows, "min-rows", 5, "minimum number of products to rank")
	abcCmd.Flags().IntVar(&abcTop, "top", 10, "print the top N ranked products")
	_ = abcCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(abcCmd)
}
