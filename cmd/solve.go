package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carblue/pricing-cli/internal/model"
	"github.com/carblue/pricing-cli/internal/report"
	"github.com/carblue/pricing-cli/internal/solver"
)

var (
	solveInput   inputFlags
	solveOutput  string
	solvePricing pricingFlags
	solveCost    float64
	solveFixed   float64
	solveRate    float64
	solveIterate bool
)

const (
	solveMaxIter   = 25
	solveTolerance = 0.005
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Suggest prices that reach the target margin",
	Long: "Solves the price that yields the target net margin and the promotional floor " +
		"at the minimum margin. Either pass a cost structure with --cost, --fixed-fee and " +
		"--variable-rate, or a catalog with --input to solve every row against its fee schedule.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(engineOptions{guess: cfg.Import.GuessCategory})
		if err != nil {
			return err
		}
		req, err := solvePricing.request(cmd, eng)
		if err != nil {
			return err
		}

		if solveInput.path == "" {
			in := solver.Input{
				DirectCost:      solveCost,
				FixedFee:        solveFixed,
				VariableRate:    solveRate,
				TargetMarginPct: req.Params.TargetMarginPct,
			}
			if err := in.Validate(); err != nil {
				return err
			}
			q := solver.Quote(in, req.Params.MinMarginPct)
			if solveOutput != "" {
				if err := writeOutput(cmd.OutOrStdout(), solveOutput, q, report.Quotation(q)); err != nil {
					return err
				}
			}
			printQuotation(cmd.OutOrStdout(), q)
			return nil
		}

		rows, err := readRows(cmd.Context(), solveInput)
		if err != nil {
			return err
		}

		var (
			out    []report.Suggestion
			failed []model.RowFailure
		)
		for i, row := range rows {
			q, err := eng.SolveRow(row, req)
			if err == nil && solveIterate {
				var it solver.Iteration
				it, err = eng.SolveRowIterative(row, req, solveMaxIter, solveTolerance)
				if err == nil {
					q.Suggested = it.Result
					if !it.Converged {
						zap.L().Warn("solve: price did not converge",
							zap.String("sku", row.SKU),
							zap.Int("iterations", it.Iterations),
						)
					}
				}
			}
			if err != nil {
				zap.L().Warn("solve: row failed", zap.String("sku", row.SKU), zap.Error(err))
				failed = append(failed, model.RowFailure{Index: i, SKU: row.SKU, Error: err.Error()})
				continue
			}
			out = append(out, report.Suggestion{
				SKU:          row.SKU,
				Description:  row.Description,
				CurrentPrice: row.Price,
				Quote:        q,
			})
		}

		if solveOutput != "" {
			tables := []report.Table{report.Suggestions(out)}
			if len(failed) > 0 {
				tables = append(tables, report.Failures(failed))
			}
			v := struct {
				Suggestions []report.Suggestion `json:"suggestions"`
				Failures    []model.RowFailure  `json:"failures,omitempty"`
			}{out, failed}
			if err := writeOutput(cmd.OutOrStdout(), solveOutput, v, tables...); err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Solved %d rows, %d failed\n", len(out), len(failed))
		return nil
	},
}

func printQuotation(w io.Writer, q solver.Quotation) {
	for _, s := range []struct {
		name string
		r    solver.Result
	}{{"suggested", q.Suggested}, {"floor", q.Floor}} {
		if !s.r.Feasible {
			fmt.Fprintf(w, "%-10s infeasible (%s) at %.2f%% margin\n", s.name, s.r.Reason, s.r.MarginPct)
			continue
		}
		fmt.Fprintf(w, "%-10s %.2f  profit %.2f  margin %.2f%%\n", s.name, s.r.Price, s.r.Profit, s.r.MarginPct)
	}
}

func init() {
	solveCmd.Flags().Float64Var(&solveCost, "cost", 0, "direct cost per unit (product plus shipping)")
	solveCmd.Flags().Float64Var(&solveFixed, "fixed-fee", 0, "fixed fee per sale")
	solveCmd.Flags().Float64Var(&solveRate, "variable-rate", 0, "variable fees as a fraction of price")
	solveCmd.Flags().StringVar(&solveInput.path, "input", "", "marketplace report to solve row by row")
	solveCmd.Flags().StringVar(&solveInput.sheet, "sheet", "", "XLSX sheet name (default first sheet)")
	solveCmd.Flags().BoolVar(&solveInput.aggregate, "aggregate", false, "merge rows sharing a SKU")
	solveCmd.Flags().BoolVar(&solveIterate, "iterate", false, "re-resolve fee brackets at the solved price")
	solveCmd.Flags().StringVar(&solveOutput, "output", "", "output file (.csv, .xlsx, .json or - for JSON on stdout)")
	solvePricing.register(solveCmd)
	solveCmd.MarkFlagsMutuallyExclusive("input", "cost")
	rootCmd.AddCommand(solveCmd)
}
