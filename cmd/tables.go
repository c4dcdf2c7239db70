package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	tablesSnapshot string
	tablesList     bool
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Print the fee tables in effect",
	Long: "Prints the fee table snapshot as YAML. The output can be edited and loaded back " +
		"through fees.snapshot_path to update fees without a release.",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine(engineOptions{})
		if err != nil {
			return err
		}
		cat := eng.Catalog()
		w := cmd.OutOrStdout()

		if tablesList {
			fmt.Fprintf(w, "version %s\n", cat.Version())
			for _, k := range cat.Keys() {
				fmt.Fprintln(w, k)
			}
			return nil
		}

		data, err := cat.YAML()
		if err != nil {
			return err
		}
		if tablesSnapshot != "" {
			if err := os.WriteFile(tablesSnapshot, data, 0o644); err != nil {
				return eris.Wrap(err, "write snapshot")
			}
			fmt.Fprintf(w, "wrote fee tables %s to %s\n", cat.Version(), tablesSnapshot)
			return nil
		}
		_, err = w.Write(data)
		return err
	},
}

func init() {
	tablesCmd.Flags().StringVar(&tablesSnapshot, "snapshot", "", "write the YAML snapshot to this file")
	tablesCmd.Flags().BoolVar(&tablesList, "list", false, "list table keys only")
	rootCmd.AddCommand(tablesCmd)
}
