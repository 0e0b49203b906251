package cmd

import (
	"fmt"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	fltTable      tableFlags
	fltColumn     string
	fltMin        float64
	fltMax        float64
	fltOutputPath string
)

var filterCmd = &cobra.Command{
	Use:   "filter <file>",
	Short: "Keep rows whose price column lies within [min, max]",
	Long: `Filter rows by an inclusive range on a price-like column. --column defaults to the
first column whose name contains "price"; --min and --max default to the column's
smallest and largest values. Rows with a null value in the column are dropped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := fltTable.load(args[0])
		if err != nil {
			return err
		}
		col, err := analysis.SelectPriceColumn(t, fltColumn)
		if err != nil {
			return err
		}
		lo, hi, err := analysis.Range(t, col)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("min") {
			lo = fltMin
		}
		if cmd.Flags().Changed("max") {
			hi = fltMax
		}
		out, err := analysis.Filter(t, col, lo, hi)
		if err != nil {
			return err
		}
		data, err := analysis.Export(out)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), fltOutputPath, data); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ %d of %d rows with %s in [%g, %g]\n", out.Rows(), t.Rows(), col, lo, hi)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
	fltTable.register(filterCmd, false)
	filterCmd.Flags().StringVarP(&fltColumn, "column", "c", "", "price-like column to filter on (default: first detected)")
	filterCmd.Flags().Float64Var(&fltMin, "min", 0, "inclusive lower bound (default: column minimum)")
	filterCmd.Flags().Float64Var(&fltMax, "max", 0, "inclusive upper bound (default: column maximum)")
	filterCmd.Flags().StringVarP(&fltOutputPath, "output", "o", "", "output CSV path (default stdout)")
}
