package cmd

import (
	"fmt"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/parser"
	"github.com/spf13/cobra"
)

var (
	clnTable      tableFlags
	clnOutputPath string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Fill missing values and export the table as CSV",
	Long: `Load a table, report null values per column, fill them (numeric columns with the
column median, text columns with fill_text) and write the result as CSV.
Use --fill=false to export the table unchanged.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := clnTable.options()
		if err != nil {
			return err
		}
		t, err := parser.LoadFile(args[0], opt)
		if err != nil {
			return err
		}
		stderr := cmd.ErrOrStderr()
		missing := analysis.MissingColumns(t)
		if len(missing) == 0 {
			fmt.Fprintln(stderr, "✓ No null values found")
		}
		for _, m := range missing {
			fmt.Fprintf(stderr, "⚠ %s: %d null values\n", m.Column, m.Nulls)
		}
		if clnTable.fill && len(missing) > 0 {
			t = analysis.FillNullsWith(t, currentConfig().FillText)
			fmt.Fprintf(stderr, "✓ Filled null values in %d columns\n", len(missing))
		}

		data, err := analysis.Export(t)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), clnOutputPath, data); err != nil {
			return err
		}
		if clnOutputPath != "-" {
			fmt.Fprintf(stderr, "✓ Wrote %d rows to %s\n", t.Rows(), clnOutputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clnTable.register(cleanCmd, true)
	cleanCmd.Flags().StringVarP(&clnOutputPath, "output", "o", "cleaned_data.csv", "output CSV path ('-' for stdout)")
}
