package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insTable      tableFlags
	insOutputPath string
	insJSON       bool
	insSampleRows int
	insOutliers   bool
	insOutlierThr float64
	insQuiet      bool
)

// overview is the machine-readable form of inspect.
type overview struct {
	File         string               `json:"file"`
	Rows         int                  `json:"rows"`
	Columns      []string             `json:"columns"`
	Nulls        []analysis.NullCount `json:"nulls"`
	Numeric      []string             `json:"numeric_columns"`
	Text         []string             `json:"text_columns"`
	PriceColumns []string             `json:"price_columns"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <files...>",
	Short: "Summarize CSV/TSV/XLSX files: nulls, column types, price columns and statistics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		var out []string
		var views []overview
		for i, path := range files {
			if !insQuiet && len(files) > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", i+1, len(files), path)
			}
			t, err := insTable.load(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if insJSON {
				numeric, text := analysis.ClassifyColumns(t)
				views = append(views, overview{
					File:         filepath.Base(path),
					Rows:         t.Rows(),
					Columns:      t.Names(),
					Nulls:        analysis.MissingColumns(t),
					Numeric:      numeric,
					Text:         text,
					PriceColumns: analysis.DetectPriceColumns(t),
				})
				continue
			}
			opt := analysis.DefaultOptions()
			if insSampleRows >= 0 {
				opt.SampleRows = insSampleRows
			}
			opt.Outliers = insOutliers
			if insOutlierThr > 0 {
				opt.OutlierThreshold = insOutlierThr
			}
			out = append(out, analysis.Summarize(t, opt).Markdown())
		}

		var data []byte
		if insJSON {
			var v any = views
			if len(views) == 1 {
				v = views[0]
			}
			if data, err = utils.PrettyJSON(v); err != nil {
				return err
			}
			data = append(data, '\n')
		} else {
			data = []byte(strings.Join(out, "\n---\n\n"))
		}
		if err := writeOutput(cmd.OutOrStdout(), insOutputPath, data); err != nil {
			return err
		}
		if insOutputPath != "" && insOutputPath != "-" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", insOutputPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	insTable.register(inspectCmd, false)
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "optional path to write the summary")
	inspectCmd.Flags().BoolVar(&insJSON, "json", false, "print nulls, column types and price columns as JSON")
	inspectCmd.Flags().IntVar(&insSampleRows, "sample-rows", 5, "number of sample rows to include")
	inspectCmd.Flags().BoolVar(&insOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	inspectCmd.Flags().Float64Var(&insOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	inspectCmd.Flags().BoolVarP(&insQuiet, "quiet", "q", false, "suppress progress output")
}
