package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/csvscope/internal/analysis"
	"github.com/KaramelBytes/csvscope/internal/charts"
	"github.com/KaramelBytes/csvscope/internal/utils"
	"github.com/spf13/cobra"
)

var (
	chtTable      tableFlags
	chtKind       string
	chtColumn     string
	chtOutputPath string
	chtDir        string
	chtWidth      int
	chtHeight     int
)

var chartCmd = &cobra.Command{
	Use:   "chart <file>",
	Short: "Render charts as SVG",
	Long: fmt.Sprintf(`Render one chart with --kind, or every chart that applies to the table into --dir.

Kinds: %s. The heatmap covers all numeric columns; the others use the
price-like column given by --column (default: first detected).`, kindList()),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := chtTable.load(args[0])
		if err != nil {
			return err
		}
		opt := currentConfig().ChartOptions()
		if chtWidth > 0 {
			opt.Width = chtWidth
		}
		if chtHeight > 0 {
			opt.Height = chtHeight
		}

		if chtKind == "" || chtKind == "all" {
			return renderAllCharts(cmd, t, opt)
		}
		kind, err := charts.ParseKind(chtKind)
		if err != nil {
			return err
		}
		column := ""
		if kind != charts.Heatmap {
			if column, err = analysis.SelectPriceColumn(t, chtColumn); err != nil {
				return err
			}
		}
		var buf bytes.Buffer
		if err := charts.Render(&buf, t, column, kind, opt); err != nil {
			return err
		}
		out := chtOutputPath
		if out == "" {
			out = string(kind) + ".svg"
		}
		if err := writeOutput(cmd.OutOrStdout(), out, buf.Bytes()); err != nil {
			return err
		}
		if out != "-" {
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s chart to %s\n", kind, out)
		}
		return nil
	},
}

// renderAllCharts writes every available chart to chtDir as <kind>.svg.
func renderAllCharts(cmd *cobra.Command, t *analysis.Table, opt charts.Options) error {
	column, err := analysis.SelectPriceColumn(t, chtColumn)
	if err != nil {
		if chtColumn != "" {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %v; only the heatmap can be drawn\n", err)
		column = ""
	}
	rendered, err := charts.RenderAll(contextOf(cmd), t, column, opt)
	if err != nil {
		return err
	}
	if len(rendered) == 0 {
		return fmt.Errorf("no charts apply to %s: %w", t.Name, analysis.ErrNoNumericColumns)
	}
	for _, c := range rendered {
		path := filepath.Join(chtDir, string(c.Kind)+".svg")
		if err := utils.SafeWriteFile(path, c.SVG); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s chart to %s\n", c.Kind, path)
	}
	return nil
}

func kindList() string {
	names := make([]string, 0, len(charts.Kinds()))
	for _, k := range charts.Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chtTable.register(chartCmd, false)
	chartCmd.Flags().StringVarP(&chtKind, "kind", "k", "", "chart kind, or 'all' (default all)")
	chartCmd.Flags().StringVarP(&chtColumn, "column", "c", "", "price-like column (default: first detected)")
	chartCmd.Flags().StringVarP(&chtOutputPath, "output", "o", "", "output SVG path for a single chart ('-' for stdout, default <kind>.svg)")
	chartCmd.Flags().StringVar(&chtDir, "dir", "charts", "output directory when rendering all charts")
	chartCmd.Flags().IntVar(&chtWidth, "width", 0, "chart width in pixels (default from config)")
	chartCmd.Flags().IntVar(&chtHeight, "height", 0, "chart height in pixels (default from config)")
}
