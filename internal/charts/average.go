package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

// renderProductAverage draws the mean of column per product, highest first.
func renderProductAverage(w io.Writer, t *analysis.Table, column string, opt Options) error {
	if _, _, err := analysis.Range(t, column); err != nil {
		return err
	}
	groups, err := finiteGroups(t, column, opt.TopGroups)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		return ErrNoGroups
	}

	bars := make([]chart.Value, len(groups))
	lo, hi := 0.0, 0.0
	for i, g := range groups {
		bars[i] = chart.Value{
			Label: text(g.Key),
			Value: g.Mean,
			Style: chart.Style{StrokeColor: barStroke, StrokeWidth: 1, FillColor: barFill},
		}
		lo, hi = math.Min(lo, g.Mean), math.Max(hi, g.Mean)
	}
	yr := &chart.ContinuousRange{Min: lo * 1.05, Max: hi * 1.05}
	if lo == 0 && hi == 0 {
		yr.Max = 1
	}

	bc := chart.BarChart{
		Title:        text(fmt.Sprintf("Average %s by %s", column, GroupColumn)),
		Width:        opt.Width,
		Height:       opt.Height,
		Background:   background(),
		BarSpacing:   8,
		BarWidth:     max(4, (opt.Width-120)/len(bars)-8),
		UseBaseValue: lo < 0,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Name:  text(column),
			Range: yr,
		},
		Bars: bars,
	}
	return bc.Render(chart.SVG, w)
}
