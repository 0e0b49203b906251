package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

// Box geometry in x units; the x axis spans [0, 2].
const (
	boxLeft  = 0.6
	boxRight = 1.4
	capLeft  = 0.8
	capRight = 1.2
	boxMid   = 1.0
)

// renderSpread draws a vertical Tukey boxplot with outlier dots.
func renderSpread(w io.Writer, t *analysis.Table, column string, opt Options) error {
	if _, _, err := analysis.Range(t, column); err != nil {
		return err
	}
	c, _ := t.Column(column)
	vals := c.NonNullValues()
	b, ok := analysis.Box(vals)
	if !ok {
		return fmt.Errorf("%w: %q", analysis.ErrEmptyColumn, column)
	}

	boxStyle := chart.Style{StrokeColor: barStroke, StrokeWidth: 1.5, FillColor: barFill}
	lineStyle := chart.Style{StrokeColor: barStroke, StrokeWidth: 1.5}
	series := []chart.Series{
		chart.ContinuousSeries{
			Style:   boxStyle,
			XValues: []float64{boxLeft, boxLeft, boxRight, boxRight, boxLeft},
			YValues: []float64{b.Q1, b.Q3, b.Q3, b.Q1, b.Q1},
		},
		chart.ContinuousSeries{
			Name:    "median",
			Style:   chart.Style{StrokeColor: lineColor, StrokeWidth: 2.5},
			XValues: []float64{boxLeft, boxRight},
			YValues: []float64{b.Median, b.Median},
		},
		chart.ContinuousSeries{Style: lineStyle, XValues: []float64{boxMid, boxMid}, YValues: []float64{b.LowWhisker, b.Q1}},
		chart.ContinuousSeries{Style: lineStyle, XValues: []float64{boxMid, boxMid}, YValues: []float64{b.Q3, b.HighWhisker}},
		chart.ContinuousSeries{Style: lineStyle, XValues: []float64{capLeft, capRight}, YValues: []float64{b.LowWhisker, b.LowWhisker}},
		chart.ContinuousSeries{Style: lineStyle, XValues: []float64{capLeft, capRight}, YValues: []float64{b.HighWhisker, b.HighWhisker}},
	}
	if len(b.Outliers) > 0 {
		xs := make([]float64, len(b.Outliers))
		for i := range xs {
			xs[i] = boxMid
		}
		series = append(series, chart.ContinuousSeries{
			Name: "outliers",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    3,
				DotColor:    dotColor,
			},
			XValues: xs,
			YValues: b.Outliers,
		})
	}

	lo, hi := b.LowWhisker, b.HighWhisker
	for _, v := range b.Outliers {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	ch := chart.Chart{
		Title:      text(fmt.Sprintf("Spread of %s", column)),
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis: chart.XAxis{
			Style: chart.Style{Hidden: true},
			Range: &chart.ContinuousRange{Min: 0, Max: 2},
		},
		YAxis: chart.YAxis{
			Name:  text(column),
			Range: padRange(lo, hi, 0.05),
		},
		Series: series,
	}
	return ch.Render(chart.SVG, w)
}
