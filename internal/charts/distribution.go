package charts

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

// kdePoints is the number of samples along the density curve.
const kdePoints = 200

// renderDistribution draws a histogram of the column with a KDE curve scaled to counts.
func renderDistribution(w io.Writer, t *analysis.Table, column string, opt Options) error {
	if _, _, err := analysis.Range(t, column); err != nil {
		return err
	}
	c, _ := t.Column(column)
	vals := c.NonNullValues()
	h := analysis.Bins(vals, opt.MaxBins)

	series := make([]chart.Series, 0, len(h.Counts)+1)
	maxY := 0.0
	for i, n := range h.Counts {
		l, r, y := h.Edges[i], h.Edges[i+1], float64(n)
		if y > maxY {
			maxY = y
		}
		series = append(series, chart.ContinuousSeries{
			Style: chart.Style{
				StrokeColor: barStroke,
				StrokeWidth: 1,
				FillColor:   barFill,
			},
			XValues: []float64{l, l, r, r},
			YValues: []float64{0, y, y, 0},
		})
	}

	lo, hi := h.Edges[0], h.Edges[len(h.Edges)-1]
	xs := make([]float64, kdePoints)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(kdePoints-1)
	}
	if dens := analysis.KDE(vals, xs); dens != nil {
		scale := float64(len(vals)) * h.Width()
		ys := make([]float64, len(dens))
		for i, d := range dens {
			ys[i] = d * scale
			if ys[i] > maxY {
				maxY = ys[i]
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "density",
			Style:   chart.Style{StrokeColor: lineColor, StrokeWidth: 2},
			XValues: xs,
			YValues: ys,
		})
	}

	ch := chart.Chart{
		Title:      text(fmt.Sprintf("Distribution of %s", column)),
		Width:      opt.Width,
		Height:     opt.Height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  text(column),
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		YAxis: chart.YAxis{
			Name:  "Count",
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.05},
		},
		Series: series,
	}
	return ch.Render(chart.SVG, w)
}
