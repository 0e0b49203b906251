package charts

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

const (
	heatmapFontSize = 9.0
	colorbarWidth   = 14
	colorbarSteps   = 64
)

var (
	nanColor  = drawing.Color{R: 200, G: 200, B: 200, A: 255}
	coolColor = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	midColor  = drawing.Color{R: 221, G: 221, B: 221, A: 255}
	warmColor = drawing.Color{R: 180, G: 4, B: 38, A: 255}
)

// coolwarm maps x in [0, 1] onto a diverging blue-grey-red scale.
func coolwarm(x float64) drawing.Color {
	x = math.Max(0, math.Min(1, x))
	if x < 0.5 {
		return mix(coolColor, midColor, x*2)
	}
	return mix(midColor, warmColor, (x-0.5)*2)
}

func mix(a, b drawing.Color, f float64) drawing.Color {
	lerp := func(p, q uint8) uint8 { return uint8(math.Round(float64(p) + (float64(q)-float64(p))*f)) }
	return drawing.Color{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: 255}
}

// renderHeatmap draws the Pearson matrix of all numeric columns. The color scale
// spans the smallest to largest defined coefficient; undefined cells are grey.
func renderHeatmap(w io.Writer, t *analysis.Table, opt Options) error {
	m, err := analysis.Correlations(t)
	if err != nil {
		return err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return err
	}
	r, err := chart.SVG(opt.Width, opt.Height)
	if err != nil {
		return err
	}
	r.SetFont(font)
	r.SetFontSize(heatmapFontSize)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range m.Values {
		for _, v := range row {
			if !math.IsNaN(v) {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
	}
	scale := func(v float64) drawing.Color {
		if math.IsNaN(v) {
			return nanColor
		}
		if hi <= lo {
			return coolwarm(0.5)
		}
		return coolwarm((v - lo) / (hi - lo))
	}

	labels := make([]string, len(m.Columns))
	labelW := 0
	for i, c := range m.Columns {
		labels[i] = text(c)
		if bw := r.MeasureText(labels[i]).Width(); bw > labelW {
			labelW = bw
		}
	}
	labelW = min(labelW, opt.Width/4)

	n := len(m.Columns)
	const titleH, margin, gap = 36, 12, 6
	left := margin + labelW + gap
	top := titleH
	gridW := opt.Width - left - colorbarWidth - 60 - margin
	gridH := opt.Height - top - labelW - gap - margin
	cell := max(1, min(gridW, gridH)/n)

	fillRect(r, 0, 0, opt.Width, opt.Height, drawing.ColorWhite, drawing.ColorWhite)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x, y := left+j*cell, top+i*cell
			fillRect(r, x, y, cell, cell, scale(m.Values[i][j]), drawing.ColorWhite)
		}
	}

	r.SetFontColor(drawing.ColorBlack)
	for i, l := range labels {
		tb := r.MeasureText(l)
		r.Text(l, left-gap-tb.Width(), top+i*cell+cell/2+tb.Height()/2)
	}
	r.SetTextRotation(chart.DegreesToRadians(-90))
	for j, l := range labels {
		tb := r.MeasureText(l)
		r.Text(l, left+j*cell+cell/2+tb.Height()/2, top+n*cell+gap+tb.Width())
	}
	r.ClearTextRotation()

	// colorbar, high values on top
	barX := left + n*cell + 2*margin
	barH := n * cell
	if hi >= lo {
		for s := 0; s < colorbarSteps; s++ {
			y0 := top + barH*s/colorbarSteps
			y1 := top + barH*(s+1)/colorbarSteps
			f := 1 - (float64(s)+0.5)/colorbarSteps
			fillRect(r, barX, y0, colorbarWidth, max(1, y1-y0), coolwarm(f), coolwarm(f))
		}
		r.SetFontColor(drawing.ColorBlack)
		r.Text(fmt.Sprintf("%.2f", hi), barX+colorbarWidth+4, top+int(heatmapFontSize))
		r.Text(fmt.Sprintf("%.2f", lo), barX+colorbarWidth+4, top+barH)
	}

	r.SetFontSize(13)
	title := "Correlation Heatmap"
	tb := r.MeasureText(title)
	r.Text(title, (opt.Width-tb.Width())/2, titleH/2+tb.Height()/2)
	return r.Save(w)
}

func fillRect(r chart.Renderer, x, y, w, h int, fill, stroke drawing.Color) {
	r.SetFillColor(fill)
	r.SetStrokeColor(stroke)
	r.SetStrokeWidth(1)
	r.MoveTo(x, y)
	r.LineTo(x+w, y)
	r.LineTo(x+w, y+h)
	r.LineTo(x, y+h)
	r.Close()
	r.FillStroke()
}
