// Package charts renders the fixed chart set for one table and one selected column.
// Every chart is drawn from scratch as SVG.
package charts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

// Kind names one chart of the fixed set.
type Kind string

const (
	Distribution   Kind = "distribution"
	Spread         Kind = "spread"
	ProductAverage Kind = "product-average"
	Heatmap        Kind = "heatmap"
)

// GroupColumn is the column whose presence enables the product-average chart.
const GroupColumn = "product"

var (
	// ErrUnknownKind indicates a chart name outside the fixed set.
	ErrUnknownKind = errors.New("unknown chart kind")
	// ErrNoGroupColumn indicates the table has no "product" column.
	ErrNoGroupColumn = errors.New(`no "product" column`)
	// ErrNoGroups indicates no product has a value in the selected column.
	ErrNoGroups = errors.New("no product has a value")
)

// Kinds returns the chart set in display order.
func Kinds() []Kind {
	return []Kind{Distribution, Spread, ProductAverage, Heatmap}
}

// ParseKind validates a chart name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Title returns a human-readable heading for the chart.
func (k Kind) Title() string {
	switch k {
	case Distribution:
		return "Price Distribution"
	case Spread:
		return "Price Spread (Outliers)"
	case ProductAverage:
		return "Product-wise Average Price"
	case Heatmap:
		return "Correlation Heatmap"
	}
	return string(k)
}

// Options controls chart geometry and binning.
type Options struct {
	Width     int
	Height    int
	MaxBins   int
	TopGroups int
}

// DefaultOptions returns the sizes used by the web UI.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 480, MaxBins: 50, TopGroups: 20}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.TopGroups <= 0 {
		o.TopGroups = d.TopGroups
	}
	return o
}

// Render draws one chart of t as SVG. column is the selected price column; it is
// ignored by the heatmap.
func Render(w io.Writer, t *analysis.Table, column string, kind Kind, opt Options) error {
	opt = opt.withDefaults()
	switch kind {
	case Distribution:
		return renderDistribution(w, t, column, opt)
	case Spread:
		return renderSpread(w, t, column, opt)
	case ProductAverage:
		return renderProductAverage(w, t, column, opt)
	case Heatmap:
		return renderHeatmap(w, t, opt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Available lists the kinds that can be drawn for t and column, in display order.
func Available(t *analysis.Table, column string) []Kind {
	var out []Kind
	if column != "" {
		if _, _, err := analysis.Range(t, column); err == nil {
			out = append(out, Distribution, Spread)
			if groups, err := finiteGroups(t, column, 1); err == nil && len(groups) > 0 {
				out = append(out, ProductAverage)
			}
		}
	}
	if numeric, _ := analysis.ClassifyColumns(t); len(numeric) > 0 {
		out = append(out, Heatmap)
	}
	return out
}

// Chart is one rendered SVG document.
type Chart struct {
	Kind Kind
	SVG  []byte
}

// RenderAll renders every available chart concurrently.
func RenderAll(ctx context.Context, t *analysis.Table, column string, opt Options) ([]Chart, error) {
	kinds := Available(t, column)
	out := make([]Chart, len(kinds))
	g, ctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := Render(&buf, t, column, k, opt); err != nil {
				return fmt.Errorf("render %s: %w", k, err)
			}
			out[i] = Chart{Kind: k, SVG: buf.Bytes()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// finiteGroups returns product means for column, dropping products without values.
func finiteGroups(t *analysis.Table, column string, top int) ([]analysis.GroupMean, error) {
	if _, ok := t.Column(GroupColumn); !ok {
		return nil, ErrNoGroupColumn
	}
	groups, err := analysis.GroupMeans(t, GroupColumn, column, 0)
	if err != nil {
		return nil, err
	}
	out := groups[:0]
	for _, g := range groups {
		if !math.IsNaN(g.Mean) {
			out = append(out, g)
		}
	}
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out, nil
}

// text escapes labels for the SVG renderer, which writes text nodes verbatim.
func text(s string) string { return html.EscapeString(s) }

// padRange widens [lo, hi] by frac on both ends; a degenerate range gets unit padding.
func padRange(lo, hi, frac float64) *chart.ContinuousRange {
	if hi <= lo {
		pad := math.Max(math.Abs(lo)*0.1, 1)
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	d := (hi - lo) * frac
	return &chart.ContinuousRange{Min: lo - d, Max: hi + d}
}

var (
	barFill   = drawing.ColorFromHex("4c72b0").WithAlpha(200)
	barStroke = drawing.ColorFromHex("2a4d7f")
	lineColor = drawing.ColorFromHex("1f3f73")
	dotColor  = drawing.ColorFromHex("c44e52")
)

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}
