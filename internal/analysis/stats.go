package analysis

import (
	"fmt"
	"math"
	"sort"
)

// Median returns the linear-interpolated median of vals, skipping NaN.
// It returns NaN when no values are present.
func Median(vals []float64) float64 {
	s := sortedFinite(vals)
	if len(s) == 0 {
		return math.NaN()
	}
	return quantile(s, 0.5)
}

// Range returns the minimum and maximum non-null value of a numeric column.
func Range(t *Table, column string) (lo, hi float64, err error) {
	c, err := t.numericColumn(column)
	if err != nil {
		return 0, 0, err
	}
	vals := c.NonNullValues()
	if len(vals) == 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrEmptyColumn, column)
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, nil
}

// MeanStd returns the mean and sample standard deviation (ddof=1) using Welford's
// update. Std is 0 for fewer than two values.
func MeanStd(vals []float64) (mean, std float64) {
	var n int
	var m2 float64
	for _, x := range vals {
		if math.IsNaN(x) {
			continue
		}
		n++
		delta := x - mean
		mean += delta / float64(n)
		m2 += delta * (x - mean)
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	if n > 1 {
		std = math.Sqrt(m2 / float64(n-1))
	}
	return mean, std
}

// BoxStats summarizes a sample the way a Tukey boxplot draws it.
type BoxStats struct {
	Q1, Median, Q3 float64
	// LowWhisker and HighWhisker are the most extreme values within 1.5*IQR of the box.
	LowWhisker, HighWhisker float64
	Outliers                []float64
}

// Box computes boxplot statistics over the non-NaN values.
func Box(vals []float64) (BoxStats, bool) {
	s := sortedFinite(vals)
	if len(s) == 0 {
		return BoxStats{}, false
	}
	b := BoxStats{Q1: quantile(s, 0.25), Median: quantile(s, 0.5), Q3: quantile(s, 0.75)}
	iqr := b.Q3 - b.Q1
	loFence, hiFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowWhisker, b.HighWhisker = b.Q1, b.Q3
	for _, v := range s {
		if v >= loFence {
			b.LowWhisker = math.Min(v, b.Q1)
			break
		}
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] <= hiFence {
			b.HighWhisker = math.Max(s[i], b.Q3)
			break
		}
	}
	for _, v := range s {
		if v < loFence || v > hiFence {
			b.Outliers = append(b.Outliers, v)
		}
	}
	return b, true
}

// Histogram is a set of equal-width bins; len(Edges) == len(Counts)+1.
type Histogram struct {
	Edges  []float64
	Counts []int
}

// Width returns the common bin width.
func (h Histogram) Width() float64 {
	if len(h.Edges) < 2 {
		return 0
	}
	return h.Edges[1] - h.Edges[0]
}

// Bins builds a histogram choosing the bin count with the "auto" rule: the smaller
// of the Freedman-Diaconis and Sturges widths. maxBins caps the count when > 0.
func Bins(vals []float64, maxBins int) Histogram {
	s := sortedFinite(vals)
	if len(s) == 0 {
		return Histogram{}
	}
	lo, hi := s[0], s[len(s)-1]
	if lo == hi {
		return Histogram{Edges: []float64{lo - 0.5, hi + 0.5}, Counts: []int{len(s)}}
	}
	n := float64(len(s))
	span := hi - lo
	width := span / (math.Log2(n) + 1)
	if iqr := quantile(s, 0.75) - quantile(s, 0.25); iqr > 0 {
		if fd := 2 * iqr * math.Pow(n, -1.0/3); fd < width {
			width = fd
		}
	}
	nbins := int(math.Ceil(span / width))
	if nbins < 1 {
		nbins = 1
	}
	if maxBins > 0 && nbins > maxBins {
		nbins = maxBins
	}
	h := Histogram{Edges: make([]float64, nbins+1), Counts: make([]int, nbins)}
	for i := range h.Edges {
		h.Edges[i] = lo + span*float64(i)/float64(nbins)
	}
	for _, v := range s {
		i := int((v - lo) / span * float64(nbins))
		if i >= nbins {
			i = nbins - 1
		}
		h.Counts[i]++
	}
	return h
}

// KDE evaluates a Gaussian kernel density estimate with Scott's bandwidth at xs.
// It returns nil when the bandwidth is undefined (fewer than two values or zero spread).
func KDE(vals []float64, xs []float64) []float64 {
	s := sortedFinite(vals)
	if len(s) < 2 {
		return nil
	}
	_, std := MeanStd(s)
	bw := std * math.Pow(float64(len(s)), -0.2)
	if bw <= 0 || math.IsNaN(bw) {
		return nil
	}
	norm := 1 / (float64(len(s)) * bw * math.Sqrt(2*math.Pi))
	out := make([]float64, len(xs))
	for i, x := range xs {
		var sum float64
		for _, v := range s {
			z := (x - v) / bw
			sum += math.Exp(-0.5 * z * z)
		}
		out[i] = sum * norm
	}
	return out
}

// GroupMean is the mean of a value column for one key.
type GroupMean struct {
	Key   string
	Mean  float64
	Count int
}

// GroupMeans averages valueCol per distinct non-null keyCol value. Groups are ordered
// by mean descending (ties by key), groups without values last; top limits the
// result when > 0.
func GroupMeans(t *Table, keyCol, valueCol string, top int) ([]GroupMean, error) {
	kc, ok := t.Column(keyCol)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, keyCol)
	}
	vc, err := t.numericColumn(valueCol)
	if err != nil {
		return nil, err
	}
	type acc struct {
		sum float64
		n   int
	}
	groups := map[string]*acc{}
	for i := 0; i < t.Rows(); i++ {
		if kc.Nulls[i] {
			continue
		}
		k := kc.Cells[i]
		g := groups[k]
		if g == nil {
			g = &acc{}
			groups[k] = g
		}
		if !vc.Nulls[i] {
			g.sum += vc.Values[i]
			g.n++
		}
	}
	out := make([]GroupMean, 0, len(groups))
	for k, g := range groups {
		m := math.NaN()
		if g.n > 0 {
			m = g.sum / float64(g.n)
		}
		out = append(out, GroupMean{Key: k, Mean: m, Count: g.n})
	}
	sort.Slice(out, func(i, j int) bool {
		mi, mj := out[i].Mean, out[j].Mean
		switch {
		case math.IsNaN(mi) && math.IsNaN(mj):
			return out[i].Key < out[j].Key
		case math.IsNaN(mi):
			return false
		case math.IsNaN(mj):
			return true
		case mi == mj:
			return out[i].Key < out[j].Key
		}
		return mi > mj
	})
	if top > 0 && len(out) > top {
		out = out[:top]
	}
	return out, nil
}

// CorrMatrix is a square Pearson correlation matrix; undefined entries are NaN.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64
}

type pairAcc struct {
	n     float64
	sumX  float64
	sumY  float64
	sumXX float64
	sumYY float64
	sumXY float64
}

func (pa *pairAcc) add(x, y float64) {
	pa.n++
	pa.sumX += x
	pa.sumY += y
	pa.sumXX += x * x
	pa.sumYY += y * y
	pa.sumXY += x * y
}

func (pa *pairAcc) r() float64 {
	if pa.n < 2 {
		return math.NaN()
	}
	vx := pa.n*pa.sumXX - pa.sumX*pa.sumX
	vy := pa.n*pa.sumYY - pa.sumY*pa.sumY
	if vx <= 0 || vy <= 0 {
		return math.NaN()
	}
	r := (pa.n*pa.sumXY - pa.sumX*pa.sumY) / math.Sqrt(vx*vy)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Correlations computes pairwise-complete Pearson correlations across all numeric
// columns in table order. Constant columns and pairs with fewer than two shared
// rows yield NaN.
func Correlations(t *Table) (*CorrMatrix, error) {
	numeric, _ := ClassifyColumns(t)
	if len(numeric) == 0 {
		return nil, ErrNoNumericColumns
	}
	cols := make([]*Column, len(numeric))
	for i, name := range numeric {
		cols[i], _ = t.Column(name)
	}
	n := len(cols)
	mat := make([][]float64, n)
	for i := range mat {
		mat[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			pa := &pairAcc{}
			for i := 0; i < t.Rows(); i++ {
				if cols[a].Nulls[i] || cols[b].Nulls[i] {
					continue
				}
				pa.add(cols[a].Values[i], cols[b].Values[i])
			}
			r := pa.r()
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			mat[a][b], mat[b][a] = r, r
		}
	}
	return &CorrMatrix{Columns: numeric, Values: mat}, nil
}

func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func sortedFinite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
