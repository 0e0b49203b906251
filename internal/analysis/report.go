package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Report is a markdown-friendly summary of a loaded table.
type Report struct {
	Name         string
	Rows         int
	Cols         []ColumnSummary
	Samples      [][]string
	PriceColumns []string
	Groups       []GroupMean
	GroupKey     string
	GroupValue   string
	Corr         *CorrMatrix
	Warnings     []string
}

// ColumnSummary captures the inferred kind and statistics of one column.
type ColumnSummary struct {
	Name    string
	Kind    Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min    float64
	Max    float64
	Mean   float64
	Std    float64
	Median float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Text top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// productColumn is the grouping column used for per-product averages.
const productColumn = "product"

// Summarize builds a Report for t.
func Summarize(t *Table, opt Options) *Report {
	rep := &Report{Name: t.Name, Rows: t.Rows()}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	rep.Samples = t.Head(sampleRows)
	for _, c := range t.Columns {
		s := ColumnSummary{Name: c.Name, Kind: c.Kind, Missing: c.NullCount()}
		s.NonNull = c.Len() - s.Missing
		switch c.Kind {
		case KindNumeric:
			vals := c.NonNullValues()
			lo, hi, _ := Range(t, c.Name)
			s.Min, s.Max = lo, hi
			s.Mean, s.Std = MeanStd(vals)
			s.Median = Median(vals)
			s.Unique = countUnique(c)
			if opt.Outliers && len(vals) >= 8 {
				median, mad := medianMAD(vals)
				thr := opt.OutlierThreshold
				if thr <= 0 {
					thr = 3.5
				}
				if mad > 0 {
					for _, v := range vals {
						az := math.Abs(0.6745 * (v - median) / mad)
						if az > thr {
							s.OutliersCount++
						}
						if az > s.OutliersMaxAbsZ {
							s.OutliersMaxAbsZ = az
						}
					}
				}
				s.OutlierThreshold = thr
			}
		default:
			s.TopValues, s.Unique = topValues(c, 8)
		}
		rep.Cols = append(rep.Cols, s)
	}

	rep.PriceColumns = DetectPriceColumns(t)
	if len(rep.PriceColumns) == 0 {
		rep.Warnings = append(rep.Warnings, "no price-like column found; charts and filtering are unavailable")
	} else if sel, err := SelectPriceColumn(t, ""); err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("price column unusable: %v", err))
	} else if _, ok := t.Column(productColumn); ok {
		if groups, err := GroupMeans(t, productColumn, sel, 10); err == nil {
			rep.Groups, rep.GroupKey, rep.GroupValue = groups, productColumn, sel
		}
	}
	if corr, err := Correlations(t); err == nil {
		rep.Corr = corr
	}
	for _, m := range MissingColumns(t) {
		if m.Nulls == t.Rows() {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q is entirely empty", m.Column))
		}
	}
	return rep
}

func countUnique(c *Column) int {
	seen := map[string]struct{}{}
	for i, s := range c.Cells {
		if !c.Nulls[i] {
			seen[s] = struct{}{}
		}
	}
	return len(seen)
}

func topValues(c *Column, limit int) ([]CategoryCount, int) {
	counts := map[string]int{}
	for i, s := range c.Cells {
		if !c.Nulls[i] {
			counts[s]++
		}
	}
	tops := make([]CategoryCount, 0, len(counts))
	for k, v := range counts {
		tops = append(tops, CategoryCount{Value: k, Count: v})
	}
	sort.Slice(tops, func(i, j int) bool {
		if tops[i].Count == tops[j].Count {
			return tops[i].Value < tops[j].Value
		}
		return tops[i].Count > tops[j].Count
	})
	if len(tops) > limit {
		tops = tops[:limit]
	}
	return tops, len(counts)
}

// Markdown renders a compact report for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d = %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, c.Missing, missPct))
		switch c.Kind {
		case KindNumeric:
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, median %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Median, c.Std))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
			}
		default:
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.PriceColumns) > 0 {
		b.WriteString("\n[PRICE COLUMNS]\n")
		for _, p := range r.PriceColumns {
			b.WriteString(fmt.Sprintf("- %s\n", safeName(p)))
		}
	}
	if len(r.Groups) > 0 {
		b.WriteString(fmt.Sprintf("\n[AVERAGE %s BY %s]\n", strings.ToUpper(r.GroupValue), strings.ToUpper(r.GroupKey)))
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s: %.4g (n=%d)\n", safeVal(g.Key), g.Mean, g.Count))
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if v := r.Corr.Values[i][j]; !math.IsNaN(v) {
					pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: v})
				}
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai := math.Abs(pairs[i].R)
			aj := math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				b.WriteString(safeVal(truncate(val, 80)))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
