package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the inferred primitive kind of a column.
type Kind string

const (
	KindNumeric Kind = "numeric"
	KindText    Kind = "text"
)

// DefaultFillText replaces missing cells in text columns.
const DefaultFillText = "UNKNOWN"

// Options controls how raw records become a Table.
type Options struct {
	// MaxRows rejects inputs with more data rows; 0 means unlimited.
	MaxRows int
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Delimiter for CSV. If 0, the loader picks one from the file name.
	Delimiter rune
	// Numeric parsing locale. DecimalSeparator defaults to '.'; ThousandsSeparator
	// is stripped only when set.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// Outlier detection via robust Z-score (MAD) in the summary report.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for loading and summarizing tables.
func DefaultOptions() Options {
	return Options{
		MaxRows:          0,
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// nullTokens are the cell spellings treated as missing, matched after trimming.
var nullTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"1.#IND": {}, "1.#QNAN": {}, "-1.#IND": {}, "-1.#QNAN": {},
}

// IsNullToken reports whether a raw cell value counts as missing.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

// Column is one named column of a Table.
type Column struct {
	Name string
	Kind Kind
	// Cells holds the cell text as read; null cells are empty.
	Cells []string
	// Values holds parsed numbers for numeric columns (NaN where null); nil for text.
	Values []float64
	// Nulls marks missing cells.
	Nulls []bool
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Cells) }

// NullCount returns the number of missing cells.
func (c *Column) NullCount() int {
	n := 0
	for _, isNull := range c.Nulls {
		if isNull {
			n++
		}
	}
	return n
}

// NonNullValues returns the numeric values that are present, in row order.
func (c *Column) NonNullValues() []float64 {
	if c.Kind != KindNumeric {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for i, v := range c.Values {
		if !c.Nulls[i] {
			out = append(out, v)
		}
	}
	return out
}

func (c *Column) clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind}
	cp.Cells = append([]string(nil), c.Cells...)
	cp.Nulls = append([]bool(nil), c.Nulls...)
	if c.Values != nil {
		cp.Values = append([]float64(nil), c.Values...)
	}
	return cp
}

// Table is an in-memory rows x named columns structure. Column names and order
// are fixed once built; operations that change cells return a new Table.
type Table struct {
	Name    string
	Columns []*Column
	rows    int
	index   map[string]int
}

// NewTable builds a Table from a header and data records. Records shorter than the
// header are padded with nulls; longer records are rejected.
func NewTable(name string, header []string, records [][]string, opt Options) (*Table, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrUnreadableFile)
	}
	if opt.MaxRows > 0 && len(records) > opt.MaxRows {
		return nil, fmt.Errorf("%w: %d rows exceeds limit of %d", ErrTooManyRows, len(records), opt.MaxRows)
	}
	names := normalizeHeader(header)
	ncol := len(names)
	t := &Table{Name: name, Columns: make([]*Column, ncol), rows: len(records), index: make(map[string]int, ncol)}
	for j, n := range names {
		t.Columns[j] = &Column{Name: n, Cells: make([]string, len(records)), Nulls: make([]bool, len(records))}
		t.index[n] = j
	}
	for i, rec := range records {
		if len(rec) > ncol {
			// header line is line 1
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d", ErrUnreadableFile, i+2, ncol, len(rec))
		}
		for j := 0; j < ncol; j++ {
			c := t.Columns[j]
			if j >= len(rec) || IsNullToken(rec[j]) {
				c.Nulls[i] = true
				continue
			}
			c.Cells[i] = rec[j]
		}
	}
	for _, c := range t.Columns {
		inferKind(c, opt)
	}
	return t, nil
}

// inferKind marks a column numeric when it has at least one value and every
// present value parses as a number.
func inferKind(c *Column, opt Options) {
	vals := make([]float64, len(c.Cells))
	present := 0
	for i, s := range c.Cells {
		if c.Nulls[i] {
			vals[i] = math.NaN()
			continue
		}
		x, ok := parseNumeric(s, opt)
		if !ok {
			c.Kind = KindText
			c.Values = nil
			return
		}
		vals[i] = x
		present++
	}
	if present == 0 {
		c.Kind = KindText
		return
	}
	c.Kind = KindNumeric
	c.Values = vals
}

// normalizeHeader trims names, strips a UTF-8 BOM, names blank headers
// "Unnamed: <i>" and suffixes duplicates with ".1", ".2", ...
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		if last, dup := seen[h]; dup {
			for k := last + 1; ; k++ {
				cand := fmt.Sprintf("%s.%d", h, k)
				if _, taken := seen[cand]; !taken {
					name = cand
					seen[h] = k
					break
				}
			}
		}
		if _, ok := seen[name]; !ok {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// Rows returns the number of data rows.
func (t *Table) Rows() int { return t.rows }

// Names returns column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.Columns[i], true
}

// Row returns the cell text of row i in column order; nulls are empty strings.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = c.Cells[i]
	}
	return out
}

// Head returns up to n leading rows as cell text.
func (t *Table) Head(n int) [][]string {
	if n > t.rows || n < 0 {
		n = t.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		out[i] = t.Row(i)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	cp := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns)), rows: t.rows, index: make(map[string]int, len(t.index))}
	for i, c := range t.Columns {
		cp.Columns[i] = c.clone()
		cp.index[c.Name] = i
	}
	return cp
}

// selectRows returns a new Table holding the given rows in the given order.
func (t *Table) selectRows(rows []int) *Table {
	out := &Table{Name: t.Name, Columns: make([]*Column, len(t.Columns)), rows: len(rows), index: make(map[string]int, len(t.index))}
	for j, c := range t.Columns {
		nc := &Column{Name: c.Name, Kind: c.Kind, Cells: make([]string, len(rows)), Nulls: make([]bool, len(rows))}
		if c.Values != nil {
			nc.Values = make([]float64, len(rows))
		}
		for k, i := range rows {
			nc.Cells[k] = c.Cells[i]
			nc.Nulls[k] = c.Nulls[i]
			if c.Values != nil {
				nc.Values[k] = c.Values[i]
			}
		}
		out.Columns[j] = nc
		out.index[c.Name] = j
	}
	return out
}

// numericColumn resolves a column that must exist and be numeric.
func (t *Table) numericColumn(name string) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if c.Kind != KindNumeric {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return c, nil
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	// Normalize spaces
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	if dec == 0 {
		dec = '.'
	}
	if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.Contains(raw, ".") {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	// "inf" and "nan" spellings are text, not numbers
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
