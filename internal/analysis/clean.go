package analysis

// NullCount pairs a column with its number of missing cells.
type NullCount struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
}

// ReportNulls counts missing cells for every column.
func ReportNulls(t *Table) map[string]int {
	out := make(map[string]int, len(t.Columns))
	for _, c := range t.Columns {
		out[c.Name] = c.NullCount()
	}
	return out
}

// MissingColumns lists the columns that have at least one missing cell, in table order.
func MissingColumns(t *Table) []NullCount {
	var out []NullCount
	for _, c := range t.Columns {
		if n := c.NullCount(); n > 0 {
			out = append(out, NullCount{Column: c.Name, Nulls: n})
		}
	}
	return out
}

// FillNulls returns a copy of t with numeric nulls replaced by the column median and
// text nulls replaced by DefaultFillText.
func FillNulls(t *Table) *Table {
	return FillNullsWith(t, DefaultFillText)
}

// FillNullsWith is FillNulls with a custom placeholder for text columns.
// The input table is never modified.
func FillNullsWith(t *Table, fillText string) *Table {
	out := t.Clone()
	for _, c := range out.Columns {
		if c.NullCount() == 0 {
			continue
		}
		switch c.Kind {
		case KindNumeric:
			m := Median(c.Values)
			cell := formatNumber(m)
			for i, isNull := range c.Nulls {
				if isNull {
					c.Values[i] = m
					c.Cells[i] = cell
					c.Nulls[i] = false
				}
			}
		default:
			for i, isNull := range c.Nulls {
				if isNull {
					c.Cells[i] = fillText
					c.Nulls[i] = false
				}
			}
		}
	}
	return out
}
