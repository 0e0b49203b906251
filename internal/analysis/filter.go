package analysis

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
)

// Filter keeps the rows whose value in column lies in [lo, hi]. Null cells never match.
func Filter(t *Table, column string, lo, hi float64) (*Table, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return nil, fmt.Errorf("%w: min %v > max %v", ErrInvalidRange, lo, hi)
	}
	c, err := t.numericColumn(column)
	if err != nil {
		return nil, err
	}
	rows := make([]int, 0, t.Rows())
	for i, v := range c.Values {
		if c.Nulls[i] {
			continue
		}
		if v >= lo && v <= hi {
			rows = append(rows, i)
		}
	}
	return t.selectRows(rows), nil
}

// WriteCSV writes t as comma-separated UTF-8 with a header row. Null cells are empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < t.Rows(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Export serializes t to CSV bytes.
func Export(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
