package analysis

import (
	"fmt"
	"strings"
)

// ClassifyColumns partitions column names into numeric and text, preserving order.
func ClassifyColumns(t *Table) (numeric, text []string) {
	for _, c := range t.Columns {
		if c.Kind == KindNumeric {
			numeric = append(numeric, c.Name)
		} else {
			text = append(text, c.Name)
		}
	}
	return numeric, text
}

// DetectPriceColumns returns every column whose name contains "price", case-insensitively.
func DetectPriceColumns(t *Table) []string {
	var out []string
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(c.Name), "price") {
			out = append(out, c.Name)
		}
	}
	return out
}

// SelectPriceColumn resolves the user's column choice. An empty request picks the
// first price-like column. The result is always a numeric column with values.
func SelectPriceColumn(t *Table, requested string) (string, error) {
	candidates := DetectPriceColumns(t)
	if len(candidates) == 0 {
		return "", ErrNoPriceColumn
	}
	name := requested
	if name == "" {
		name = candidates[0]
	} else {
		found := false
		for _, c := range candidates {
			if c == name {
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: %q", ErrNotPriceColumn, name)
		}
	}
	c, _ := t.Column(name)
	if c.Kind != KindNumeric {
		if c.NullCount() == c.Len() {
			return "", fmt.Errorf("%w: %q", ErrEmptyColumn, name)
		}
		return "", fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return name, nil
}
