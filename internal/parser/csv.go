package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvParser) Parse(name string, r io.Reader, opt analysis.Options) (*analysis.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiterFor(name, opt)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", analysis.ErrUnreadableFile, name)
		}
		return nil, fmt.Errorf("%w: read header: %w", analysis.ErrUnreadableFile, err)
	}
	var records [][]string
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: read row %d: %w", analysis.ErrUnreadableFile, len(records)+1, err)
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) > opt.MaxRows {
			return nil, fmt.Errorf("%w: more than %d rows", analysis.ErrTooManyRows, opt.MaxRows)
		}
	}
	return analysis.NewTable(name, header, records, opt)
}

func delimiterFor(name string, opt analysis.Options) rune {
	if opt.Delimiter != 0 {
		return opt.Delimiter
	}
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	return ','
}
