package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/csvscope/internal/analysis"
)

// Parser turns an uploaded file of one format into a Table.
type Parser interface {
	CanParse(filename string) bool
	Parse(name string, r io.Reader, opt analysis.Options) (*analysis.Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// Load selects a parser based on filename and reads a Table from r.
// Unknown extensions are read as comma-separated CSV.
func Load(name string, r io.Reader, opt analysis.Options) (*analysis.Table, error) {
	base := filepath.Base(name)
	for _, p := range registry {
		if p.CanParse(base) {
			return p.Parse(base, r, opt)
		}
	}
	// Fallback to CSV
	return csvParser{}.Parse(base, r, opt)
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opt analysis.Options) (*analysis.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Load(path, f, opt)
}

// Extensions lists the file extensions with a dedicated parser.
func Extensions() []string {
	return []string{".csv", ".tsv", ".txt", ".xlsx"}
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}
