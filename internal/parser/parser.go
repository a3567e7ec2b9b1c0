package parser

import (
	"errors"
	"fmt"
	"os"

	"github.com/KaramelBytes/segmenta-cli/internal/table"
)

// Options controls how a file is turned into a table.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the extension and header line.
	Delimiter rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// SheetName selects an XLSX sheet; SheetIndex (1-based) is used when empty.
	SheetName  string
	SheetIndex int
}

// Loader reads one tabular file format.
type Loader interface {
	CanParse(filename string) bool
	Load(path string, opt Options) (*table.Raw, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// CanParse reports whether any registered loader accepts the filename.
func CanParse(path string) bool {
	for _, l := range registry {
		if l.CanParse(path) {
			return true
		}
	}
	return false
}

// LoadFile selects a loader based on filename and returns the raw table.
func LoadFile(path string, opt Options) (*table.Raw, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &table.LoadError{Path: path, Err: err}
	}
	for _, l := range registry {
		if l.CanParse(path) {
			raw, err := l.Load(path, opt)
			if err != nil {
				return nil, err
			}
			if err := raw.Validate(); err != nil {
				return nil, &table.LoadError{Path: path, Err: err}
			}
			return raw, nil
		}
	}
	return nil, &table.LoadError{Path: path, Err: fmt.Errorf("%w: %s", ErrUnsupported, path)}
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported table format (use .csv, .tsv or .xlsx)")
