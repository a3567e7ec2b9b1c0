package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/insights"
	"github.com/KaramelBytes/segmenta-cli/internal/kmeans"
	"github.com/KaramelBytes/segmenta-cli/internal/parser"
	"github.com/KaramelBytes/segmenta-cli/internal/pipeline"
	"github.com/KaramelBytes/segmenta-cli/internal/table"
)

// tableFlags are the ingestion flags shared by cluster, cluster-batch and profile.
type tableFlags struct {
	delimiter  string
	decimal    string
	thousands  string
	sheetName  string
	sheetIndex int
	maxRows    int
}

func (f *tableFlags) parserOptions() (parser.Options, error) {
	opt := parser.Options{SheetName: f.sheetName, SheetIndex: f.sheetIndex, MaxRows: f.maxRows}
	d, err := parseDelimiter(f.delimiter)
	if err != nil {
		return opt, err
	}
	opt.Delimiter = d
	return opt, nil
}

func (f *tableFlags) numberFormat() (table.NumberFormat, error) {
	var nf table.NumberFormat
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		nf.Decimal = ','
	case ".", "dot":
		nf.Decimal = '.'
	case "":
	default:
		return nf, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(f.thousands) {
	case ",":
		nf.Thousands = ','
	case ".":
		nf.Thousands = '.'
	case "space", " ":
		nf.Thousands = ' '
	case "":
	default:
		return nf, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	return nf, nil
}

func (f *tableFlags) load(path string) (*table.Raw, error) {
	opt, err := f.parserOptions()
	if err != nil {
		return nil, err
	}
	return parser.LoadFile(path, opt)
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// pipelineOptions builds run options from the loaded config, falling back to
// the package defaults when no config could be loaded.
func pipelineOptions() pipeline.Options {
	opt := pipeline.DefaultOptions()
	opt.Logger = logger
	if cfg == nil {
		return opt
	}
	if cfg.MinRows > 0 {
		opt.MinRows = cfg.MinRows
	}
	if cfg.MaxK > 0 {
		opt.Selection.MaxK = cfg.MaxK
	}
	fit := func(nInit int) kmeans.Config {
		c := kmeans.DefaultConfig()
		if nInit > 0 {
			c.NInit = nInit
		}
		if cfg.MaxIter > 0 {
			c.MaxIter = cfg.MaxIter
		}
		if cfg.Tolerance > 0 {
			c.Tol = cfg.Tolerance
		}
		c.Seed = cfg.Seed
		return c
	}
	opt.Selection.InertiaFit = fit(cfg.SelectInits)
	opt.Selection.SilhouetteFit = fit(cfg.SilhouetteInits)
	opt.Fit = fit(cfg.FitInits)
	opt.RefitInertia = cfg.RefitInertia
	c := cfg.Concepts()
	if len(c.Price) > 0 || len(c.Sold) > 0 || len(c.Rating) > 0 {
		opt.Concepts = c
	} else {
		opt.Concepts = insights.DefaultConcepts()
	}
	return opt
}

// withSeed overrides the seed of every fit.
func withSeed(opt pipeline.Options, seed int64) pipeline.Options {
	opt.Selection.InertiaFit.Seed = seed
	opt.Selection.SilhouetteFit.Seed = seed
	opt.Fit.Seed = seed
	return opt
}
