package analysis

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/segmenta-cli/internal/insights"
	"github.com/KaramelBytes/segmenta-cli/internal/preprocess"
	"github.com/KaramelBytes/segmenta-cli/internal/table"
	"gonum.org/v1/gonum/stat"
)

// Options controls profiling behavior.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// GroupBy computes per-group summaries for the given column names.
	GroupBy []string
	// Correlations computes Pearson correlations among numeric columns.
	Correlations bool
	// Number selects locale separators; zero values auto-detect per value.
	Number table.NumberFormat
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// Concepts and MinRows drive the clustering readiness check.
	Concepts insights.Concepts
	MinRows  int
}

// DefaultOptions returns reasonable defaults for dataset profiling.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		Outliers:         true,
		OutlierThreshold: 3.5,
		Concepts:         insights.DefaultConcepts(),
		MinRows:          10,
	}
}

// Report is a markdown-friendly profile of a tabular dataset.
type Report struct {
	Name     string
	Rows     int
	Cols     []ColumnSummary
	Samples  [][]string
	Warnings []string
	Groups   []GroupResult
	Corr     *CorrMatrix
	Ready    Readiness
}

// Readiness tells whether the table can be segmented as is.
type Readiness struct {
	NumericColumns []string
	Concepts       insights.ConceptColumns
	Issues         []string
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text|unknown
	Unit    string
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues    []CategoryCount
	ExampleTexts []string
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string
	Size    int
	Metrics map[string]NumSummary // by column name
}

type NumSummary struct {
	Count          int
	Min, Max, Mean float64
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// colAcc accumulates one column in a single pass.
type colAcc struct {
	name   string
	unit   string
	nonNil int
	miss   int

	// numeric stats via Welford
	n      int
	mean   float64
	m2     float64
	min    float64
	max    float64
	numCnt int
	dtCnt  int
	txtCnt int
	vals   []float64 // numeric value per row, NaN when absent
	cats   map[string]int
	exText []string
}

// Profile summarizes every column of raw: kind, missing share, numeric
// statistics, robust outlier counts and top categories.
func Profile(raw *table.Raw, opt Options) *Report {
	rep := &Report{Name: raw.Name, Rows: raw.Len()}
	sampleRows := opt.SampleRows
	if sampleRows < 0 {
		sampleRows = 0
	}

	cols := make([]*colAcc, len(raw.Columns))
	gbIndex := map[string]int{}
	for j, c := range raw.Columns {
		clean, unit := splitUnits(c.Name)
		cols[j] = &colAcc{name: clean, unit: unit, min: math.Inf(1), max: math.Inf(-1), cats: map[string]int{}, vals: make([]float64, rep.Rows)}
		gbIndex[strings.ToLower(clean)] = j
		gbIndex[strings.ToLower(strings.TrimSpace(c.Name))] = j
	}

	for j, c := range raw.Columns {
		acc := cols[j]
		for i, v := range c.Values {
			acc.vals[i] = math.NaN()
			if v == nil {
				acc.miss++
				continue
			}
			acc.nonNil++
			s := table.String(v)
			if strings.Contains(s, "%") && acc.unit == "" {
				acc.unit = "%"
			}
			if x, ok := table.Float(v, opt.Number); ok {
				acc.numCnt++
				acc.n++
				acc.min = math.Min(acc.min, x)
				acc.max = math.Max(acc.max, x)
				delta := x - acc.mean
				acc.mean += delta / float64(acc.n)
				acc.m2 += delta * (x - acc.mean)
				acc.vals[i] = x
				continue
			}
			if _, ok := parseTimeMaybe(s); ok {
				acc.dtCnt++
				continue
			}
			acc.txtCnt++
			if len(acc.cats) <= 10000 && len(s) <= 64 {
				acc.cats[s]++
			}
			if len(acc.exText) < 3 {
				acc.exText = append(acc.exText, s)
			}
		}
	}

	for i := 0; i < rep.Rows && i < sampleRows; i++ {
		row := make([]string, len(raw.Columns))
		for j, v := range raw.Row(i) {
			row[j] = table.String(v)
		}
		rep.Samples = append(rep.Samples, row)
	}

	var numCols []int
	for j, c := range cols {
		s := ColumnSummary{Name: c.name, Unit: c.unit, NonNull: c.nonNil, Missing: c.miss}
		kind := "unknown"
		switch {
		case c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt && c.numCnt > 0:
			kind = "numeric"
			s.Min, s.Max, s.Mean = c.min, c.max, c.mean
			if c.n > 1 {
				s.Std = math.Sqrt(c.m2 / float64(c.n-1))
			}
			numCols = append(numCols, j)
			present := presentValues(c.vals)
			if opt.Outliers && len(present) >= 8 {
				s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = robustOutliers(present, opt.OutlierThreshold)
			}
			if c.txtCnt > 0 {
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %d non-numeric values will be treated as missing when clustering", c.name, c.txtCnt))
			}
		case c.dtCnt >= c.txtCnt && c.dtCnt > 0:
			kind = "datetime"
		case len(c.cats) > 0:
			kind = "categorical"
			s.TopValues = topValues(c.cats, 8)
			s.Unique = len(c.cats)
		case c.txtCnt > 0:
			kind = "text"
			s.ExampleTexts = c.exText
		}
		s.Kind = kind
		rep.Cols = append(rep.Cols, s)
	}

	if len(opt.GroupBy) > 0 {
		groups, warn := groupBy(raw, cols, numCols, gbIndex, opt.GroupBy)
		rep.Groups = groups
		rep.Warnings = append(rep.Warnings, warn...)
	}
	if opt.Correlations && len(numCols) >= 2 {
		rep.Corr = correlations(cols, numCols)
	}
	rep.Ready = readiness(raw, numCols, opt)
	return rep
}

func readiness(raw *table.Raw, numCols []int, opt Options) Readiness {
	var r Readiness
	for _, j := range numCols {
		r.NumericColumns = append(r.NumericColumns, raw.Columns[j].Name)
	}
	if len(r.NumericColumns) == 0 {
		r.Issues = append(r.Issues, "no numeric columns to cluster on")
	}
	if opt.MinRows > 0 && raw.Len() < opt.MinRows {
		r.Issues = append(r.Issues, fmt.Sprintf("%d rows, at least %d are needed", raw.Len(), opt.MinRows))
	}
	match := func(concept string, keywords []string) string {
		name, ok := insights.IdentifyConceptColumn(r.NumericColumns, keywords)
		if !ok {
			r.Issues = append(r.Issues, fmt.Sprintf("no %s column matched; clusters will be labeled Needs Review", concept))
		}
		return name
	}
	r.Concepts = insights.ConceptColumns{
		Price:  match("price", opt.Concepts.Price),
		Sold:   match("sold", opt.Concepts.Sold),
		Rating: match("rating", opt.Concepts.Rating),
	}
	return r
}

func groupBy(raw *table.Raw, cols []*colAcc, numCols []int, gbIndex map[string]int, names []string) ([]GroupResult, []string) {
	var idx []int
	var warn []string
	for _, name := range names {
		j, ok := gbIndex[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			warn = append(warn, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		idx = append(idx, j)
	}
	if len(idx) == 0 {
		return nil, warn
	}
	type gAcc struct {
		size int
		sum  map[int]float64
		cnt  map[int]int
		min  map[int]float64
		max  map[int]float64
	}
	groups := map[string]*gAcc{}
	for i := 0; i < raw.Len(); i++ {
		parts := make([]string, len(idx))
		for p, j := range idx {
			parts[p] = fmt.Sprintf("%s=%s", cols[j].name, safeVal(table.String(raw.Columns[j].Values[i])))
		}
		key := strings.Join(parts, ", ")
		ga := groups[key]
		if ga == nil {
			ga = &gAcc{sum: map[int]float64{}, cnt: map[int]int{}, min: map[int]float64{}, max: map[int]float64{}}
			groups[key] = ga
		}
		ga.size++
		for _, j := range numCols {
			x := cols[j].vals[i]
			if math.IsNaN(x) {
				continue
			}
			ga.sum[j] += x
			ga.cnt[j]++
			if m, ok := ga.min[j]; !ok || x < m {
				ga.min[j] = x
			}
			if m, ok := ga.max[j]; !ok || x > m {
				ga.max[j] = x
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for k, ga := range groups {
		gr := GroupResult{Key: k, Size: ga.size, Metrics: map[string]NumSummary{}}
		for _, j := range numCols {
			if ga.cnt[j] == 0 {
				continue
			}
			gr.Metrics[cols[j].name] = NumSummary{Count: ga.cnt[j], Min: ga.min[j], Max: ga.max[j], Mean: ga.sum[j] / float64(ga.cnt[j])}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
	}
	return out, warn
}

// correlations uses pairwise-complete rows for each pair of columns.
func correlations(cols []*colAcc, numCols []int) *CorrMatrix {
	n := len(numCols)
	cm := &CorrMatrix{Columns: make([]string, n), Values: make([][]float64, n)}
	for a, j := range numCols {
		cm.Columns[a] = cols[j].name
		cm.Values[a] = make([]float64, n)
		cm.Values[a][a] = 1
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			va, vb := cols[numCols[a]].vals, cols[numCols[b]].vals
			var xs, ys []float64
			for i := range va {
				if math.IsNaN(va[i]) || math.IsNaN(vb[i]) {
					continue
				}
				xs = append(xs, va[i])
				ys = append(ys, vb[i])
			}
			var r float64
			if len(xs) >= 2 {
				r = stat.Correlation(xs, ys, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			r = math.Max(-1, math.Min(1, r))
			cm.Values[a][b], cm.Values[b][a] = r, r
		}
	}
	return cm
}

func robustOutliers(vals []float64, thr float64) (int, float64, float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(vals)
	var cnt int
	maxAbsZ := 0.0
	if mad > 0 {
		for _, v := range vals {
			az := math.Abs(0.6745 * (v - median) / mad)
			if az > thr {
				cnt++
			}
			maxAbsZ = math.Max(maxAbsZ, az)
		}
	}
	return cnt, maxAbsZ, thr
}

func topValues(cats map[string]int, limit int) []CategoryCount {
	tops := make([]CategoryCount, 0, len(cats))
	for k, v := range cats {
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
	return tops
}

func presentValues(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var unitPatterns = []struct {
	re   *regexp.Regexp
	pick int
}{
	{regexp.MustCompile(`^(.*)\s*\(([^)]+)\)\s*$`), 2},  // e.g., Harga (Rp)
	{regexp.MustCompile(`^(.*)\s*\[([^\]]+)\]\s*$`), 2}, // e.g., Weight [kg]
	{regexp.MustCompile(`^(.*?)[_\s-]+(Rp|IDR|USD|kg|g|%|pcs)$`), 2},
}

func splitUnits(name string) (clean string, unit string) {
	s := strings.TrimSpace(name)
	for _, p := range unitPatterns {
		if m := p.re.FindStringSubmatch(s); len(m) >= 3 {
			base := strings.TrimSpace(m[1])
			u := strings.TrimSpace(m[p.pick])
			if base != "" && u != "" {
				return base, u
			}
		}
	}
	return s, ""
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	median = preprocess.Median(vals)
	dev := make([]float64, len(vals))
	for i, v := range vals {
		dev[i] = math.Abs(v - median)
	}
	mad = preprocess.Median(dev)
	return
}
