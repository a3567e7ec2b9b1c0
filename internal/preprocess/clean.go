package preprocess

import (
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/segmenta-cli/internal/table"
	"go.uber.org/zap"
)

// Reasons a column can be removed during cleaning.
const (
	ReasonNonNumeric   = "non_numeric"
	ReasonAllNull      = "all_null"
	ReasonZeroVariance = "zero_variance"
)

// Options controls cleaning behavior.
type Options struct {
	// Number selects locale separators for numeric text.
	Number table.NumberFormat
	// OutlierFactor is the IQR multiplier for the row filter (default 3).
	OutlierFactor float64
	// MildFactor is the IQR multiplier reported alongside (default 1.5).
	MildFactor float64
	Logger     *zap.Logger
}

// DefaultOptions returns the standard cleaning settings.
func DefaultOptions() Options {
	return Options{OutlierFactor: 3, MildFactor: 1.5}
}

// RemovedColumn records a dropped column and why.
type RemovedColumn struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
}

// Bounds are the outlier fences computed for one column. Only Lower/Upper
// are used for filtering.
type Bounds struct {
	Column    string  `json:"column" yaml:"column"`
	Q1        float64 `json:"q1" yaml:"q1"`
	Q3        float64 `json:"q3" yaml:"q3"`
	IQR       float64 `json:"iqr" yaml:"iqr"`
	Lower     float64 `json:"lower" yaml:"lower"`
	Upper     float64 `json:"upper" yaml:"upper"`
	MildLower float64 `json:"mild_lower" yaml:"mild_lower"`
	MildUpper float64 `json:"mild_upper" yaml:"mild_upper"`
	Removed   int     `json:"removed" yaml:"removed"`
}

// Stats summarizes what cleaning did.
type Stats struct {
	OriginalRows         int             `json:"original_rows" yaml:"original_rows"`
	OriginalColumns      int             `json:"original_columns" yaml:"original_columns"`
	NumericColumns       []string        `json:"numeric_columns" yaml:"numeric_columns"`
	RemovedColumns       []RemovedColumn `json:"removed_columns" yaml:"removed_columns"`
	EmptyRowsRemoved     int             `json:"empty_rows_removed" yaml:"empty_rows_removed"`
	MissingValuesHandled int             `json:"missing_values_handled" yaml:"missing_values_handled"`
	OutliersRemoved      int             `json:"outliers_removed" yaml:"outliers_removed"`
	Bounds               []Bounds        `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	FinalRows            int             `json:"final_rows" yaml:"final_rows"`
	FinalColumns         int             `json:"final_columns" yaml:"final_columns"`
}

// RemovedColumnNames lists the removed column names in removal order.
func (s Stats) RemovedColumnNames() []string {
	out := make([]string, len(s.RemovedColumns))
	for i, rc := range s.RemovedColumns {
		out[i] = rc.Name
	}
	return out
}

// Cleaned is a numeric-only table with no missing values. Data is row-major
// and RowIndex maps each row back to the raw table.
type Cleaned struct {
	Columns  []string
	Data     [][]float64
	RowIndex []int
}

// Len returns the row count.
func (c *Cleaned) Len() int { return len(c.Data) }

// Dim returns the column count.
func (c *Cleaned) Dim() int { return len(c.Columns) }

// Column returns a copy of column j.
func (c *Cleaned) Column(j int) []float64 {
	out := make([]float64, len(c.Data))
	for i, row := range c.Data {
		out[i] = row[j]
	}
	return out
}

// column is the working representation during cleaning; ok[i] is false for
// missing cells.
type column struct {
	name string
	vals []float64
	ok   []bool
}

// ClassifyAndClean selects numeric columns from raw and cleans them. raw is
// not modified.
func ClassifyAndClean(raw *table.Raw, opt Options) (*Cleaned, Stats, error) {
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opt.OutlierFactor <= 0 {
		opt.OutlierFactor = 3
	}
	if opt.MildFactor <= 0 {
		opt.MildFactor = 1.5
	}
	st := Stats{OriginalRows: raw.Len(), OriginalColumns: len(raw.Columns)}

	cols, removed := classify(raw, opt.Number)
	st.RemovedColumns = append(st.RemovedColumns, removed...)
	for _, c := range cols {
		st.NumericColumns = append(st.NumericColumns, c.name)
	}
	if len(cols) == 0 {
		return nil, st, fmt.Errorf("%w: no numeric columns found", ErrInsufficientData)
	}
	log.Debug("classified columns", zap.Int("numeric", len(cols)), zap.Int("non_numeric", len(removed)))

	cols, removed = dropAllNull(cols)
	st.RemovedColumns = append(st.RemovedColumns, removed...)
	if len(cols) == 0 {
		return nil, st, fmt.Errorf("%w: every numeric column is empty", ErrInsufficientData)
	}

	rows := make([]int, raw.Len())
	for i := range rows {
		rows[i] = i
	}
	rows = dropEmptyRows(cols, rows)
	st.EmptyRowsRemoved = raw.Len() - len(rows)

	data, imputed := impute(cols, rows)
	st.MissingValuesHandled = imputed

	data, rows, bounds := filterOutliers(cols, data, rows, opt)
	st.Bounds = bounds
	for _, b := range bounds {
		st.OutliersRemoved += b.Removed
	}

	names := make([]string, len(cols))
	for j, c := range cols {
		names[j] = c.name
	}
	names, data, removed = dropZeroVariance(names, data)
	st.RemovedColumns = append(st.RemovedColumns, removed...)
	if len(names) == 0 {
		return nil, st, fmt.Errorf("%w: no usable columns remain after cleaning", ErrInsufficientData)
	}
	st.FinalRows = len(data)
	st.FinalColumns = len(names)
	log.Debug("cleaned table",
		zap.Int("rows", st.FinalRows),
		zap.Int("columns", st.FinalColumns),
		zap.Int("imputed", st.MissingValuesHandled),
		zap.Int("outliers", st.OutliersRemoved))
	return &Cleaned{Columns: names, Data: data, RowIndex: rows}, st, nil
}

// classify keeps columns whose non-missing cells are all native numbers or
// all parse as numbers. Cells that fail to coerce become missing.
func classify(raw *table.Raw, nf table.NumberFormat) ([]column, []RemovedColumn) {
	var cols []column
	var removed []RemovedColumn
	for _, rc := range raw.Columns {
		native, parsed, present := 0, 0, 0
		for _, v := range rc.Values {
			if v == nil {
				continue
			}
			present++
			if table.IsNativeNumeric(v) {
				native++
				continue
			}
			if s, ok := v.(string); ok {
				if table.IsNumberText(s, nf) {
					parsed++
				}
			}
		}
		if native+parsed != present {
			removed = append(removed, RemovedColumn{Name: rc.Name, Reason: ReasonNonNumeric})
			continue
		}
		c := column{name: rc.Name, vals: make([]float64, len(rc.Values)), ok: make([]bool, len(rc.Values))}
		for i, v := range rc.Values {
			if f, ok := table.Float(v, nf); ok {
				c.vals[i] = f
				c.ok[i] = true
			}
		}
		cols = append(cols, c)
	}
	return cols, removed
}

func dropAllNull(cols []column) ([]column, []RemovedColumn) {
	var kept []column
	var removed []RemovedColumn
	for _, c := range cols {
		hasValue := false
		for _, ok := range c.ok {
			if ok {
				hasValue = true
				break
			}
		}
		if !hasValue {
			removed = append(removed, RemovedColumn{Name: c.name, Reason: ReasonAllNull})
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}

func dropEmptyRows(cols []column, rows []int) []int {
	kept := make([]int, 0, len(rows))
	for _, i := range rows {
		for _, c := range cols {
			if c.ok[i] {
				kept = append(kept, i)
				break
			}
		}
	}
	return kept
}

// impute builds the row-major matrix for rows, filling missing cells with
// the column median over the kept rows.
func impute(cols []column, rows []int) ([][]float64, int) {
	medians := make([]float64, len(cols))
	for j, c := range cols {
		present := make([]float64, 0, len(rows))
		for _, i := range rows {
			if c.ok[i] {
				present = append(present, c.vals[i])
			}
		}
		if len(present) < len(rows) {
			medians[j] = Median(present)
		}
	}
	count := 0
	data := make([][]float64, len(rows))
	for r, i := range rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			if c.ok[i] {
				row[j] = c.vals[i]
				continue
			}
			row[j] = medians[j]
			count++
		}
		data[r] = row
	}
	return data, count
}

// filterOutliers applies the IQR fence column by column; each column's
// quartiles are computed on the rows that survived the previous columns.
func filterOutliers(cols []column, data [][]float64, rows []int, opt Options) ([][]float64, []int, []Bounds) {
	bounds := make([]Bounds, 0, len(cols))
	for j, c := range cols {
		vals := make([]float64, len(data))
		for i, row := range data {
			vals[i] = row[j]
		}
		sort.Float64s(vals)
		q1 := Quantile(vals, 0.25)
		q3 := Quantile(vals, 0.75)
		iqr := q3 - q1
		b := Bounds{
			Column:    c.name,
			Q1:        q1,
			Q3:        q3,
			IQR:       iqr,
			Lower:     q1 - opt.OutlierFactor*iqr,
			Upper:     q3 + opt.OutlierFactor*iqr,
			MildLower: q1 - opt.MildFactor*iqr,
			MildUpper: q3 + opt.MildFactor*iqr,
		}
		keptData := data[:0:0]
		keptRows := rows[:0:0]
		for i, row := range data {
			if row[j] < b.Lower || row[j] > b.Upper {
				b.Removed++
				continue
			}
			keptData = append(keptData, row)
			keptRows = append(keptRows, rows[i])
		}
		data, rows = keptData, keptRows
		bounds = append(bounds, b)
	}
	return data, rows, bounds
}

func dropZeroVariance(names []string, data [][]float64) ([]string, [][]float64, []RemovedColumn) {
	var keep []int
	var removed []RemovedColumn
	for j, name := range names {
		if constant(data, j) {
			removed = append(removed, RemovedColumn{Name: name, Reason: ReasonZeroVariance})
			continue
		}
		keep = append(keep, j)
	}
	if len(removed) == 0 {
		return names, data, nil
	}
	outNames := make([]string, len(keep))
	for k, j := range keep {
		outNames[k] = names[j]
	}
	out := make([][]float64, len(data))
	for i, row := range data {
		nr := make([]float64, len(keep))
		for k, j := range keep {
			nr[k] = row[j]
		}
		out[i] = nr
	}
	return outNames, out, removed
}

// constant reports whether column j has zero spread. An empty column counts
// as constant.
func constant(data [][]float64, j int) bool {
	if len(data) == 0 {
		return true
	}
	first := data[0][j]
	for _, row := range data[1:] {
		if row[j] != first {
			return false
		}
	}
	return true
}

// Validate checks the post-cleaning preconditions for clustering.
func Validate(c *Cleaned, minRows int) error {
	if c == nil || c.Len() < minRows {
		n := 0
		if c != nil {
			n = c.Len()
		}
		return fmt.Errorf("%w: %d rows after cleaning, need at least %d", ErrInsufficientData, n, minRows)
	}
	if c.Dim() < 1 {
		return fmt.Errorf("%w: no feature columns", ErrInsufficientData)
	}
	for i, row := range c.Data {
		if len(row) != c.Dim() {
			return fmt.Errorf("%w: row %d has %d values, want %d", ErrInvalidData, i, len(row), c.Dim())
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: non-finite value in column %q", ErrInvalidData, c.Columns[j])
			}
		}
	}
	for j, name := range c.Columns {
		if constant(c.Data, j) {
			return fmt.Errorf("%w: column %q has zero variance", ErrInvalidData, name)
		}
	}
	return nil
}
