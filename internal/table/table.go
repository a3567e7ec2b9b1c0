package table

import (
	"fmt"
	"math"
	"strings"
)

// Column is a named sequence of cell values. A value is nil (missing), a
// string, a float64, or an integer type.
type Column struct {
	Name   string
	Values []any
}

// Raw is a tabular dataset as it was ingested. Nothing downstream mutates it.
type Raw struct {
	Name    string
	Columns []Column
}

// LoadError reports an ingestion failure with file and row context.
type LoadError struct {
	Path string
	Row  int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("load %s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Len returns the row count.
func (r *Raw) Len() int {
	if r == nil || len(r.Columns) == 0 {
		return 0
	}
	return len(r.Columns[0].Values)
}

// Names returns the column names in order.
func (r *Raw) Names() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the position of the named column or -1.
func (r *Raw) Index(name string) int {
	for i, c := range r.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row returns the i-th row as a fresh slice.
func (r *Raw) Row(i int) []any {
	out := make([]any, len(r.Columns))
	for j, c := range r.Columns {
		out[j] = c.Values[i]
	}
	return out
}

// Validate checks that every column has the same length.
func (r *Raw) Validate() error {
	n := r.Len()
	for _, c := range r.Columns {
		if len(c.Values) != n {
			return fmt.Errorf("column %q has %d values, want %d", c.Name, len(c.Values), n)
		}
	}
	return nil
}

// FromRecords builds a Raw from a header and string records. Short records
// are padded with nil, and cells matching a null token become nil.
func FromRecords(name string, header []string, records [][]string) *Raw {
	raw := &Raw{Name: name, Columns: make([]Column, len(header))}
	for j, h := range header {
		raw.Columns[j] = Column{Name: strings.TrimSpace(h), Values: make([]any, len(records))}
	}
	for i, rec := range records {
		for j := range header {
			if j >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[j])
			if IsNullToken(v) {
				continue
			}
			raw.Columns[j].Values[i] = v
		}
	}
	return raw
}

var nullTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "#n/a": {}, "-nan": {}, "<na>": {},
}

// IsNullToken reports whether s is one of the textual spellings of a missing value.
func IsNullToken(s string) bool {
	_, ok := nullTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// NativeFloat returns v as float64 when v already has a numeric Go type.
// Non-finite floats are treated as missing.
func NativeFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNativeNumeric reports whether v has a numeric Go type (finite or not).
func IsNativeNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int64, int32, uint, uint64:
		return true
	}
	return false
}

// String renders a cell for text output; nil renders as "".
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}
