package table

import (
	"errors"
	"io/fs"
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		nf   NumberFormat
		want float64
		ok   bool
	}{
		{"12.5", NumberFormat{}, 12.5, true},
		{"12,5", NumberFormat{}, 12.5, true},
		{"1.234,5", NumberFormat{}, 1234.5, true},
		{"1,234.5", NumberFormat{}, 1234.5, true},
		{"1,234,567", NumberFormat{}, 1234567, true},
		{"45%", NumberFormat{}, 45, true},
		{"3e2", NumberFormat{}, 300, true},
		{"1 000,25", NumberFormat{Decimal: ',', Thousands: ' '}, 1000.25, true},
		{"abc", NumberFormat{}, 0, false},
		{"", NumberFormat{}, 0, false},
		{"inf", NumberFormat{}, 0, false},
		{"NaN", NumberFormat{}, 0, false},
		{"1 234 567", NumberFormat{}, 1234567, true},
		{"-12 500,75", NumberFormat{}, -12500.75, true},
		{"3 4", NumberFormat{}, 0, false},
		{"12 34", NumberFormat{}, 0, false},
		{"1 2345", NumberFormat{}, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in, tc.nf)
		if ok != tc.ok {
			t.Fatalf("ParseNumber(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
		if ok && math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ParseNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsNumberTextAcceptsNonFinite(t *testing.T) {
	for _, s := range []string{"inf", "-Inf", "NaN", "12,5", "1 000"} {
		if !IsNumberText(s, NumberFormat{}) {
			t.Fatalf("IsNumberText(%q) = false", s)
		}
	}
	for _, s := range []string{"", "abc", "3 4", "12a"} {
		if IsNumberText(s, NumberFormat{}) {
			t.Fatalf("IsNumberText(%q) = true", s)
		}
	}
	if _, ok := Float("inf", NumberFormat{}); ok {
		t.Fatalf("expected inf text to be treated as missing")
	}
}

func TestFloatCoercion(t *testing.T) {
	if f, ok := Float(7, NumberFormat{}); !ok || f != 7 {
		t.Fatalf("Float(int) = %v, %v", f, ok)
	}
	if _, ok := Float(math.Inf(1), NumberFormat{}); ok {
		t.Fatalf("expected +Inf to be treated as missing")
	}
	if _, ok := Float(nil, NumberFormat{}); ok {
		t.Fatalf("expected nil to be missing")
	}
	if f, ok := Float(" 2.5 ", NumberFormat{}); !ok || f != 2.5 {
		t.Fatalf("Float(string) = %v, %v", f, ok)
	}
}

func TestFromRecordsPadsAndNulls(t *testing.T) {
	raw := FromRecords("x.csv", []string{"a", " b "}, [][]string{{"1", "NA"}, {"2"}, {"", "y"}})
	if raw.Len() != 3 {
		t.Fatalf("Len = %d, want 3", raw.Len())
	}
	if got := raw.Names(); got[1] != "b" {
		t.Fatalf("header not trimmed: %q", got[1])
	}
	if raw.Columns[1].Values[0] != nil || raw.Columns[1].Values[1] != nil {
		t.Fatalf("expected NA and missing cell to be nil, got %#v", raw.Columns[1].Values)
	}
	if raw.Columns[0].Values[2] != nil {
		t.Fatalf("expected empty cell to be nil")
	}
	if err := raw.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	row := raw.Row(2)
	if row[1] != "y" {
		t.Fatalf("Row(2) = %#v", row)
	}
	if raw.Index("b") != 1 || raw.Index("zzz") != -1 {
		t.Fatalf("Index lookup failed")
	}
}

func TestLoadErrorUnwrap(t *testing.T) {
	err := &LoadError{Path: "a.csv", Row: 3, Err: fs.ErrNotExist}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected errors.Is to see wrapped error")
	}
	if got := err.Error(); got != "load a.csv: row 3: file does not exist" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestString(t *testing.T) {
	if String(nil) != "" || String(3.0) != "3" || String(2.5) != "2.5" || String("x") != "x" {
		t.Fatalf("unexpected String rendering")
	}
}
