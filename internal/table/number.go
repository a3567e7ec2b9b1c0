package table

import (
	"math"
	"strconv"
	"strings"
)

// NumberFormat selects locale separators for numeric text. Zero values mean
// auto-detect per value.
type NumberFormat struct {
	Decimal   rune
	Thousands rune
}

// ParseNumber parses numeric text such as "1.234,5", "12.5%" or "3e2".
// Non-finite results are rejected.
func ParseNumber(s string, nf NumberFormat) (float64, bool) {
	f, ok := parseText(s, nf)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumberText reports whether s parses as a number under nf. Unlike
// ParseNumber it accepts "inf" and "NaN", which Float treats as missing.
func IsNumberText(s string, nf NumberFormat) bool {
	_, ok := parseText(s, nf)
	return ok
}

func parseText(s string, nf NumberFormat) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	raw = strings.ReplaceAll(raw, "%", "")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	dec := nf.Decimal
	thou := nf.Thousands
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0 && strings.Count(raw, ",") > 1:
			// 1,234,567
			dec, thou = '.', ','
		case cpos >= 0:
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep == dec {
				continue
			}
			// "3 4" is two numbers, not 34
			if sep == ' ' && strings.Contains(raw, " ") && !groupedBy(raw, " ") {
				return 0, false
			}
			raw = strings.ReplaceAll(raw, string(sep), "")
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// groupedBy reports whether sep splits s into thousands groups: a signed
// head of one to three digits, then groups of exactly three digits. Only the
// last group may carry a fractional tail.
func groupedBy(s, sep string) bool {
	parts := strings.Split(s, sep)
	head := strings.TrimLeft(parts[0], "+-")
	if n := leadingDigits(head); n == 0 || n > 3 || n != len(head) {
		return false
	}
	for i, p := range parts[1:] {
		n := leadingDigits(p)
		if n != 3 {
			return false
		}
		if i < len(parts)-2 && n != len(p) {
			return false
		}
	}
	return true
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// Float coerces a cell to float64: native numbers pass through, strings are
// parsed with nf, anything else is missing.
func Float(v any, nf NumberFormat) (float64, bool) {
	if f, ok := NativeFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		return ParseNumber(s, nf)
	}
	return 0, false
}
