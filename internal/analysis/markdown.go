package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Markdown renders the profile in bracketed sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		fmt.Fprintf(&b, "File: %s\n", r.Name)
	}
	fmt.Fprintf(&b, "Rows: %d\nColumns: %d\n\n", r.Rows, len(r.Cols))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		writeColumn(&b, c)
	}

	b.WriteString("\n[CLUSTERING READINESS]\n")
	if len(r.Ready.NumericColumns) > 0 {
		fmt.Fprintf(&b, "Features: %s\n", strings.Join(r.Ready.NumericColumns, ", "))
	}
	cc := r.Ready.Concepts
	fmt.Fprintf(&b, "Concept columns: price=%s, sold=%s, rating=%s\n", dash(cc.Price), dash(cc.Sold), dash(cc.Rating))
	if len(r.Ready.Issues) == 0 {
		b.WriteString("Ready to cluster\n")
	}
	for _, is := range r.Ready.Issues {
		fmt.Fprintf(&b, "- %s\n", is)
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			fmt.Fprintf(&b, "- %s (n=%d)\n", g.Key, g.Size)
			keys := make([]string, 0, len(g.Metrics))
			for k := range g.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) > 6 {
				keys = keys[:6]
			}
			for _, k := range keys {
				m := g.Metrics[k]
				fmt.Fprintf(&b, "  • %s: mean %.4g (min %.4g, max %.4g)\n", k, m.Mean, m.Min, m.Max)
			}
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr.TopPairs(10) {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		names := make([]string, len(r.Cols))
		rule := make([]string, len(r.Cols))
		for i, c := range r.Cols {
			names[i], rule[i] = safeName(c.Name), "---"
		}
		writeRow(&b, names)
		writeRow(&b, rule)
		for _, row := range r.Samples {
			cells := make([]string, len(r.Cols))
			for i := range cells {
				if i < len(row) {
					cells[i] = safeVal(truncate(row[i], 80))
				}
			}
			writeRow(&b, cells)
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func writeColumn(b *strings.Builder, c ColumnSummary) {
	missPct := 0.0
	if total := c.NonNull + c.Missing; total > 0 {
		missPct = float64(c.Missing) * 100 / float64(total)
	}
	name := safeName(c.Name)
	if c.Unit != "" {
		name = fmt.Sprintf("%s [%s]", name, c.Unit)
	}
	fmt.Fprintf(b, "- %s: %s (non-null %d, missing %.1f%%)", name, c.Kind, c.NonNull, missPct)
	switch c.Kind {
	case "numeric":
		fmt.Fprintf(b, ": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std)
		if c.OutlierThreshold > 0 {
			fmt.Fprintf(b, "; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold)
			if c.OutliersMaxAbsZ > 0 {
				fmt.Fprintf(b, " (max |z|≈%.2f)", c.OutliersMaxAbsZ)
			}
		}
	case "categorical":
		if len(c.TopValues) > 0 {
			top := make([]string, len(c.TopValues))
			for i, kv := range c.TopValues {
				top[i] = fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count)
			}
			fmt.Fprintf(b, ": top %s", strings.Join(top, ", "))
			if c.Unique > len(c.TopValues) {
				fmt.Fprintf(b, "; unique=%d", c.Unique)
			}
		}
	case "text":
		if len(c.ExampleTexts) > 0 {
			ex := make([]string, len(c.ExampleTexts))
			for i, s := range c.ExampleTexts {
				ex[i] = safeVal(s)
			}
			fmt.Fprintf(b, ": e.g., %s", strings.Join(ex, " | "))
		}
	}
	b.WriteString("\n")
}

func writeRow(b *strings.Builder, cells []string) {
	fmt.Fprintf(b, "| %s |\n", strings.Join(cells, " | "))
}

// PairCorr is one correlated column pair.
type PairCorr struct {
	A, B string
	R    float64
}

// TopPairs lists up to limit distinct column pairs ordered by |r|.
func (m *CorrMatrix) TopPairs(limit int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
