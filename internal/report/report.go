// Package report formats pipeline results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// Output formats understood by Write.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Formats lists the accepted --format values.
func Formats() []string {
	return []string{FormatText, FormatMarkdown, FormatJSON, FormatYAML}
}

// Write renders res in the requested format.
func Write(w io.Writer, res *pipeline.Result, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		_, err := io.WriteString(w, Terminal(res))
		return err
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, Markdown(res))
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (use %s)", format, strings.Join(Formats(), "|"))
	}
}

// Markdown renders the full report in bracketed sections.
func Markdown(res *pipeline.Result) string {
	var b strings.Builder
	st := res.Stats
	b.WriteString("[CLUSTERING SUMMARY]\n")
	if res.Clustered != nil && res.Clustered.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", res.Clustered.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d (kept %d)\n", st.OriginalRows, st.FinalRows))
	b.WriteString(fmt.Sprintf("Features: %s\n", strings.Join(res.Scaler.Columns, ", ")))
	b.WriteString(fmt.Sprintf("Clusters: %d\n", res.K))
	if !res.Converged {
		b.WriteString(fmt.Sprintf("Note: k-means stopped at the iteration limit (%d)\n", res.Iterations))
	}
	b.WriteString("\n")

	b.WriteString("[PREPROCESSING]\n")
	b.WriteString(fmt.Sprintf("- numeric columns: %d of %d\n", len(st.NumericColumns), st.OriginalColumns))
	for _, rc := range st.RemovedColumns {
		b.WriteString(fmt.Sprintf("- removed %s (%s)\n", rc.Name, rc.Reason))
	}
	b.WriteString(fmt.Sprintf("- empty rows removed: %d\n", st.EmptyRowsRemoved))
	b.WriteString(fmt.Sprintf("- missing values imputed: %d\n", st.MissingValuesHandled))
	b.WriteString(fmt.Sprintf("- extreme outliers removed: %d\n", st.OutliersRemoved))
	for _, bd := range st.Bounds {
		if bd.Removed > 0 {
			b.WriteString(fmt.Sprintf("  • %s: kept [%.4g, %.4g], dropped %d\n", bd.Column, bd.Lower, bd.Upper, bd.Removed))
		}
	}
	b.WriteString("\n")

	if sel := res.Selection; sel != nil {
		b.WriteString("[K SELECTION]\n")
		b.WriteString(fmt.Sprintf("Tested k up to %d\n", sel.EffectiveMaxK))
		b.WriteString(fmt.Sprintf("Elbow k: %d, silhouette k: %d\n", sel.ElbowK, sel.SilhouetteK))
		b.WriteString(fmt.Sprintf("Chosen: k=%d by %s\n", sel.OptimalK, sel.Method))
		b.WriteString("| k | inertia | silhouette |\n|---|---|---|\n")
		sil := map[int]float64{}
		for _, s := range sel.Silhouette {
			sil[s.K] = s.Value
		}
		for _, s := range sel.Inertia {
			sv := "-"
			if v, ok := sil[s.K]; ok {
				sv = fmt.Sprintf("%.4f", v)
			}
			b.WriteString(fmt.Sprintf("| %d | %.4g | %s |\n", s.K, s.Value, sv))
		}
		b.WriteString("\n")
	}

	m := res.Metrics
	b.WriteString("[METRICS]\n")
	if m.Degraded {
		b.WriteString(fmt.Sprintf("Metrics unavailable: %s\n", m.Reason))
	}
	b.WriteString(fmt.Sprintf("- inertia: %.4f\n", m.Inertia))
	b.WriteString(fmt.Sprintf("- silhouette: %.4f\n", m.Silhouette))
	b.WriteString(fmt.Sprintf("- calinski-harabasz: %.4f\n", m.CalinskiHarabasz))
	b.WriteString(fmt.Sprintf("- davies-bouldin: %.4f\n", m.DaviesBouldin))
	b.WriteString("\n")

	ins := res.Insights
	if ins == nil {
		return b.String()
	}
	q := ins.Quality
	b.WriteString("[QUALITY]\n")
	b.WriteString(fmt.Sprintf("Overall: %s (%s)\n", q.Overall, q.Interpretation))
	b.WriteString(fmt.Sprintf("Separation: %s\nCompactness: %s\n\n", q.Separation, q.Compactness))

	d := ins.Distribution
	b.WriteString("[DISTRIBUTION]\n")
	for _, s := range d.Clusters {
		b.WriteString(fmt.Sprintf("- cluster %d: %d rows (%.1f%%)\n", s.Cluster, s.Count, s.Percent))
	}
	b.WriteString(fmt.Sprintf("Balance: %s (min/max ratio %.2f)\n\n", d.Balance, d.BalanceRatio))

	b.WriteString("[CLUSTERS]\n")
	if c := ins.Concepts; c.Price != "" || c.Sold != "" || c.Rating != "" {
		b.WriteString(fmt.Sprintf("Matched columns: price=%s, sold=%s, rating=%s\n", orDash(c.Price), orDash(c.Sold), orDash(c.Rating)))
	}
	for _, p := range ins.Clusters {
		b.WriteString(fmt.Sprintf("- cluster %d: %s (n=%d, %.1f%%)\n", p.Cluster, p.Label, p.Size, p.Percent))
		b.WriteString(fmt.Sprintf("  %s\n", p.Description))
		for _, f := range p.Features {
			if p.Size == 0 {
				break
			}
			b.WriteString(fmt.Sprintf("  • %s: %s, mean %.4g (global %.4g), std %.4g, range %.4g..%.4g\n",
				f.Name, f.Level, f.Mean, f.GlobalMean, f.Std, f.Min, f.Max))
		}
	}
	b.WriteString("\n")

	b.WriteString("[RECOMMENDATIONS]\n")
	for _, r := range ins.Recommendations {
		b.WriteString("- " + r + "\n")
	}
	b.WriteString("\n[BUSINESS IMPLICATIONS]\n")
	bi := ins.Business
	b.WriteString(fmt.Sprintf("- market: %s\n", bi.MarketSegmentation))
	b.WriteString(fmt.Sprintf("- resources: %s\n", bi.ResourceAllocation))
	b.WriteString(fmt.Sprintf("- targeting: %s\n", bi.TargetingStrategy))
	for _, g := range bi.GrowthOpportunities {
		b.WriteString(fmt.Sprintf("- growth: %s\n", g))
	}
	return b.String()
}

// LabelCounts tallies how many clusters received each label.
func LabelCounts(res *pipeline.Result) map[string]int {
	out := map[string]int{}
	if res.Insights == nil {
		return out
	}
	for _, p := range res.Insights.Clusters {
		out[p.Label.String()]++
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
