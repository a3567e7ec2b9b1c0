package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/pipeline"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent  = lipgloss.Color("#8BC34A")
	warning = lipgloss.Color("#FFC107")
	muted   = lipgloss.Color("#7A8594")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	keyStyle   = lipgloss.NewStyle().Foreground(muted)
	warnStyle  = lipgloss.NewStyle().Foreground(warning)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
)

// Terminal renders a short styled summary for interactive use.
func Terminal(res *pipeline.Result) string {
	var lines []string
	name := "dataset"
	if res.Clustered != nil && res.Clustered.Name != "" {
		name = res.Clustered.Name
	}
	lines = append(lines, titleStyle.Render(fmt.Sprintf("Segmentation of %s", name)))
	kv := func(k, v string) {
		lines = append(lines, keyStyle.Render(k+":")+" "+v)
	}
	kv("rows", fmt.Sprintf("%d kept of %d", res.Stats.FinalRows, res.Stats.OriginalRows))
	kv("features", strings.Join(res.Scaler.Columns, ", "))
	if sel := res.Selection; sel != nil {
		kv("k", fmt.Sprintf("%d (%s; elbow %d, silhouette %d)", res.K, sel.Method, sel.ElbowK, sel.SilhouetteK))
	} else {
		kv("k", strconv.Itoa(res.K))
	}
	m := res.Metrics
	kv("silhouette", fmt.Sprintf("%.3f", m.Silhouette))
	kv("davies-bouldin", fmt.Sprintf("%.3f", m.DaviesBouldin))
	kv("calinski-harabasz", fmt.Sprintf("%.1f", m.CalinskiHarabasz))
	if m.Degraded {
		lines = append(lines, warnStyle.Render("⚠ metrics unavailable: "+m.Reason))
	}
	header := boxStyle.Render(strings.Join(lines, "\n"))

	ins := res.Insights
	if ins == nil {
		return header + "\n"
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(muted)).
		Headers("Cluster", "Label", "Rows", "Share")
	for _, p := range ins.Clusters {
		t.Row(strconv.Itoa(p.Cluster), p.Label.String(), strconv.Itoa(p.Size), fmt.Sprintf("%.1f%%", p.Percent))
	}

	var tail []string
	tail = append(tail, fmt.Sprintf("Quality: %s, %s, %s", ins.Quality.Overall, ins.Quality.Separation, ins.Quality.Compactness))
	tail = append(tail, fmt.Sprintf("Balance: %s", ins.Distribution.Balance))
	counts := LabelCounts(res)
	var parts []string
	for _, k := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s ×%d", k, counts[k]))
	}
	tail = append(tail, "Labels: "+strings.Join(parts, ", "))
	if len(ins.Recommendations) > 0 {
		tail = append(tail, "→ "+ins.Recommendations[0])
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, t.String(), strings.Join(tail, "\n")) + "\n"
}
