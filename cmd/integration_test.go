package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so sticky values do not leak
// between invocations of the shared root command.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

// writeShopCSV writes n rows drawn around three well separated centers.
func writeShopCSV(t *testing.T, dir, name string, n int) string {
	t.Helper()
	centers := [][3]float64{{10, 5, 1}, {60, 55, 3}, {110, 5, 5}}
	var b strings.Builder
	b.WriteString("product,price,sold,rating\n")
	for i := 0; i < n; i++ {
		c := centers[i%3]
		j := float64((i*7)%10)/10 - 0.45
		fmt.Fprintf(&b, "item-%d,%.2f,%.2f,%.2f\n", i, c[0]+j, c[1]-j, c[2]+j/5)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func storedRunIDs(t *testing.T, home string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(home, ".segmenta", "runs"))
	if err != nil {
		t.Fatalf("read runs dir: %v", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids
}

func TestCLI_ClusterStoresRunAndExports(t *testing.T) {
	home := isolateHome(t)
	path := writeShopCSV(t, home, "shop.csv", 30)

	out := runCmd(t, "cluster", path, "--quiet", "--format", "json")
	var res struct {
		K        int `json:"k"`
		Insights struct {
			Clusters []struct {
				Label string `json:"label"`
			} `json:"clusters"`
		} `json:"insights"`
	}
	if err := json.NewDecoder(strings.NewReader(out)).Decode(&res); err != nil {
		t.Fatalf("decode json: %v\n%s", err, out)
	}
	if res.K < 2 || len(res.Insights.Clusters) != res.K {
		t.Fatalf("unexpected result: k=%d clusters=%d", res.K, len(res.Insights.Clusters))
	}

	ids := storedRunIDs(t, home)
	if len(ids) != 1 {
		t.Fatalf("expected one stored run, got %v", ids)
	}
	if list := runCmd(t, "runs", "list"); !strings.Contains(list, "shop.csv") || !strings.Contains(list, ids[0][:8]) {
		t.Fatalf("runs list missing run:\n%s", list)
	}
	if show := runCmd(t, "runs", "show", ids[0][:8], "--format", "markdown"); !strings.Contains(show, "[CLUSTERS]") {
		t.Fatalf("runs show missing clusters section:\n%s", show)
	}

	exported := filepath.Join(home, "cluster0.csv")
	runCmd(t, "runs", "export", ids[0][:8], "--cluster", "0", "-o", exported)
	f, err := os.Open(exported)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(recs) < 2 || recs[0][len(recs[0])-1] != "Cluster" {
		t.Fatalf("unexpected export header/rows: %v", recs)
	}
	for _, rec := range recs[1:] {
		if rec[len(rec)-1] != "0" {
			t.Fatalf("row from another cluster: %v", rec)
		}
	}
}

func TestCLI_ClusterWritesReportAndCharts(t *testing.T) {
	home := isolateHome(t)
	path := writeShopCSV(t, home, "shop.csv", 30)
	reportPath := filepath.Join(home, "out", "report.md")

	runCmd(t, "cluster", path, "--quiet", "--charts", "-o", reportPath)

	body, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	for _, want := range []string{"[CLUSTERING SUMMARY]", "[K SELECTION]", "[RECOMMENDATIONS]"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("report missing %s", want)
		}
	}
	ids := storedRunIDs(t, home)
	if len(ids) != 1 {
		t.Fatalf("expected one stored run, got %v", ids)
	}
	for _, name := range []string{"elbow.html", "clusters.html", "run.json", "clustered.csv"} {
		if _, err := os.Stat(filepath.Join(home, ".segmenta", "runs", ids[0], name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
}

func TestCLI_ClusterNoSave(t *testing.T) {
	home := isolateHome(t)
	path := writeShopCSV(t, home, "shop.csv", 30)
	out := runCmd(t, "cluster", path, "--quiet", "--no-save", "--format", "markdown")
	if !strings.Contains(out, "[CLUSTERING SUMMARY]") {
		t.Fatalf("expected markdown report:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".segmenta", "runs")); err == nil {
		if ids := storedRunIDs(t, home); len(ids) != 0 {
			t.Fatalf("--no-save stored runs: %v", ids)
		}
	}
}

func TestCLI_ClusterBatchReportsFailures(t *testing.T) {
	home := isolateHome(t)
	data := filepath.Join(home, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeShopCSV(t, data, "a.csv", 30)
	writeShopCSV(t, data, "b.csv", 24)
	writeShopCSV(t, data, "tiny.csv", 4)
	if err := os.WriteFile(filepath.Join(data, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	out, err := execCmd("cluster-batch", filepath.Join(data, "*"), "--jobs", "2", "--quiet")
	if err == nil || !strings.Contains(err.Error(), "1 of 3 files failed") {
		t.Fatalf("expected one failure, got err=%v\n%s", err, out)
	}
	if !strings.Contains(out, "✗ "+filepath.Join(data, "tiny.csv")) {
		t.Fatalf("tiny.csv failure not reported:\n%s", out)
	}
	if ids := storedRunIDs(t, home); len(ids) != 2 {
		t.Fatalf("expected two stored runs, got %v", ids)
	}
}

func TestCLI_ProfileAndConfig(t *testing.T) {
	home := isolateHome(t)
	path := writeShopCSV(t, home, "shop.csv", 12)

	out := runCmd(t, "profile", path, "--correlations", "--sample-rows", "2")
	for _, want := range []string{"[DATASET SUMMARY]", "Rows: 12", "[CORRELATIONS]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("profile missing %q:\n%s", want, out)
		}
	}

	runCmd(t, "config", "set", "max_k", "5")
	runCmd(t, "config", "set", "sold_keywords", "units, qty")
	show := runCmd(t, "config", "show")
	if !strings.Contains(show, "max_k: 5") || !strings.Contains(show, "sold_keywords: units,qty") {
		t.Fatalf("config not persisted:\n%s", show)
	}
	if _, err := execCmd("config", "set", "bogus", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := execCmd("config", "set", "max_k", "zero"); err == nil {
		t.Fatalf("expected invalid int error")
	}
}

func TestCLI_FlagValidation(t *testing.T) {
	home := isolateHome(t)
	path := writeShopCSV(t, home, "shop.csv", 30)
	cases := [][]string{
		{"cluster", path, "--quiet", "--max-k", "1"},
		{"cluster", path, "--quiet", "--delimiter", "x"},
		{"cluster", path, "--quiet", "--decimal", "?"},
		{"cluster", path, "--quiet", "--format", "pdf", "--no-save"},
		{"cluster", filepath.Join(home, "missing.csv"), "--quiet"},
		{"runs", "show", "nope"},
	}
	for _, args := range cases {
		if _, err := execCmd(args...); err == nil {
			t.Errorf("expected error for %v", args)
		}
	}
}
