package analysis

import (
	"strings"
	"testing"

	"github.com/KaramelBytes/segmenta-cli/internal/table"
)

var shopRows = []string{
	"Produk;Harga (Rp);Terjual;Rating;Kategori;Tanggal",
	"Kaos;12.500;100;4,5;fashion;2024-01-05",
	"Topi;15.000;120;4,7;fashion;2024-01-06",
	"Tas;85.000;110;;fashion;2024-01-07",
	"Sepatu;250.000;90;4,9;fashion;2024-01-08",
	"Gelas;9.000;105;4,1;rumah;2024-01-09",
	"Piring;11.000;95;4,0;rumah;2024-01-10",
	"Lampu;45.000;115;4,4;rumah;2024-01-11",
	"Kipas;120.000;98;4,6;elektronik;2024-01-12",
	"Kabel;20.000;102;4,2;elektronik;2024-01-13",
	"Charger;35.000;5000;4,8;elektronik;2024-01-14",
}

func shopTable(t *testing.T) *table.Raw {
	t.Helper()
	header := strings.Split(shopRows[0], ";")
	var recs [][]string
	for _, line := range shopRows[1:] {
		recs = append(recs, strings.Split(line, ";"))
	}
	return table.FromRecords("shop.csv", header, recs)
}

func findCol(t *testing.T, rep *Report, name string) ColumnSummary {
	t.Helper()
	for _, c := range rep.Cols {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("column %q not in report", name)
	return ColumnSummary{}
}

func TestProfileKindsAndStats(t *testing.T) {
	opt := DefaultOptions()
	opt.Number = table.NumberFormat{Decimal: ',', Thousands: '.'}
	opt.SampleRows = 3
	opt.Correlations = true
	opt.GroupBy = []string{"kategori"}

	rep := Profile(shopTable(t), opt)
	if rep.Rows != 10 {
		t.Fatalf("rows = %d, want 10", rep.Rows)
	}

	harga := findCol(t, rep, "Harga")
	if harga.Kind != "numeric" || harga.Unit != "Rp" {
		t.Fatalf("harga: kind %s unit %q", harga.Kind, harga.Unit)
	}
	if harga.Min != 9000 || harga.Max != 250000 {
		t.Fatalf("harga range: %v..%v", harga.Min, harga.Max)
	}

	sold := findCol(t, rep, "Terjual")
	if sold.OutliersCount != 1 {
		t.Fatalf("terjual outliers = %d, want 1", sold.OutliersCount)
	}

	rating := findCol(t, rep, "Rating")
	if rating.Missing != 1 || rating.NonNull != 9 {
		t.Fatalf("rating missing %d non-null %d", rating.Missing, rating.NonNull)
	}

	kat := findCol(t, rep, "Kategori")
	if kat.Kind != "categorical" || kat.Unique != 3 {
		t.Fatalf("kategori: %+v", kat)
	}
	if kat.TopValues[0].Value != "elektronik" && kat.TopValues[0].Value != "fashion" {
		t.Fatalf("unexpected top value %+v", kat.TopValues[0])
	}
	if findCol(t, rep, "Tanggal").Kind != "datetime" {
		t.Fatalf("tanggal should be datetime")
	}

	if len(rep.Samples) != 3 {
		t.Fatalf("samples = %d", len(rep.Samples))
	}
	if len(rep.Groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(rep.Groups))
	}
	if rep.Corr == nil || len(rep.Corr.Columns) != 3 {
		t.Fatalf("expected 3x3 correlation matrix, got %+v", rep.Corr)
	}
	for i := range rep.Corr.Values {
		if rep.Corr.Values[i][i] != 1 {
			t.Fatalf("diagonal %d = %v", i, rep.Corr.Values[i][i])
		}
	}
}

func TestProfileMarkdown(t *testing.T) {
	opt := DefaultOptions()
	opt.Number = table.NumberFormat{Decimal: ',', Thousands: '.'}
	opt.Correlations = true
	md := Profile(shopTable(t), opt).Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: shop.csv",
		"Rows: 10",
		"- Harga [Rp]: numeric",
		"outliers: 1 above |z|>3.5",
		"[CORRELATIONS]",
		"[HEAD AND SAMPLE ROWS]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestProfileNoSamples(t *testing.T) {
	opt := DefaultOptions()
	opt.SampleRows = 0
	md := Profile(shopTable(t), opt).Markdown()
	if strings.Contains(md, "[HEAD AND SAMPLE ROWS]") {
		t.Fatalf("samples should be suppressed")
	}
}

func TestProfileUnknownGroupColumn(t *testing.T) {
	opt := DefaultOptions()
	opt.GroupBy = []string{"missing"}
	rep := Profile(shopTable(t), opt)
	if len(rep.Groups) != 0 || len(rep.Warnings) == 0 {
		t.Fatalf("expected a warning and no groups, got %+v / %v", rep.Groups, rep.Warnings)
	}
}

func TestSplitUnits(t *testing.T) {
	cases := []struct{ in, name, unit string }{
		{"Harga (Rp)", "Harga", "Rp"},
		{"Berat [kg]", "Berat", "kg"},
		{"diskon_%", "diskon", "%"},
		{"Terjual", "Terjual", ""},
	}
	for _, c := range cases {
		n, u := splitUnits(c.in)
		if n != c.name || u != c.unit {
			t.Errorf("splitUnits(%q) = %q,%q", c.in, n, u)
		}
	}
}

func TestProfileReadiness(t *testing.T) {
	opt := DefaultOptions()
	opt.Number = table.NumberFormat{Decimal: ',', Thousands: '.'}
	rep := Profile(shopTable(t), opt)
	if len(rep.Ready.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", rep.Ready.Issues)
	}
	cc := rep.Ready.Concepts
	if cc.Price != "Harga (Rp)" || cc.Sold != "Terjual" || cc.Rating != "Rating" {
		t.Fatalf("concepts = %+v", cc)
	}
	md := rep.Markdown()
	if !strings.Contains(md, "[CLUSTERING READINESS]") || !strings.Contains(md, "Ready to cluster") {
		t.Fatalf("readiness section missing:\n%s", md)
	}

	words := table.FromRecords("notes.csv", []string{"note"}, [][]string{{"a"}, {"b"}})
	ready := Profile(words, DefaultOptions()).Ready
	if len(ready.NumericColumns) != 0 || len(ready.Issues) != 5 {
		t.Fatalf("expected 5 issues for a tiny text table, got %v", ready.Issues)
	}
}
