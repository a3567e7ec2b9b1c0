package cmd

import (
	"testing"

	"github.com/KaramelBytes/segmenta-cli/internal/table"
)

func TestTableFlagsNumberFormat(t *testing.T) {
	cases := []struct {
		decimal, thousands string
		want               table.NumberFormat
		wantErr            bool
	}{
		{"", "", table.NumberFormat{}, false},
		{"comma", ".", table.NumberFormat{Decimal: ',', Thousands: '.'}, false},
		{".", "space", table.NumberFormat{Decimal: '.', Thousands: ' '}, false},
		{"?", "", table.NumberFormat{}, true},
		{"", "_", table.NumberFormat{}, true},
	}
	for _, c := range cases {
		tf := tableFlags{decimal: c.decimal, thousands: c.thousands}
		got, err := tf.numberFormat()
		if (err != nil) != c.wantErr {
			t.Fatalf("numberFormat(%q,%q) err = %v", c.decimal, c.thousands, err)
		}
		if err == nil && got != c.want {
			t.Fatalf("numberFormat(%q,%q) = %+v, want %+v", c.decimal, c.thousands, got, c.want)
		}
	}
}

func TestParseDelimiter(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ",": ',', "tab": '\t', ";": ';', "pipe": '|'} {
		got, err := parseDelimiter(in)
		if err != nil || got != want {
			t.Fatalf("parseDelimiter(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := parseDelimiter("x"); err == nil {
		t.Fatalf("expected error for unsupported delimiter")
	}
}

func TestPipelineOptionsFromConfig(t *testing.T) {
	old := cfg
	defer func() { cfg = old }()

	cfg = nil
	if opt := pipelineOptions(); opt.Selection.MaxK != 10 || opt.Fit.Seed != 42 {
		t.Fatalf("defaults not applied: %+v", opt.Selection)
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	loadConfig()
	cfg.MaxK, cfg.Seed, cfg.FitInits, cfg.SelectInits = 6, 7, 3, 2
	cfg.SoldKeywords = []string{"units"}
	opt := pipelineOptions()
	if opt.Selection.MaxK != 6 || opt.Fit.NInit != 3 || opt.Selection.InertiaFit.NInit != 2 {
		t.Fatalf("config not applied: %+v", opt)
	}
	if opt.Fit.Seed != 7 || opt.Selection.SilhouetteFit.Seed != 7 {
		t.Fatalf("seed not applied")
	}
	if len(opt.Concepts.Sold) != 1 || opt.Concepts.Sold[0] != "units" {
		t.Fatalf("concepts = %+v", opt.Concepts)
	}
	if opt = withSeed(opt, 11); opt.Selection.InertiaFit.Seed != 11 || opt.Fit.Seed != 11 {
		t.Fatalf("withSeed did not override every fit")
	}
}
