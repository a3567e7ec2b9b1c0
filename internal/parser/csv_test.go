package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/segmenta-cli/internal/parser"
	"github.com/KaramelBytes/segmenta-cli/internal/table"
)

func TestLoadFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "products.csv")
	content := "\ufeffname,price,sold\n" +
		"kopi,12.5,100\n" +
		"teh,NA,80\n" +
		"susu,9\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if raw.Len() != 3 || len(raw.Columns) != 3 {
		t.Fatalf("got %d rows x %d cols, want 3x3", raw.Len(), len(raw.Columns))
	}
	if raw.Columns[0].Name != "name" {
		t.Fatalf("BOM not stripped from header: %q", raw.Columns[0].Name)
	}
	if raw.Columns[1].Values[1] != nil {
		t.Fatalf("expected NA to load as nil, got %#v", raw.Columns[1].Values[1])
	}
	if raw.Columns[2].Values[2] != nil {
		t.Fatalf("expected short row to be padded with nil")
	}
	if raw.Columns[1].Values[0] != "12.5" {
		t.Fatalf("csv cells stay text, got %#v", raw.Columns[1].Values[0])
	}
}

func TestLoadFileSniffsSemicolon(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "eu.csv")
	if err := os.WriteFile(p, []byte("a;b\n1,5;2\n3;4\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := parser.LoadFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(raw.Columns) != 2 || raw.Columns[0].Values[0] != "1,5" {
		t.Fatalf("unexpected parse: %#v", raw.Columns)
	}
}

func TestLoadFileMaxRows(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "big.tsv")
	if err := os.WriteFile(p, []byte("a\tb\n1\t2\n3\t4\n5\t6\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := parser.LoadFile(p, parser.Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if raw.Len() != 2 {
		t.Fatalf("Len = %d, want 2", raw.Len())
	}
}

func TestLoadFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := parser.LoadFile(p, parser.Options{})
	if !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	var le *table.LoadError
	if !errors.As(err, &le) || le.Path != p {
		t.Fatalf("expected *table.LoadError with path, got %T", err)
	}
	if parser.CanParse(p) {
		t.Fatalf("CanParse(.txt) = true")
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := parser.LoadFile(filepath.Join(t.TempDir(), "nope.csv"), parser.Options{})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want not-exist", err)
	}
}
