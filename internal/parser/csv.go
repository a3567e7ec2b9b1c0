package parser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/table"
)

type csvLoader struct{}

func (csvLoader) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvLoader) Load(path string, opt Options) (*table.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &table.LoadError{Path: path, Err: err}
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &table.LoadError{Path: path, Err: errors.New("empty file")}
		}
		return nil, &table.LoadError{Path: path, Row: 1, Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &table.LoadError{Path: path, Row: len(records) + 2, Err: err}
		}
		records = append(records, rec)
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
	}
	return table.FromRecords(filepath.Base(path), header, records), nil
}

// sniffDelimiter picks tab for .tsv files, otherwise the most frequent of
// ',', ';' and tab in the header line.
func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	f, err := os.Open(path)
	if err != nil {
		return ','
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return ','
	}
	best, bestN := ',', strings.Count(line, ",")
	for _, c := range []rune{';', '\t'} {
		if n := strings.Count(line, string(c)); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}
