package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/segmenta-cli/internal/table"
	"github.com/xuri/excelize/v2"
)

type xlsxLoader struct{}

func (xlsxLoader) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Load reads one sheet. The first row is the header; cells stored as numbers
// come back as float64, everything else as trimmed strings.
func (xlsxLoader) Load(path string, opt Options) (*table.Raw, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &table.LoadError{Path: path, Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt)
	if err != nil {
		return nil, &table.LoadError{Path: path, Err: err}
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &table.LoadError{Path: path, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &table.LoadError{Path: path, Err: errors.New("empty sheet")}
	}
	header := rows[0]
	data := rows[1:]
	if opt.MaxRows > 0 && len(data) > opt.MaxRows {
		data = data[:opt.MaxRows]
	}
	raw := &table.Raw{Name: filepath.Base(path), Columns: make([]table.Column, len(header))}
	for j, h := range header {
		raw.Columns[j] = table.Column{Name: strings.TrimSpace(h), Values: make([]any, len(data))}
	}
	for i, rec := range data {
		for j := range header {
			if j >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[j])
			if table.IsNullToken(v) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, &table.LoadError{Path: path, Row: i + 2, Err: err}
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, &table.LoadError{Path: path, Row: i + 2, Err: err}
			}
			if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
				if x, err := strconv.ParseFloat(v, 64); err == nil {
					raw.Columns[j].Values[i] = x
					continue
				}
			}
			raw.Columns[j].Values[i] = v
		}
	}
	return raw, nil
}

func pickSheet(sheets []string, opt Options) (string, error) {
	if len(sheets) == 0 {
		return "", errors.New("workbook has no sheets")
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found (have %s)", opt.SheetName, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}
