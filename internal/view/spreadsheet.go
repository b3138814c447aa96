package view

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet is the lazy xlsx/csv view. Sheet enumeration and row counts
// are cheap against excelize's in-memory model; cell access goes through
// excelize's A1-style reference resolution directly.
type Spreadsheet struct {
	path string
	f    *excelize.File
}

func (s *Spreadsheet) Kind() Kind   { return KindSpreadsheet }
func (s *Spreadsheet) Path() string { return s.path }

// OpenSpreadsheet opens an xlsx workbook at path.
func OpenSpreadsheet(path string) (*Spreadsheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", path, err)
	}
	return &Spreadsheet{path: path, f: f}, nil
}

// OpenCSV projects already-parsed CSV rows as a single-sheet ("Sheet1")
// Spreadsheet so the same assertion vocabulary applies to both formats. It
// does not read the file itself; the record opener in open.go reads it with
// encoding/csv.
func OpenCSV(path string, rows [][]string) (*Spreadsheet, error) {
	f := excelize.NewFile()
	const sheet = "Sheet1"
	f.SetSheetName(f.GetSheetName(0), sheet)
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("csv cell coordinates: %w", err)
			}
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return nil, fmt.Errorf("csv set cell: %w", err)
			}
		}
	}
	return &Spreadsheet{path: path, f: f}, nil
}

// Close releases the underlying workbook.
func (s *Spreadsheet) Close() error { return s.f.Close() }

// SheetNames lists all sheets in workbook order.
func (s *Spreadsheet) SheetNames() []string { return s.f.GetSheetList() }

// HasSheet reports whether the named sheet exists.
func (s *Spreadsheet) HasSheet(name string) bool {
	for _, n := range s.SheetNames() {
		if n == name {
			return true
		}
	}
	return false
}

// CellValue returns the string value of a single A1-style cell reference.
func (s *Spreadsheet) CellValue(sheet, ref string) (string, error) {
	return s.f.GetCellValue(sheet, ref)
}

// RowCount returns the number of populated rows in a sheet.
func (s *Spreadsheet) RowCount(sheet string) (int, error) {
	rows, err := s.f.GetRows(sheet)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Range is a normalized rectangle with its top-left corner minimal,
// regardless of the order the two corners were given in: B10:A3 ≡ A3:B10.
type Range struct {
	Sheet              string
	StartCol, StartRow int
	EndCol, EndRow     int
}

var rangePattern = regexp.MustCompile(`^([A-Za-z]+)(\d+):([A-Za-z]+)(\d+)$`)

// ParseRange normalizes an "A1:B3"-style rectangle reference.
func ParseRange(ref string) (Range, error) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return Range{}, fmt.Errorf("invalid range reference %q", ref)
	}
	c1, r1, err := splitCellParts(m[1], m[2])
	if err != nil {
		return Range{}, err
	}
	c2, r2, err := splitCellParts(m[3], m[4])
	if err != nil {
		return Range{}, err
	}
	rg := Range{
		StartCol: min(c1, c2), EndCol: max(c1, c2),
		StartRow: min(r1, r2), EndRow: max(r1, r2),
	}
	return rg, nil
}

func splitCellParts(colLetters, rowDigits string) (col, row int, err error) {
	col, err = excelize.ColumnNameToNumber(colLetters)
	if err != nil {
		return 0, 0, err
	}
	row, err = strconv.Atoi(rowDigits)
	if err != nil {
		return 0, 0, err
	}
	return col, row, nil
}

// Cells returns the sheet's cell values within the range, in row-major order.
func (s *Spreadsheet) Cells(sheet string, rg Range) ([][]string, error) {
	out := make([][]string, 0, rg.EndRow-rg.StartRow+1)
	for row := rg.StartRow; row <= rg.EndRow; row++ {
		rowVals := make([]string, 0, rg.EndCol-rg.StartCol+1)
		for col := rg.StartCol; col <= rg.EndCol; col++ {
			ref, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, err
			}
			val, err := s.f.GetCellValue(sheet, ref)
			if err != nil {
				return nil, err
			}
			rowVals = append(rowVals, val)
		}
		out = append(out, rowVals)
	}
	return out, nil
}

// CellRef formats a 1-indexed (col, row) pair back into an A1-style reference.
func CellRef(col, row int) (string, error) {
	return excelize.CoordinatesToCellName(col, row)
}
