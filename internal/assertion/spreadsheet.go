package assertion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

func asSpreadsheet(doc view.Document) (*view.Spreadsheet, bool) {
	s, ok := doc.(*view.Spreadsheet)
	return s, ok
}

func assertSheetExists(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	name, _ := argString(a, "sheet")
	if sheet.HasSheet(env.expand(name)) {
		return pass(a.Name, "sheet "+name+" present")
	}
	return fail(a.Name, "sheet "+name+" not found")
}

func assertSheetNameRegex(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	for _, name := range sheet.SheetNames() {
		if re.MatchString(name) {
			if bind, ok := argString(a, "bind"); ok {
				env.Bound[bind] = name
			}
			return pass(a.Name, "matched sheet "+name)
		}
	}
	return fail(a.Name, "no sheet matched "+pattern)
}

func assertCellEq(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	cell, _ := argString(a, "cell")
	want, _ := argString(a, "value")
	got, err := sheet.CellValue(env.expand(sheetName), env.expand(cell))
	if err != nil {
		return fail(a.Name, "cell read error: "+err.Error())
	}
	if strings.TrimSpace(got) == strings.TrimSpace(want) {
		return pass(a.Name, cell+" equals "+want)
	}
	return fail(a.Name, fmt.Sprintf("%s = %q, want %q", cell, got, want))
}

func assertCellRegex(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	cell, _ := argString(a, "cell")
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	got, err := sheet.CellValue(env.expand(sheetName), env.expand(cell))
	if err != nil {
		return fail(a.Name, "cell read error: "+err.Error())
	}
	if re.MatchString(got) {
		return pass(a.Name, cell+" matched "+pattern)
	}
	return fail(a.Name, fmt.Sprintf("%s = %q did not match %s", cell, got, pattern))
}

func rangeCells(sheet *view.Spreadsheet, sheetName, rangeRef string) ([][]string, view.Range, error) {
	rg, err := view.ParseRange(rangeRef)
	if err != nil {
		return nil, rg, err
	}
	cells, err := sheet.Cells(sheetName, rg)
	return cells, rg, err
}

func assertRangeNonNull(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	rangeRef, _ := argString(a, "range")
	cells, _, err := rangeCells(sheet, env.expand(sheetName), rangeRef)
	if err != nil {
		return fail(a.Name, "range error: "+err.Error())
	}
	for _, row := range cells {
		for _, v := range row {
			if strings.TrimSpace(v) == "" {
				return fail(a.Name, rangeRef+" contains an empty cell")
			}
		}
	}
	return pass(a.Name, rangeRef+" fully populated")
}

func assertRangePopulated(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	rangeRef, _ := argString(a, "range")
	minPct, _ := argFloat(a, "min_pct")
	cells, _, err := rangeCells(sheet, env.expand(sheetName), rangeRef)
	if err != nil {
		return fail(a.Name, "range error: "+err.Error())
	}
	total, nonEmpty := 0, 0
	for _, row := range cells {
		for _, v := range row {
			total++
			if strings.TrimSpace(v) != "" {
				nonEmpty++
			}
		}
	}
	pct := 100.0
	if total > 0 {
		pct = float64(nonEmpty) / float64(total) * 100
	}
	if pct >= minPct {
		return pass(a.Name, fmt.Sprintf("%.1f%% populated", pct))
	}
	return fail(a.Name, fmt.Sprintf("only %.1f%% populated, want >= %.1f%%", pct, minPct))
}

func assertSheetMinRows(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	min := argInt(a, "min", 0)
	count, err := sheet.RowCount(env.expand(sheetName))
	if err != nil {
		return fail(a.Name, "row count error: "+err.Error())
	}
	if count >= min {
		return pass(a.Name, fmt.Sprintf("%d rows >= %d", count, min))
	}
	return fail(a.Name, fmt.Sprintf("%d rows, want >= %d", count, min))
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func sumRange(sheet *view.Spreadsheet, sheetName, rangeRef string) (float64, error) {
	cells, _, err := rangeCells(sheet, sheetName, rangeRef)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, row := range cells {
		for _, v := range row {
			if n, ok := parseNumeric(v); ok {
				total += n
			}
		}
	}
	return total, nil
}

// assertSumEq compares the numeric sum of a range against either a cell
// reference or a literal value, within a tolerance. `tolerance` is always
// treated as an absolute delta; there is no relative-tolerance mode.
func assertSumEq(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	rangeRef, _ := argString(a, "range")
	tolerance, _ := argFloat(a, "tolerance")

	total, err := sumRange(sheet, env.expand(sheetName), rangeRef)
	if err != nil {
		return fail(a.Name, "range error: "+err.Error())
	}

	var want float64
	if cell, ok := argString(a, "cell"); ok {
		raw, err := sheet.CellValue(env.expand(sheetName), env.expand(cell))
		if err != nil {
			return fail(a.Name, "cell read error: "+err.Error())
		}
		n, ok := parseNumeric(raw)
		if !ok {
			return fail(a.Name, "cell "+cell+" is not numeric")
		}
		want = n
	} else if v, ok := argFloat(a, "value"); ok {
		want = v
	} else {
		return fail(a.Name, "sum_eq requires a cell or value argument")
	}

	if diff := total - want; diff >= -tolerance && diff <= tolerance {
		return pass(a.Name, fmt.Sprintf("sum %.4f within %.4f of %.4f", total, tolerance, want))
	}
	return fail(a.Name, fmt.Sprintf("sum %.4f not within %.4f of %.4f", total, tolerance, want))
}

func assertWithinTolerance(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	cell, _ := argString(a, "cell")
	expected, _ := argFloat(a, "expected")
	tolerance, _ := argFloat(a, "tolerance")

	raw, err := sheet.CellValue(env.expand(sheetName), env.expand(cell))
	if err != nil {
		return fail(a.Name, "cell read error: "+err.Error())
	}
	got, ok := parseNumeric(raw)
	if !ok {
		return fail(a.Name, cell+" is not numeric")
	}
	if diff := got - expected; diff >= -tolerance && diff <= tolerance {
		return pass(a.Name, fmt.Sprintf("%s = %.4f within tolerance", cell, got))
	}
	return fail(a.Name, fmt.Sprintf("%s = %.4f not within %.4f of %.4f", cell, got, tolerance, expected))
}

// assertColumnSearch finds the first row (within a range) whose cell
// matches pattern, optionally binding the matched value for later {{name}}
// substitution.
func assertColumnSearch(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	rangeRef, _ := argString(a, "range")
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(pattern)
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	cells, rg, err := rangeCells(sheet, env.expand(sheetName), rangeRef)
	if err != nil {
		return fail(a.Name, "range error: "+err.Error())
	}
	for i, row := range cells {
		for _, v := range row {
			if re.MatchString(v) {
				if bind, ok := argString(a, "bind"); ok {
					env.Bound[bind] = v
				}
				return pass(a.Name, fmt.Sprintf("matched at row %d", rg.StartRow+i))
			}
		}
	}
	return fail(a.Name, "no row in "+rangeRef+" matched "+pattern)
}

// assertHeaderRowMatch finds a row within row_range where at least
// min_matches of the given column patterns hit on distinct columns of that
// row.
func assertHeaderRowMatch(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	sheet, ok := asSpreadsheet(doc)
	if !ok {
		return fail(a.Name, "not a spreadsheet document")
	}
	sheetName, _ := argString(a, "sheet")
	rowRange, _ := argString(a, "row_range")
	patterns := argStringSlice(a, "columns")
	minMatches := argInt(a, "min_matches", len(patterns))

	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compileRegex(p)
		if err != nil {
			return fail(a.Name, "invalid column pattern: "+err.Error())
		}
		res = append(res, re)
	}

	cells, rg, err := rangeCells(sheet, env.expand(sheetName), rowRange)
	if err != nil {
		return fail(a.Name, "range error: "+err.Error())
	}
	for i, row := range cells {
		usedCols := make(map[int]bool)
		matches := 0
		for _, re := range res {
			for c, v := range row {
				if usedCols[c] {
					continue
				}
				if re.MatchString(v) {
					usedCols[c] = true
					matches++
					break
				}
			}
		}
		if matches >= minMatches {
			return pass(a.Name, fmt.Sprintf("row %d matched %d/%d columns", rg.StartRow+i, matches, len(patterns)))
		}
	}
	return fail(a.Name, fmt.Sprintf("no row in %s matched %d of the given columns", rowRange, minMatches))
}
