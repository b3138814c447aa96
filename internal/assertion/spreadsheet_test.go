package assertion_test

import (
	"testing"

	"github.com/cmdrvl/fingerprint/internal/assertion"
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSheet(t *testing.T, rows [][]string) *view.Spreadsheet {
	t.Helper()
	sheet, err := view.OpenCSV("ledger.csv", rows)
	require.NoError(t, err)
	t.Cleanup(func() { sheet.Close() })
	return sheet
}

func TestSheetExists(t *testing.T) {
	sheet := openSheet(t, [][]string{{"a"}})
	def := domain.Definition{Format: domain.FormatCSV, Assertions: []domain.Assertion{
		{Name: "has-sheet", Kind: "sheet_exists", Args: map[string]any{"sheet": "Sheet1"}},
	}}
	_, matched := assertion.Evaluate(def, sheet, false)
	assert.True(t, matched)
}

func TestCellEq(t *testing.T) {
	sheet := openSheet(t, [][]string{{"name", "amount"}, {"rent", "1200"}})
	def := domain.Definition{Format: domain.FormatCSV, Assertions: []domain.Assertion{
		{Name: "cell", Kind: "cell_eq", Args: map[string]any{"sheet": "Sheet1", "cell": "B2", "value": "1200"}},
	}}
	_, matched := assertion.Evaluate(def, sheet, false)
	assert.True(t, matched)
}

func TestSumEq_WithinTolerance(t *testing.T) {
	sheet := openSheet(t, [][]string{{"1000"}, {"1200"}, {"800"}})
	def := domain.Definition{Format: domain.FormatCSV, Assertions: []domain.Assertion{
		{Name: "sum", Kind: "sum_eq", Args: map[string]any{"sheet": "Sheet1", "range": "A1:A3", "value": 3000.0, "tolerance": 0.01}},
	}}
	_, matched := assertion.Evaluate(def, sheet, false)
	assert.True(t, matched)
}

func TestSumEq_OutsideTolerance(t *testing.T) {
	sheet := openSheet(t, [][]string{{"1000"}, {"1200"}})
	def := domain.Definition{Format: domain.FormatCSV, Assertions: []domain.Assertion{
		{Name: "sum", Kind: "sum_eq", Args: map[string]any{"sheet": "Sheet1", "range": "A1:A2", "value": 5000.0, "tolerance": 1.0}},
	}}
	_, matched := assertion.Evaluate(def, sheet, false)
	assert.False(t, matched)
}

func TestHeaderRowMatch(t *testing.T) {
	sheet := openSheet(t, [][]string{{"Unit", "Rent", "Tenant"}})
	def := domain.Definition{Format: domain.FormatCSV, Assertions: []domain.Assertion{
		{Name: "header", Kind: "header_row_match", Args: map[string]any{
			"sheet": "Sheet1", "row_range": "A1:C1",
			"columns":     []any{"(?i)unit", "(?i)rent"},
			"min_matches": 2,
		}},
	}}
	_, matched := assertion.Evaluate(def, sheet, false)
	assert.True(t, matched)
}

func TestRangeNonNull_FailsOnBlankCell(t *testing.T) {
	sheet := openSheet(t, [][]string{{"1", ""}, {"2", "3"}})
	def := domain.Definition{Format: domain.FormatCSV, Assertions: []domain.Assertion{
		{Name: "range", Kind: "range_non_null", Args: map[string]any{"sheet": "Sheet1", "range": "A1:B2"}},
	}}
	_, matched := assertion.Evaluate(def, sheet, false)
	assert.False(t, matched)
}
