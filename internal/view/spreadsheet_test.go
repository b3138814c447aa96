package view_test

import (
	"testing"

	"github.com/cmdrvl/fingerprint/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange_NormalizesCornerOrder(t *testing.T) {
	a, err := view.ParseRange("A3:B10")
	require.NoError(t, err)
	b, err := view.ParseRange("B10:A3")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, a.StartCol)
	assert.Equal(t, 3, a.StartRow)
	assert.Equal(t, 2, a.EndCol)
	assert.Equal(t, 10, a.EndRow)
}

func TestParseRange_Invalid(t *testing.T) {
	_, err := view.ParseRange("not-a-range")
	assert.Error(t, err)
}

func TestOpenCSV_CellsRoundtrip(t *testing.T) {
	rows := [][]string{
		{"name", "amount"},
		{"rent", "1200"},
		{"utilities", "85"},
	}
	sheet, err := view.OpenCSV("ledger.csv", rows)
	require.NoError(t, err)
	defer sheet.Close()

	assert.True(t, sheet.HasSheet("Sheet1"))
	count, err := sheet.RowCount("Sheet1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	val, err := sheet.CellValue("Sheet1", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1200", val)
}
