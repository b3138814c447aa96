package view_test

import (
	"regexp"
	"testing"

	"github.com/cmdrvl/fingerprint/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdown_HeadingsAndSections(t *testing.T) {
	src := "Rent Roll\n=========\n\nTenant list.\n\n## Notes\n\nSee below.\n"
	m, err := view.ParseMarkdown("rent-roll.md", src)
	require.NoError(t, err)

	require.Len(t, m.Headings(), 2)
	assert.Equal(t, 1, m.Headings()[0].Level)
	assert.Equal(t, "Rent Roll", m.Headings()[0].Text)
	assert.Equal(t, 2, m.Headings()[1].Level)
	assert.Equal(t, "Notes", m.Headings()[1].Text)

	sections := m.Sections()
	require.Len(t, sections, 2)
	assert.Contains(t, sections[0].Text, "Tenant list.")
}

func TestParseMarkdown_StandaloneBoldPromotedToHeading(t *testing.T) {
	src := "Intro text.\n\n**Key Assumptions**\n\nMore text.\n"
	m, err := view.ParseMarkdown("doc.md", src)
	require.NoError(t, err)

	require.Len(t, m.Headings(), 1)
	assert.Equal(t, "Key Assumptions", m.Headings()[0].Text)
}

func TestParseMarkdown_TableExtraction(t *testing.T) {
	src := "# Units\n\n| Unit | Rent |\n|------|------|\n| 101  | 1200 |\n| 102  | 1350 |\n"
	m, err := view.ParseMarkdown("units.md", src)
	require.NoError(t, err)

	require.Len(t, m.Tables(), 1)
	tbl := m.Tables()[0]
	assert.Equal(t, []string{"Unit", "Rent"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"101", "1200"}, tbl.Rows[0])
}

func TestParseMarkdown_RaggedTableRealigned(t *testing.T) {
	src := "| A | B | C |\n|---|---|---|\n| 1 | 2 |\n"
	m, err := view.ParseMarkdown("ragged.md", src)
	require.NoError(t, err)

	require.Len(t, m.Tables(), 1)
	require.Len(t, m.Tables()[0].Rows, 1)
	assert.Equal(t, []string{"1", "2", ""}, m.Tables()[0].Rows[0])
}

func TestMarkdown_SectionByHeading(t *testing.T) {
	src := "# A\n\nfirst\n\n# B\n\nsecond\n"
	m, err := view.ParseMarkdown("doc.md", src)
	require.NoError(t, err)

	s, ok := m.SectionByHeading(regexp.MustCompile(`^B$`))
	require.True(t, ok)
	assert.Contains(t, s.Text, "second")
}

func TestParseMarkdown_BlankRunsCollapse(t *testing.T) {
	src := "# A\n\n\n\nbody\n"
	m, err := view.ParseMarkdown("doc.md", src)
	require.NoError(t, err)
	assert.NotContains(t, m.RawText(), "\n\n\n")
}
