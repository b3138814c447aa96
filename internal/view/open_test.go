package view_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n"), 0o644))
	doc, err := view.Open(domain.Record{Path: csvPath, Extension: "csv"})
	require.NoError(t, err)
	assert.Equal(t, view.KindSpreadsheet, doc.Kind())

	mdPath := filepath.Join(dir, "memo.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("# Title\n\nbody\n"), 0o644))
	doc, err = view.Open(domain.Record{Path: mdPath, Extension: "md"})
	require.NoError(t, err)
	assert.Equal(t, view.KindMarkdown, doc.Kind())

	txtPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("hello\n"), 0o644))
	doc, err = view.Open(domain.Record{Path: txtPath, Extension: "txt"})
	require.NoError(t, err)
	assert.Equal(t, view.KindText, doc.Kind())
}

func TestOpen_UnrecognizedExtensionFallsBackToRaw(t *testing.T) {
	dir := t.TempDir()
	binPath := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01}, 0o644))

	doc, err := view.Open(domain.Record{Path: binPath, Extension: "bin"})
	require.NoError(t, err)
	assert.Equal(t, view.KindRaw, doc.Kind())
	assert.Equal(t, binPath, doc.Path())
}

func TestOpen_MimeGuessFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memo")
	require.NoError(t, os.WriteFile(path, []byte("hello\n"), 0o644))

	doc, err := view.Open(domain.Record{Path: path, MimeGuess: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, view.KindText, doc.Kind())
}
