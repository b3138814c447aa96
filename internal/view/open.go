package view

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/cmdrvl/fingerprint/internal/domain"
)

// Open dispatches to the concrete view for rec based on its extension, then
// its mime guess, falling back to Raw when neither is recognized. A PDF
// record whose text_path is set gets its inner markdown view attached.
func Open(rec domain.Record) (Document, error) {
	switch classify(rec) {
	case domain.FormatXLSX:
		return OpenSpreadsheet(rec.Path)
	case domain.FormatCSV:
		return openCSVRecord(rec.Path)
	case domain.FormatMarkdown:
		return OpenMarkdown(rec.Path)
	case domain.FormatText:
		return OpenText(rec.Path)
	case domain.FormatPDF:
		return openPDFRecord(rec)
	default:
		return NewRaw(rec.Path), nil
	}
}

func classify(rec domain.Record) string {
	ext := strings.ToLower(strings.TrimPrefix(rec.Extension, "."))
	switch ext {
	case "xlsx", "xlsm":
		return domain.FormatXLSX
	case "csv":
		return domain.FormatCSV
	case "md", "markdown":
		return domain.FormatMarkdown
	case "txt":
		return domain.FormatText
	case "pdf":
		return domain.FormatPDF
	}

	mime := strings.ToLower(rec.MimeGuess)
	switch {
	case strings.Contains(mime, "spreadsheetml") || strings.Contains(mime, "ms-excel"):
		return domain.FormatXLSX
	case mime == "text/csv":
		return domain.FormatCSV
	case mime == "text/markdown":
		return domain.FormatMarkdown
	case mime == "text/plain":
		return domain.FormatText
	case mime == "application/pdf":
		return domain.FormatPDF
	}
	return ""
}

func openCSVRecord(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", path, err)
	}
	return OpenCSV(path, rows)
}

func openPDFRecord(rec domain.Record) (Document, error) {
	p, err := OpenPDF(rec.Path)
	if err != nil {
		return nil, err
	}
	if rec.TextPath != "" {
		inner, err := OpenMarkdown(rec.TextPath)
		if err != nil {
			return nil, fmt.Errorf("open pdf text_path %s: %w", rec.TextPath, err)
		}
		p.AttachInner(inner)
	}
	return p, nil
}
