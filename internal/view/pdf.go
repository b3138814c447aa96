package view

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// sparseTextThreshold is the minimum trimmed rune count of an attached
// text_path's content below which the view is considered near-empty.
const sparseTextThreshold = 40

// PDF is the structural-metadata view over a PDF artifact: page count and
// document info-dictionary fields. PDF files carry no assertable prose
// content of their own in this view — page_count and metadata_regex read
// directly from it, while heading/section/table assertions and extract
// rules run against the inner markdown view sourced from the record's
// companion text_path (a separate text extraction the pipeline does not
// perform itself).
type PDF struct {
	path      string
	pageCount int
	metadata  map[string]string
	inner     *Markdown
}

func (p *PDF) Kind() Kind   { return KindPDF }
func (p *PDF) Path() string { return p.path }

// PageCount returns the document's page count.
func (p *PDF) PageCount() int { return p.pageCount }

// Metadata returns the info-dictionary fields present on the document
// (Title, Author, Subject, Creator, Producer, CreationDate, ModDate — only
// the keys actually present are populated).
func (p *PDF) Metadata() map[string]string { return p.metadata }

// Inner returns the markdown view built from the record's text_path, or nil
// if none was attached.
func (p *PDF) Inner() *Markdown { return p.inner }

// SparseText reports whether an attached text_path carries near-empty
// content. False when no text_path was attached at all (that case is
// E_NO_TEXT, not W_SPARSE_TEXT).
func (p *PDF) SparseText() bool {
	return p.inner != nil && len([]rune(strings.TrimSpace(p.inner.RawText()))) < sparseTextThreshold
}

// AttachInner wires in the markdown view extracted from the record's
// companion text_path so content assertions can run against the PDF's text
// representation.
func (p *PDF) AttachInner(m *Markdown) { p.inner = m }

var infoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"}

// OpenPDF opens a PDF file and reads its page count and info dictionary.
func OpenPDF(path string) (*PDF, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	meta := make(map[string]string)
	trailer := r.Trailer()
	if !trailer.IsNull() {
		info := trailer.Key("Info")
		if !info.IsNull() {
			for _, k := range infoKeys {
				v := info.Key(k)
				if !v.IsNull() {
					if s := v.Text(); s != "" {
						meta[k] = s
					}
				}
			}
		}
	}

	return &PDF{path: path, pageCount: r.NumPage(), metadata: meta}, nil
}
