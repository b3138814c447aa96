// Package view provides typed, lazy projections over the document format
// families the assertion engine understands, plus a raw fallback. Each view
// carries the artifact's path so path-scoped assertions (filename_regex)
// need no separate context.
package view

// Kind tags which concrete view a Document holds.
type Kind string

const (
	KindSpreadsheet Kind = "spreadsheet"
	KindMarkdown    Kind = "markdown"
	KindText        Kind = "text"
	KindPDF         Kind = "pdf"
	KindRaw         Kind = "raw"
)

// Document is the tagged sum over the supported view kinds plus a raw
// fallback. Assertions dispatch on Kind; an assertion whose format does not
// match the variant is an authoring-time error, never a silent runtime
// fall-through, enforced by the assertion engine's format check at load
// time.
type Document interface {
	Kind() Kind
	Path() string
}
