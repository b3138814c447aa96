// Package domain holds the core data types shared across the recognition
// pipeline: fingerprint definitions, input/output records, and the results
// produced by evaluating a fingerprint against a document.
package domain

// Document format families a fingerprint definition can target.
const (
	FormatXLSX     = "xlsx"
	FormatCSV      = "csv"
	FormatPDF      = "pdf"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Definition provenance sources.
const (
	SourceDSL  = "dsl"
	SourceRust = "rust"
)

// Definition is an identified, versioned recognizer: an ordered list of
// assertions plus optional extract rules and a content-hash spec.
type Definition struct {
	ID     string
	Format string
	Parent string // empty for document-level definitions

	CrateName string
	Semver    string
	Source    string // dsl | rust

	Assertions  []Assertion
	Extracts    []ExtractRule
	ContentHash *ContentHashSpec
}

// IsChild reports whether this definition only evaluates after a parent match.
func (d Definition) IsChild() bool {
	return d.Parent != ""
}

// Assertion is one predicate declaration within a definition.
type Assertion struct {
	Name string
	Kind string
	Args map[string]any
}

// ExtractRule names a recipe for locating a content region.
type ExtractRule struct {
	Name string
	Kind string // range | table | section | text_match
	Args map[string]any
}

// ContentHashSpec names the ordered extract rules whose raw content is
// concatenated and hashed with BLAKE3.
type ContentHashSpec struct {
	Over []string
}

// AssertionResult is the outcome of evaluating a single assertion.
type AssertionResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Detail  string `json:"detail,omitempty"`
	Context any    `json:"context,omitempty"`
}

// ExtractedRegion describes where a matched extract rule's content was
// found. Raw content is never serialized here, only anchor metadata.
type ExtractedRegion struct {
	Kind string         `json:"kind"`
	Meta map[string]any `json:"meta"`
}

// FingerprintResult is the per-fingerprint outcome recorded in an output record.
type FingerprintResult struct {
	FingerprintID      string                     `json:"fingerprint_id"`
	FingerprintCrate   string                     `json:"fingerprint_crate"`
	FingerprintVersion string                     `json:"fingerprint_version"`
	FingerprintSource  string                     `json:"fingerprint_source"`
	Matched            bool                       `json:"matched"`
	Reason             string                     `json:"reason,omitempty"`
	Assertions         []AssertionResult          `json:"assertions"`
	Extracted          map[string]ExtractedRegion `json:"extracted,omitempty"`
	ContentHash        string                     `json:"content_hash,omitempty"`
	Children           []FingerprintResult        `json:"children,omitempty"`
}

// Warning is a structured, non-fatal diagnostic attached to a record.
type Warning struct {
	Tool    string `json:"tool"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Warning codes.
const (
	WarnParse      = "E_PARSE"
	WarnSparseText = "W_SPARSE_TEXT"
	WarnNoText     = "E_NO_TEXT"
	WarnAnchor     = "W_ANCHOR_UNRESOLVED"
)

// Record is the shared shape of input and output records. Raw preserves
// every upstream key verbatim; the named fields below are the ones the
// pipeline itself reads or rewrites.
type Record struct {
	Raw map[string]any

	Seq          int
	Version      string
	Path         string
	BytesHash    string
	Extension    string
	MimeGuess    string
	TextPath     string
	ToolVersions map[string]string
	Skipped      bool
	Warnings     []Warning
	Fingerprint  *FingerprintResult
}

// Outcome classifies a run for exit-code purposes.
type Outcome string

const (
	OutcomeAllMatched Outcome = "ALL_MATCHED"
	OutcomePartial    Outcome = "PARTIAL"
	OutcomeRefusal    Outcome = "REFUSAL"
)

// ExitCode maps an Outcome to its process exit code.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeAllMatched:
		return 0
	case OutcomePartial:
		return 1
	case OutcomeRefusal:
		return 2
	default:
		return 1
	}
}

// Downgrade folds a new sub-outcome into a running outcome. ALL_MATCHED only
// survives if every sub-outcome was also ALL_MATCHED; REFUSAL always wins.
func (o Outcome) Downgrade(sub Outcome) Outcome {
	if o == OutcomeRefusal || sub == OutcomeRefusal {
		return OutcomeRefusal
	}
	if o == OutcomePartial || sub == OutcomePartial {
		return OutcomePartial
	}
	return OutcomeAllMatched
}
