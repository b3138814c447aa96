// Package assertion implements the predicate vocabularies the recognition
// driver evaluates against a document view: universal, spreadsheet, and
// content (markdown/text/pdf-via-text_path). Each predicate is a pure
// function of (document, arguments, environment) to a pass/fail plus detail.
package assertion

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

// Env carries state that threads across the assertions of one definition
// evaluated against one document: names bound by sheet_name_regex for later
// {{name}} substitution, and whether diagnose mode is active.
type Env struct {
	Bound    map[string]string
	Diagnose bool
}

func newEnv(diagnose bool) *Env {
	return &Env{Bound: make(map[string]string), Diagnose: diagnose}
}

var bindToken = regexp.MustCompile(`\{\{(\w+)\}\}`)

func (e *Env) expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return bindToken.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[2 : len(tok)-2]
		if v, ok := e.Bound[name]; ok {
			return v
		}
		return tok
	})
}

// Func evaluates one assertion against doc and returns its result; any
// diagnose-mode detail travels on the result's Context field.
type Func func(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult

// vocab groups the predicate kinds applicable to a given format family.
type vocab map[string]Func

var universal = vocab{
	"filename_regex": assertFilenameRegex,
}

var spreadsheetVocab = vocab{
	"sheet_exists":     assertSheetExists,
	"sheet_name_regex": assertSheetNameRegex,
	"cell_eq":          assertCellEq,
	"cell_regex":       assertCellRegex,
	"range_non_null":   assertRangeNonNull,
	"range_populated":  assertRangePopulated,
	"sheet_min_rows":   assertSheetMinRows,
	"sum_eq":           assertSumEq,
	"within_tolerance": assertWithinTolerance,
	"column_search":    assertColumnSearch,
	"header_row_match": assertHeaderRowMatch,
}

var contentVocab = vocab{
	"heading_exists":  assertHeadingExists,
	"heading_regex":   assertHeadingRegex,
	"heading_level":   assertHeadingLevel,
	"text_contains":   assertTextContains,
	"text_regex":      assertTextRegex,
	"text_near":       assertTextNear,
	"section_non_empty": assertSectionNonEmpty,
	"section_min_lines":  assertSectionMinLines,
	"table_exists":     assertTableExists,
	"table_columns":    assertTableColumns,
	"table_shape":      assertTableShape,
	"table_min_rows":   assertTableMinRows,
	"page_count":       assertPageCount,
	"metadata_regex":   assertMetadataRegex,
}

// IsContentKind reports whether kind is one of the content vocabulary's
// predicates (as opposed to page_count/metadata_regex, which read PDF
// structure directly and need no text_path).
func IsContentKind(kind string) bool {
	switch kind {
	case "page_count", "metadata_regex":
		return false
	}
	_, ok := contentVocab[kind]
	return ok
}

// lookup returns the Func for kind given the definition's format, plus
// whether the kind applies to that format (false both for unknown kinds and
// for known kinds from another format's vocabulary).
func lookup(format, kind string) (Func, bool) {
	if fn, ok := universal[kind]; ok {
		return fn, true
	}
	switch format {
	case domain.FormatXLSX, domain.FormatCSV:
		if fn, ok := spreadsheetVocab[kind]; ok {
			return fn, true
		}
	case domain.FormatMarkdown, domain.FormatText, domain.FormatPDF:
		if fn, ok := contentVocab[kind]; ok {
			return fn, true
		}
	}
	return nil, false
}

// ValidateFormat checks, at registry-load time, that every assertion kind
// declared on def is applicable to def.Format. An assertion whose vocabulary
// does not match the format is an authoring-time error, not a runtime
// fall-through.
func ValidateFormat(def domain.Definition) error {
	for _, a := range def.Assertions {
		if _, ok := lookup(def.Format, a.Kind); !ok {
			return fmt.Errorf("assertion %q (kind %q) does not apply to format %q", a.Name, a.Kind, def.Format)
		}
	}
	return nil
}

func argString(a domain.Assertion, key string) (string, bool) {
	v, ok := a.Args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func argFloat(a domain.Assertion, key string) (float64, bool) {
	v, ok := a.Args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func argInt(a domain.Assertion, key string, def int) int {
	f, ok := argFloat(a, key)
	if !ok {
		return def
	}
	return int(f)
}

func argStringSlice(a domain.Assertion, key string) []string {
	v, ok := a.Args[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func compileRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}

func fail(name, detail string) domain.AssertionResult {
	return domain.AssertionResult{Name: name, Passed: false, Detail: detail}
}

func pass(name, detail string) domain.AssertionResult {
	return domain.AssertionResult{Name: name, Passed: true, Detail: detail}
}
