// Package driver implements the per-record recognition pass: given an
// input record and the caller's ordered fingerprint sets, it opens the
// document view, finds the first matching document-level fingerprint,
// evaluates matching children, resolves extract rules, and computes
// content hashes.
package driver

import (
	"fmt"

	"github.com/cmdrvl/fingerprint/internal/anchor"
	"github.com/cmdrvl/fingerprint/internal/assertion"
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

// RefusalError signals a field-validation violation: a refusal, not a
// per-record skip.
type RefusalError struct {
	Code    string
	Message string
	Detail  map[string]any
}

func (e *RefusalError) Error() string { return e.Message }

// ExitCode reports the process exit code a refusal always carries.
func (e *RefusalError) ExitCode() int { return domain.OutcomeRefusal.ExitCode() }

// Options configures one driver invocation.
type Options struct {
	AcceptedVersions map[string]bool
	Diagnose         bool
}

// Recognize evaluates rec against docLevel (parent-less fingerprints) and
// childLevel (fingerprints with a parent), both in caller order, and
// returns the updated record outcome. A non-nil RefusalError means the
// entire run must abort; any other error is a parse failure that should be
// converted by the caller into a new `_skipped` record.
func Recognize(rec domain.Record, docLevel, childLevel []domain.Definition, opts Options) (domain.Record, error) {
	if rec.Skipped {
		rec.Fingerprint = nil
		return rec, nil
	}

	if rec.BytesHash == "" {
		return rec, &RefusalError{
			Code:    "E_BAD_INPUT",
			Message: "bytes_hash missing or empty",
			Detail:  map[string]any{"path": rec.Path, "field": "bytes_hash"},
		}
	}
	if opts.AcceptedVersions != nil && !opts.AcceptedVersions[rec.Version] {
		return rec, &RefusalError{
			Code:    "E_BAD_INPUT",
			Message: "unrecognized version " + rec.Version,
			Detail:  map[string]any{"path": rec.Path, "version": rec.Version},
		}
	}

	doc, err := view.Open(rec)
	if err != nil {
		rec.Skipped = true
		rec.Warnings = append(rec.Warnings, domain.Warning{
			Tool:    "fingerprint",
			Code:    domain.WarnParse,
			Message: "failed to open document",
			Detail:  err.Error(),
		})
		rec.Fingerprint = nil
		return rec, nil
	}

	if p, ok := doc.(*view.PDF); ok && p.SparseText() && anyContentAssertions(docLevel, childLevel) {
		rec.Warnings = append(rec.Warnings, domain.Warning{
			Tool:    "fingerprint",
			Code:    domain.WarnSparseText,
			Message: "pdf text_path content is near-empty",
			Detail:  p.Path(),
		})
	}

	winner, winnerResult, winnerWarnings := runDocLevel(doc, docLevel, opts.Diagnose)
	rec.Warnings = append(rec.Warnings, winnerWarnings...)

	if winner != nil {
		var children []domain.FingerprintResult
		for _, child := range childLevel {
			if child.Parent != winner.ID {
				continue
			}
			result, warnings := runOne(doc, child, opts.Diagnose)
			rec.Warnings = append(rec.Warnings, warnings...)
			children = append(children, result)
		}
		winnerResult.Children = children
	}

	rec.Fingerprint = &winnerResult
	return rec, nil
}

// anyContentAssertions reports whether any pdf-format definition among defs
// declares at least one content-vocabulary assertion (the ones that need a
// text_path, as opposed to page_count/metadata_regex).
func anyContentAssertions(sets ...[]domain.Definition) bool {
	for _, defs := range sets {
		for _, def := range defs {
			if def.Format != domain.FormatPDF {
				continue
			}
			for _, a := range def.Assertions {
				if assertion.IsContentKind(a.Kind) {
					return true
				}
			}
		}
	}
	return false
}

func kindForFormat(format string) view.Kind {
	switch format {
	case domain.FormatXLSX, domain.FormatCSV:
		return view.KindSpreadsheet
	case domain.FormatMarkdown:
		return view.KindMarkdown
	case domain.FormatText:
		return view.KindText
	case domain.FormatPDF:
		return view.KindPDF
	default:
		return view.KindRaw
	}
}

// runDocLevel iterates docLevel in caller order and returns the first
// matching definition, or nil with the last no-match result if none match.
func runDocLevel(doc view.Document, docLevel []domain.Definition, diagnose bool) (*domain.Definition, domain.FingerprintResult, []domain.Warning) {
	var lastResult domain.FingerprintResult
	var lastWarnings []domain.Warning
	haveResult := false

	for i := range docLevel {
		def := docLevel[i]
		if kindForFormat(def.Format) != doc.Kind() {
			continue
		}
		result, warnings := runOne(doc, def, diagnose)
		lastResult, lastWarnings, haveResult = result, warnings, true
		if result.Matched {
			return &def, result, warnings
		}
	}

	if !haveResult {
		return nil, domain.FingerprintResult{}, nil
	}
	return nil, lastResult, lastWarnings
}

// runOne evaluates def's assertions, and on a match resolves its extract
// rules and content hash.
func runOne(doc view.Document, def domain.Definition, diagnose bool) (domain.FingerprintResult, []domain.Warning) {
	results, matched := assertion.Evaluate(def, doc, diagnose)
	out := domain.FingerprintResult{
		FingerprintID:      def.ID,
		FingerprintCrate:   def.CrateName,
		FingerprintVersion: def.Semver,
		FingerprintSource:  def.Source,
		Matched:            matched,
		Assertions:         results,
	}
	if !matched {
		out.Reason = fmt.Sprintf("%d assertion(s) did not pass", countFailed(results))
		return out, nil
	}

	regions, contents, warnings := anchor.Resolve(def, doc)
	if len(regions) > 0 {
		out.Extracted = regions
	}
	if hash, ok := anchor.ContentHash(def.ContentHash, contents); ok {
		out.ContentHash = hash
	}
	return out, warnings
}

func countFailed(results []domain.AssertionResult) int {
	n := 0
	for _, r := range results {
		if !r.Passed {
			n++
		}
	}
	return n
}
