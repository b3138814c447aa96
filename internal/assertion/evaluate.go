package assertion

import (
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

// Evaluate runs def's assertions against doc in declaration order. On the
// first failure the remaining assertions are recorded as skipped (passed =
// false, "Skipped (prior assertion failed)") unless diagnose is set, in
// which case every assertion runs independently. matched is the
// conjunction of the non-skipped results.
func Evaluate(def domain.Definition, doc view.Document, diagnose bool) ([]domain.AssertionResult, bool) {
	env := newEnv(diagnose)
	results := make([]domain.AssertionResult, 0, len(def.Assertions))
	matched := true
	failed := false

	for _, a := range def.Assertions {
		if failed && !diagnose {
			results = append(results, domain.AssertionResult{
				Name:   a.Name,
				Passed: false,
				Detail: "Skipped (prior assertion failed)",
			})
			continue
		}

		fn, ok := lookup(def.Format, a.Kind)
		if !ok {
			// ValidateFormat at load time should have caught this; a
			// definition reaching evaluation with an inapplicable kind is
			// treated as a hard failure rather than a panic.
			results = append(results, fail(a.Name, "assertion kind not applicable to format "+def.Format))
			matched = false
			failed = true
			continue
		}

		r := fn(doc, a, env)
		results = append(results, r)
		if !r.Passed {
			matched = false
			failed = true
		}
	}

	return results, matched
}
