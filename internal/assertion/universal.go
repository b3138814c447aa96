package assertion

import (
	"path/filepath"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/view"
)

func assertFilenameRegex(doc view.Document, a domain.Assertion, env *Env) domain.AssertionResult {
	pattern, _ := argString(a, "pattern")
	re, err := compileRegex(env.expand(pattern))
	if err != nil {
		return fail(a.Name, "invalid pattern: "+err.Error())
	}
	name := filepath.Base(doc.Path())
	if re.MatchString(name) {
		return pass(a.Name, "matched "+name)
	}
	return fail(a.Name, "filename "+name+" did not match "+pattern)
}
