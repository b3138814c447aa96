package view

// Raw is the fallback view for artifacts whose format does not match any
// of the recognized document kinds. Only filename_regex and other
// path-scoped assertions can run against it.
type Raw struct {
	path string
}

func (r *Raw) Kind() Kind   { return KindRaw }
func (r *Raw) Path() string { return r.path }

// NewRaw wraps a path in the raw fallback view.
func NewRaw(path string) *Raw { return &Raw{path: path} }
