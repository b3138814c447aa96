// Package registry resolves fingerprint identifiers to their definitions.
// It is loaded once at process startup from a set of Sources and never
// mutated afterward.
package registry

import (
	"fmt"
	"sort"

	"github.com/cmdrvl/fingerprint/internal/assertion"
	"github.com/cmdrvl/fingerprint/internal/domain"
)

// Trusted marks where a Source's definitions come from for the allowlist
// check in Load.
type Trusted bool

const (
	Untrusted Trusted = false
	// BuiltinTrusted is always granted to the compiled-in source.
	BuiltinTrusted Trusted = true
)

// Source supplies a batch of definitions discovered from one provider
// (built-in, a native add-on module, or a plugin directory). Providers are
// consulted in the order given to Load, but that order reflects discovery
// only — duplicate IDs across sources are always a fatal load error, never
// resolved by precedence.
type Source struct {
	Name    string
	Trusted bool
	Load    func() ([]domain.Definition, error)
}

// Entry is a single registry listing row, returned by List in a stable,
// total order.
type Entry struct {
	ID      string
	Crate   string
	Version string
	Source  string
	Format  string
	Parent  string
}

// Registry is the immutable, resolved set of fingerprint definitions.
type Registry struct {
	byID map[string]domain.Definition
}

// Refusal codes raised while loading the registry.
const (
	ErrUnknownFP   = "E_UNKNOWN_FP"
	ErrDuplicateID = "E_DUPLICATE_FP_ID"
	ErrUntrustedFP = "E_UNTRUSTED_FP"
	ErrOrphanChild = "E_ORPHAN_CHILD"
	// ErrInvalidFP marks a definition declaring an assertion kind that does
	// not apply to its format — an authoring-time error per §4.3/§9, not a
	// runtime fall-through.
	ErrInvalidFP = "E_INVALID_FP"
)

// LoadError is a typed, refusal-code-bearing load failure.
type LoadError struct {
	Code    string
	Message string
	Detail  map[string]any
}

func (e *LoadError) Error() string { return e.Message }

// Load merges definitions from every source, in order, enforcing global ID
// uniqueness and the external-source trust allowlist. allowedExternal names
// the external-source definition IDs a config trust allowlist permits; it is
// ignored for trusted sources.
func Load(sources []Source, allowedExternal map[string]bool) (*Registry, error) {
	byID := make(map[string]domain.Definition)
	providers := make(map[string][]string) // id -> source names that offered it

	for _, src := range sources {
		defs, err := src.Load()
		if err != nil {
			return nil, fmt.Errorf("load source %s: %w", src.Name, err)
		}
		for _, def := range defs {
			if !src.Trusted {
				if allowedExternal == nil || !allowedExternal[def.ID] {
					return nil, &LoadError{
						Code:    ErrUntrustedFP,
						Message: fmt.Sprintf("fingerprint %q from untrusted source %q is not allowlisted", def.ID, src.Name),
						Detail:  map[string]any{"id": def.ID, "source": src.Name},
					}
				}
			}
			providers[def.ID] = append(providers[def.ID], src.Name)
			if _, ok := byID[def.ID]; ok {
				return nil, &LoadError{
					Code:    ErrDuplicateID,
					Message: fmt.Sprintf("duplicate fingerprint id %q offered by providers %v", def.ID, providers[def.ID]),
					Detail:  map[string]any{"id": def.ID, "providers": providers[def.ID]},
				}
			}
			if err := assertion.ValidateFormat(def); err != nil {
				return nil, &LoadError{
					Code:    ErrInvalidFP,
					Message: err.Error(),
					Detail:  map[string]any{"id": def.ID, "source": src.Name},
				}
			}
			byID[def.ID] = def
		}
	}

	if err := checkOrphans(byID); err != nil {
		return nil, err
	}

	return &Registry{byID: byID}, nil
}

func checkOrphans(byID map[string]domain.Definition) error {
	for id, def := range byID {
		if !def.IsChild() {
			continue
		}
		if _, ok := byID[def.Parent]; !ok {
			return &LoadError{
				Code:    ErrOrphanChild,
				Message: fmt.Sprintf("child fingerprint %q references unloaded parent %q", id, def.Parent),
				Detail:  map[string]any{"id": id, "parent": def.Parent},
			}
		}
		if byID[def.Parent].IsChild() {
			return &LoadError{
				Code:    ErrOrphanChild,
				Message: fmt.Sprintf("child fingerprint %q references another child %q; chains are at most one level deep", id, def.Parent),
				Detail:  map[string]any{"id": id, "parent": def.Parent},
			}
		}
	}
	return nil
}

// Resolve looks up a fingerprint by id. Lookup is strict: no fuzzy matching.
func (r *Registry) Resolve(id string) (domain.Definition, error) {
	def, ok := r.byID[id]
	if !ok {
		return domain.Definition{}, &LoadError{
			Code:    ErrUnknownFP,
			Message: fmt.Sprintf("fingerprint %q is not in the registry", id),
			Detail:  map[string]any{"id": id, "available": r.availableIDs()},
		}
	}
	return def, nil
}

// List returns every loaded definition as a stable, id-sorted entry list.
func (r *Registry) List() []Entry {
	entries := make([]Entry, 0, len(r.byID))
	for _, def := range r.byID {
		entries = append(entries, Entry{
			ID:      def.ID,
			Crate:   def.CrateName,
			Version: def.Semver,
			Source:  def.Source,
			Format:  def.Format,
			Parent:  def.Parent,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

func (r *Registry) availableIDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResolveSet resolves a caller-given ordered list of ids, preserving the
// caller's order, and partitions them into document-level (no parent) and
// content-level (has parent) definitions.
func (r *Registry) ResolveSet(ids []string) (docLevel, childLevel []domain.Definition, err error) {
	for _, id := range ids {
		def, rerr := r.Resolve(id)
		if rerr != nil {
			return nil, nil, rerr
		}
		if def.IsChild() {
			childLevel = append(childLevel, def)
		} else {
			docLevel = append(docLevel, def)
		}
	}
	return docLevel, childLevel, nil
}
