// Package plugin represents the deferred plugin-directory discovery path.
// It must stay disabled unless explicitly configured; today it never
// returns definitions, but it participates in the registry's ordered
// source list so precedence and trust logic have all three discovery paths
// to reason over.
package plugin

import (
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/registry"
)

// Source returns a registry.Source that loads nothing unless enabled is true,
// in which case it would scan dir — left unimplemented because no supported
// configuration turns it on yet.
func Source(enabled bool, dir string) registry.Source {
	return registry.Source{
		Name:    "plugin",
		Trusted: false,
		Load: func() ([]domain.Definition, error) {
			if !enabled {
				return nil, nil
			}
			// Deferred: plugin directories are not yet a supported discovery
			// path. Flip `enabled` only once a concrete loading mechanism
			// (and its trust story) exists.
			return nil, nil
		},
	}
}
