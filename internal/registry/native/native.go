// Package native discovers fingerprint definitions installed as native
// add-on modules via a platform convention: YAML files declaring one or
// more definitions, dropped into a fixed directory. This is a YAML
// declaration format only — compiling a YAML template into a native
// assertion module is the (out-of-scope) DSL compiler's job, not this
// loader's.
package native

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/registry"
	"go.yaml.in/yaml/v3"
)

// DefaultDirs returns the directories scanned for native modules, in order:
// an XDG-style data directory, then a project-local convention directory.
func DefaultDirs() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "fingerprint", "modules"))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".local", "share", "fingerprint", "modules"))
	}
	dirs = append(dirs, "fingerprint-modules")
	return dirs
}

// Source returns a registry.Source that loads every *.yaml file under dirs.
// Native modules are treated as an external source: callers must allowlist
// their ids (via config) or Load will later raise E_UNTRUSTED_FP.
func Source(dirs []string) registry.Source {
	return registry.Source{
		Name:    "native",
		Trusted: false,
		Load: func() ([]domain.Definition, error) {
			var out []domain.Definition
			for _, dir := range dirs {
				entries, err := os.ReadDir(dir)
				if err != nil {
					if os.IsNotExist(err) {
						continue
					}
					return nil, fmt.Errorf("read native module dir %s: %w", dir, err)
				}
				for _, entry := range entries {
					if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
						continue
					}
					defs, err := loadFile(filepath.Join(dir, entry.Name()))
					if err != nil {
						return nil, err
					}
					out = append(out, defs...)
				}
			}
			return out, nil
		},
	}
}

type moduleFile struct {
	Definitions []yamlDefinition `yaml:"definitions"`
}

type yamlDefinition struct {
	ID         string                 `yaml:"id"`
	Format     string                 `yaml:"format"`
	Parent     string                 `yaml:"parent"`
	CrateName  string                 `yaml:"crate_name"`
	Semver     string                 `yaml:"semver"`
	Assertions []yamlAssertion        `yaml:"assertions"`
	Extracts   []yamlExtract          `yaml:"extracts"`
	ContentHash *yamlContentHash      `yaml:"content_hash"`
}

type yamlAssertion struct {
	Name string         `yaml:"name"`
	Kind string         `yaml:"kind"`
	Args map[string]any `yaml:"args"`
}

type yamlExtract struct {
	Name string         `yaml:"name"`
	Kind string         `yaml:"kind"`
	Args map[string]any `yaml:"args"`
}

type yamlContentHash struct {
	Over []string `yaml:"over"`
}

func loadFile(path string) ([]domain.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read native module %s: %w", path, err)
	}
	var mf moduleFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("parse native module %s: %w", path, err)
	}
	out := make([]domain.Definition, 0, len(mf.Definitions))
	for _, d := range mf.Definitions {
		def := domain.Definition{
			ID:        d.ID,
			Format:    d.Format,
			Parent:    d.Parent,
			CrateName: d.CrateName,
			Semver:    d.Semver,
			Source:    domain.SourceDSL,
		}
		for _, a := range d.Assertions {
			def.Assertions = append(def.Assertions, domain.Assertion{Name: a.Name, Kind: a.Kind, Args: a.Args})
		}
		for _, e := range d.Extracts {
			def.Extracts = append(def.Extracts, domain.ExtractRule{Name: e.Name, Kind: e.Kind, Args: e.Args})
		}
		if d.ContentHash != nil {
			def.ContentHash = &domain.ContentHashSpec{Over: d.ContentHash.Over}
		}
		out = append(out, def)
	}
	return out, nil
}
