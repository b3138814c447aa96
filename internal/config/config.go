// Package config holds the merged runtime configuration for the
// fingerprint CLI: registry trust, concurrency, and witness-ledger
// settings. Precedence runs defaults, then a config file, then
// environment variables, then explicit flags.
package config

// Config is the full application configuration.
type Config struct {
	Registry  RegistryConfig  `yaml:"registry"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Witness   WitnessConfig   `yaml:"witness"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RegistryConfig controls which fingerprint sources are consulted and
// which externally sourced ids are trusted.
type RegistryConfig struct {
	// NativeDirs overrides the default native-module search directories.
	NativeDirs []string `yaml:"nativeDirs"`

	// PluginEnabled and PluginDir gate the deferred plugin-directory
	// discovery path; it loads nothing until a concrete mechanism exists.
	PluginEnabled bool   `yaml:"pluginEnabled"`
	PluginDir     string `yaml:"pluginDir"`

	// AllowedExternal lists the fingerprint ids an untrusted source (native
	// or plugin) may offer. Any id from an untrusted source not in this
	// list triggers E_UNTRUSTED_FP at load time.
	AllowedExternal []string `yaml:"allowedExternal"`
}

// PipelineConfig controls the streaming recognition pipeline.
type PipelineConfig struct {
	// Jobs is the worker pool size. 0 means "use the default."
	Jobs int `yaml:"jobs"`

	// Diagnose enables per-assertion diagnostic context on failure.
	Diagnose bool `yaml:"diagnose"`

	// OutputVersion is the schema version stamped on emitted records.
	OutputVersion string `yaml:"outputVersion"`

	// AcceptedInputVersions lists the upstream schema tags a non-skipped
	// record's version field may carry. Any other value is E_BAD_INPUT.
	AcceptedInputVersions []string `yaml:"acceptedInputVersions"`
}

// WitnessConfig controls the append-only run ledger.
type WitnessConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"dbPath"`
}

// TelemetryConfig controls progress and warning logging.
type TelemetryConfig struct {
	Progress bool   `yaml:"progress"`
	Level    string `yaml:"level"`  // debug, info, error
	Format   string `yaml:"format"` // json, human
}

// Merge combines configuration instances, with later instances taking
// precedence over earlier ones field-by-field.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base
	result.Registry = chooseRegistry(base.Registry, overlay.Registry)
	result.Pipeline = choosePipeline(base.Pipeline, overlay.Pipeline)
	result.Witness = chooseWitness(base.Witness, overlay.Witness)
	result.Telemetry = chooseTelemetry(base.Telemetry, overlay.Telemetry)
	return result
}

func chooseRegistry(base, overlay RegistryConfig) RegistryConfig {
	result := base
	if len(overlay.NativeDirs) > 0 {
		result.NativeDirs = overlay.NativeDirs
	}
	if overlay.PluginEnabled {
		result.PluginEnabled = overlay.PluginEnabled
	}
	if overlay.PluginDir != "" {
		result.PluginDir = overlay.PluginDir
	}
	if len(overlay.AllowedExternal) > 0 {
		result.AllowedExternal = overlay.AllowedExternal
	}
	return result
}

func choosePipeline(base, overlay PipelineConfig) PipelineConfig {
	result := base
	if overlay.Jobs != 0 {
		result.Jobs = overlay.Jobs
	}
	if overlay.Diagnose {
		result.Diagnose = overlay.Diagnose
	}
	if overlay.OutputVersion != "" {
		result.OutputVersion = overlay.OutputVersion
	}
	if len(overlay.AcceptedInputVersions) > 0 {
		result.AcceptedInputVersions = overlay.AcceptedInputVersions
	}
	return result
}

func chooseWitness(base, overlay WitnessConfig) WitnessConfig {
	result := base
	if overlay.Enabled {
		result.Enabled = overlay.Enabled
	}
	if overlay.DBPath != "" {
		result.DBPath = overlay.DBPath
	}
	return result
}

func chooseTelemetry(base, overlay TelemetryConfig) TelemetryConfig {
	result := base
	if overlay.Progress {
		result.Progress = overlay.Progress
	}
	if overlay.Level != "" {
		result.Level = overlay.Level
	}
	if overlay.Format != "" {
		result.Format = overlay.Format
	}
	return result
}

// AcceptedInputVersionSet builds the lookup map the driver uses to reject
// unrecognized upstream schema tags.
func (c Config) AcceptedInputVersionSet() map[string]bool {
	set := make(map[string]bool, len(c.Pipeline.AcceptedInputVersions))
	for _, v := range c.Pipeline.AcceptedInputVersions {
		set[v] = true
	}
	return set
}

// AllowedExternalSet builds the lookup map the registry loader expects.
func (c Config) AllowedExternalSet() map[string]bool {
	if len(c.Registry.AllowedExternal) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Registry.AllowedExternal))
	for _, id := range c.Registry.AllowedExternal {
		set[id] = true
	}
	return set
}
