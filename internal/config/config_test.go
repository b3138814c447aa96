package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cmdrvl/fingerprint/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergePrioritizesLaterConfigs(t *testing.T) {
	base := config.Config{Pipeline: config.PipelineConfig{Jobs: 1}}
	file := config.Config{Pipeline: config.PipelineConfig{Jobs: 4}}
	final := config.Config{Pipeline: config.PipelineConfig{Jobs: 8}}

	merged := config.Merge(base, file, final)

	assert.Equal(t, 8, merged.Pipeline.Jobs)
}

func TestMergePreservesUnsetFieldsFromBase(t *testing.T) {
	base := config.Config{Witness: config.WitnessConfig{Enabled: true, DBPath: "/base/witness.db"}}
	overlay := config.Config{Witness: config.WitnessConfig{Enabled: true}}

	merged := config.Merge(base, overlay)

	assert.Equal(t, "/base/witness.db", merged.Witness.DBPath)
}

func TestLoadReadsFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fingerprint.yaml")
	require.NoError(t, os.WriteFile(file, []byte("pipeline:\n  jobs: 3\n"), 0o600))

	t.Setenv("FINGERPRINT_PIPELINE_JOBS", "5")

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "fingerprint",
		EnvPrefix:   "FINGERPRINT",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Pipeline.Jobs)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{},
		FileName:    "nonexistent",
		EnvPrefix:   "FINGERPRINT_TEST_DEFAULTS",
	})
	require.NoError(t, err)

	assert.True(t, cfg.Witness.Enabled)
	assert.Equal(t, "1", cfg.Pipeline.OutputVersion)
	assert.Equal(t, []string{"1"}, cfg.Pipeline.AcceptedInputVersions)
	assert.Equal(t, "info", cfg.Telemetry.Level)
	assert.Equal(t, "human", cfg.Telemetry.Format)
	assert.False(t, cfg.Registry.PluginEnabled)
}

func TestAllowedExternalSet(t *testing.T) {
	cfg := config.Config{Registry: config.RegistryConfig{AllowedExternal: []string{"acme.widget.v1", "acme.widget.v1/detail.v1"}}}

	set := cfg.AllowedExternalSet()

	assert.True(t, set["acme.widget.v1"])
	assert.True(t, set["acme.widget.v1/detail.v1"])
	assert.False(t, set["unlisted.v1"])
}

func TestAllowedExternalSetNilWhenEmpty(t *testing.T) {
	cfg := config.Config{}
	assert.Nil(t, cfg.AllowedExternalSet())
}

func TestAcceptedInputVersionSet(t *testing.T) {
	cfg := config.Config{Pipeline: config.PipelineConfig{AcceptedInputVersions: []string{"1", "0.9"}}}

	set := cfg.AcceptedInputVersionSet()

	assert.True(t, set["1"])
	assert.True(t, set["0.9"])
	assert.False(t, set["2"])
}

func TestRegistryConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "fingerprint.yaml")
	content := `
registry:
  nativeDirs:
    - /opt/fingerprint/modules
  allowedExternal:
    - acme.widget.v1
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: []string{dir},
		FileName:    "fingerprint",
		EnvPrefix:   "FINGERPRINT_TEST_REGISTRY",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/fingerprint/modules"}, cfg.Registry.NativeDirs)
	assert.Equal(t, []string{"acme.widget.v1"}, cfg.Registry.AllowedExternal)
}
