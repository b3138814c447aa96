package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// LoaderOptions describes how configuration should be discovered.
type LoaderOptions struct {
	ConfigPaths []string
	FileName    string
	EnvPrefix   string
}

// Load returns the merged configuration from files and environment variables.
func Load(opts LoaderOptions) (Config, error) {
	v := viper.New()

	name := opts.FileName
	if name == "" {
		name = "fingerprint"
	}

	configFile := locateConfigFile(name, opts.ConfigPaths)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = "FINGERPRINT"
	}
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)

	setDefaults(v)

	if configFile != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg = expandEnvVars(cfg)

	return cfg, nil
}

// expandEnvVars expands ${VAR} and $VAR syntax in path-like config values.
func expandEnvVars(cfg Config) Config {
	cfg.Witness.DBPath = expandEnvString(cfg.Witness.DBPath)
	expanded := make([]string, len(cfg.Registry.NativeDirs))
	for i, dir := range cfg.Registry.NativeDirs {
		expanded[i] = expandEnvString(dir)
	}
	cfg.Registry.NativeDirs = expanded
	cfg.Registry.PluginDir = expandEnvString(cfg.Registry.PluginDir)
	return cfg
}

// expandEnvString replaces ${VAR} or $VAR with environment variable values.
func expandEnvString(s string) string {
	if s == "" {
		return s
	}

	re := regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

func locateConfigFile(name string, paths []string) string {
	searchPaths := append([]string{}, paths...)
	searchPaths = append(searchPaths, ".")
	for _, dir := range searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name+".yaml")
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.jobs", 0)
	v.SetDefault("pipeline.diagnose", false)
	v.SetDefault("pipeline.outputVersion", "1")
	v.SetDefault("pipeline.acceptedInputVersions", []string{"1"})

	v.SetDefault("witness.enabled", true)
	v.SetDefault("witness.dbPath", defaultWitnessPath())

	v.SetDefault("telemetry.progress", false)
	v.SetDefault("telemetry.level", "info")
	v.SetDefault("telemetry.format", "human")

	v.SetDefault("registry.pluginEnabled", false)
}

func defaultWitnessPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./fingerprint-witness.db"
	}
	return filepath.Join(home, ".local", "share", "fingerprint", "witness.db")
}
