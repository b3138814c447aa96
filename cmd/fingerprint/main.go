package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cmdrvl/fingerprint/internal/adapter/cli"
	"github.com/cmdrvl/fingerprint/internal/config"
	"github.com/cmdrvl/fingerprint/internal/registry"
	"github.com/cmdrvl/fingerprint/internal/registry/builtin"
	"github.com/cmdrvl/fingerprint/internal/registry/native"
	"github.com/cmdrvl/fingerprint/internal/registry/plugin"
	"github.com/cmdrvl/fingerprint/internal/telemetry"
	"github.com/cmdrvl/fingerprint/internal/usecase"
	"github.com/cmdrvl/fingerprint/internal/version"
	"github.com/cmdrvl/fingerprint/internal/witness"
	"github.com/cmdrvl/fingerprint/internal/witness/sqlite"
)

func main() {
	if err := run(); err != nil {
		if exitCode, ok := cli.ExitCodeFromError(err); ok {
			if exitCode != 0 {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(exitCode)
		}
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "fingerprint",
		EnvPrefix:   "FINGERPRINT",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logLevel := telemetry.LogLevelInfo
	switch cfg.Telemetry.Level {
	case "debug":
		logLevel = telemetry.LogLevelDebug
	case "error":
		logLevel = telemetry.LogLevelError
	}
	logFormat := telemetry.LogFormatHuman
	if cfg.Telemetry.Format == "json" {
		logFormat = telemetry.LogFormatJSON
	}
	logger := telemetry.NewDefaultLogger(logLevel, logFormat)

	var witnessStore witness.Store
	if cfg.Witness.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Witness.DBPath), 0o755); err != nil {
			log.Printf("warning: failed to create witness directory: %v", err)
		} else {
			store, err := sqlite.NewStore(cfg.Witness.DBPath)
			if err != nil {
				log.Printf("warning: failed to open witness store: %v", err)
			} else {
				witnessStore = store
				defer store.Close()
			}
		}
	}

	binaryHash := version.BinaryHash()

	nativeDirs := cfg.Registry.NativeDirs
	if len(nativeDirs) == 0 {
		nativeDirs = native.DefaultDirs()
	}

	sources := []registry.Source{
		builtin.Source(),
		native.Source(nativeDirs),
		plugin.Source(cfg.Registry.PluginEnabled, cfg.Registry.PluginDir),
	}

	reg, err := registry.Load(sources, cfg.AllowedExternalSet())
	if err != nil {
		// A load-time refusal (E_DUPLICATE_FP_ID, E_UNTRUSTED_FP,
		// E_ORPHAN_CHILD) happens before any CLI flag is parsed, but still
		// owes stdout the refusal envelope, exit code 2, and a witness
		// entry per §7 — the same treatment a mid-run refusal gets.
		return usecase.RefuseRegistryLoad(ctx, os.Stdout, witnessStore, logger, cfg.Witness.Enabled,
			cfg.Pipeline.OutputVersion, "fingerprint", version.Value(), binaryHash, err)
	}

	recognizer := &usecase.Recognizer{
		Registry:      reg,
		Witness:       witnessStore,
		Logger:        logger,
		AcceptedInput: cfg.AcceptedInputVersionSet(),
		OutputVersion: cfg.Pipeline.OutputVersion,
		ToolName:      "fingerprint",
		ToolVersion:   version.Value(),
		BinaryHash:    binaryHash,
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer:            recognizer,
		DefaultJobs:           cfg.Pipeline.Jobs,
		DefaultWitnessEnabled: cfg.Witness.Enabled,
		DefaultProgress:       cfg.Telemetry.Progress,
		DefaultDiagnose:       cfg.Pipeline.Diagnose,
		Version:               version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return err
	}
	return nil
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "fingerprint"))
	}
	return paths
}

// Compile-time interface compliance checks.
var _ witness.Store = (*sqlite.Store)(nil)
var _ telemetry.Logger = (*telemetry.DefaultLogger)(nil)
var _ cli.Recognizer = (*usecase.Recognizer)(nil)
