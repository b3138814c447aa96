// Package cli wires the cobra command surface onto the recognition
// pipeline: the root command itself runs recognition (there is no separate
// subcommand), plus registry-inspection shortcuts for --list, --describe,
// and --schema.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/registry"
)

// ErrVersionRequested indicates the user requested the CLI version and no further work should be done.
var ErrVersionRequested = errors.New("version requested")

// RecognizeRequest carries the resolved flag values a Recognizer needs for
// one invocation.
type RecognizeRequest struct {
	FingerprintIDs []string
	Jobs           int
	WitnessEnabled bool
	Progress       bool
	Diagnose       bool
}

// Recognizer defines the dependency required to run recognize and the
// registry-inspection shortcuts.
type Recognizer interface {
	Run(ctx context.Context, in io.Reader, out io.Writer, req RecognizeRequest) (domain.Outcome, error)
	List() []registry.Entry
	Describe(id string) (domain.Definition, error)
}

// Arguments encapsulates IO streams injected from the host process.
type Arguments struct {
	InReader  io.Reader
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	Recognizer            Recognizer
	Args                  Arguments
	DefaultJobs           int
	DefaultWitnessEnabled bool
	DefaultProgress       bool
	DefaultDiagnose       bool
	Version               string
}

// NewRootCommand constructs the root Cobra command. The root action itself
// runs a recognize pass; --list/--describe/--schema short-circuit it with a
// registry-inspection printout.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "dev"
	}

	inReader := deps.Args.InReader
	if inReader == nil {
		inReader = os.Stdin
	}
	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}

	root := &cobra.Command{
		Use:   "fingerprint [input-file]",
		Short: "Recognize document fingerprints from a JSONL record stream",
		Args:  cobra.MaximumNArgs(1),
	}
	root.SilenceUsage = true
	root.SilenceErrors = true
	root.SetIn(inReader)
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	var (
		fingerprintIDs []string
		jobs           int
		noWitness      bool
		progress       bool
		diagnose       bool
		list           bool
		describe       string
		schema         bool
		showVersion    bool
	)

	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler

	root.Flags().StringArrayVar(&fingerprintIDs, "fp", nil, "Fingerprint id to recognize (repeatable, evaluated in the order given)")
	root.Flags().IntVar(&jobs, "jobs", deps.DefaultJobs, "Worker pool size")
	root.Flags().BoolVar(&noWitness, "no-witness", !deps.DefaultWitnessEnabled, "Skip writing a witness ledger entry for this run")
	root.Flags().BoolVar(&progress, "progress", deps.DefaultProgress, "Emit progress frames to stderr")
	root.Flags().BoolVar(&diagnose, "diagnose", deps.DefaultDiagnose, "Include per-assertion diagnostic detail in output records")
	root.Flags().BoolVar(&list, "list", false, "List every registered fingerprint id and exit")
	root.Flags().StringVar(&describe, "describe", "", "Print the full definition for one fingerprint id and exit")
	root.Flags().BoolVar(&schema, "schema", false, "Print the output record JSON schema and exit")

	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}

		switch {
		case list:
			return runList(cmd, deps.Recognizer)
		case describe != "":
			return runDescribe(cmd, deps.Recognizer, describe)
		case schema:
			return runSchema(cmd)
		}

		if len(fingerprintIDs) == 0 {
			return fmt.Errorf("at least one --fp is required unless --list, --describe, or --schema is given")
		}

		in := cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input file: %w", err)
			}
			defer f.Close()
			in = f
		}

		witnessEnabled := deps.DefaultWitnessEnabled
		if cmd.Flags().Changed("no-witness") {
			witnessEnabled = !noWitness
		}

		resolvedJobs := resolveInt(cmd, "jobs", jobs, deps.DefaultJobs)

		outcome, err := deps.Recognizer.Run(cmd.Context(), in, cmd.OutOrStdout(), RecognizeRequest{
			FingerprintIDs: fingerprintIDs,
			Jobs:           resolvedJobs,
			WitnessEnabled: witnessEnabled,
			Progress:       progress,
			Diagnose:       diagnose,
		})
		if err != nil {
			return err
		}
		return exitCodeError(outcome)
	}

	return root
}

func runList(cmd *cobra.Command, r Recognizer) error {
	for _, entry := range r.List() {
		parent := entry.Parent
		if parent == "" {
			parent = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.ID, entry.Crate, entry.Version, entry.Source, entry.Format, parent)
	}
	return nil
}

func runDescribe(cmd *cobra.Command, r Recognizer, id string) error {
	def, err := r.Describe(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(def)
}

// outputSchema is the stable shape consumers can validate output records
// against; it documents, rather than enforces, the fields ingest.ToOutput
// writes.
const outputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "fingerprint output record",
  "type": "object",
  "required": ["version", "path", "bytes_hash", "tool_versions"],
  "properties": {
    "version": {"type": "string"},
    "path": {"type": "string"},
    "bytes_hash": {"type": "string"},
    "extension": {"type": "string"},
    "mime_guess": {"type": "string"},
    "text_path": {"type": "string"},
    "tool_versions": {"type": "object"},
    "_skipped": {"type": "boolean"},
    "_warnings": {"type": "array"},
    "fingerprint": {"type": ["object", "null"]}
  }
}`

func runSchema(cmd *cobra.Command) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), outputSchema)
	return err
}

// exitCodeError turns a non-zero Outcome into an error cobra can translate
// into a process exit code, while leaving stdout/stderr output untouched.
func exitCodeError(outcome domain.Outcome) error {
	if outcome.ExitCode() == 0 {
		return nil
	}
	return &outcomeError{outcome: outcome}
}

type outcomeError struct {
	outcome domain.Outcome
}

func (e *outcomeError) Error() string { return string(e.outcome) }

// ExitCode reports the process exit code for main to surface.
func (e *outcomeError) ExitCode() int { return e.outcome.ExitCode() }

// ExitCoder is implemented by errors that carry their own process exit
// code, distinct from the generic failure code cobra would otherwise use.
type ExitCoder interface {
	error
	ExitCode() int
}

// ExitCodeFromError extracts the process exit code carried by an error
// returned from the root command's execution, if any.
func ExitCodeFromError(err error) (int, bool) {
	var ec ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode(), true
	}
	return 0, false
}

// resolveInt returns the CLI value if the flag was explicitly set and
// non-negative, otherwise the config/default value.
func resolveInt(cmd *cobra.Command, flagName string, cliValue, defaultValue int) int {
	if !cmd.Flags().Changed(flagName) {
		return defaultValue
	}
	if cliValue < 0 {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: negative value %d for --%s, using default %d\n", cliValue, flagName, defaultValue)
		return defaultValue
	}
	return cliValue
}
