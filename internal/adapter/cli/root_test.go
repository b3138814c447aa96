package cli_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cmdrvl/fingerprint/internal/adapter/cli"
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/registry"
)

type recognizerStub struct {
	request cli.RecognizeRequest
	outcome domain.Outcome
	err     error
	entries []registry.Entry
	def     domain.Definition
	defErr  error
}

func (r *recognizerStub) Run(ctx context.Context, in io.Reader, out io.Writer, req cli.RecognizeRequest) (domain.Outcome, error) {
	r.request = req
	return r.outcome, r.err
}

func (r *recognizerStub) List() []registry.Entry { return r.entries }

func (r *recognizerStub) Describe(id string) (domain.Definition, error) {
	return r.def, r.defErr
}

func TestRecognizeCommandPassesFlagsThrough(t *testing.T) {
	stub := &recognizerStub{outcome: domain.OutcomeAllMatched}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{InReader: strings.NewReader(""), OutWriter: io.Discard, ErrWriter: io.Discard},
		Version:    "v1.2.3",
	})

	root.SetArgs([]string{"--fp", "cbre-appraisal.v1", "--fp", "csv.v0", "--jobs", "4", "--no-witness"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}

	if len(stub.request.FingerprintIDs) != 2 || stub.request.FingerprintIDs[0] != "cbre-appraisal.v1" {
		t.Fatalf("unexpected fingerprint ids: %v", stub.request.FingerprintIDs)
	}
	if stub.request.Jobs != 4 {
		t.Fatalf("expected jobs 4, got %d", stub.request.Jobs)
	}
	if stub.request.WitnessEnabled {
		t.Fatalf("expected witness disabled")
	}
}

func TestRecognizeCommandRequiresFingerprintFlag(t *testing.T) {
	stub := &recognizerStub{}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected an error when no --fp is given")
	}
}

func TestListFlagShortCircuitsRecognize(t *testing.T) {
	stub := &recognizerStub{entries: []registry.Entry{{ID: "csv.v0", Crate: "fingerprint-builtin", Version: "1.0.0", Source: "rust", Format: "csv"}}}
	buf := &bytes.Buffer{}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{OutWriter: buf, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"--list"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}
	if !strings.Contains(buf.String(), "csv.v0") {
		t.Fatalf("expected listing to contain csv.v0, got %q", buf.String())
	}
	if stub.request.FingerprintIDs != nil {
		t.Fatalf("expected Run not to be called when --list is set")
	}
}

func TestDescribeFlagPrintsDefinitionJSON(t *testing.T) {
	stub := &recognizerStub{def: domain.Definition{ID: "csv.v0", Format: domain.FormatCSV}}
	buf := &bytes.Buffer{}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{OutWriter: buf, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"--describe", "csv.v0"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"id": "csv.v0"`) {
		t.Fatalf("expected describe output to contain id, got %q", buf.String())
	}
}

func TestSchemaFlagPrintsJSONSchema(t *testing.T) {
	stub := &recognizerStub{}
	buf := &bytes.Buffer{}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{OutWriter: buf, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"--schema"})
	if err := root.Execute(); err != nil {
		t.Fatalf("command execution failed: %v", err)
	}
	if !strings.Contains(buf.String(), "fingerprint output record") {
		t.Fatalf("expected schema output, got %q", buf.String())
	}
}

func TestVersionFlagEmitsVersionAndSkipsRun(t *testing.T) {
	stub := &recognizerStub{}
	buf := &bytes.Buffer{}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{OutWriter: buf, ErrWriter: io.Discard},
		Version:    "v9.9.9",
	})

	root.SetArgs([]string{"--version", "--fp", "csv.v0"})
	err := root.Execute()
	if !errors.Is(err, cli.ErrVersionRequested) {
		t.Fatalf("expected version sentinel, got %v", err)
	}
	if strings.TrimSpace(buf.String()) != "v9.9.9" {
		t.Fatalf("unexpected version output: %q", buf.String())
	}
	if stub.request.FingerprintIDs != nil {
		t.Fatalf("expected Run not to be called when --version is set")
	}
}

func TestPartialOutcomeReturnsExitCodeOne(t *testing.T) {
	stub := &recognizerStub{outcome: domain.OutcomePartial}
	root := cli.NewRootCommand(cli.Dependencies{
		Recognizer: stub,
		Args:       cli.Arguments{OutWriter: io.Discard, ErrWriter: io.Discard},
	})

	root.SetArgs([]string{"--fp", "csv.v0"})
	err := root.Execute()
	code, ok := cli.ExitCodeFromError(err)
	if !ok || code != 1 {
		t.Fatalf("expected exit code 1, got code=%d ok=%v err=%v", code, ok, err)
	}
}
