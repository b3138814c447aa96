package usecase_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cmdrvl/fingerprint/internal/adapter/cli"
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/registry"
	"github.com/cmdrvl/fingerprint/internal/usecase"
	"github.com/cmdrvl/fingerprint/internal/witness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cliRequest(fp string, witnessEnabled bool) cli.RecognizeRequest {
	return cli.RecognizeRequest{FingerprintIDs: []string{fp}, Jobs: 1, WitnessEnabled: witnessEnabled}
}

type memoryWitness struct {
	entries []witness.Entry
	closed  bool
}

func (m *memoryWitness) Append(p witness.AppendParams) (witness.Entry, error) {
	prev := ""
	if len(m.entries) > 0 {
		prev = m.entries[len(m.entries)-1].ID
	}
	entry := witness.Entry{
		ID:         witness.NewEntryID(),
		Tool:       p.Tool,
		Version:    p.Version,
		BinaryHash: p.BinaryHash,
		Inputs:     p.Inputs,
		Params:     p.Params,
		Outcome:    p.Outcome,
		OutputHash: p.OutputHash,
		ExitCode:   p.ExitCode,
		Prev:       prev,
	}
	m.entries = append(m.entries, entry)
	return entry, nil
}

func (m *memoryWitness) Close() error {
	m.closed = true
	return nil
}

func csvDefinition() domain.Definition {
	return domain.Definition{
		ID:        "csv.v0",
		Format:    domain.FormatCSV,
		CrateName: "fingerprint-builtin",
		Semver:    "1.0.0",
		Source:    domain.SourceRust,
	}
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Load([]registry.Source{{
		Name:    "test",
		Trusted: true,
		Load:    func() ([]domain.Definition, error) { return []domain.Definition{csvDefinition()}, nil },
	}}, nil)
	require.NoError(t, err)
	return reg
}

func TestRecognizer_ListDelegatesToRegistry(t *testing.T) {
	r := &usecase.Recognizer{Registry: newTestRegistry(t)}
	entries := r.List()
	require.Len(t, entries, 1)
	assert.Equal(t, "csv.v0", entries[0].ID)
}

func TestRecognizer_DescribeResolvesDefinition(t *testing.T) {
	r := &usecase.Recognizer{Registry: newTestRegistry(t)}
	def, err := r.Describe("csv.v0")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatCSV, def.Format)
}

func TestRecognizer_DescribeUnknownIDReturnsError(t *testing.T) {
	r := &usecase.Recognizer{Registry: newTestRegistry(t)}
	_, err := r.Describe("nope.v1")
	require.Error(t, err)
}

func TestRecognizer_RunAppendsWitnessEntryOnSuccess(t *testing.T) {
	mw := &memoryWitness{}
	r := &usecase.Recognizer{
		Registry:      newTestRegistry(t),
		Witness:       mw,
		AcceptedInput: map[string]bool{"1": true},
		OutputVersion: "1",
		ToolName:      "fingerprint",
		ToolVersion:   "test",
	}

	in := bytes.NewBufferString(`{"version":"1","path":"ledger.csv","bytes_hash":"h1"}` + "\n")
	var out bytes.Buffer

	outcome, err := r.Run(context.Background(), in, &out, cliRequest("csv.v0", true))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomePartial, outcome) // no extension or mime guess: a raw view opens and csv.v0 does not apply
	require.Len(t, mw.entries, 1)
	assert.Equal(t, outcome.ExitCode(), mw.entries[0].ExitCode)
}

func TestRecognizer_RunSkipsWitnessWhenDisabled(t *testing.T) {
	mw := &memoryWitness{}
	r := &usecase.Recognizer{
		Registry:      newTestRegistry(t),
		Witness:       mw,
		AcceptedInput: map[string]bool{"1": true},
		OutputVersion: "1",
	}

	in := bytes.NewBufferString(`{"version":"1","path":"ledger.csv","bytes_hash":"h1"}` + "\n")
	var out bytes.Buffer

	_, err := r.Run(context.Background(), in, &out, cliRequest("csv.v0", false))
	require.NoError(t, err)
	assert.Empty(t, mw.entries)
}

func TestRecognizer_RunUnknownFingerprintWritesRefusalEnvelope(t *testing.T) {
	mw := &memoryWitness{}
	r := &usecase.Recognizer{Registry: newTestRegistry(t), Witness: mw}

	var out bytes.Buffer
	_, err := r.Run(context.Background(), bytes.NewReader(nil), &out, cliRequest("nope.v1", true))
	require.Error(t, err)
	assert.Contains(t, out.String(), "E_UNKNOWN_FP")
	require.Len(t, mw.entries, 1)
	assert.Equal(t, 2, mw.entries[0].ExitCode)
}
