package sqlite_test

import (
	"testing"

	"github.com/cmdrvl/fingerprint/internal/witness"
	"github.com/cmdrvl/fingerprint/internal/witness/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendChainsEntries(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	first, err := store.Append(witness.AppendParams{
		Tool: "fingerprint", Version: "1.0.0", BinaryHash: "blake3:bin",
		Outcome: "ALL_MATCHED", ExitCode: 0, OutputHash: "blake3:aaaa",
	})
	require.NoError(t, err)
	assert.Empty(t, first.Prev)

	second, err := store.Append(witness.AppendParams{
		Tool: "fingerprint", Version: "1.0.0", BinaryHash: "blake3:bin",
		Outcome: "PARTIAL", ExitCode: 1, OutputHash: "blake3:bbbb",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.Prev)
}

func TestStore_AppendCarriesFullRecordShape(t *testing.T) {
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	entry, err := store.Append(witness.AppendParams{
		Tool:       "fingerprint",
		Version:    "1.2.3",
		BinaryHash: "blake3:binhash",
		Inputs:     []witness.InputRef{{Path: "a.xlsx", Hash: "blake3:abc", Bytes: 1024}},
		Params:     map[string]any{"fp": []string{"cbre-appraisal.v1"}, "jobs": 4},
		Outcome:    "ALL_MATCHED",
		ExitCode:   0,
		OutputHash: "blake3:outhash",
	})
	require.NoError(t, err)
	assert.Equal(t, "fingerprint", entry.Tool)
	assert.Equal(t, "1.2.3", entry.Version)
	assert.Equal(t, "blake3:binhash", entry.BinaryHash)
	assert.Equal(t, "ALL_MATCHED", entry.Outcome)
	require.Len(t, entry.Inputs, 1)
	assert.Equal(t, "a.xlsx", entry.Inputs[0].Path)
	assert.Equal(t, []string{"cbre-appraisal.v1"}, entry.Params["fp"])
}
