package witness_test

import (
	"testing"

	"github.com/cmdrvl/fingerprint/internal/witness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWriter_DeterministicOverSameBytes(t *testing.T) {
	hw1 := witness.NewHashWriter()
	_, err := hw1.Write([]byte("line one\n"))
	require.NoError(t, err)
	_, err = hw1.Write([]byte("line two\n"))
	require.NoError(t, err)

	hw2 := witness.NewHashWriter()
	_, err = hw2.Write([]byte("line one\nline two\n"))
	require.NoError(t, err)

	assert.Equal(t, hw1.Sum(), hw2.Sum())
	assert.Contains(t, hw1.Sum(), "blake3:")
}
