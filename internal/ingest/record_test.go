package ingest_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_RoundTripsUnknownKeys(t *testing.T) {
	line := []byte(`{"version":"v1","path":"a.md","bytes_hash":"abc","custom_field":"keep-me"}`)
	rec, err := ingest.ParseRecord(line)
	require.NoError(t, err)
	assert.Equal(t, "v1", rec.Version)
	assert.Equal(t, "abc", rec.BytesHash)
	assert.Equal(t, "keep-me", rec.Raw["custom_field"])
}

func TestParseRecord_MalformedJSON(t *testing.T) {
	_, err := ingest.ParseRecord([]byte(`{not json`))
	assert.Error(t, err)
}

func TestToOutput_AlwaysCarriesFingerprintKey(t *testing.T) {
	rec, err := ingest.ParseRecord([]byte(`{"version":"v1","path":"a.md","bytes_hash":"abc"}`))
	require.NoError(t, err)
	rec.Skipped = true

	out, err := ingest.ToOutput(rec, "v2", "fingerprint", "1.0.0")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	val, present := decoded["fingerprint"]
	assert.True(t, present)
	assert.Nil(t, val)
	assert.Equal(t, "v2", decoded["version"])
}

func TestToOutput_MergesToolVersions(t *testing.T) {
	rec, err := ingest.ParseRecord([]byte(`{"version":"v1","path":"a.md","bytes_hash":"abc","tool_versions":{"upstream":"3.2"}}`))
	require.NoError(t, err)

	out, err := ingest.ToOutput(rec, "v2", "fingerprint", "1.0.0")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	tv := decoded["tool_versions"].(map[string]any)
	assert.Equal(t, "3.2", tv["upstream"])
	assert.Equal(t, "1.0.0", tv["fingerprint"])
}

func TestToOutput_CarriesFingerprintResult(t *testing.T) {
	rec, err := ingest.ParseRecord([]byte(`{"version":"v1","path":"a.md","bytes_hash":"abc"}`))
	require.NoError(t, err)
	rec.Fingerprint = &domain.FingerprintResult{FingerprintID: "memo.v1", Matched: true}

	out, err := ingest.ToOutput(rec, "v2", "fingerprint", "1.0.0")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	fp := decoded["fingerprint"].(map[string]any)
	assert.Equal(t, "memo.v1", fp["fingerprint_id"])
}

func TestWriteRefusal_EmitsSingleJSONObject(t *testing.T) {
	var buf bytes.Buffer
	err := ingest.WriteRefusal(&buf, "fingerprint.v2", ingest.ErrUnknownFP, "fingerprint not found", map[string]any{"available": []string{"a.v1"}})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "fingerprint.v2", decoded["version"])
	assert.Equal(t, "REFUSAL", decoded["outcome"])
	refusal := decoded["refusal"].(map[string]any)
	assert.Equal(t, ingest.ErrUnknownFP, refusal["code"])
	assert.Equal(t, "fingerprint not found", refusal["message"])
	detail := refusal["detail"].(map[string]any)
	assert.Equal(t, []any{"a.v1"}, detail["available"])
}
