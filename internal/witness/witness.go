// Package witness implements the append-only run ledger: one chained entry
// per invocation, recording what ran, against what inputs, and a BLAKE3
// hash over the emitted stdout stream so a later audit can confirm a run's
// output was never altered after emission.
package witness

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// InputRef names one artifact consulted by the run, per §6's
// `inputs[{path, hash?, bytes?}]` shape.
type InputRef struct {
	Path  string `json:"path"`
	Hash  string `json:"hash,omitempty"`
	Bytes int64  `json:"bytes,omitempty"`
}

// Entry is one ledger record, matching §6's witness record shape:
// {id, tool, version, binary_hash, inputs, params, outcome, exit_code,
// output_hash, prev, ts}.
type Entry struct {
	ID         string
	Tool       string
	Version    string
	BinaryHash string
	Inputs     []InputRef
	Params     map[string]any
	Outcome    string
	ExitCode   int
	OutputHash string
	Prev       string // empty for the first entry
	Timestamp  time.Time
}

// AppendParams carries the fields a caller supplies for one ledger append;
// ID, Prev, and Timestamp are assigned by the Store.
type AppendParams struct {
	Tool       string
	Version    string
	BinaryHash string
	Inputs     []InputRef
	Params     map[string]any
	Outcome    string
	ExitCode   int
	OutputHash string
}

// Store persists ledger entries and appends to the chain.
type Store interface {
	// Append writes a new entry, setting its Prev to the current chain tip
	// (empty if the ledger is empty), and returns the stored entry.
	Append(p AppendParams) (Entry, error)
	// Close releases the underlying storage handle.
	Close() error
}

// HashWriter computes a streaming BLAKE3 digest of everything written to
// it, used to hash the stdout JSONL stream as it is emitted without
// buffering the whole run in memory.
type HashWriter struct {
	h *blake3.Hasher
}

// NewHashWriter starts a new streaming hash.
func NewHashWriter() *HashWriter {
	return &HashWriter{h: blake3.New()}
}

// Write implements io.Writer.
func (hw *HashWriter) Write(p []byte) (int, error) {
	return hw.h.Write(p)
}

// Sum returns the accumulated digest, encoded as "blake3:<hex>".
func (hw *HashWriter) Sum() string {
	return "blake3:" + hex.EncodeToString(hw.h.Sum(nil))
}

// NewEntryID generates a fresh entry identifier.
func NewEntryID() string {
	return uuid.NewString()
}
