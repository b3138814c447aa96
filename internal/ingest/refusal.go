package ingest

import (
	"encoding/json"
	"io"
)

// Refusal codes.
const (
	ErrBadInput    = "E_BAD_INPUT"
	ErrUnknownFP   = "E_UNKNOWN_FP"
	ErrDuplicateFP = "E_DUPLICATE_FP_ID"
	ErrUntrustedFP = "E_UNTRUSTED_FP"
	ErrOrphanChild = "E_ORPHAN_CHILD"
)

// Refusal is the nested `refusal` object within a RefusalEnvelope.
type Refusal struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	Detail      map[string]any `json:"detail,omitempty"`
	NextCommand string         `json:"next_command,omitempty"`
}

// RefusalEnvelope is the single JSON object (not JSONL) emitted on stdout
// when a run aborts, per §6: {version, outcome: "REFUSAL", refusal: {...}}.
type RefusalEnvelope struct {
	Version string  `json:"version"`
	Outcome string  `json:"outcome"`
	Refusal Refusal `json:"refusal"`
}

// WriteRefusal writes the envelope as a single JSON object.
func WriteRefusal(w io.Writer, version, code, message string, detail map[string]any) error {
	env := RefusalEnvelope{
		Version: version,
		Outcome: "REFUSAL",
		Refusal: Refusal{Code: code, Message: message, Detail: detail},
	}
	enc := json.NewEncoder(w)
	return enc.Encode(env)
}
