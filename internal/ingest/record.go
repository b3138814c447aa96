// Package ingest handles input/output record parsing and the refusal
// envelope emitted on a fatal startup or field-validation error.
package ingest

import (
	"encoding/json"
	"fmt"

	"github.com/cmdrvl/fingerprint/internal/domain"
)

// ParseRecord unmarshals one JSONL line into a domain.Record, preserving
// every upstream key in Raw for the round-trip invariant while also
// populating the typed fields the pipeline reads directly.
func ParseRecord(line []byte) (domain.Record, error) {
	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return domain.Record{}, fmt.Errorf("malformed json: %w", err)
	}

	rec := domain.Record{Raw: raw}
	rec.Version, _ = raw["version"].(string)
	rec.Path, _ = raw["path"].(string)
	rec.BytesHash, _ = raw["bytes_hash"].(string)
	rec.Extension, _ = raw["extension"].(string)
	rec.MimeGuess, _ = raw["mime_guess"].(string)
	rec.TextPath, _ = raw["text_path"].(string)
	if skipped, ok := raw["_skipped"].(bool); ok {
		rec.Skipped = skipped
	}

	if tv, ok := raw["tool_versions"].(map[string]any); ok {
		rec.ToolVersions = make(map[string]string, len(tv))
		for k, v := range tv {
			if s, ok := v.(string); ok {
				rec.ToolVersions[k] = s
			}
		}
	}

	if warnings, ok := raw["_warnings"].([]any); ok {
		for _, w := range warnings {
			wm, ok := w.(map[string]any)
			if !ok {
				continue
			}
			warning := domain.Warning{}
			warning.Tool, _ = wm["tool"].(string)
			warning.Code, _ = wm["code"].(string)
			warning.Message, _ = wm["message"].(string)
			warning.Detail, _ = wm["detail"].(string)
			rec.Warnings = append(rec.Warnings, warning)
		}
	}

	return rec, nil
}

// ToOutput renders rec as the output record JSON: version overwritten to
// outputVersion, tool_versions merged with toolName/toolVersion, and the
// fingerprint key always present (null when the record is skipped).
func ToOutput(rec domain.Record, outputVersion, toolName, toolVersion string) ([]byte, error) {
	out := make(map[string]any, len(rec.Raw)+1)
	for k, v := range rec.Raw {
		out[k] = v
	}

	out["version"] = outputVersion

	tv, _ := out["tool_versions"].(map[string]any)
	if tv == nil {
		tv = make(map[string]any, len(rec.ToolVersions)+1)
		for k, v := range rec.ToolVersions {
			tv[k] = v
		}
	}
	tv[toolName] = toolVersion
	out["tool_versions"] = tv

	if len(rec.Warnings) > 0 {
		warnings := make([]any, 0, len(rec.Warnings))
		for _, w := range rec.Warnings {
			warnings = append(warnings, map[string]any{
				"tool":    w.Tool,
				"code":    w.Code,
				"message": w.Message,
				"detail":  w.Detail,
			})
		}
		out["_warnings"] = warnings
	}

	if rec.Skipped {
		out["_skipped"] = true
		out["fingerprint"] = nil
	} else {
		out["fingerprint"] = rec.Fingerprint
	}

	return json.Marshal(out)
}
