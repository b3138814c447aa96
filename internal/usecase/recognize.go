// Package usecase wires the registry, the streaming pipeline, and the
// witness ledger into the single recognize entry point the CLI calls.
package usecase

import (
	"context"
	"io"
	"time"

	"github.com/cmdrvl/fingerprint/internal/adapter/cli"
	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/driver"
	"github.com/cmdrvl/fingerprint/internal/ingest"
	"github.com/cmdrvl/fingerprint/internal/pipeline"
	"github.com/cmdrvl/fingerprint/internal/registry"
	"github.com/cmdrvl/fingerprint/internal/telemetry"
	"github.com/cmdrvl/fingerprint/internal/witness"
)

// Recognizer implements cli.Recognizer against a resolved registry, the
// streaming pipeline, and an optional witness ledger.
type Recognizer struct {
	Registry      *registry.Registry
	Witness       witness.Store
	Logger        telemetry.Logger
	AcceptedInput map[string]bool
	OutputVersion string
	ToolName      string
	ToolVersion   string
	BinaryHash    string
}

var _ cli.Recognizer = (*Recognizer)(nil)

// progressMinInterval bounds how often a progress frame is emitted to
// stderr: never more than one line per 50ms, regardless of how many
// records the pipeline flushes in that window.
const progressMinInterval = 50 * time.Millisecond

// List returns every registered fingerprint in stable id order.
func (r *Recognizer) List() []registry.Entry {
	return r.Registry.List()
}

// Describe resolves a single fingerprint id to its full definition.
func (r *Recognizer) Describe(id string) (domain.Definition, error) {
	return r.Registry.Resolve(id)
}

// Run resolves the requested fingerprint ids, drives one streaming pass,
// and appends a witness ledger entry hashing everything written to out.
func (r *Recognizer) Run(ctx context.Context, in io.Reader, out io.Writer, req cli.RecognizeRequest) (domain.Outcome, error) {
	docLevel, childLevel, err := r.Registry.ResolveSet(req.FingerprintIDs)
	if err != nil {
		code, detail := resolveError(err)
		return r.writeRefusalEnvelope(ctx, out, req, code, err.Error(), detail)
	}

	hw := witness.NewHashWriter()
	tee := io.MultiWriter(out, hw)

	var inputs []witness.InputRef
	onInput := func(path, bytesHash string) {
		inputs = append(inputs, witness.InputRef{Path: path, Hash: bytesHash})
	}

	var onRecord func(int)
	var onWarning func(string, domain.Warning)
	if req.Progress && r.Logger != nil {
		var lastEmit time.Time
		onRecord = func(processed int) {
			now := time.Now()
			if !lastEmit.IsZero() && now.Sub(lastEmit) < progressMinInterval {
				return
			}
			lastEmit = now
			r.Logger.LogProgress(ctx, telemetry.ProgressLog{Timestamp: now, Processed: processed})
		}
		onWarning = func(path string, w domain.Warning) {
			r.Logger.LogWarning(ctx, telemetry.WarningLog{Timestamp: time.Now(), Code: w.Code, Message: w.Message, Path: path})
		}
	}

	outcome, runErr := pipeline.Run(ctx, in, tee, pipeline.Config{
		Jobs:             req.Jobs,
		Diagnose:         req.Diagnose,
		AcceptedVersions: r.AcceptedInput,
		DocLevel:         docLevel,
		ChildLevel:       childLevel,
		OutputVersion:    r.OutputVersion,
		ToolName:         r.ToolName,
		ToolVersion:      r.ToolVersion,
		OnRecord:         onRecord,
		OnWarning:        onWarning,
		OnInput:          onInput,
	})

	if refusal, ok := runErr.(*driver.RefusalError); ok {
		// A refusal discovered mid-stream (e.g. a malformed line or a
		// missing bytes_hash further into the input) still must leave the
		// refusal envelope on stdout per the refusal contract, appended
		// after whatever JSONL the reorder buffer had already flushed for
		// earlier, already-resolved sequence numbers.
		_ = ingest.WriteRefusal(tee, r.OutputVersion, refusal.Code, refusal.Message, refusal.Detail)
		if r.Logger != nil {
			r.Logger.LogRefusal(ctx, telemetry.RefusalLog{Timestamp: time.Now(), Code: refusal.Code, Message: refusal.Message})
		}
	}

	r.appendWitness(req, hw.Sum(), outcome.ExitCode(), string(outcome), inputs)

	return outcome, runErr
}

func (r *Recognizer) writeRefusalEnvelope(ctx context.Context, out io.Writer, req cli.RecognizeRequest, code, message string, detail map[string]any) (domain.Outcome, error) {
	hw := witness.NewHashWriter()
	tee := io.MultiWriter(out, hw)
	_ = ingest.WriteRefusal(tee, r.OutputVersion, code, message, detail)
	r.appendWitness(req, hw.Sum(), domain.OutcomeRefusal.ExitCode(), string(domain.OutcomeRefusal), nil)
	if r.Logger != nil {
		r.Logger.LogRefusal(ctx, telemetry.RefusalLog{Timestamp: time.Now(), Code: code, Message: message})
	}
	return domain.OutcomeRefusal, &driver.RefusalError{Code: code, Message: message, Detail: detail}
}

func (r *Recognizer) appendWitness(req cli.RecognizeRequest, outputHash string, exitCode int, outcome string, inputs []witness.InputRef) {
	if !req.WitnessEnabled || r.Witness == nil {
		return
	}
	// A witness write failure never changes the caller's exit code.
	_, _ = r.Witness.Append(witness.AppendParams{
		Tool:       r.ToolName,
		Version:    r.ToolVersion,
		BinaryHash: r.BinaryHash,
		Inputs:     inputs,
		Params: map[string]any{
			"fp":       req.FingerprintIDs,
			"jobs":     req.Jobs,
			"diagnose": req.Diagnose,
			"progress": req.Progress,
		},
		Outcome:    outcome,
		OutputHash: outputHash,
		ExitCode:   exitCode,
	})
}

// RefuseRegistryLoad emits a refusal envelope for a registry.Load failure
// discovered at startup, before any Recognizer exists to route the error
// through Run. It appends the same witness ledger entry and follows the
// same envelope shape as a refusal discovered during a request, so a
// startup-time E_DUPLICATE_FP_ID/E_UNTRUSTED_FP/E_ORPHAN_CHILD failure gets
// identical stdout/exit-code/witness treatment to a mid-run one.
func RefuseRegistryLoad(ctx context.Context, out io.Writer, witnessStore witness.Store, logger telemetry.Logger, witnessEnabled bool, outputVersion, toolName, toolVersion, binaryHash string, loadErr error) error {
	code, detail := resolveError(loadErr)

	hw := witness.NewHashWriter()
	tee := io.MultiWriter(out, hw)
	_ = ingest.WriteRefusal(tee, outputVersion, code, loadErr.Error(), detail)

	if witnessEnabled && witnessStore != nil {
		_, _ = witnessStore.Append(witness.AppendParams{
			Tool:       toolName,
			Version:    toolVersion,
			BinaryHash: binaryHash,
			Outcome:    string(domain.OutcomeRefusal),
			OutputHash: hw.Sum(),
			ExitCode:   domain.OutcomeRefusal.ExitCode(),
		})
	}

	if logger != nil {
		logger.LogRefusal(ctx, telemetry.RefusalLog{Timestamp: time.Now(), Code: code, Message: loadErr.Error()})
	}

	return &driver.RefusalError{Code: code, Message: loadErr.Error(), Detail: detail}
}

// resolveError extracts the refusal code and structured detail payload
// carried by err, defaulting to E_UNKNOWN_FP for an unresolved --fp id
// when err does not itself carry a registry.LoadError.
func resolveError(err error) (string, map[string]any) {
	if lerr, ok := err.(*registry.LoadError); ok {
		return lerr.Code, lerr.Detail
	}
	return registry.ErrUnknownFP, nil
}
