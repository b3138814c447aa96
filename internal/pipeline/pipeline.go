// Package pipeline runs the streaming recognition pipeline: a bounded pool
// of workers consumes sequence-numbered input records and a single orderer
// goroutine flushes their results to stdout in strict sequence order.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/cmdrvl/fingerprint/internal/domain"
	"github.com/cmdrvl/fingerprint/internal/driver"
	"github.com/cmdrvl/fingerprint/internal/ingest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config configures one pipeline run.
type Config struct {
	Jobs             int // J, minimum 1
	Diagnose         bool
	AcceptedVersions map[string]bool
	DocLevel         []domain.Definition
	ChildLevel       []domain.Definition
	OutputVersion    string
	ToolName         string
	ToolVersion      string

	// OnRecord, when set, is called once per flushed output record with the
	// number of records flushed so far. Used to drive --progress reporting.
	OnRecord func(processed int)

	// OnWarning, when set, is called once per warning attached to a flushed
	// record, in flush order. Used to mirror per-record warnings onto the
	// stderr progress stream alongside progress frames.
	OnWarning func(path string, w domain.Warning)

	// OnInput, when set, is called once per flushed record (in flush order)
	// with the artifact path and bytes_hash it carried, so a caller can
	// accumulate the witness ledger entry's `inputs` list.
	OnInput func(path, bytesHash string)
}

// job is one sequence-numbered unit of work.
type job struct {
	seq  int
	line []byte
}

// result is one sequence-numbered unit of output, or a fatal refusal.
type result struct {
	seq       int
	output    []byte
	outcome   domain.Outcome
	refusal   *driver.RefusalError
	path      string
	bytesHash string
	warnings  []domain.Warning
}

// Run reads JSONL records from r, recognizes fingerprints against them, and
// writes JSONL results to w in strict input order. It returns the run's
// overall outcome, or a RefusalError if a record triggered a fatal refusal.
func Run(ctx context.Context, r io.Reader, w io.Writer, cfg Config) (domain.Outcome, error) {
	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}
	bufSize := int64(4 * jobs)
	sem := semaphore.NewWeighted(bufSize)

	jobCh := make(chan job, jobs)
	resultCh := make(chan result, jobs)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(jobCh)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		seq := 0
		for scanner.Scan() {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case jobCh <- job{seq: seq, line: line}:
			case <-gctx.Done():
				return nil
			}
			seq++
		}
		return scanner.Err()
	})

	for i := 0; i < jobs; i++ {
		g.Go(func() error {
			for j := range jobCh {
				resultCh <- process(gctx, j, cfg)
			}
			return nil
		})
	}

	var readErr error
	go func() {
		readErr = g.Wait()
		close(resultCh)
	}()

	emitter := ingest.NewEmitter(w)
	outcome := domain.OutcomeAllMatched
	pending := make(map[int]result)
	nextSeq := 0
	var refusal *driver.RefusalError

	for res := range resultCh {
		pending[res.seq] = res
		for {
			next, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			sem.Release(1)
			nextSeq++

			if next.refusal != nil {
				refusal = next.refusal
				cancel()
				continue
			}
			if next.output != nil {
				if err := emitter.Emit(next.output); err != nil {
					cancel()
					return domain.OutcomeRefusal, err
				}
			}
			outcome = outcome.Downgrade(next.outcome)
			if cfg.OnWarning != nil {
				for _, w := range next.warnings {
					cfg.OnWarning(next.path, w)
				}
			}
			if cfg.OnInput != nil && next.path != "" {
				cfg.OnInput(next.path, next.bytesHash)
			}
			if cfg.OnRecord != nil {
				cfg.OnRecord(nextSeq)
			}
		}
	}

	if err := emitter.Flush(); err != nil {
		return domain.OutcomeRefusal, err
	}

	if refusal != nil {
		return domain.OutcomeRefusal, refusal
	}
	if readErr != nil {
		return domain.OutcomeRefusal, fmt.Errorf("reading input: %w", readErr)
	}
	if ctx.Err() != nil {
		outcome = outcome.Downgrade(domain.OutcomePartial)
	}
	return outcome, nil
}

func process(ctx context.Context, j job, cfg Config) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = skippedResult(j.seq, "", fmt.Sprintf("worker panic: %v", r), cfg)
		}
	}()

	if ctx.Err() != nil {
		return result{seq: j.seq, outcome: domain.OutcomePartial}
	}

	rec, err := ingest.ParseRecord(j.line)
	if err != nil {
		return result{seq: j.seq, refusal: &driver.RefusalError{
			Code:    ingest.ErrBadInput,
			Message: err.Error(),
			Detail:  map[string]any{"seq": j.seq},
		}}
	}

	rec, err = driver.Recognize(rec, cfg.DocLevel, cfg.ChildLevel, driver.Options{
		AcceptedVersions: cfg.AcceptedVersions,
		Diagnose:         cfg.Diagnose,
	})
	if err != nil {
		if rerr, ok := err.(*driver.RefusalError); ok {
			return result{seq: j.seq, refusal: rerr}
		}
		return skippedResult(j.seq, rec.Path, err.Error(), cfg)
	}

	out, err := ingest.ToOutput(rec, cfg.OutputVersion, cfg.ToolName, cfg.ToolVersion)
	if err != nil {
		return skippedResult(j.seq, rec.Path, err.Error(), cfg)
	}

	outcome := domain.OutcomeAllMatched
	if rec.Skipped || rec.Fingerprint == nil || !rec.Fingerprint.Matched {
		outcome = domain.OutcomePartial
	} else {
		for _, child := range rec.Fingerprint.Children {
			if !child.Matched {
				outcome = domain.OutcomePartial
				break
			}
		}
	}
	return result{seq: j.seq, output: out, outcome: outcome, path: rec.Path, bytesHash: rec.BytesHash, warnings: rec.Warnings}
}

func skippedResult(seq int, path, detail string, cfg Config) result {
	rec := domain.Record{
		Skipped: true,
		Warnings: []domain.Warning{{
			Tool:    "fingerprint",
			Code:    domain.WarnParse,
			Message: "record processing failed",
			Detail:  detail,
		}},
	}
	out, err := ingest.ToOutput(rec, cfg.OutputVersion, cfg.ToolName, cfg.ToolVersion)
	if err != nil {
		return result{seq: seq, outcome: domain.OutcomePartial}
	}
	return result{seq: seq, output: out, outcome: domain.OutcomePartial, path: path, warnings: rec.Warnings}
}
