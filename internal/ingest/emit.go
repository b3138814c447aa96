package ingest

import (
	"bufio"
	"io"
)

// Emitter writes output records to w as JSONL, one object per line.
type Emitter struct {
	w *bufio.Writer
}

// NewEmitter wraps w in a buffered JSONL emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: bufio.NewWriter(w)}
}

// Emit writes one already-encoded JSON object followed by a newline.
func (e *Emitter) Emit(obj []byte) error {
	if _, err := e.w.Write(obj); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

// Flush flushes buffered output.
func (e *Emitter) Flush() error { return e.w.Flush() }
