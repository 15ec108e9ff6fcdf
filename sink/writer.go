package sink

import (
	"bufio"
	"errors"
	"io"

	"github.com/cespare/xxhash/v2"
)

// ErrFinished is returned when writing to a Writer after Finish.
var ErrFinished = errors.New("sink: writer already finished")

// Writer appends values to an output stream, one per line. Output is
// buffered and only guaranteed to reach the underlying writer on Finish.
//
// A digest of every byte written is kept so two runs can be compared
// without re-reading their outputs.
type Writer struct {
	bw     *bufio.Writer
	digest *xxhash.Digest

	values   int64
	written  int64
	finished bool
	// First write error. bufio.Writer is sticky as well, but keeping it here
	// lets WriteValue skip the work entirely.
	err error
}

func NewWriter(w io.Writer, bufSize int) *Writer {
	return &Writer{
		bw:     bufio.NewWriterSize(w, bufSize),
		digest: xxhash.New(),
	}
}

// WriteValue appends v followed by a single newline. The bytes are copied
// before WriteValue returns.
func (w *Writer) WriteValue(v []byte) error {
	if w.finished {
		return ErrFinished
	}
	if w.err != nil {
		return w.err
	}

	if _, err := w.bw.Write(v); err != nil {
		w.err = err
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		w.err = err
		return err
	}

	// xxhash.Digest.Write never fails.
	_, _ = w.digest.Write(v)
	_, _ = w.digest.Write(newline)

	w.values++
	w.written += int64(len(v)) + 1
	return nil
}

var newline = []byte{'\n'}

// Finish flushes everything buffered. It must be called exactly once at the
// end of the stream; later calls return ErrFinished.
func (w *Writer) Finish() error {
	if w.finished {
		return ErrFinished
	}
	w.finished = true

	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Values returns the number of values written.
func (w *Writer) Values() int64 {
	return w.values
}

// Written returns the number of bytes written, newlines included.
func (w *Writer) Written() int64 {
	return w.written
}

// Digest returns the xxhash64 of everything written so far.
func (w *Writer) Digest() uint64 {
	return w.digest.Sum64()
}
