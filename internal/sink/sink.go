// Package sink implements the output sink (spec §4.11 / C11): a
// buffered writer over stdout or a named file with explicit flush
// triggers and ANSI-escape-safe writes.
package sink

import (
	"bufio"
	"io"
	"os"

	"github.com/mattn/go-colorable"
)

// Config controls how a Sink is constructed.
type Config struct {
	// Path is the destination file path, or "" for stdout.
	Path string
	// BufferSize is the size of the internal bufio.Writer buffer.
	BufferSize int
}

// Sink is a buffered writer over stdout or a named file (spec §4.11).
// Writes are never torn mid-call: a single Write's bytes land in the
// underlying writer contiguously, so a caller that hands Write one
// complete formatted line at a time never splits an ANSI escape
// sequence across two OS writes.
type Sink struct {
	w      *bufio.Writer
	closer io.Closer // non-nil only for a named file
}

// New constructs a Sink. An empty cfg.Path writes to stdout, wrapped in
// mattn/go-colorable so ANSI sequences render correctly on Windows
// consoles that don't natively honor them (the teacher wraps os.Stdout
// the same way in cmd/jlog/main.go).
func New(cfg Config) (*Sink, error) {
	size := cfg.BufferSize
	if size <= 0 {
		size = 64 * 1024
	}
	if cfg.Path == "" {
		return &Sink{w: bufio.NewWriterSize(colorable.NewColorableStdout(), size)}, nil
	}
	f, err := os.OpenFile(cfg.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &Error{Op: "open", Path: cfg.Path, Err: err}
	}
	return &Sink{w: bufio.NewWriterSize(f, size), closer: f}, nil
}

// Write buffers p. Flush must be called at the trigger points spec
// §4.11 names: block boundary in sorted mode, sync_interval_ms in
// follow mode, SIGINT, and end of input.
func (s *Sink) Write(p []byte) (int, error) {
	if len(p) > s.w.Available() && s.w.Buffered() > 0 {
		// Flush first so p is not split between the tail of this buffer
		// and the next OS write.
		if err := s.w.Flush(); err != nil {
			return 0, &Error{Op: "flush", Path: "", Err: err}
		}
	}
	n, err := s.w.Write(p)
	if err != nil {
		return n, &Error{Op: "write", Path: "", Err: err}
	}
	return n, nil
}

// Flush forces buffered bytes out to the underlying writer.
func (s *Sink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return &Error{Op: "flush", Path: "", Err: err}
	}
	return nil
}

// Close flushes and, for a file sink, closes the underlying file.
func (s *Sink) Close() error {
	flushErr := s.Flush()
	if s.closer == nil {
		return flushErr
	}
	if err := s.closer.Close(); err != nil {
		if flushErr != nil {
			return flushErr
		}
		return &Error{Op: "close", Path: "", Err: err}
	}
	return flushErr
}

// Error wraps an I/O failure from the sink (spec §7 SinkError).
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return "sink: " + e.Op + " " + e.Path + ": " + e.Err.Error()
	}
	return "sink: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
