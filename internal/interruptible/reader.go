package interruptible

import (
	"fmt"
	"io"
)

// ErrClosed reports a read attempted after Close.
var ErrClosed = fmt.Errorf("read on closed reader")

// Reader wraps a blocking io.ReadCloser (typically stdin) so a pending
// Read can be abandoned on interrupt, matching the teacher's
// pkg/interruptible.Reader but driven by a shared Signals tracker instead
// of its own private signal channel, so a single Ctrl-C also drives the
// pipeline's drain policy (spec §4.7).
type Reader struct {
	r       io.ReadCloser
	signals *Signals
	closed  bool
}

var _ io.ReadCloser = (*Reader)(nil)

// NewReader returns a Reader that abandons a pending Read as soon as sig
// reports its first interrupt.
func NewReader(r io.ReadCloser, sig *Signals) *Reader {
	return &Reader{r: r, signals: sig}
}

// Read implements io.Reader. It returns ErrInterrupted (wrapping the
// underlying Close error, if any) the moment sig's first interrupt
// fires, even if the underlying Read is still blocked in the kernel.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	var n int
	var err error
	done := make(chan struct{})
	buf := make([]byte, len(p), cap(p))
	go func() {
		n, err = r.r.Read(buf)
		close(done)
	}()

	select {
	case <-done:
		copy(p, buf[:n])
		return n, err
	case <-r.signals.Drain():
		if closeErr := r.Close(); closeErr != nil {
			return 0, fmt.Errorf("close after interrupt: %v (was %w)", closeErr, ErrInterrupted)
		}
		return 0, ErrInterrupted
	}
}

// Close implements io.Closer.
func (r *Reader) Close() error {
	r.closed = true
	if err := r.r.Close(); err != nil {
		return fmt.Errorf("close underlying reader: %w", err)
	}
	return nil
}
