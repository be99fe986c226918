// Package interruptible adapts the teacher's pkg/interruptible.Reader to
// the escalating-SIGINT policy of spec §4.7/§5: the first interrupt asks
// the pipeline to drain and flush; after a configurable count of further
// interrupts, the process exits immediately.
package interruptible

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// ErrInterrupted reports that a blocking operation was aborted by an
// interrupt signal (spec §7 Interrupted).
var ErrInterrupted = errors.New("interrupted")

// Signals is the escalating-interrupt tracker for one run (spec §4.7:
// "On first SIGINT the pipeline begins draining... After N interrupts
// the process exits immediately"). The zero value is not usable; use
// NewSignals.
type Signals struct {
	ch       chan os.Signal
	count    int32
	hardExit int32 // interrupt count at which run exits the process with status 130

	drain    chan struct{}
	drainOne sync.Once
}

// NewSignals starts watching sigs (typically os.Interrupt) and returns a
// Signals tracker. hardExitAfter is N from spec §4.7 (default 3).
func NewSignals(hardExitAfter int, sigs ...os.Signal) *Signals {
	if hardExitAfter <= 0 {
		hardExitAfter = 3
	}
	s := &Signals{
		ch:       make(chan os.Signal, hardExitAfter+1),
		hardExit: int32(hardExitAfter),
		drain:    make(chan struct{}),
	}
	signal.Notify(s.ch, sigs...)
	go s.run()
	return s
}

func (s *Signals) run() {
	for range s.ch {
		n := atomic.AddInt32(&s.count, 1)
		if n == 1 {
			s.drainOne.Do(func() { close(s.drain) })
		}
		if n >= s.hardExit {
			os.Exit(130)
		}
	}
}

// Drain returns a channel that closes on the first interrupt, signaling
// "stop reading new blocks, flush, and exit 130 once drained" (spec §4.7,
// §7's Interrupted row).
func (s *Signals) Drain() <-chan struct{} { return s.drain }

// Count reports how many interrupts have been observed so far.
func (s *Signals) Count() int { return int(atomic.LoadInt32(&s.count)) }

// Stop stops watching for signals. Safe to call once at shutdown.
func (s *Signals) Stop() { signal.Stop(s.ch) }
