// Package pipeline implements the streaming pipeline (spec §4.7 / C7):
// a single reader running the segmenter, a pool of workers parsing and
// formatting blocks in parallel, and a single writer that restores
// record order before handing bytes to the sink.
package pipeline

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cortexlog/hl/internal/format"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/query"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/segment"
	"github.com/cortexlog/hl/internal/style"
)

// Sink is the narrow interface the writer stage needs; internal/sink.Writer
// satisfies it.
type Sink interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Config configures a Pipeline run.
type Config struct {
	Workers        int // W; defaults to runtime.NumCPU via cmd/hl
	QueueDepth     int // bounded queue depth for both work and completion queues
	Aliases        *record.AliasTable
	Levels         *level.Table
	TimeConfig     record.TimeConfig
	AllowPrefix    bool
	Query          query.Expr
	JQ             *query.JQStage
	Formatter      *format.Formatter
	ColorEnabled   bool
	InputIndicator string

	// BeforeContext/AfterContext configure grep-style context-line
	// printing around each record that survives Query/JQ (documented
	// extension beyond spec.md's C5 grammar; see ContextTracker).
	BeforeContext int
	AfterContext  int
}

// block is a unit of reader output tagged with its sequence number.
type block struct {
	seq  uint64
	data []byte
}

// recordOut is one formatted record within a block, tagged with whether
// it survived Query/JQ (spec's filter stage) so the writer's
// ContextTracker can still surface it as context around a selected
// neighbor.
type recordOut struct {
	bytes    []byte
	selected bool
}

// result is a unit of worker output: every successfully formatted record
// in the block, in the same sequence space as the blocks.
type result struct {
	seq     uint64
	records []recordOut
	err     error
}

// Pipeline runs the reader/worker/writer topology over one source's
// segmenter, emitting ordered output to sink.
type Pipeline struct {
	cfg Config
	seg *segment.Segmenter
	sink Sink

	cancel chan struct{}
	once   sync.Once

	bufPool sync.Pool // []byte scratch buffers, spec: "pool of 2W+2 block buffers"

	malformedCount uint64

	// ctxTracker is consulted only by the single writer goroutine
	// (writeInOrder), which processes records in strict sequence order,
	// so it needs no synchronization of its own.
	ctxTracker ContextTracker
}

// New constructs a Pipeline reading blocks from seg and writing formatted
// output to sink.
func New(seg *segment.Segmenter, sink Sink, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 2*cfg.Workers + 2
	}
	p := &Pipeline{cfg: cfg, seg: seg, sink: sink, cancel: make(chan struct{})}
	p.bufPool.New = func() interface{} { return make([]byte, 0, 4096) }
	p.ctxTracker.Before = cfg.BeforeContext
	p.ctxTracker.After = cfg.AfterContext
	return p
}

// Cancel requests the pipeline stop reading new blocks and drain (spec
// §4.7 "on first SIGINT the pipeline begins draining"). Safe to call more
// than once and from any goroutine.
func (p *Pipeline) Cancel() {
	p.once.Do(func() { close(p.cancel) })
}

func (p *Pipeline) cancelled() bool {
	select {
	case <-p.cancel:
		return true
	default:
		return false
	}
}

// Run drives the pipeline to completion (EOF on the source, or
// cancellation), flushing the sink before returning. It returns the
// first error encountered, if any, after an orderly drain.
func (p *Pipeline) Run(ctx context.Context) error {
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go func() {
		select {
		case <-ctx.Done():
			p.Cancel()
		case <-stopWatch:
		}
	}()

	workQueue := make(chan block, p.cfg.QueueDepth)
	completionQueue := make(chan result, p.cfg.QueueDepth)

	var wg sync.WaitGroup
	wg.Add(p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			p.worker(workQueue, completionQueue)
		}()
	}

	var readErr error
	go func() {
		readErr = p.readBlocks(workQueue)
		close(workQueue)
	}()

	go func() {
		wg.Wait()
		close(completionQueue)
	}()

	writeErr := p.writeInOrder(completionQueue)
	if err := p.sink.Flush(); err != nil && writeErr == nil {
		writeErr = err
	}
	if readErr != nil {
		return readErr
	}
	return writeErr
}

// readBlocks is the single reader thread: it pulls record-aligned blocks
// from the segmenter and pushes them onto the bounded work queue,
// polling the cancel flag at each block boundary (spec §4.7).
func (p *Pipeline) readBlocks(workQueue chan<- block) error {
	for {
		if p.cancelled() {
			return nil
		}
		b, err := p.seg.NextBlock()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("pipeline: reading block: %w", err)
		}
		workQueue <- block{seq: b.Seq, data: append(p.getBuf()[:0], b.Bytes...)}
	}
}

func (p *Pipeline) getBuf() []byte {
	return p.bufPool.Get().([]byte)
}

func (p *Pipeline) putBuf(b []byte) {
	p.bufPool.Put(b[:0]) //nolint:staticcheck // pool reuse, not a leak
}

// worker parses and formats one block at a time (spec §4.7 "a pool of W
// workers"), returning block buffers to the pool once consumed and
// drawing output buffers from a separate pool via the style.Composer.
func (p *Pipeline) worker(workQueue <-chan block, completionQueue chan<- result) {
	composer := style.NewComposer(p.cfg.ColorEnabled)
	state := format.NewState()
	ev := &query.Evaluator{Levels: p.cfg.Levels}

	for b := range workQueue {
		records, err := p.formatBlock(b.data, composer, state, ev)
		p.putBuf(b.data)
		completionQueue <- result{seq: b.seq, records: records, err: err}
	}
}

// formatBlock formats every record in data, a segmenter block that may
// hold several newline-delimited records batched together for
// throughput (spec §4.2's Block is a batching unit, not a one-record
// unit). A malformed individual record (spec §7 MalformedRecord) is
// counted and skipped rather than failing the whole block: one bad line
// must not discard its well-formed neighbors. Only a Formatter failure,
// which indicates an internal bug rather than bad input, aborts the
// block and is returned as an error.
//
// Every parseable record is formatted regardless of whether it survives
// Query/JQ: the result is tagged with its selected state instead of
// being dropped outright, so the writer's ContextTracker can still print
// it as context around a selected neighbor (-A/-B/-C).
func (p *Pipeline) formatBlock(data []byte, composer *style.Composer, state *format.State, ev *query.Evaluator) ([]recordOut, error) {
	var out []recordOut
	for _, line := range splitRecords(data) {
		if len(line) == 0 {
			continue
		}
		r, err := record.Scan(line, p.cfg.AllowPrefix, p.cfg.Aliases, p.cfg.Levels, p.cfg.TimeConfig)
		if err != nil {
			p.countMalformed()
			continue
		}
		selected := true
		if p.cfg.Query != nil && !ev.Eval(p.cfg.Query, r) {
			selected = false
		}
		if selected && p.cfg.JQ != nil {
			jqRes, err := p.cfg.JQ.Run(r, p.cfg.Levels)
			if err != nil {
				p.countMalformed()
				continue
			}
			if jqRes.Filtered {
				selected = false
			}
		}
		composer.Reset()
		if err := p.cfg.Formatter.Format(composer, r, p.cfg.InputIndicator, state); err != nil {
			return out, fmt.Errorf("pipeline: formatting record: %w", err)
		}
		out = append(out, recordOut{bytes: append([]byte(nil), composer.String()...), selected: selected})
	}
	return out, nil
}

func (p *Pipeline) countMalformed() {
	atomic.AddUint64(&p.malformedCount, 1)
}

// MalformedCount returns the number of records skipped for failing to
// parse or filter, across the whole run so far (spec §7 MalformedRecord:
// reported as a summary count rather than aborting the stream).
func (p *Pipeline) MalformedCount() uint64 {
	return atomic.LoadUint64(&p.malformedCount)
}

// splitRecords divides a (possibly multi-record) block into its
// constituent newline- or NUL-delimited records. Other delimiter modes
// reduce to one record per block by construction, so this only needs to
// handle the common line-oriented case.
func splitRecords(buf []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, c := range buf {
		if c == '\n' || c == 0 {
			lines = append(lines, buf[start:i])
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, buf[start:])
	}
	return lines
}

// writeInOrder is the single writer thread: it buffers completed results
// in a min-heap keyed by sequence number and emits only the result whose
// sequence equals next_expected, then advances (spec §4.7).
func (p *Pipeline) writeInOrder(completionQueue <-chan result) error {
	h := &resultHeap{}
	heap.Init(h)
	var nextExpected uint64
	var firstErr error

	for r := range completionQueue {
		heap.Push(h, r)
		for h.Len() > 0 && (*h)[0].seq == nextExpected {
			next := heap.Pop(h).(result)
			nextExpected++
			if next.err != nil {
				if firstErr == nil {
					firstErr = next.err
				}
				continue
			}
			for _, rec := range next.records {
				for _, chunk := range p.ctxTracker.Next(rec.bytes, rec.selected) {
					if _, err := p.sink.Write(chunk); err != nil && firstErr == nil {
						firstErr = fmt.Errorf("pipeline: writing to sink: %w", err)
					}
				}
			}
		}
	}
	return firstErr
}

// resultHeap is a container/heap.Interface over pending results, ordered
// by sequence number.
type resultHeap []result

func (h resultHeap) Len() int            { return len(h) }
func (h resultHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h resultHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *resultHeap) Push(x interface{}) { *h = append(*h, x.(result)) }
func (h *resultHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
