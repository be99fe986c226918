// Package merge implements the sorted/merge engine (spec §4.9 / C9):
// chronologically merged output across N sources with segment pruning
// and filter push-down. The follow-mode tick loop (spec §4.10 / C10) in
// internal/follow is built on the same merge structure.
package merge

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/cortexlog/hl/internal/index"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/query"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/segment"
)

// randomAccess is the minimal seeking contract a source must satisfy for
// the merge engine to jump straight to a candidate segment's byte range
// instead of rescanning from the start. *source.File and *source.Memory
// both implement it.
type randomAccess interface {
	ReadAt(p []byte, off int64) (int, error)
}

// Input is one source fed into the merge engine, paired with its loaded
// index.
type Input struct {
	Name    string
	Src     randomAccess
	Index   *index.File
	Segment segment.Config
	Aliases *record.AliasTable
	Levels  *level.Table
	TimeCfg record.TimeConfig

	AllowPrefix bool
}

// Window bounds a merge run by time and level (spec §4.9 "a Level floor,
// a [since, until] time window").
type Window struct {
	SinceNs int64
	UntilNs int64
	Levels  level.Mask // zero means no level filtering
}

// Record is one merged, filtered record ready for formatting, alongside
// the source it came from (needed by the formatter's source indicator).
type Record struct {
	SourceName string
	Rec        *record.Record
	TimeNs     int64
}

// mergeItem is the heap element: (timestamp, source-index, within-source
// sequence), the exact tie-break spec §4.9 specifies ("smaller source
// index first, then smaller within-source sequence").
type mergeItem struct {
	ts        int64
	sourceIdx int
	seq       uint64
	rec       *record.Record
}

type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].ts != h[j].ts {
		return h[i].ts < h[j].ts
	}
	if h[i].sourceIdx != h[j].sourceIdx {
		return h[i].sourceIdx < h[j].sourceIdx
	}
	return h[i].seq < h[j].seq
}
func (h mergeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(mergeItem)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Engine drives the k-way merge across a fixed set of Inputs (spec
// §4.9). The follow loop in internal/follow builds a fresh Engine on
// every tick.
type Engine struct {
	inputs []Input
	query  query.Expr

	cancel uint32 // atomic flag, spec §5 "a single atomic cancel flag polled at ... each k-way merge pop"
}

// New builds an Engine over inputs, applying q (may be nil) as the
// post-merge filter.
func New(inputs []Input, q query.Expr) *Engine {
	return &Engine{inputs: inputs, query: q}
}

// Cancel requests the merge stop at its next heap pop (spec §5).
func (e *Engine) Cancel() { atomic.StoreUint32(&e.cancel, 1) }

func (e *Engine) cancelled() bool { return atomic.LoadUint32(&e.cancel) != 0 }

// Sink is the narrow interface the merge writer needs.
type Sink interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Emit is called once per merged, filtered record in non-decreasing
// timestamp order (spec §4.9 step 4 "apply the query and level/time
// floors ... format, and write to the sink").
type Emit func(Record) error

// Run executes one full pass over all inputs within win, calling emit
// for every record that survives pruning, the time/level floor
// re-check, and the query filter, in k-way-merged order (spec §4.9).
func (e *Engine) Run(ctx context.Context, win Window, emit Emit) error {
	iters := make([]*sourceIterator, len(e.inputs))
	for i, in := range e.inputs {
		it, err := newSourceIterator(i, in, win)
		if err != nil {
			return fmt.Errorf("merge: opening source %q: %w", in.Name, err)
		}
		iters[i] = it
	}
	defer func() {
		for _, it := range iters {
			it.close()
		}
	}()

	h := &mergeHeap{}
	heap.Init(h)
	for _, it := range iters {
		if item, ok := it.next(); ok {
			heap.Push(h, item)
		}
	}

	var ev query.Evaluator
	if len(e.inputs) > 0 {
		ev.Levels = e.inputs[0].Levels
	}

	for h.Len() > 0 {
		if e.cancelled() || ctx.Err() != nil {
			return nil
		}
		item := heap.Pop(h).(mergeItem)
		it := iters[item.sourceIdx]
		if next, ok := it.next(); ok {
			heap.Push(h, next)
		}

		if !recordPassesWindow(item.rec, item.ts, win) {
			continue
		}
		if e.query != nil && !ev.Eval(e.query, item.rec) {
			continue
		}
		if err := emit(Record{SourceName: e.inputs[item.sourceIdx].Name, Rec: item.rec, TimeNs: item.ts}); err != nil {
			return err
		}
	}
	return nil
}

// recordPassesWindow re-checks the time/level floor at the record level
// (spec §4.9 step 4: "records at segment boundaries must be re-checked").
func recordPassesWindow(r *record.Record, ts int64, win Window) bool {
	if win.UntilNs != 0 && ts > win.UntilNs {
		return false
	}
	if ts < win.SinceNs {
		return false
	}
	if win.Levels != 0 {
		lvl, ok := r.Level()
		if !ok || !win.Levels.Has(lvl) {
			return false
		}
	}
	return true
}

// sourceIterator yields records from one source's candidate segments, in
// byte order across segments and file order within a segment (spec §4.9
// step 2), tagging each with an increasing within-source sequence number.
type sourceIterator struct {
	sourceIdx int
	in        Input
	segments  []int // candidate segment indices, ascending by offset
	nextSeg   int
	seq       uint64

	cur    *segment.Segmenter
	pend   [][]byte
	pendAt int
}

func newSourceIterator(sourceIdx int, in Input, win Window) (*sourceIterator, error) {
	it := &sourceIterator{sourceIdx: sourceIdx, in: in}
	if in.Index != nil {
		candidates := in.Index.CandidateSegments(win.SinceNs, windowUntilOrMax(win), win.Levels)
		sort.Ints(candidates)
		it.segments = candidates
	} else {
		// No index: fall back to treating the whole source as one
		// candidate "segment" spanning the entire file.
		it.segments = []int{-1}
	}
	if err := it.openNextSegment(); err != nil && err != io.EOF {
		return nil, err
	}
	return it, nil
}

func windowUntilOrMax(win Window) int64 {
	if win.UntilNs == 0 {
		return 1<<63 - 1
	}
	return win.UntilNs
}

func (it *sourceIterator) openNextSegment() error {
	for it.nextSeg < len(it.segments) {
		segIdx := it.segments[it.nextSeg]
		it.nextSeg++

		var offset, length int64
		if segIdx < 0 {
			offset, length = 0, 1<<62
		} else {
			d := it.in.Index.Entries[segIdx]
			offset = int64(d.ByteOffset)
			length = int64(d.ByteLength)
		}
		sr := io.NewSectionReader(readerAt(it.in.Src), offset, length)
		src := &sectionSource{r: sr, name: it.in.Name}
		seg, err := segment.New(src, it.in.Segment)
		if err != nil {
			return err
		}
		seg.SetBase(offset)
		it.cur = seg
		return nil
	}
	it.cur = nil
	return io.EOF
}

// next returns the next record from this source as a mergeItem, skipping
// unparsable lines and lines without a timestamp (spec §4.9 step 2:
// "records without timestamps are discarded in sorted mode"). Returns
// false once every candidate segment is exhausted.
func (it *sourceIterator) next() (mergeItem, bool) {
	for {
		for it.pendAt < len(it.pend) {
			line := it.pend[it.pendAt]
			it.pendAt++
			if item, ok := it.recordFrom(line); ok {
				return item, true
			}
		}
		if it.cur == nil {
			return mergeItem{}, false
		}
		b, err := it.cur.NextBlock()
		if err != nil {
			var oversized *segment.OversizedRecordError
			if errors.As(err, &oversized) {
				// The segmenter already resynchronized past the
				// oversized record; retry on the same segment.
				continue
			}
			if openErr := it.openNextSegment(); openErr != nil {
				it.cur = nil
				return mergeItem{}, false
			}
			continue
		}
		it.pend = splitRecords(b.Bytes)
		it.pendAt = 0
	}
}

// recordFrom scans one record line, returning false if it's unparsable
// or has no timestamp.
func (it *sourceIterator) recordFrom(line []byte) (mergeItem, bool) {
	if len(line) == 0 {
		return mergeItem{}, false
	}
	r, err := record.Scan(line, it.in.AllowPrefix, it.in.Aliases, it.in.Levels, it.in.TimeCfg)
	if err != nil {
		return mergeItem{}, false
	}
	ts, ok := r.Time()
	if !ok {
		return mergeItem{}, false
	}
	seq := it.seq
	it.seq++
	return mergeItem{ts: ts.UnixNano(), sourceIdx: it.sourceIdx, seq: seq, rec: r}, true
}

func (it *sourceIterator) close() {}

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

// sectionSource adapts an io.SectionReader as a segment.Source.
type sectionSource struct {
	r    *io.SectionReader
	name string
}

func (s *sectionSource) Read(p []byte) (int, error) { return s.r.Read(p) }
func (s *sectionSource) Close() error                { return nil }
func (s *sectionSource) Name() string                { return s.name }
func (s *sectionSource) Len() (int64, bool) {
	return s.r.Size(), true
}

// readerAt adapts the merge package's narrow randomAccess contract to
// io.ReaderAt for io.NewSectionReader's sake; the method sets coincide.
func readerAt(r randomAccess) io.ReaderAt {
	return ioReaderAtFunc(r.ReadAt)
}

type ioReaderAtFunc func(p []byte, off int64) (int, error)

func (f ioReaderAtFunc) ReadAt(p []byte, off int64) (int, error) { return f(p, off) }
