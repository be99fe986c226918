// Package follow implements the follow engine (spec §4.10 / C10): the
// same merge structure as the sorted engine, run in a loop at
// sync_interval_ms granularity, watching sources for growth or rotation.
package follow

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cortexlog/hl/internal/index"
	"github.com/cortexlog/hl/internal/merge"
	"github.com/cortexlog/hl/internal/source"
)

// TrackedSource pairs a merge.Input with the growable/watchable source it
// reads from and the path its index lives at, so a tick can refresh,
// reopen, and re-extend it.
type TrackedSource struct {
	Input     merge.Input
	File      *source.File // nil for non-growable sources (e.g. stdin), which never rotate
	IndexPath string
	Identity  index.Identity
	BuildCfg  index.BuildConfig

	// watermark is the last-emitted within-source timestamp+sequence,
	// expressed as the byte offset through which records have already
	// been emitted (spec §4.10 step 3: "per-source last-emitted
	// position").
	watermark int64
}

// Engine runs the tick loop described in spec §4.10.
type Engine struct {
	sources      []*TrackedSource
	syncInterval time.Duration
	watcher      *fsnotify.Watcher
}

// New builds a follow Engine. watchPaths are the filesystem paths to
// watch for growth/rotation (typically one per TrackedSource with a
// non-nil File); a failure to create the fsnotify watcher is not fatal,
// the engine just relies on the sync_interval_ms poll fallback.
func New(sources []*TrackedSource, syncInterval time.Duration, watchPaths []string) *Engine {
	e := &Engine{sources: sources, syncInterval: syncInterval}
	w, err := fsnotify.NewWatcher()
	if err == nil {
		for _, p := range watchPaths {
			_ = w.Add(p) // best-effort: a failed Add just means that path relies on the poll fallback
		}
		e.watcher = w
	}
	return e
}

// Close releases the fsnotify watcher, if one was created.
func (e *Engine) Close() error {
	if e.watcher == nil {
		return nil
	}
	return e.watcher.Close()
}

// Run loops until ctx is cancelled, ticking at syncInterval (or sooner,
// on an fsnotify event) and calling emit for every newly available
// merged record (spec §4.10: "1. Refresh sizes... 2. Extend each
// source's index... 3. Re-merge starting from a watermark").
func (e *Engine) Run(ctx context.Context, win merge.Window, emit merge.Emit) error {
	ticker := time.NewTicker(e.syncInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if e.watcher != nil {
		events = e.watcher.Events
		errs = e.watcher.Errors
	}

	for {
		if err := e.tick(ctx, win, emit); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				events = nil
			}
			// Any event (write, rename, create) is a cue to tick again
			// immediately; the tick itself figures out what changed.
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
			// A watcher error just means this tick falls back to the
			// sync_interval_ms poll; it is not fatal to following.
		}
	}
}

// tick runs one iteration: refresh sizes, reopen rotated sources, extend
// indexes, and re-merge from each source's watermark.
func (e *Engine) tick(ctx context.Context, win merge.Window, emit merge.Emit) error {
	for _, ts := range e.sources {
		if err := e.refreshOne(ts); err != nil {
			return fmt.Errorf("follow: refreshing %q: %w", ts.Input.Name, err)
		}
	}

	eng := merge.New(inputsOf(e.sources), nil)
	return eng.Run(ctx, win, func(r merge.Record) error {
		if r.TimeNs <= watermarkOf(e.sources, r.SourceName) {
			return nil
		}
		advanceWatermark(e.sources, r.SourceName, r.TimeNs)
		return emit(r)
	})
}

// refreshOne implements spec §4.10 step 1-2 for a single source: detect
// shrinkage (rotation) and reopen from scratch, or extend the index over
// newly arrived bytes.
func (e *Engine) refreshOne(ts *TrackedSource) error {
	if ts.File == nil {
		return nil // stdin or another non-growable source: nothing to refresh
	}
	grew, shrank, err := ts.File.Refresh()
	if err != nil {
		return err
	}
	if shrank {
		// Likely rotation under the same name: reindex from scratch
		// (spec §4.10 step 1).
		ts.watermark = 0
		if err := index.Build(ts.IndexPath, ts.Identity, ts.File, ts.BuildCfg); err != nil {
			return err
		}
		return ts.reloadIndex()
	}
	if !grew {
		return nil
	}
	res := index.Refresh(ts.IndexPath, ts.File, ts.File.ModTimeNano())
	switch res.Action {
	case index.RefreshReuse:
		return nil
	case index.RefreshExtend:
		if err := index.BuildExtend(ts.IndexPath, ts.Identity, ts.File, res.ResumeOffset, res.RetainedSegments, ts.BuildCfg); err != nil {
			return err
		}
	default:
		if err := index.Build(ts.IndexPath, ts.Identity, ts.File, ts.BuildCfg); err != nil {
			return err
		}
	}
	return ts.reloadIndex()
}

// reloadIndex loads the index just written to IndexPath and swaps it
// into Input.Index, closing the stale one. The merge engine always reads
// through Input.Index, so a rebuilt/extended index on disk is invisible
// until this runs.
func (ts *TrackedSource) reloadIndex() error {
	fresh, err := index.Load(ts.IndexPath)
	if err != nil {
		return err
	}
	stale := ts.Input.Index
	ts.Input.Index = fresh
	if stale != nil {
		stale.Close()
	}
	return nil
}

func inputsOf(sources []*TrackedSource) []merge.Input {
	out := make([]merge.Input, len(sources))
	for i, ts := range sources {
		out[i] = ts.Input
	}
	return out
}

func watermarkOf(sources []*TrackedSource, name string) int64 {
	for _, ts := range sources {
		if ts.Input.Name == name {
			return ts.watermark
		}
	}
	return 0
}

func advanceWatermark(sources []*TrackedSource, name string, ts int64) {
	for _, s := range sources {
		if s.Input.Name == name {
			s.watermark = ts
			return
		}
	}
}
