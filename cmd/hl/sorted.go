package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cortexlog/hl/internal/config"
	"github.com/cortexlog/hl/internal/follow"
	"github.com/cortexlog/hl/internal/format"
	"github.com/cortexlog/hl/internal/index"
	"github.com/cortexlog/hl/internal/interruptible"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/merge"
	"github.com/cortexlog/hl/internal/pipeline"
	"github.com/cortexlog/hl/internal/source"
	"github.com/cortexlog/hl/internal/style"
)

// buildMergeInputs opens every configured source for random access and
// builds/loads its segment index, the prerequisite for both sorted and
// follow mode (spec §4.8, §4.9: the merge engine always reads through an
// Input.Index).
func buildMergeInputs(r *config.Resolved, buildCfg index.BuildConfig) ([]merge.Input, []*source.File, error) {
	var inputs []merge.Input
	var files []*source.File
	for _, path := range r.Inputs {
		if path == "-" || path == "" {
			return nil, nil, config.New(config.KindUsage, "stdin is not a random-access source; --sort/--follow require file inputs")
		}
		f, err := source.OpenFile(path)
		if err != nil {
			return nil, nil, config.Wrap(config.KindSourceIO, "opening "+path, err)
		}
		files = append(files, f)

		idx, err := ensureIndex(path, f, r)
		if err != nil {
			return nil, nil, config.Wrap(config.KindIndexCorrupt, "building index for "+path, err)
		}
		inputs = append(inputs, merge.Input{
			Name:        path,
			Src:         f,
			Index:       idx,
			Segment:     buildCfg.Segment,
			Aliases:     buildCfg.Aliases,
			Levels:      buildCfg.Levels,
			TimeCfg:     buildCfg.TimeCfg,
			AllowPrefix: buildCfg.AllowPrefix,
		})
	}
	return inputs, files, nil
}

func windowFrom(r *config.Resolved) merge.Window {
	win := merge.Window{}
	if r.Since.Valid() {
		win.SinceNs = r.Since.UnixNano()
	}
	if r.Until.Valid() {
		win.UntilNs = r.Until.UnixNano()
	}
	if r.MinLevel != level.Unknown {
		win.Levels = level.Floor(r.MinLevel)
	}
	return win
}

// runSorted implements --sort (spec §4.9 / C9): one merge pass across all
// inputs in timestamp order.
func runSorted(ctx context.Context, rt *runtime, r *config.Resolved, sink pipeline.Sink, sig *interruptible.Signals) (uint64, error) {
	buildCfg := buildConfigFor(r)
	inputs, files, err := buildMergeInputs(r, buildCfg)
	defer closeAll(files)
	if err != nil {
		return 0, err
	}
	defer closeIndexes(inputs)

	eng := merge.New(inputs, rt.query)
	go func() {
		select {
		case <-sig.Drain():
			eng.Cancel()
		case <-ctx.Done():
		}
	}()

	st := format.NewState()
	var malformed uint64
	err = eng.Run(ctx, windowFrom(r), func(rec merge.Record) error {
		return emitMerged(rt, sink, st, rec, len(r.Inputs) > 1)
	})
	if err != nil {
		return malformed, fmt.Errorf("sorted run: %w", err)
	}
	return malformed, sink.Flush()
}

// runFollow implements --follow (spec §4.10 / C10) as the follow
// engine's tick loop. There is no tail pre-load: the first tick emits
// the sources' records within the window, and --tail is not applied.
func runFollow(ctx context.Context, rt *runtime, r *config.Resolved, sink pipeline.Sink, sig *interruptible.Signals) (uint64, error) {
	buildCfg := buildConfigFor(r)
	inputs, files, err := buildMergeInputs(r, buildCfg)
	defer closeAll(files)
	if err != nil {
		return 0, err
	}
	defer closeIndexes(inputs)

	tracked := make([]*follow.TrackedSource, len(inputs))
	var watchPaths []string
	for i, in := range inputs {
		id := identityFor(in.Name, files[i], buildCfg)
		tracked[i] = &follow.TrackedSource{
			Input:     in,
			File:      files[i],
			IndexPath: index.PathFor(mustCacheDir(), id),
			Identity:  id,
			BuildCfg:  buildCfg,
		}
		watchPaths = append(watchPaths, in.Name)
	}

	eng := follow.New(tracked, time.Duration(r.SyncIntervalMs)*time.Millisecond, watchPaths)
	defer eng.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-sig.Drain()
		cancel()
	}()

	st := format.NewState()
	err = eng.Run(ctx, windowFrom(r), func(rec merge.Record) error {
		return emitMerged(rt, sink, st, rec, len(r.Inputs) > 1)
	})
	if err != nil {
		return 0, fmt.Errorf("follow run: %w", err)
	}
	return 0, sink.Flush()
}

func emitMerged(rt *runtime, sink pipeline.Sink, st *format.State, rec merge.Record, showIndicator bool) error {
	c := style.NewComposer(rt.colorEnabled)
	indicator := ""
	if showIndicator {
		indicator = rec.SourceName
	}
	if err := rt.formatter.Format(c, rec.Rec, indicator, st); err != nil {
		return err
	}
	_, err := sink.Write([]byte(c.String()))
	return err
}

func closeAll(files []*source.File) {
	for _, f := range files {
		f.Close()
	}
}

func closeIndexes(inputs []merge.Input) {
	for _, in := range inputs {
		if in.Index != nil {
			in.Index.Close()
		}
	}
}

func mustCacheDir() string {
	dir, err := cacheDir()
	if err != nil {
		return ""
	}
	return dir
}
