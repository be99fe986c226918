package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cortexlog/hl/internal/config"
	"github.com/cortexlog/hl/internal/interruptible"
	"github.com/cortexlog/hl/internal/pipeline"
	"github.com/cortexlog/hl/internal/segment"
	"github.com/cortexlog/hl/internal/source"
)

// runStreaming is the default mode (spec §4.7 / C7): each input is read
// and formatted in arrival order, one after another, with no
// cross-source merge. Multiple inputs are processed sequentially against
// the same sink and an input indicator distinguishes their lines once
// there is more than one (spec §4.1's "multiple inputs").
func runStreaming(ctx context.Context, rt *runtime, r *config.Resolved, sink pipeline.Sink, sig *interruptible.Signals) (uint64, error) {
	var malformed uint64
	showIndicator := len(r.Inputs) > 1

	for _, path := range r.Inputs {
		src, closeSrc, err := openInput(path, sig)
		if err != nil {
			return malformed, config.Wrap(config.KindSourceIO, "opening "+path, err)
		}

		delim, custom := r.SegmentDelimiter()
		seg, err := segment.New(src, segment.Config{
			Delimiter:      delim,
			CustomDelim:    custom,
			BufferSize:     intOr(r.BufferSize, 256*1024),
			MaxMessageSize: intOr(r.MaxMessageSize, 1024*1024),
		})
		if err != nil {
			closeSrc()
			return malformed, config.Wrap(config.KindConfig, "building segmenter for "+path, err)
		}

		indicator := ""
		if showIndicator {
			indicator = path
		}

		p := pipeline.New(seg, sink, pipeline.Config{
			Workers:        workerCount(r.Concurrency),
			Aliases:        rt.aliases,
			Levels:         rt.levels,
			TimeConfig:     rt.timeCfg,
			AllowPrefix:    r.AllowPrefix,
			Query:          rt.query,
			JQ:             rt.jq,
			Formatter:      rt.formatter,
			ColorEnabled:   rt.colorEnabled,
			InputIndicator: indicator,
			BeforeContext:  r.BeforeContext,
			AfterContext:   r.AfterContext,
		})

		go func() {
			select {
			case <-sig.Drain():
				p.Cancel()
			case <-ctx.Done():
			}
		}()

		if err := p.Run(ctx); err != nil {
			closeSrc()
			return malformed + p.MalformedCount(), fmt.Errorf("streaming %s: %w", path, err)
		}
		malformed += p.MalformedCount()
		closeSrc()
	}
	return malformed, nil
}

func intOr(v int64, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return int(v)
}

func workerCount(n int) int {
	if n > 0 {
		return n
	}
	return defaultWorkers()
}

// openInput opens path ("-" for stdin) as a source.Source, wrapping
// stdin in an interruptible.Reader so an escalating SIGINT unblocks a
// hung read (spec §4.1/§4.7's interrupt handling).
func openInput(path string, sig *interruptible.Signals) (source.Source, func(), error) {
	if path == "-" || path == "" {
		rc := interruptible.NewReader(os.Stdin, sig)
		s := source.NewStdin(rc)
		return s, func() { s.Close() }, nil
	}
	f, err := source.OpenFile(path)
	if err != nil {
		return nil, func() {}, err
	}
	return f, func() { f.Close() }, nil
}
