package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/cortexlog/hl/internal/config"
	"github.com/cortexlog/hl/internal/index"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/segment"
	"github.com/cortexlog/hl/internal/source"
)

// cacheDir is the on-disk location for built segment indexes (spec §6's
// index files), kept out of the CLI surface for now: a per-source,
// per-identity-hashed filename already makes collisions between distinct
// sources/configurations a content-addressing non-issue.
func cacheDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "hl-index")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// seedFrom folds the configuration knobs that affect record
// interpretation into the index identity hash (spec §6
// "index-seed-from-config"), so a stale index built under a different
// delimiter, input format, prefix policy, or unix timestamp unit is
// detected as a miss.
func seedFrom(r *config.Resolved) uint64 {
	h := xxhash.New()
	h.WriteString(r.Delimiter)
	h.WriteString(r.InputFormat)
	if r.AllowPrefix {
		h.WriteString("prefix")
	}
	fmt.Fprintf(h, "%d", r.UnixTimeUnit.UnixUnit)
	return h.Sum64()
}

func buildConfigFor(r *config.Resolved) index.BuildConfig {
	delim, custom := r.SegmentDelimiter()
	bufSize := int(r.BufferSize)
	if bufSize <= 0 {
		bufSize = 256 * 1024
	}
	maxMsg := int(r.MaxMessageSize)
	if maxMsg <= 0 {
		maxMsg = 1024 * 1024
	}
	return index.BuildConfig{
		Segment: segment.Config{
			Delimiter:      delim,
			CustomDelim:    custom,
			BufferSize:     bufSize,
			MaxMessageSize: maxMsg,
		},
		Aliases:     record.DefaultAliasTable(),
		Levels:      level.DefaultTable(),
		TimeCfg:     r.UnixTimeUnit,
		AllowPrefix: r.AllowPrefix,
		Seed:        seedFrom(r),
	}
}

// identityFor builds the index identity for path/src under buildCfg's
// seed, the single place both the one-shot (ensureIndex) and follow-mode
// (runFollow) callers derive it from so they can never drift apart.
func identityFor(path string, src *source.File, buildCfg index.BuildConfig) index.Identity {
	size, _ := src.Len()
	return index.Identity{
		SourcePath: path,
		FileSize:   size,
		MtimeNanos: src.ModTimeNano(),
		Seed:       buildCfg.Seed,
	}
}

// ensureIndex builds a fresh index, extends an existing one, or reuses
// one already valid for src, then loads and returns it (spec §4.8's
// incremental-refresh protocol, reused here for the one-shot sorted-mode
// and --dump-index paths rather than only the follow tick loop).
func ensureIndex(path string, src *source.File, r *config.Resolved) (*index.File, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	buildCfg := buildConfigFor(r)
	id := identityFor(path, src, buildCfg)
	idxPath := index.PathFor(dir, id)

	if _, err := os.Stat(idxPath); err == nil {
		switch res := index.Refresh(idxPath, src, src.ModTimeNano()); res.Action {
		case index.RefreshReuse:
			return index.Load(idxPath)
		case index.RefreshExtend:
			if err := index.BuildExtend(idxPath, id, src, res.ResumeOffset, res.RetainedSegments, buildCfg); err != nil {
				return nil, err
			}
			return index.Load(idxPath)
		}
	}
	if err := index.Build(idxPath, id, src, buildCfg); err != nil {
		return nil, err
	}
	return index.Load(idxPath)
}
