package main

import (
	"fmt"
	"io"

	"github.com/cortexlog/hl/internal/config"
	"github.com/cortexlog/hl/internal/index"
	"github.com/cortexlog/hl/internal/source"
)

// runDumpIndex implements --dump-index: build (or reuse) each input's
// segment index and print its header and descriptor table as plain
// key=value text (index.File.Dump: one header line, then one line per
// segment) instead of running the normal formatting pipeline, mirroring the
// teacher's --profile/printVersion pattern of a diagnostic dump path
// that bypasses the main read loop entirely.
func runDumpIndex(w io.Writer, r *config.Resolved, paths []string) error {
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s\n", path)

		src, err := source.OpenFile(path)
		if err != nil {
			return config.Wrap(config.KindSourceIO, "opening "+path, err)
		}

		idx, err := ensureIndex(path, src, r)
		src.Close()
		if err != nil {
			return config.Wrap(config.KindIndexCorrupt, "building index for "+path, err)
		}
		err = idx.Dump(w)
		idx.Close()
		if err != nil {
			return config.Wrap(config.KindIndexCorrupt, "dumping index for "+path, err)
		}
	}
	return nil
}
