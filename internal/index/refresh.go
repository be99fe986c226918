package index

import (
	"fmt"

	"github.com/cortexlog/hl/internal/source"
)

// RefreshAction tells the caller what Refresh decided to do.
type RefreshAction int

const (
	// RefreshReuse means the existing index is still valid as-is.
	RefreshReuse RefreshAction = iota
	// RefreshExtend means the source grew; the caller should rebuild
	// only from the retained prefix's end offset onward and append.
	RefreshExtend
	// RefreshRebuild means the existing index is unusable (shrank,
	// truncated, different identity, or failed validation) and a full
	// rebuild is required.
	RefreshRebuild
)

// RefreshResult reports Refresh's decision and, for RefreshExtend, how
// much of the old index survives.
type RefreshResult struct {
	Action RefreshAction
	// RetainedSegments is the prefix of the old index's Entries that
	// remains valid; only meaningful for RefreshExtend.
	RetainedSegments []SegmentDescriptor
	// ResumeOffset is the byte offset in the (grown) source at which
	// rebuilding should resume.
	ResumeOffset int64
	// Reason explains a RefreshRebuild decision, for --debug logging.
	Reason string
}

// Refresh implements the incremental-refresh protocol (spec §4.8 /
// §6): verify the on-disk index still matches the source's identity,
// then decide whether the source merely grew (in which case segments
// wholly inside the old file size are retained and only the crossing
// tail segment plus new bytes are rebuilt) or must be rebuilt from
// scratch (shrank, or the old index fails validation).
//
// Any I/O error while reading the old index is treated as
// RefreshRebuild with the error folded into Reason rather than
// propagated — callers fail closed to streaming mode with a warning
// (spec §7: "index load/refresh failure falls back to streaming").
func Refresh(path string, src source.Source, newMtimeNanos int64) RefreshResult {
	old, err := Load(path)
	if err != nil {
		return RefreshResult{Action: RefreshRebuild, Reason: fmt.Sprintf("loading existing index: %v", err)}
	}
	defer old.Close()

	newSize, known := src.Len()
	if !known {
		return RefreshResult{Action: RefreshRebuild, Reason: "source length unknown"}
	}

	oldSize := int64(old.Header.SourceSize)
	if newSize < oldSize {
		return RefreshResult{Action: RefreshRebuild, Reason: "source shrank"}
	}
	if newSize == oldSize && int64(old.Header.SourceMtime) == newMtimeNanos {
		return RefreshResult{Action: RefreshReuse}
	}
	if newSize == oldSize {
		// Same size, different mtime: content may have changed in
		// place (e.g. truncate+rewrite with no size delta). Safer to
		// rebuild than trust stale offsets.
		return RefreshResult{Action: RefreshRebuild, Reason: "source mtime changed at same size"}
	}

	// newSize > oldSize: the source grew. Retain every segment fully
	// inside the old size; the segment whose byte range crosses oldSize
	// (if any) is discarded and re-read along with the new tail (spec
	// §4.8 "prefix-growth detection retains segments fully inside old
	// size and discards the crossing tail segment").
	retained := make([]SegmentDescriptor, 0, len(old.Entries))
	resumeOffset := int64(0)
	for _, d := range old.Entries {
		end := int64(d.ByteOffset) + int64(d.ByteLength)
		if end > oldSize {
			break
		}
		retained = append(retained, d)
		resumeOffset = end
	}
	return RefreshResult{
		Action:           RefreshExtend,
		RetainedSegments: retained,
		ResumeOffset:     resumeOffset,
	}
}
