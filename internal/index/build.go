package index

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/segment"
	"github.com/cortexlog/hl/internal/source"
)

// BuildConfig selects how the builder resolves records while indexing
// (spec §4.8: the index builder scans the source exactly once, using the
// same segmenter and record scanner as streaming mode).
type BuildConfig struct {
	Segment segment.Config
	Aliases *record.AliasTable
	Levels  *level.Table
	TimeCfg record.TimeConfig

	AllowPrefix bool

	// Seed folds configuration that affects record interpretation into
	// the identity hash (cmd/hl derives it from the delimiter, input
	// format, prefix policy and unix timestamp unit), so a stale index
	// built under a different configuration is detected as a miss rather
	// than silently reused (spec §6 "index-seed-from-config").
	Seed uint64
}

// Identity is the content-addressing key an index file is built from
// (spec §6: "format-version, source-absolute-path, file-size,
// mtime-nanos, index-seed-from-config").
type Identity struct {
	SourcePath string
	FileSize   int64
	MtimeNanos int64
	Seed       uint64
}

// Hash returns the 64-bit identity hash used to name/validate an index
// file, following the xxhash content-addressing pattern used elsewhere in
// the pack for cache/dedup keys.
func (id Identity) Hash() uint64 {
	h := xxhash.New()
	fmt.Fprintf(h, "hl-index\x00%d\x00%s\x00%d\x00%d\x00%d",
		formatVersion, id.SourcePath, id.FileSize, id.MtimeNanos, id.Seed)
	return h.Sum64()
}

// PathFor returns the conventional on-disk path for the index of a source
// with the given identity, alongside a cache directory root.
func PathFor(cacheDir string, id Identity) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%016x.hlidx", id.Hash()))
}

// Build scans src exactly once through a fresh segmenter, producing one
// SegmentDescriptor per block and writing the result atomically to path
// (spec §4.8: "temp file, fsync, rename").
func Build(path string, id Identity, src source.Source, cfg BuildConfig) error {
	descs, totalRecords, err := scanDescriptors(src, cfg, 0)
	if err != nil {
		return err
	}
	return finishWrite(path, id, src, descs, totalRecords)
}

// BuildExtend resumes indexing after a prefix-growth refresh (spec §4.8
// "rebuild only from the retained prefix's end offset onward"): src must
// already be positioned at resumeOffset. The new segments are appended
// to retained, and the combined table is written atomically to path.
func BuildExtend(path string, id Identity, src source.Source, resumeOffset int64, retained []SegmentDescriptor, cfg BuildConfig) error {
	descs, newRecords, err := scanDescriptors(src, cfg, resumeOffset)
	if err != nil {
		return err
	}
	all := append(append([]SegmentDescriptor(nil), retained...), descs...)
	var retainedRecords uint64
	for _, d := range retained {
		retainedRecords += uint64(d.RecordCount)
	}
	return finishWrite(path, id, src, all, retainedRecords+newRecords)
}

func scanDescriptors(src source.Source, cfg BuildConfig, baseOffset int64) ([]SegmentDescriptor, uint64, error) {
	seg, err := segment.New(src, cfg.Segment)
	if err != nil {
		return nil, 0, fmt.Errorf("index: building segmenter: %w", err)
	}
	if baseOffset != 0 {
		seg.SetBase(baseOffset)
	}

	var descs []SegmentDescriptor
	var totalRecords uint64
	for {
		b, err := seg.NextBlock()
		if err != nil {
			var oversized *segment.OversizedRecordError
			if errors.As(err, &oversized) {
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("index: reading block: %w", err)
		}
		desc, recCount := describeBlock(b, cfg)
		descs = append(descs, desc)
		totalRecords += uint64(recCount)
	}
	return descs, totalRecords, nil
}

func finishWrite(path string, id Identity, src source.Source, descs []SegmentDescriptor, totalRecords uint64) error {
	size, _ := src.Len()
	h := Header{
		Version:      formatVersion,
		SourceSize:   uint64(size),
		SourceMtime:  id.MtimeNanos,
		RecordCount:  totalRecords,
		SegmentCount: uint32(len(descs)),
	}
	return writeAtomic(path, h, descs)
}

// describeBlock scans every record in b, computing the segment's time
// range, level mask, and unparsed-record count.
func describeBlock(b segment.Block, cfg BuildConfig) (SegmentDescriptor, int) {
	d := SegmentDescriptor{
		ByteOffset: uint64(b.Offset),
		ByteLength: uint32(len(b.Bytes)),
		TimeMinNs:  noTimeSentinel,
		TimeMaxNs:  noTimeSentinel,
	}
	lines := splitRecords(b.Bytes)
	d.RecordCount = uint32(len(lines))
	for _, line := range lines {
		r, err := record.Scan(line, cfg.AllowPrefix, cfg.Aliases, cfg.Levels, cfg.TimeCfg)
		if err != nil {
			d.UnparsedCount++
			continue
		}
		if ts, ok := r.Time(); ok {
			ns := ts.UnixNano()
			if d.TimeMinNs == noTimeSentinel || ns < d.TimeMinNs {
				d.TimeMinNs = ns
			}
			if d.TimeMaxNs == noTimeSentinel || ns > d.TimeMaxNs {
				d.TimeMaxNs = ns
			}
		}
		lvl := level.Unknown
		if l, ok := r.Level(); ok {
			lvl = l
		}
		d.LevelMask = d.LevelMask.Add(lvl)
	}
	return d, len(lines)
}

// splitRecords divides a segmenter block into its constituent records.
// Blocks are record-aligned by construction (spec §4.2), delimited by
// newlines in every non-NUL delimiter mode hl supports; NUL-delimited
// sources are split the same way downstream formatting already assumes.
func splitRecords(buf []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, c := range buf {
		if c == '\n' || c == 0 {
			if i > start {
				lines = append(lines, buf[start:i])
			}
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, buf[start:])
	}
	return lines
}

// writeAtomic writes the header, segment descriptors, and trailer to a
// temp file in path's directory, fsyncs, then renames into place (spec
// §4.8 "atomic write: temp file, fsync, rename").
func writeAtomic(path string, h Header, descs []SegmentDescriptor) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("index: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	bw := bufio.NewWriter(tmp)
	hasher := xxhash.New()
	mw := io.MultiWriter(bw, hasher)

	if _, err := mw.Write(encodeHeader(h)); err != nil {
		tmp.Close()
		return fmt.Errorf("index: writing header: %w", err)
	}
	for _, d := range descs {
		if _, err := mw.Write(encodeDescriptor(d)); err != nil {
			tmp.Close()
			return fmt.Errorf("index: writing segment descriptor: %w", err)
		}
	}

	var trailer [16]byte
	putUint64(trailer[0:8], hasher.Sum64())
	copy(trailer[8:16], magicEnd[:])
	if _, err := bw.Write(trailer[:]); err != nil {
		tmp.Close()
		return fmt.Errorf("index: writing trailer: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("index: flushing: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("index: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("index: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("index: renaming into place: %w", err)
	}
	return nil
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
