package index

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/cortexlog/hl/internal/level"
)

const trailerSize = 16 // 8-byte hash + 8-byte magic

// File is a loaded, read-only index (spec §4.8/§4.9: the merge engine
// consults this to prune segments without touching the source again).
type File struct {
	Header  Header
	Entries []SegmentDescriptor

	data    []byte // backing bytes, either mmap'd or a plain read buffer
	unmap   func() error
	mmapped bool
}

// Load opens path, verifies its magic/version/trailer, and decodes its
// header and segment table. It first tries a memory-mapped read
// (cheap, zero-copy); any mmap failure — a network filesystem, an
// unusual permission mode, a non-regular file — silently falls back to
// an ordinary buffered read rather than failing the whole load (spec
// §6 domain stack: "mmap-backed read-only index loading, fallback to
// buffered I/O" grounded on the pack's mmap-with-fallback pattern).
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: opening %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("index: stat %s: %w", path, err)
	}
	size := st.Size()

	data, unmap, mmapErr := mmapFile(f, size)
	mmapped := mmapErr == nil
	if mmapErr != nil {
		data, err = readAllBuffered(f, size)
		if err != nil {
			return nil, fmt.Errorf("index: reading %s: %w", path, err)
		}
		unmap = func() error { return nil }
	}

	idxFile, err := decodeFile(data)
	if err != nil {
		unmap()
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	idxFile.data = data
	idxFile.unmap = unmap
	idxFile.mmapped = mmapped
	return idxFile, nil
}

// readAllBuffered is the non-mmap fallback read path.
func readAllBuffered(f *os.File, size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// decodeFile parses and validates the full in-memory image of an index
// file: header, segment table, and trailer hash (spec §7 IndexCorrupt on
// any mismatch).
func decodeFile(data []byte) (*File, error) {
	if len(data) < headerSize+trailerSize {
		return nil, ErrMagicMismatch
	}
	h, err := decodeHeader(data[:headerSize])
	if err != nil {
		return nil, err
	}

	body := data[:len(data)-trailerSize]
	trailer := data[len(data)-trailerSize:]
	if string(trailer[8:16]) != string(magicEnd[:]) {
		return nil, ErrMagicMismatch
	}
	wantHash := binary.LittleEndian.Uint64(trailer[0:8])
	gotHash := xxhash.Sum64(body)
	if wantHash != gotHash {
		return nil, ErrTrailerHashMismatch
	}

	entries := make([]SegmentDescriptor, 0, h.SegmentCount)
	off := headerSize
	for i := uint32(0); i < h.SegmentCount; i++ {
		if off+descriptorSize > len(body) {
			return nil, fmt.Errorf("%w: truncated segment table", ErrMagicMismatch)
		}
		entries = append(entries, decodeDescriptor(body[off:off+descriptorSize]))
		off += descriptorSize
	}

	return &File{Header: h, Entries: entries}, nil
}

// Close releases the backing mapping or buffer.
func (f *File) Close() error {
	if f.unmap == nil {
		return nil
	}
	return f.unmap()
}

// Mmapped reports whether the index was loaded via mmap rather than the
// buffered fallback (diagnostic use only, e.g. --debug logging).
func (f *File) Mmapped() bool { return f.mmapped }

// CandidateSegments returns the indices of segments whose time range
// intersects [minNs, maxNs] and whose level mask intersects levels (spec
// §4.9 "prune segments whose [time_min,time_max] cannot intersect the
// query range, or whose level_mask cannot satisfy the query's level
// filter"). A zero levels mask matches every segment (no level pruning in
// effect). Pass noTimeSentinel/its negation-free full range via
// math.MinInt64/MaxInt64 to disable time pruning.
func (f *File) CandidateSegments(minNs, maxNs int64, levels level.Mask) []int {
	var out []int
	for i, d := range f.Entries {
		if levels != 0 && !d.LevelMask.Intersects(levels) {
			continue
		}
		if d.HasTime() && (d.TimeMaxNs < minNs || d.TimeMinNs > maxNs) {
			continue
		}
		out = append(out, i)
	}
	return out
}

// Dump writes a human-readable summary of the index to w, one line per
// segment: offset, length, record/unparsed counts, time range, level
// mask. Used by the --dump-index introspection flag.
func (f *File) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "version=%d source_size=%d source_mtime=%s records=%d segments=%d mmapped=%v\n",
		f.Header.Version, f.Header.SourceSize, time.Unix(0, f.Header.SourceMtime).Format(time.RFC3339Nano),
		f.Header.RecordCount, f.Header.SegmentCount, f.mmapped); err != nil {
		return err
	}
	for i, d := range f.Entries {
		timeRange := "none"
		if d.HasTime() {
			timeRange = fmt.Sprintf("%s..%s",
				time.Unix(0, d.TimeMinNs).Format(time.RFC3339Nano),
				time.Unix(0, d.TimeMaxNs).Format(time.RFC3339Nano))
		}
		if _, err := fmt.Fprintf(w, "  segment[%d] offset=%d length=%d records=%d unparsed=%d levels=%08b time=%s\n",
			i, d.ByteOffset, d.ByteLength, d.RecordCount, d.UnparsedCount, d.LevelMask, timeRange); err != nil {
			return err
		}
	}
	return nil
}
