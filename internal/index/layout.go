// Package index implements the segment index (spec §4.8 / C8): a
// bit-exact binary file recording per-segment time ranges, level masks,
// and unparsed-record counts so §4.9's merge engine can prune segments
// without re-reading the source.
package index

import (
	"encoding/binary"
	"errors"

	"github.com/cortexlog/hl/internal/level"
)

// Magic strings bracketing the file (spec §6 "Persisted state layout").
var (
	magicHeader = [8]byte{'H', 'L', '-', 'I', 'D', 'X', 0, 0}
	magicEnd    = [8]byte{'H', 'L', '-', 'E', 'N', 'D', 0, 0}
)

const (
	formatVersion = uint16(1)

	flagHasRecordOffsets = uint16(1 << 0)
	flagCompressedOffsets = uint16(1 << 1)

	headerSize     = 40 // bytes 0..39, up to and including segment_count
	descriptorSize = 44

	// noTimeSentinel marks "no time" for a segment's time_min_ns/time_max_ns
	// (spec §6: "i64::MIN denotes 'no time'").
	noTimeSentinel = int64(-1 << 63)
)

// SegmentDescriptor is one 44-byte fixed-width record in the index file
// (spec §6's bit-exact layout). LevelMask bit assignment matches
// level.Mask exactly: 0=Trace, 1=Debug, 2=Info, 3=Warning, 4=Error,
// 5=Unknown.
type SegmentDescriptor struct {
	ByteOffset    uint64
	ByteLength    uint32
	RecordCount   uint32
	TimeMinNs     int64 // noTimeSentinel if no record in the segment has a time
	TimeMaxNs     int64
	LevelMask     level.Mask
	UnparsedCount uint32
	Flags         uint32
}

// Header is the fixed-size preamble of an index file (spec §6).
type Header struct {
	Version      uint16
	Flags        uint16
	SourceSize   uint64
	SourceMtime  int64
	RecordCount  uint64
	SegmentCount uint32
}

// ErrMagicMismatch reports a missing/incorrect header or trailer magic
// (spec §7 IndexCorrupt: "Magic/version/hash mismatch").
var ErrMagicMismatch = errors.New("index: magic mismatch")

// ErrTrailerHashMismatch reports a corrupted index body.
var ErrTrailerHashMismatch = errors.New("index: trailer hash mismatch")

// ErrUnsupportedVersion reports a format-version byte this build doesn't
// know how to read.
var ErrUnsupportedVersion = errors.New("index: unsupported format version")

func encodeHeader(h Header) []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:8], magicHeader[:])
	binary.LittleEndian.PutUint16(buf[8:10], h.Version)
	binary.LittleEndian.PutUint16(buf[10:12], h.Flags)
	binary.LittleEndian.PutUint64(buf[12:20], h.SourceSize)
	binary.LittleEndian.PutUint64(buf[20:28], uint64(h.SourceMtime))
	binary.LittleEndian.PutUint64(buf[28:36], h.RecordCount)
	binary.LittleEndian.PutUint32(buf[36:40], h.SegmentCount)
	return buf
}

func decodeHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, errors.New("index: truncated header")
	}
	if string(buf[0:8]) != string(magicHeader[:]) {
		return Header{}, ErrMagicMismatch
	}
	h := Header{
		Version:      binary.LittleEndian.Uint16(buf[8:10]),
		Flags:        binary.LittleEndian.Uint16(buf[10:12]),
		SourceSize:   binary.LittleEndian.Uint64(buf[12:20]),
		SourceMtime:  int64(binary.LittleEndian.Uint64(buf[20:28])),
		RecordCount:  binary.LittleEndian.Uint64(buf[28:36]),
		SegmentCount: binary.LittleEndian.Uint32(buf[36:40]),
	}
	if h.Version != formatVersion {
		return h, ErrUnsupportedVersion
	}
	return h, nil
}

func encodeDescriptor(d SegmentDescriptor) []byte {
	buf := make([]byte, descriptorSize)
	binary.LittleEndian.PutUint64(buf[0:8], d.ByteOffset)
	binary.LittleEndian.PutUint32(buf[8:12], d.ByteLength)
	binary.LittleEndian.PutUint32(buf[12:16], d.RecordCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(d.TimeMinNs))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(d.TimeMaxNs))
	buf[32] = uint8(d.LevelMask)
	// buf[33:36] reserved, left zero
	binary.LittleEndian.PutUint32(buf[36:40], d.UnparsedCount)
	binary.LittleEndian.PutUint32(buf[40:44], d.Flags)
	return buf
}

func decodeDescriptor(buf []byte) SegmentDescriptor {
	return SegmentDescriptor{
		ByteOffset:    binary.LittleEndian.Uint64(buf[0:8]),
		ByteLength:    binary.LittleEndian.Uint32(buf[8:12]),
		RecordCount:   binary.LittleEndian.Uint32(buf[12:16]),
		TimeMinNs:     int64(binary.LittleEndian.Uint64(buf[16:24])),
		TimeMaxNs:     int64(binary.LittleEndian.Uint64(buf[24:32])),
		LevelMask:     level.Mask(buf[32]),
		UnparsedCount: binary.LittleEndian.Uint32(buf[36:40]),
		Flags:         binary.LittleEndian.Uint32(buf[40:44]),
	}
}

// HasTime reports whether d carries a valid time range.
func (d SegmentDescriptor) HasTime() bool {
	return d.TimeMinNs != noTimeSentinel && d.TimeMaxNs != noTimeSentinel
}
