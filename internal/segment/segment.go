// Package segment implements the segmenter (spec §4.2 / C2): it cuts an
// unbounded byte source into record-aligned, size-bounded blocks.
package segment

import (
	"errors"
	"fmt"
	"io"

	"github.com/cortexlog/hl/internal/source"
)

// Delimiter selects the record boundary convention.
type Delimiter int

const (
	Auto Delimiter = iota
	LF
	CR
	CRLF
	NUL
	Custom
)

func (d Delimiter) bytes(custom []byte) []byte {
	switch d {
	case LF:
		return []byte{'\n'}
	case CR:
		return []byte{'\r'}
	case CRLF:
		return []byte{'\r', '\n'}
	case NUL:
		return []byte{0}
	case Custom:
		return custom
	default:
		return nil
	}
}

// Config configures a Segmenter.
type Config struct {
	Delimiter      Delimiter
	CustomDelim    []byte
	BufferSize     int
	MaxMessageSize int
}

// OversizedRecordError reports that no delimiter was found within
// MaxMessageSize bytes; the segmenter resynchronizes past it (spec §4.2,
// §7 OversizedRecord).
type OversizedRecordError struct {
	Offset int64
	Scanned int
}

func (e *OversizedRecordError) Error() string {
	return fmt.Sprintf("oversized record at offset %d: no delimiter found within %d bytes", e.Offset, e.Scanned)
}

// Block is a contiguous, record-aligned range of bytes from one source
// (spec §3 "Block").
type Block struct {
	Bytes  []byte
	Offset int64
	Seq    uint64
}

// Segmenter reads a Source into record-aligned blocks, honoring
// BufferSize and MaxMessageSize (spec §4.2).
type Segmenter struct {
	src source.Source
	cfg Config

	working    []byte
	spare      []byte
	workingLen int
	base       int64 // absolute offset of working[0]
	seq        uint64

	delim        []byte
	jsonBoundary bool // true if Auto resolved to JSON-record-boundary mode
	delimDecided bool

	eof bool

	// OnOversized, if set, is called instead of returning
	// OversizedRecordError from NextBlock; the segmenter then continues
	// past the oversized span.  Nil means NextBlock returns the error to
	// the caller, who is expected to call NextBlock again to resume.
	OnOversized func(*OversizedRecordError)
}

// New creates a Segmenter over src.  BufferSize and MaxMessageSize must be
// positive; MaxMessageSize must be >= BufferSize.
func New(src source.Source, cfg Config) (*Segmenter, error) {
	if cfg.BufferSize <= 0 {
		return nil, errors.New("segment: BufferSize must be positive")
	}
	if cfg.MaxMessageSize < cfg.BufferSize {
		return nil, errors.New("segment: MaxMessageSize must be >= BufferSize")
	}
	return &Segmenter{
		src:     src,
		cfg:     cfg,
		working: make([]byte, cfg.BufferSize),
		spare:   make([]byte, cfg.BufferSize),
	}, nil
}

// SetBase tells the segmenter that src's next byte is at absolute offset
// offset, rather than 0. Used when resuming a segmenter over a source
// that has already been advanced past some prefix (spec §4.8 incremental
// index refresh: rebuilding only the tail after a retained prefix).
func (s *Segmenter) SetBase(offset int64) {
	s.base = offset
}

// fill reads from src into working[workingLen:cap] until full or EOF.
func (s *Segmenter) fill() error {
	for s.workingLen < len(s.working) {
		n, err := s.src.Read(s.working[s.workingLen:])
		s.workingLen += n
		if err != nil {
			if err == io.EOF {
				s.eof = true
				return nil
			}
			return err
		}
		if n == 0 {
			// Defensive: a Source returning (0, nil) forever would spin;
			// treat it as EOF rather than looping.
			s.eof = true
			return nil
		}
	}
	return nil
}

func (s *Segmenter) resolveDelimiter() {
	if s.delimDecided {
		return
	}
	s.delimDecided = true
	if s.cfg.Delimiter != Auto {
		s.delim = s.cfg.Delimiter.bytes(s.cfg.CustomDelim)
		return
	}
	s.delim = []byte{'\n'}
	if s.workingLen == 0 {
		return
	}
	first := s.working[0]
	if first != '{' && first != '[' {
		return
	}
	// Look at the first newline: if it occurs while brace/bracket depth is
	// nonzero (i.e. inside the JSON object/array), treat newline-outside-
	// balanced-structure as the true record boundary instead of plain LF.
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < s.workingLen; i++ {
		c := s.working[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case '\n':
			if depth != 0 {
				s.jsonBoundary = true
			}
			return
		}
	}
}

// findLastBoundary scans buf for the last occurrence of delim that is not
// inside a quoted JSON string literal, and — when requireBalanced is set —
// also requires brace/bracket depth to be zero at that point. It performs
// one lexical pass, tracking string/escape state (spec §4.2: "Balanced-
// structure scanning is lexical only"). Returns the index one past the
// delimiter (i.e. the emit boundary) and whether any match was found.
func findLastBoundary(buf []byte, delim []byte, requireBalanced bool) (int, bool) {
	if len(delim) == 0 {
		return 0, false
	}
	depth := 0
	inString := false
	escaped := false
	last := -1
	n := len(buf)
	dn := len(delim)
	for i := 0; i < n; i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
			continue
		case '{', '[':
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
		if i+dn <= n && bytesEqual(buf[i:i+dn], delim) {
			if !requireBalanced || depth == 0 {
				last = i + dn
			}
		}
	}
	if last < 0 {
		return 0, false
	}
	return last, true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NextBlock returns the next record-aligned block, or io.EOF when the
// source is exhausted.  A single call may also return
// *OversizedRecordError (if OnOversized is nil); the segmenter has already
// resynchronized by the time it returns, so calling NextBlock again
// resumes after the skipped record.
func (s *Segmenter) NextBlock() (Block, error) {
	if err := s.fill(); err != nil {
		return Block{}, err
	}
	s.resolveDelimiter()

	if s.workingLen == 0 {
		return Block{}, io.EOF
	}

	idx, found := findLastBoundary(s.working[:s.workingLen], s.delim, s.jsonBoundary)
	if found {
		block := Block{Bytes: append([]byte(nil), s.working[:idx]...), Offset: s.base, Seq: s.seq}
		s.seq++
		s.advance(idx)
		return block, nil
	}
	if s.eof {
		// Final record without a trailing delimiter (spec §4.2 edge policy).
		block := Block{Bytes: append([]byte(nil), s.working[:s.workingLen]...), Offset: s.base, Seq: s.seq}
		s.seq++
		s.advance(s.workingLen)
		return block, nil
	}
	// Buffer is full (fill loops to capacity unless EOF) and no boundary
	// was found within it: grow into the overflow path, up to
	// MaxMessageSize (spec §4.2: "A record larger than buffer_size uses an
	// overflow path up to max_message_size").
	return s.growOverflow()
}

// growOverflow accumulates bytes beyond the regular working buffer,
// searching for a boundary up to MaxMessageSize total. If one is found,
// the oversized-but-acceptable record is emitted whole. Otherwise
// handleOversized reports and resynchronizes.
func (s *Segmenter) growOverflow() (Block, error) {
	overflow := append([]byte(nil), s.working[:s.workingLen]...)
	chunk := make([]byte, len(s.working))
	for len(overflow) < s.cfg.MaxMessageSize && !s.eof {
		n, err := s.src.Read(chunk)
		overflow = append(overflow, chunk[:n]...)
		if err != nil {
			if err == io.EOF {
				s.eof = true
				break
			}
			return Block{}, err
		}
		if idx, found := findLastBoundary(overflow, s.delim, s.jsonBoundary); found {
			return s.emitOverflow(overflow, idx)
		}
	}
	if idx, found := findLastBoundary(overflow, s.delim, s.jsonBoundary); found && idx <= s.cfg.MaxMessageSize {
		return s.emitOverflow(overflow, idx)
	}
	if s.eof && len(overflow) > 0 {
		// No delimiter anywhere before EOF: treat the remainder as the
		// final, delimiter-less record rather than an oversized error,
		// matching the edge policy for a final unterminated record.
		if len(overflow) <= s.cfg.MaxMessageSize {
			return s.emitOverflow(overflow, len(overflow))
		}
	}
	return s.handleOversized(overflow)
}

// emitOverflow finalizes a block discovered during growOverflow: bytes
// [0,idx) are the record, the remainder seeds the next working buffer.
func (s *Segmenter) emitOverflow(overflow []byte, idx int) (Block, error) {
	block := Block{Bytes: append([]byte(nil), overflow[:idx]...), Offset: s.base, Seq: s.seq}
	s.seq++
	remainder := overflow[idx:]
	s.base += int64(idx)
	if cap(s.working) < len(remainder) {
		s.working = make([]byte, len(remainder))
	}
	s.workingLen = copy(s.working, remainder)
	return block, nil
}

// handleOversized reports an OversizedRecordError for the scanned span and
// resynchronizes by scanning forward (plain byte search, not lexically
// aware — recovery from malformed input does not need to be exact) for
// the next delimiter occurrence.
func (s *Segmenter) handleOversized(overflow []byte) (Block, error) {
	offset := s.base
	scanned := len(overflow)
	buf := overflow
	chunk := make([]byte, len(s.working))
	for {
		idx := plainIndex(buf, s.delim)
		if idx >= 0 {
			remainder := buf[idx+len(s.delim):]
			s.base = offset + int64(scanned-len(buf)) + int64(idx+len(s.delim))
			if cap(s.working) < len(remainder) {
				s.working = make([]byte, len(remainder))
			}
			s.workingLen = copy(s.working, remainder)
			reportErr := &OversizedRecordError{Offset: offset, Scanned: scanned}
			if s.OnOversized != nil {
				s.OnOversized(reportErr)
				return s.NextBlock()
			}
			return Block{}, reportErr
		}
		if s.eof {
			s.base = offset + int64(scanned)
			s.workingLen = 0
			reportErr := &OversizedRecordError{Offset: offset, Scanned: scanned}
			if s.OnOversized != nil {
				s.OnOversized(reportErr)
				return Block{}, io.EOF
			}
			return Block{}, reportErr
		}
		n, err := s.src.Read(chunk)
		scanned += n
		// Keep only a delimiter-length tail of the old buffer so a
		// delimiter split across the chunk boundary is still found.
		tail := 0
		if len(s.delim) > 1 {
			tail = len(s.delim) - 1
			if tail > len(buf) {
				tail = len(buf)
			}
		}
		buf = append(append([]byte(nil), buf[len(buf)-tail:]...), chunk[:n]...)
		if err != nil {
			if err == io.EOF {
				s.eof = true
				continue
			}
			return Block{}, err
		}
	}
}

func plainIndex(buf, sub []byte) int {
	if len(sub) == 0 || len(sub) > len(buf) {
		return -1
	}
	for i := 0; i+len(sub) <= len(buf); i++ {
		if bytesEqual(buf[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// advance drops the first idx bytes of working, moving the remainder into
// spare and swapping buffers (spec §4.2 step 4).
func (s *Segmenter) advance(idx int) {
	remainder := s.workingLen - idx
	copy(s.spare, s.working[idx:s.workingLen])
	s.working, s.spare = s.spare, s.working
	s.workingLen = remainder
	s.base += int64(idx)
}
