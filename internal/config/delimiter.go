package config

import (
	"strings"

	"github.com/cortexlog/hl/internal/segment"
)

// normalizeDelimiter lowercases only the named keywords ("auto", "lf",
// "cr", "crlf", "nul"), leaving any other value untouched since it's a
// literal delimiter string and may be case-sensitive.
func normalizeDelimiter(s string) string {
	switch strings.ToLower(s) {
	case "", "auto":
		return "auto"
	case "lf":
		return "lf"
	case "cr":
		return "cr"
	case "crlf":
		return "crlf"
	case "nul":
		return "nul"
	default:
		return s
	}
}

// SegmentDelimiter maps the --delimiter string onto the segment package's
// Delimiter enum, returning the literal bytes for the "custom" case (any
// value not matching one of the named modes is treated as a literal
// delimiter string, spec §4.2).
func (r *Resolved) SegmentDelimiter() (segment.Delimiter, []byte) {
	switch r.Delimiter {
	case "", "auto":
		return segment.Auto, nil
	case "lf":
		return segment.LF, nil
	case "cr":
		return segment.CR, nil
	case "crlf":
		return segment.CRLF, nil
	case "nul":
		return segment.NUL, nil
	default:
		return segment.Custom, []byte(r.Delimiter)
	}
}
