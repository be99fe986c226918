// Package tstamp implements the Timestamp value used throughout the
// scanner, query evaluator, and formatter: a nanosecond-precision instant
// plus the representation it was parsed from (spec §3).
package tstamp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// Kind records which wire representation a Timestamp was parsed from, so
// round-tripping back to the same units is possible where it matters
// (e.g. --since comparisons against a record whose unit was autodetected).
type Kind int

const (
	KindUnknown Kind = iota
	KindRFC3339
	KindUnixSeconds
	KindUnixMillis
	KindUnixMicros
	KindUnixNanos
	KindCustom
)

// Timestamp is a parsed instant.  The zero value is the "no timestamp"
// state; callers should check Valid before using Time.
type Timestamp struct {
	t    time.Time
	kind Kind
}

func New(t time.Time, kind Kind) Timestamp { return Timestamp{t: t, kind: kind} }

func (ts Timestamp) Valid() bool   { return !ts.t.IsZero() }
func (ts Timestamp) Time() time.Time { return ts.t }
func (ts Timestamp) Kind() Kind    { return ts.kind }
func (ts Timestamp) UnixNano() int64 {
	if !ts.Valid() {
		return math.MinInt64
	}
	return ts.t.UnixNano()
}

func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }
func (ts Timestamp) After(other Timestamp) bool  { return ts.t.After(other.t) }

// UnixUnit is the unit a UnixSeconds|Millis|Micros|Nanos numeric timestamp
// is expressed in.
type UnixUnit int

const (
	UnitAuto UnixUnit = iota
	UnitSeconds
	UnitMillis
	UnitMicros
	UnitNanos
)

// ParseUnixNumber interprets a numeric timestamp value (as decoded from
// JSON, so always a float64 or an integer widened to float64 by the
// caller) according to unit.  UnitAuto autodetects from magnitude: a
// value with the digit-count of a second-granularity Unix time today
// (10 digits) is seconds; 13 digits is millis; 16 is micros; 19 is nanos.
// This mirrors the teacher's DefaultTimeParser, generalized to the
// autodetection spec.md §4.4 calls for ("unit per configured
// unix_timestamp_unit or autodetected from magnitude").
func ParseUnixNumber(v float64, unit UnixUnit) (Timestamp, error) {
	u := unit
	if u == UnitAuto {
		mag := math.Abs(v)
		switch {
		case mag < 1e11:
			u = UnitSeconds
		case mag < 1e14:
			u = UnitMillis
		case mag < 1e17:
			u = UnitMicros
		default:
			u = UnitNanos
		}
	}
	var sec, nsec int64
	switch u {
	case UnitSeconds:
		sec = int64(math.Floor(v))
		nsec = int64(math.Round((v - math.Floor(v)) * 1e9))
	case UnitMillis:
		ms := int64(math.Round(v))
		sec = ms / 1e3
		nsec = (ms % 1e3) * 1e6
	case UnitMicros:
		us := int64(math.Round(v))
		sec = us / 1e6
		nsec = (us % 1e6) * 1e3
	case UnitNanos:
		ns := int64(math.Round(v))
		sec = ns / 1e9
		nsec = ns % 1e9
	default:
		return Timestamp{}, errors.New("invalid unix timestamp unit")
	}
	kind := KindUnixSeconds
	switch u {
	case UnitMillis:
		kind = KindUnixMillis
	case UnitMicros:
		kind = KindUnixMicros
	case UnitNanos:
		kind = KindUnixNanos
	}
	return New(time.Unix(sec, nsec).UTC(), kind), nil
}

// rfc3339Layouts are tried in order; the first is RFC 3339 with a mandatory
// offset and optional fractional seconds, the second allows a plain space
// in place of 'T' (seen from loggers that emit "2024-01-15 10:00:00Z").
var rfc3339Layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// ParseRFC3339ish tries the RFC-3339-family layouts spec §4.4 names: (a)
// RFC-3339 with fractional seconds and mandatory offset, (b) RFC-3339-like
// with a space separator.
func ParseRFC3339ish(s string) (Timestamp, error) {
	var firstErr error
	for _, layout := range rfc3339Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return New(t, KindRFC3339), nil
		} else if firstErr == nil {
			firstErr = err
		}
	}
	return Timestamp{}, fmt.Errorf("not an RFC-3339-ish timestamp: %w", firstErr)
}

// Template is a strftime-style format usable both to render a Timestamp
// (Format) and to parse a string written in the same template back into a
// Timestamp (Parse), satisfying spec §3's requirement that "the same
// template must be accepted as a parser for --since/--until so a user can
// copy output timestamps into filters."
type Template struct {
	pattern string
	f       *strftime.Strftime
	zone    *time.Location
}

// NewTemplate compiles a strftime pattern for formatting in the given zone.
func NewTemplate(pattern string, zone *time.Location) (*Template, error) {
	f, err := strftime.New(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile time template %q: %w", pattern, err)
	}
	if zone == nil {
		zone = time.UTC
	}
	return &Template{pattern: pattern, f: f, zone: zone}, nil
}

func (tpl *Template) Format(ts Timestamp) string {
	if !ts.Valid() {
		return ""
	}
	return tpl.f.FormatString(ts.t.In(tpl.zone))
}

// Parse reinterprets a string formatted by this same template back into a
// Timestamp.  Because strftime is not generally invertible, the template
// is translated to a Go time layout using only the directives in
// directiveLayouts below. NewTemplate accepts any strftime pattern; a
// pattern with a directive outside that set fails here, at Parse time.
func (tpl *Template) Parse(s string) (Timestamp, error) {
	layout, err := strftimeToGoLayout(tpl.pattern)
	if err != nil {
		return Timestamp{}, err
	}
	t, err := time.ParseInLocation(layout, s, tpl.zone)
	if err != nil {
		return Timestamp{}, fmt.Errorf("parse %q with template %q: %w", s, tpl.pattern, err)
	}
	return New(t, KindCustom), nil
}

// directiveLayouts maps the strftime directives this package supports, in
// both directions, to their time.Format/time.Parse Go-layout equivalent.
var directiveLayouts = map[byte]string{
	'Y': "2006",
	'm': "01",
	'd': "02",
	'H': "15",
	'M': "04",
	'S': "05",
	'z': "-0700",
	'Z': "MST",
	'e': "_2",
	'y': "06",
	'T': "15:04:05",
	'%': "%",
}

func strftimeToGoLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(pattern) {
			return "", errors.New("dangling %% at end of time template")
		}
		layout, ok := directiveLayouts[pattern[i]]
		if !ok {
			return "", fmt.Errorf("time template directive %%%c is not invertible; use a directive in the supported set for --time-format round-tripping", pattern[i])
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}

// ParseNatural parses the natural-language and ISO-like expressions spec
// §3 calls out as additional accepted inputs for --since/--until: "today",
// "yesterday", "1h ago", "-3d", "1 month ago", and bare ISO date/datetime
// fragments. now is injected so results are deterministic in tests.
func ParseNatural(s string, now time.Time) (Timestamp, error) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	switch lower {
	case "now":
		return New(now, KindCustom), nil
	case "today":
		y, m, d := now.Date()
		return New(time.Date(y, m, d, 0, 0, 0, 0, now.Location()), KindCustom), nil
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return New(time.Date(y, m, d, 0, 0, 0, 0, now.Location()), KindCustom), nil
	}

	if d, ok, err := parseRelativeDuration(lower); ok {
		if err != nil {
			return Timestamp{}, err
		}
		return New(now.Add(d), KindCustom), nil
	}
	if d, ok, err := parseAgoPhrase(lower); ok {
		if err != nil {
			return Timestamp{}, err
		}
		return New(now.Add(-d), KindCustom), nil
	}

	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return New(t, KindCustom), nil
		}
	}
	if ts, err := ParseRFC3339ish(s); err == nil {
		return ts, nil
	}
	return Timestamp{}, fmt.Errorf("not a recognized time expression: %q", s)
}

// parseRelativeDuration handles "-3d", "+2h", "1h" style compact offsets.
func parseRelativeDuration(s string) (time.Duration, bool, error) {
	sign := time.Duration(1)
	rest := s
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		rest = s[1:]
	case strings.HasPrefix(s, "+"):
		rest = s[1:]
	}
	if rest == "" {
		return 0, false, nil
	}
	n := 0
	for n < len(rest) && (rest[n] >= '0' && rest[n] <= '9' || rest[n] == '.') {
		n++
	}
	if n == 0 {
		return 0, false, nil
	}
	numPart, unitPart := rest[:n], rest[n:]
	d := parseUnitDurationMust(numPart, unitPart)
	if !d.valid {
		return 0, false, nil
	}
	return sign * d.dur, true, nil
}

// parseAgoPhrase handles "1h ago", "3 days ago", "1 month ago".
func parseAgoPhrase(s string) (time.Duration, bool, error) {
	const suffix = " ago"
	if !strings.HasSuffix(s, suffix) {
		return 0, false, nil
	}
	body := strings.TrimSpace(strings.TrimSuffix(s, suffix))
	fields := strings.Fields(body)
	if len(fields) == 1 {
		// compact form, e.g. "1h ago" or "3d ago"
		n := 0
		for n < len(fields[0]) && (fields[0][n] >= '0' && fields[0][n] <= '9' || fields[0][n] == '.') {
			n++
		}
		if n == 0 {
			return 0, false, errors.New("missing numeric magnitude in relative time expression")
		}
		d := parseUnitDurationMust(fields[0][:n], fields[0][n:])
		if !d.valid {
			return 0, false, fmt.Errorf("unrecognized time unit in %q", s)
		}
		return d.dur, true, nil
	}
	if len(fields) == 2 {
		d := parseUnitDurationMust(fields[0], fields[1])
		if !d.valid {
			return 0, false, fmt.Errorf("unrecognized time unit in %q", s)
		}
		return d.dur, true, nil
	}
	return 0, false, fmt.Errorf("unrecognized relative time expression: %q", s)
}

type durResult struct {
	dur   time.Duration
	valid bool
}

func parseUnitDurationMust(numPart, unitPart string) durResult {
	n, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return durResult{}
	}
	unitPart = strings.TrimSpace(unitPart)
	unitPart = strings.TrimSuffix(unitPart, "s")
	var unit time.Duration
	switch unitPart {
	case "s", "sec", "second":
		unit = time.Second
	case "m", "min", "minute":
		unit = time.Minute
	case "h", "hr", "hour":
		unit = time.Hour
	case "d", "day":
		unit = 24 * time.Hour
	case "w", "week":
		unit = 7 * 24 * time.Hour
	case "mo", "month":
		unit = 30 * 24 * time.Hour
	case "y", "yr", "year":
		unit = 365 * 24 * time.Hour
	default:
		return durResult{}
	}
	return durResult{dur: time.Duration(n * float64(unit)), valid: true}
}
