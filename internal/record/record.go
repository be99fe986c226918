package record

import (
	"strings"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/tstamp"
)

// Format identifies which scanner produced a record's fields.
type Format int

const (
	FormatJSON Format = iota
	FormatLogfmt
)

// DetectFormat picks JSON or logfmt by the first non-whitespace byte (spec
// §4.3: "{`/`[` → JSON; otherwise logfmt").
func DetectFormat(buf []byte) Format {
	for _, c := range buf {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return FormatJSON
		default:
			return FormatLogfmt
		}
	}
	return FormatLogfmt
}

// findObjectStart returns the index of the first '{' in buf, used when
// allow_prefix is set (spec §4.3). Since the prefix itself is not JSON,
// this is a best-effort scan for the first '{' at all, not a
// balanced-structure search: a '{' inside the prefix ends the prefix there.
func findObjectStart(buf []byte) (int, bool) {
	for i, c := range buf {
		if c == '{' {
			return i, true
		}
	}
	return 0, false
}

// Record is the resolved semantic view of one scanned line (spec §3, §4.4).
type Record struct {
	Raw    []byte // raw_bytes: the full source block slice for this record
	Prefix []byte // bytes preceding the structured payload, if allow_prefix
	Format Format
	Fields []Field

	aliases *AliasTable
	levels  *level.Table
	timeCfg TimeConfig

	predefined [numPredefined]int // index into Fields, or -1 if unresolved
}

// TimeConfig controls how the time predefined field is extracted from its
// raw value (spec §4.4: RFC-3339, RFC-3339-with-space, or Unix with a
// configured or autodetected unit).
type TimeConfig struct {
	UnixUnit tstamp.UnixUnit
}

// Scan parses buf (one record's bytes) and resolves its predefined fields.
// allowPrefix enables skipping a non-JSON prefix before the first '{'.
func Scan(buf []byte, allowPrefix bool, aliases *AliasTable, levels *level.Table, timeCfg TimeConfig) (*Record, error) {
	r := &Record{Raw: buf, aliases: aliases, levels: levels, timeCfg: timeCfg}
	for i := range r.predefined {
		r.predefined[i] = -1
	}

	payload := buf
	if allowPrefix {
		if idx, ok := findObjectStart(buf); ok && idx > 0 {
			r.Prefix = buf[:idx]
			payload = buf[idx:]
		}
	}

	r.Format = DetectFormat(payload)
	var fields []Field
	var err error
	switch r.Format {
	case FormatJSON:
		fields, err = ScanJSONObject(payload)
	default:
		fields, err = ScanLogfmt(payload)
	}
	if err != nil {
		return nil, err
	}
	r.Fields = fields
	r.resolvePredefined()
	return r, nil
}

// resolvePredefined walks Fields in source order, recording the first
// match per predefined kind with earlier-alias priority (spec §4.3).
func (r *Record) resolvePredefined() {
	if r.aliases == nil {
		return
	}
	bestRank := [numPredefined]int{-1, -1, -1, -1, -1}
	for i, f := range r.Fields {
		key, err := f.DecodeKey()
		if err != nil {
			continue
		}
		ref, ok := r.aliases.lookup(key)
		if !ok {
			continue
		}
		if bestRank[ref.kind] == -1 || ref.rank < bestRank[ref.kind] {
			bestRank[ref.kind] = ref.rank
			r.predefined[ref.kind] = i
		}
	}
}

func (r *Record) predefinedValue(kind PredefinedKind) (Value, bool) {
	idx := r.predefined[kind]
	if idx < 0 {
		return Value{}, false
	}
	return r.Fields[idx].Value, true
}

// Time resolves the predefined time field, trying RFC-3339(-like), then a
// Unix numeric timestamp per the configured/autodetected unit (spec §4.4).
func (r *Record) Time() (tstamp.Timestamp, bool) {
	v, ok := r.predefinedValue(PredefinedTime)
	if !ok {
		return tstamp.Timestamp{}, false
	}
	switch v.Kind {
	case KindString:
		s, err := v.String()
		if err != nil {
			return tstamp.Timestamp{}, false
		}
		ts, err := tstamp.ParseRFC3339ish(s)
		if err != nil {
			return tstamp.Timestamp{}, false
		}
		return ts, true
	case KindNumber:
		n, err := v.Number()
		if err != nil {
			return tstamp.Timestamp{}, false
		}
		ts, err := tstamp.ParseUnixNumber(n, r.timeCfg.UnixUnit)
		if err != nil {
			return tstamp.Timestamp{}, false
		}
		return ts, true
	default:
		return tstamp.Timestamp{}, false
	}
}

// Level resolves the predefined level field against the configured level
// table: string variants first, then numeric priority (spec §4.4).
func (r *Record) Level() (level.Level, bool) {
	v, ok := r.predefinedValue(PredefinedLevel)
	if !ok || r.levels == nil {
		return level.Unknown, false
	}
	switch v.Kind {
	case KindString:
		s, err := v.String()
		if err != nil {
			return level.Unknown, false
		}
		return r.levels.ParseString(s)
	case KindNumber:
		n, err := v.Number()
		if err != nil {
			return level.Unknown, false
		}
		return r.levels.ParsePriority(int(n))
	default:
		return level.Unknown, false
	}
}

// Message resolves the predefined message field as a string.
func (r *Record) Message() (string, bool) {
	v, ok := r.predefinedValue(PredefinedMessage)
	if !ok {
		return "", false
	}
	s, err := v.String()
	if err != nil {
		return "", false
	}
	return s, true
}

// Logger resolves the predefined logger-name field as a string.
func (r *Record) Logger() (string, bool) {
	v, ok := r.predefinedValue(PredefinedLogger)
	if !ok {
		return "", false
	}
	s, err := v.String()
	if err != nil {
		return "", false
	}
	return s, true
}

// Caller resolves the predefined caller field as a string.
func (r *Record) Caller() (string, bool) {
	v, ok := r.predefinedValue(PredefinedCaller)
	if !ok {
		return "", false
	}
	s, err := v.String()
	if err != nil {
		return "", false
	}
	return s, true
}

// VisibleField is one non-predefined field, yielded by VisibleFields in
// source order (spec §4.4: "the visible field set").
type VisibleField struct {
	Key   string
	Value Value
}

// VisibleFields returns the fields not resolved into a predefined slot, in
// source order.
func (r *Record) VisibleFields() []VisibleField {
	out := make([]VisibleField, 0, len(r.Fields))
	for i, f := range r.Fields {
		if r.isPredefinedIndex(i) {
			continue
		}
		key, err := f.DecodeKey()
		if err != nil {
			continue
		}
		out = append(out, VisibleField{Key: key, Value: f.Value})
	}
	return out
}

func (r *Record) isPredefinedIndex(i int) bool {
	for _, idx := range r.predefined {
		if idx == i {
			return true
		}
	}
	return false
}

// Lookup resolves a dotted path ("a.b.c") against Fields. Per spec §4.4,
// the path is tried both as a flat key match (a literal field named
// "a.b.c") and as a hierarchical descent (a top-level field "a" whose
// KindObject value contains "b" which contains "c"); first match wins,
// tried in that order via the two helpers below.
func (r *Record) Lookup(path string) (Value, bool) {
	if v, ok := r.lookupFlat(path); ok {
		return v, true
	}
	return r.lookupHierarchical(strings.Split(path, "."))
}

func (r *Record) lookupFlat(key string) (Value, bool) {
	for _, f := range r.Fields {
		k, err := f.DecodeKey()
		if err != nil {
			continue
		}
		if k == key {
			return f.Value, true
		}
	}
	return Value{}, false
}

func (r *Record) lookupHierarchical(segments []string) (Value, bool) {
	if len(segments) == 0 {
		return Value{}, false
	}
	v, ok := r.lookupFlat(segments[0])
	if !ok {
		return Value{}, false
	}
	for _, seg := range segments[1:] {
		if v.Kind != KindObject {
			return Value{}, false
		}
		fields, err := ScanJSONObject(v.Span)
		if err != nil {
			return Value{}, false
		}
		found := false
		for _, f := range fields {
			k, err := f.DecodeKey()
			if err != nil {
				continue
			}
			if k == seg {
				v = f.Value
				found = true
				break
			}
		}
		if !found {
			return Value{}, false
		}
	}
	return v, true
}
