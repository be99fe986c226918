// Package level implements the total-order log level used across the
// scanner, query engine, and formatter.
package level

import "strings"

// Level is a log severity.  The zero value is Unknown, which compares
// incomparable to every other Level: no ordering operator ever returns
// true when either side is Unknown.
type Level uint8

const (
	Unknown Level = iota
	Trace
	Debug
	Info
	Warning
	Error
)

// numLevels is the count of Level constants, used to size bitmasks.
const numLevels = int(Error) + 1

func (l Level) String() string {
	switch l {
	case Trace:
		return "trace"
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Less reports whether l is strictly less severe than other.  Unknown
// never compares less than (or greater than) anything, including itself.
func (l Level) Less(other Level) bool {
	if l == Unknown || other == Unknown {
		return false
	}
	return l < other
}

// LessEqual reports l <= other under the same Unknown-is-incomparable rule.
func (l Level) LessEqual(other Level) bool {
	if l == Unknown || other == Unknown {
		return false
	}
	return l <= other
}

// Mask is a bitmask over the Level enum, one bit per level plus Unknown.
// Bit assignment matches the persisted segment index layout (spec §6):
// 0=Trace, 1=Debug, 2=Info, 3=Warning, 4=Error, 5=Unknown.
type Mask uint8

func (l Level) bit() Mask {
	switch l {
	case Trace:
		return 1 << 0
	case Debug:
		return 1 << 1
	case Info:
		return 1 << 2
	case Warning:
		return 1 << 3
	case Error:
		return 1 << 4
	default:
		return 1 << 5
	}
}

// MaskOf builds a Mask containing exactly the given levels.
func MaskOf(ls ...Level) Mask {
	var m Mask
	for _, l := range ls {
		m |= l.bit()
	}
	return m
}

// Add sets l's bit in the mask, returning the updated mask.
func (m Mask) Add(l Level) Mask { return m | l.bit() }

// Has reports whether l's bit is set in the mask.
func (m Mask) Has(l Level) bool { return m&l.bit() != 0 }

// Intersects reports whether m and other share any level.
func (m Mask) Intersects(other Mask) bool { return m&other != 0 }

// Floor returns a mask containing every level >= floor (Unknown is never
// included by a floor; callers that want to pass Unknown records through
// must add it explicitly).
func Floor(floor Level) Mask {
	var m Mask
	for lv := Trace; lv <= Error; lv++ {
		if floor == Unknown || lv >= floor {
			m = m.Add(lv)
		}
	}
	return m
}

// Variant describes one named or numbered spelling of a level, as used by
// --level-aliases style configuration (e.g. "warn" as well as "warning",
// or syslog priorities 0-7).
type Variant struct {
	Names      []string
	Priorities []int
}

// Table maps the configured string/numeric variants to Levels, preserving
// alias order so earlier aliases win over later ones when two alias sets
// both match (spec §4.3: "earlier alias has priority when distinct
// aliases both appear").
type Table struct {
	order   []Level
	byName  map[string]Level
	byPrio  map[int]Level
}

// DefaultTable returns the built-in alias table: case-insensitive English
// names plus the 0-7 syslog priority numbers, matching the conventions the
// teacher's DefaultLevelParser established (trace/debug/info/warn/error,
// generalized here to spec.md's five-level total order; panic/fatal/dpanic
// collapse into Error, matching their syslog severity).
func DefaultTable() *Table {
	t := &Table{byName: map[string]Level{}, byPrio: map[int]Level{}}
	t.addVariant(Trace, Variant{Names: []string{"trace"}, Priorities: []int{7}})
	t.addVariant(Debug, Variant{Names: []string{"debug"}, Priorities: []int{7}})
	t.addVariant(Info, Variant{Names: []string{"info", "information", "notice"}, Priorities: []int{6, 5}})
	t.addVariant(Warning, Variant{Names: []string{"warn", "warning"}, Priorities: []int{4}})
	t.addVariant(Error, Variant{Names: []string{"error", "err", "fatal", "panic", "dpanic", "critical", "crit", "alert", "emergency", "emerg"}, Priorities: []int{3, 2, 1, 0}})
	return t
}

func (t *Table) addVariant(l Level, v Variant) {
	t.order = append(t.order, l)
	for _, n := range v.Names {
		key := strings.ToLower(n)
		if _, exists := t.byName[key]; !exists {
			t.byName[key] = l
		}
	}
	for _, p := range v.Priorities {
		if _, exists := t.byPrio[p]; !exists {
			t.byPrio[p] = l
		}
	}
}

// ParseString parses a level from its string spelling, case-insensitively.
func (t *Table) ParseString(s string) (Level, bool) {
	l, ok := t.byName[strings.ToLower(strings.TrimSpace(s))]
	return l, ok
}

// ParsePriority parses a level from a numeric syslog-style priority.
func (t *Table) ParsePriority(p int) (Level, bool) {
	l, ok := t.byPrio[p]
	return l, ok
}
