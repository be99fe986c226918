package query

import (
	"strconv"
	"strings"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
)

// Evaluator evaluates a compiled Expr tree against records, using the
// level table configured for the run (spec §4.5: "level <op> <word> uses
// the Level total order and the configured string-to-level mapping").
type Evaluator struct {
	Levels *level.Table
}

// Eval reports whether r satisfies expr.
func (e *Evaluator) Eval(expr Expr, r *record.Record) bool {
	switch n := expr.(type) {
	case And:
		return e.Eval(n.Left, r) && e.Eval(n.Right, r)
	case Or:
		return e.Eval(n.Left, r) || e.Eval(n.Right, r)
	case Not:
		return !e.Eval(n.Inner, r)
	case Compare:
		return e.evalCompare(n, r)
	case Like:
		return e.evalLike(n, r)
	case InSet:
		return e.evalInSet(n, r)
	case Exists:
		return e.evalExists(n, r)
	default:
		return false
	}
}

// resolved is the field lookup result: present, the decoded Value (when
// applicable), and a string form when the value can be treated as text.
type resolved struct {
	present bool
	value   record.Value
}

func (e *Evaluator) resolve(f FieldRef, r *record.Record) resolved {
	switch f.Predefined {
	case "level":
		if lvl, ok := r.Level(); ok {
			return resolved{present: true, value: record.Value{Kind: record.KindString, Span: []byte(`"` + lvl.String() + `"`)}}
		}
		return resolved{}
	case "message":
		if msg, ok := r.Message(); ok {
			return resolved{present: true, value: stringValue(msg)}
		}
		return resolved{}
	case "logger":
		if s, ok := r.Logger(); ok {
			return resolved{present: true, value: stringValue(s)}
		}
		return resolved{}
	case "caller":
		if s, ok := r.Caller(); ok {
			return resolved{present: true, value: stringValue(s)}
		}
		return resolved{}
	case "time":
		if ts, ok := r.Time(); ok && ts.Valid() {
			return resolved{present: true, value: stringValue(ts.Time().Format("2006-01-02T15:04:05.000000000Z07:00"))}
		}
		return resolved{}
	default:
		v, ok := r.Lookup(f.Path)
		return resolved{present: ok, value: v}
	}
}

func stringValue(s string) record.Value {
	return record.Value{Kind: record.KindString, Span: []byte(strconv.Quote(s))}
}

// absentResult applies the include-absent modifier (spec §4.5): without
// '?', every predicate is false when its field is absent; with '?', an
// absent field makes the predicate true.
func absentResult(f FieldRef) bool { return f.IncludeAbsent }

func (e *Evaluator) evalCompare(c Compare, r *record.Record) bool {
	res := e.resolve(c.Field, r)
	if !res.present {
		return absentResult(c.Field)
	}
	if c.Field.Predefined == "level" {
		return e.evalLevelCompare(c, res)
	}
	switch c.Op {
	case OpEq, OpNe:
		return e.evalEqNe(c, res)
	case OpLt, OpLe, OpGt, OpGe:
		return e.evalOrdering(c, res)
	case OpContains, OpNotContains:
		return e.evalContains(c, res)
	case OpMatches, OpNotMatches:
		return e.evalMatches(c, res)
	default:
		return false
	}
}

func (e *Evaluator) evalLevelCompare(c Compare, res resolved) bool {
	s, err := res.value.String()
	if err != nil {
		return false
	}
	lvl, ok := e.Levels.ParseString(s)
	if !ok {
		return false
	}
	want, ok := e.Levels.ParseString(c.Literal.Str)
	if !ok {
		return false
	}
	switch c.Op {
	case OpEq:
		return lvl == want
	case OpNe:
		return lvl != want
	case OpLt:
		return lvl.Less(want)
	case OpLe:
		return lvl.LessEqual(want)
	case OpGt:
		return want.Less(lvl)
	case OpGe:
		return want.LessEqual(lvl)
	default:
		return false
	}
}

// numericBoth attempts to read both sides as numbers (spec §4.5:
// "Numeric comparison when both sides parse as numbers; otherwise
// lexicographic").
func numericBoth(res resolved, lit Literal) (float64, float64, bool) {
	if lit.Kind != LiteralNumber {
		return 0, 0, false
	}
	if res.value.Kind != record.KindNumber {
		// A string field might still hold numeric text (e.g. logfmt bare
		// tokens are stringly typed); try parsing it.
		s, err := res.value.String()
		if err != nil {
			return 0, 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, 0, false
		}
		return n, lit.Num, true
	}
	n, err := res.value.Number()
	if err != nil {
		return 0, 0, false
	}
	return n, lit.Num, true
}

func (e *Evaluator) evalEqNe(c Compare, res resolved) bool {
	if a, b, ok := numericBoth(res, c.Literal); ok {
		eq := a == b
		if c.Op == OpNe {
			return !eq
		}
		return eq
	}
	s, err := res.value.String()
	if err != nil {
		return false
	}
	eq := s == c.Literal.Str
	if c.Op == OpNe {
		return !eq
	}
	return eq
}

func (e *Evaluator) evalOrdering(c Compare, res resolved) bool {
	if a, b, ok := numericBoth(res, c.Literal); ok {
		switch c.Op {
		case OpLt:
			return a < b
		case OpLe:
			return a <= b
		case OpGt:
			return a > b
		case OpGe:
			return a >= b
		}
	}
	s, err := res.value.String()
	if err != nil {
		return false
	}
	switch c.Op {
	case OpLt:
		return s < c.Literal.Str
	case OpLe:
		return s <= c.Literal.Str
	case OpGt:
		return s > c.Literal.Str
	case OpGe:
		return s >= c.Literal.Str
	default:
		return false
	}
}

func (e *Evaluator) evalContains(c Compare, res resolved) bool {
	s, err := res.value.String()
	if err != nil {
		return false
	}
	contains := strings.Contains(s, c.Literal.Str)
	if c.Op == OpNotContains {
		return !contains
	}
	return contains
}

func (e *Evaluator) evalMatches(c Compare, res resolved) bool {
	s, err := res.value.String()
	if err != nil {
		return false
	}
	matches := c.Regex != nil && c.Regex.MatchString(s)
	if c.Op == OpNotMatches {
		return !matches
	}
	return matches
}

func (e *Evaluator) evalLike(l Like, r *record.Record) bool {
	res := e.resolve(l.Field, r)
	if !res.present {
		return absentResult(l.Field)
	}
	s, err := res.value.String()
	if err != nil {
		return false
	}
	matches := l.Pattern.MatchString(s)
	if l.Negate {
		return !matches
	}
	return matches
}

func (e *Evaluator) evalInSet(in InSet, r *record.Record) bool {
	res := e.resolve(in.Field, r)
	if !res.present {
		return absentResult(in.Field)
	}
	s, err := res.value.String()
	if err != nil {
		return false
	}
	_, found := in.Set[s]
	if in.Negate {
		return !found
	}
	return found
}

func (e *Evaluator) evalExists(ex Exists, r *record.Record) bool {
	res := e.resolve(ex.Field, r)
	if ex.Negate {
		return !res.present
	}
	return res.present
}
