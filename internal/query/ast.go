// Package query implements the query grammar compiler and evaluator
// (spec §4.5 / C5): a small boolean expression language over record
// fields, plus an optional gojq-based extension stage layered on top.
package query

import "regexp"

// FieldRef names which record value a predicate reads.
type FieldRef struct {
	// Predefined is one of "level", "message", "logger", "caller", "time"
	// when this ref names a predefined slot (bare name, spec §4.5); empty
	// otherwise.
	Predefined string
	// Path is the dotted path for a literal field lookup (a leading '.'
	// in the surface syntax, or any name not matching a predefined slot).
	Path string
	// IncludeAbsent widens the predicate to match when the field is
	// absent (the '?' suffix modifier, spec §4.5).
	IncludeAbsent bool
}

// Expr is a node in the compiled query tree.
type Expr interface {
	expr()
}

// And/Or/Not are boolean combinators.
type And struct{ Left, Right Expr }
type Or struct{ Left, Right Expr }
type Not struct{ Inner Expr }

func (And) expr() {}
func (Or) expr()  {}
func (Not) expr() {}

// CompareOp enumerates the equality/ordering/substring/regex operators.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
	OpNotContains
	OpMatches
	OpNotMatches
)

// Compare is a `field op literal` predicate.
type Compare struct {
	Field   FieldRef
	Op      CompareOp
	Literal Literal
	// Regex is pre-compiled once at query build time when Op is
	// OpMatches/OpNotMatches (spec §4.5: "compilation errors surface as
	// user-visible QueryParseError at startup").
	Regex *regexp.Regexp
}

func (Compare) expr() {}

// Like is a wildcard predicate (`*` any run, `?` one char), compiled to a
// regexp at build time (spec §4.5: "compile to an automaton (no
// backtracking pathologies)" — Go's RE2-based regexp package guarantees
// linear-time matching, which satisfies this without a bespoke automaton).
type Like struct {
	Field    FieldRef
	Pattern  *regexp.Regexp
	Negate   bool
}

func (Like) expr() {}

// InSet is a set-membership predicate; the set itself (loaded from a
// literal list, @file, or @- beforehand) is a plain string set by the
// time the AST is built (spec §4.5: "pre-loads the set as a hashed set
// of strings").
type InSet struct {
	Field  FieldRef
	Set    map[string]struct{}
	Negate bool
}

func (InSet) expr() {}

// Exists is the `exists(field)`/`not exists(field)` predicate.
type Exists struct {
	Field  FieldRef
	Negate bool
}

func (Exists) expr() {}

// Literal is a query-syntax literal value (spec §3 Query AST: "Number,
// String, Null, Set").
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
}

type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralNull
)
