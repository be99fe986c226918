// Package config defines the resolved runtime configuration the core
// packages consume (spec §5 "Config and theme are read-only process-wide
// after startup; never mutated"), the precedence-layering helper that
// builds it, and the typed error taxonomy of spec §7.
package config

import "fmt"

// Kind identifies one of the error categories in spec §7's taxonomy.
type Kind int

const (
	KindUsage Kind = iota
	KindConfig
	KindTheme
	KindQueryParse
	KindSourceIO
	KindIndexCorrupt
	KindOversizedRecord
	KindMalformedRecord
	KindSink
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "UsageError"
	case KindConfig:
		return "ConfigError"
	case KindTheme:
		return "ThemeError"
	case KindQueryParse:
		return "QueryParseError"
	case KindSourceIO:
		return "SourceIoError"
	case KindIndexCorrupt:
		return "IndexCorrupt"
	case KindOversizedRecord:
		return "OversizedRecord"
	case KindMalformedRecord:
		return "MalformedRecord"
	case KindSink:
		return "SinkError"
	case KindInterrupted:
		return "Interrupted"
	default:
		return "UnknownError"
	}
}

// Error is the single typed error used across the taxonomy of spec §7;
// Kind selects the category, and errors.Is/errors.As work against both
// the Kind and the wrapped cause.
type Error struct {
	Kind Kind
	// Offset is the byte offset within an expression for QueryParseError
	// (spec §7: "Fail fast, with offset within expression"); -1 when not
	// applicable.
	Offset int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is supports errors.Is(err, &config.Error{Kind: config.KindUsage}) style
// matching on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an Error with no offset and no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Offset: -1, Msg: msg}
}

// Wrap constructs an Error wrapping err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Offset: -1, Msg: msg, Err: err}
}

// ExitCode maps a Kind to the process exit code of spec §6.
func (k Kind) ExitCode() int {
	switch k {
	case KindUsage, KindConfig:
		return 1
	case KindSourceIO:
		return 2
	case KindTheme:
		return 3
	case KindInterrupted:
		return 130
	default:
		return 1
	}
}
