package format

import "strings"

// Expansion selects how multi-line field values are rendered (spec §4.6).
type Expansion int

const (
	ExpandNever Expansion = iota
	ExpandInline
	ExpandAuto
	ExpandAlways
)

// isMultiline reports whether a decoded string value contains a newline
// or tab, the trigger condition for ExpandAuto (spec §4.6: "if any field
// is multi-line, that field is rendered on its own indented line").
func isMultiline(s string) bool {
	return strings.ContainsAny(s, "\n\t")
}

// escapeSingleLine escapes newlines/tabs for ExpandNever rendering (spec
// §4.6: "newlines/tabs inside strings are escaped").
func escapeSingleLine(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// shouldExpandField decides, for one field's decoded string value,
// whether it is rendered indented-on-its-own-line under the configured
// mode.
func shouldExpandField(mode Expansion, value string) bool {
	switch mode {
	case ExpandAlways:
		return true
	case ExpandAuto:
		return isMultiline(value)
	default:
		return false
	}
}
