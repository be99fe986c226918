package format

import "strings"

// Pattern is one hide/reveal rule from the field-visibility policy (spec
// §4.6): a field-name pattern with '*' wildcards, optionally negated with
// a leading '!' to mean "reveal" rather than "hide".
type Pattern struct {
	Glob    string
	Reveal  bool // true if this is a "!pattern" reveal rule
}

// ParsePattern parses one configured pattern string.
func ParsePattern(s string) Pattern {
	if strings.HasPrefix(s, "!") {
		return Pattern{Glob: s[1:], Reveal: true}
	}
	return Pattern{Glob: s}
}

// Visibility evaluates a field-name against an ordered list of patterns:
// for each field, the last matching pattern wins; unmatched fields are
// visible (spec §4.6).
type Visibility struct {
	Patterns        []Pattern
	HideEmptyFields bool
}

// NewVisibility builds a Visibility from raw pattern strings in config
// order.
func NewVisibility(patterns []string, hideEmptyFields bool) *Visibility {
	v := &Visibility{HideEmptyFields: hideEmptyFields}
	for _, p := range patterns {
		v.Patterns = append(v.Patterns, ParsePattern(p))
	}
	return v
}

// Hidden reports whether the named field should be suppressed.
func (v *Visibility) Hidden(name string, isEmpty bool) bool {
	if v == nil {
		return false
	}
	if v.HideEmptyFields && isEmpty {
		return true
	}
	hidden := false
	for _, p := range v.Patterns {
		if globMatch(p.Glob, name) {
			hidden = !p.Reveal
		}
	}
	return hidden
}

// globMatch matches name against a pattern containing only literal bytes
// and '*' wildcards (spec §4.6: "wildcard `*` permitted" — no other glob
// metacharacters are part of the policy, so a hand-rolled matcher avoids
// accidentally treating field names containing '?' or '[' as patterns the
// way path.Match would).
func globMatch(pattern, name string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == name
	}
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	name = name[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(name, parts[i])
		if idx < 0 {
			return false
		}
		name = name[idx+len(parts[i]):]
	}
	last := parts[len(parts)-1]
	return strings.HasSuffix(name, last) && len(name) >= len(last)
}
