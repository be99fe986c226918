// Package format implements the formatter (spec §4.6 / C6): rendering a
// resolved record into themed, styled output with field visibility,
// flattening, and value-expansion policies.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/style"
	"github.com/cortexlog/hl/internal/theme"
	"github.com/cortexlog/hl/internal/tstamp"
)

// Config controls layout and policy knobs independent of the theme
// itself (spec §4.6).
type Config struct {
	Theme              *theme.Theme
	Visibility         *Visibility
	Expansion          Expansion
	Flatten            bool
	ElideDuplicateFields bool
	ShowInputIndicator bool
	HighlightFields    map[string]bool // field keys rendered with the "highlight" role
	ColorEnabled       bool
	Levels             *level.Table

	// TimeTemplate, when set, renders timestamps with a user-supplied
	// strftime template/zone (--time-format/--time-zone) instead of the
	// default RFC3339-ish layout.
	TimeTemplate *tstamp.Template

	// Zone applies to the default (non-template) rendering path only; the
	// template path carries its own zone.
	Zone *time.Location
}

// State is the per-source "cold" side-structure the formatter consults
// for cross-line behavior (duplicate-field elision): it tracks the last
// seen raw value per field key, separately from the hot per-call
// rendering path, so lines with nothing to elide pay no allocation cost
// beyond a map lookup (spec §9, "Expansion-driven state plumbing";
// grounded on the teacher's DefaultOutputFormatter.ElideDuplicateFields /
// state.lastFields).
type State struct {
	lastFieldValues map[string]string
}

// NewState creates formatter state for one logical output stream (one
// per merged source ordering, matching the teacher's one-State-per-run
// model).
func NewState() *State {
	return &State{lastFieldValues: make(map[string]string)}
}

// Formatter renders records into a style.Composer per Config.
type Formatter struct {
	cfg Config
}

// New creates a Formatter.
func New(cfg Config) *Formatter {
	return &Formatter{cfg: cfg}
}

// Format renders one record's line(s) into c, in layout order: optional
// input indicator, time, level, logger, message, fields, caller. Any
// section whose source value is absent is omitted together with its
// separator (spec §4.6).
func (f *Formatter) Format(c *style.Composer, r *record.Record, inputIndicator string, st *State) error {
	lvl, _ := r.Level()

	wroteAny := false
	sep := func() {
		if wroteAny {
			c.Write(style.Style{}, " ")
		}
	}

	if f.cfg.ShowInputIndicator && inputIndicator != "" {
		sep()
		sty, err := f.cfg.Theme.Resolve(theme.ElementBullet, lvl)
		if err != nil {
			return err
		}
		c.Write(sty, inputIndicator)
		wroteAny = true
	}

	if ts, ok := r.Time(); ok && ts.Valid() {
		sep()
		sty, err := f.cfg.Theme.Resolve(theme.ElementTime, lvl)
		if err != nil {
			return err
		}
		t := ts.Time()
		if f.cfg.Zone != nil {
			t = t.In(f.cfg.Zone)
		}
		rendered := t.Format("2006-01-02T15:04:05.000Z07:00")
		if f.cfg.TimeTemplate != nil {
			rendered = f.cfg.TimeTemplate.Format(ts)
		}
		c.Write(sty, rendered)
		wroteAny = true
	}

	if lv, ok := r.Level(); ok {
		sep()
		sty, err := f.cfg.Theme.Resolve(theme.ElementLevel, lvl)
		if err != nil {
			return err
		}
		c.Write(sty, padLevel(lv))
		wroteAny = true
	}

	if logger, ok := r.Logger(); ok && logger != "" {
		sep()
		sty, err := f.cfg.Theme.Resolve(theme.ElementLogger, lvl)
		if err != nil {
			return err
		}
		c.Write(sty, logger)
		wroteAny = true
	}

	if msg, ok := r.Message(); ok && msg != "" {
		sep()
		sty, err := f.cfg.Theme.Resolve(theme.ElementMessage, lvl)
		if err != nil {
			return err
		}
		c.Write(sty, msg)
		wroteAny = true
	}

	fields := f.visibleFields(r)
	for _, vf := range fields {
		sep()
		if err := f.formatField(c, lvl, vf, st); err != nil {
			return err
		}
		wroteAny = true
	}

	if caller, ok := r.Caller(); ok && caller != "" {
		sep()
		sty, err := f.cfg.Theme.Resolve(theme.ElementCaller, lvl)
		if err != nil {
			return err
		}
		c.Write(sty, caller)
		wroteAny = true
	}

	c.EndLine()
	return nil
}

func padLevel(l level.Level) string {
	s := strings.ToUpper(l.String())
	for len(s) < 5 {
		s += " "
	}
	if len(s) > 5 {
		s = s[:5]
	}
	return s
}

// visibleFields applies flattening then the visibility policy to a
// record's non-predefined fields.
func (f *Formatter) visibleFields(r *record.Record) []record.VisibleField {
	fields := r.VisibleFields()
	if f.cfg.Flatten {
		fields = flatten(fields)
	}
	out := fields[:0:0]
	for _, vf := range fields {
		if f.cfg.Visibility.Hidden(vf.Key, vf.Value.IsEmpty()) {
			continue
		}
		out = append(out, vf)
	}
	return out
}

// flatten expands KindObject field values into dotted-path leaves (spec
// §4.6: "nested object keys are joined with '.'. Arrays are never
// flattened"). Non-object fields pass through unchanged.
func flatten(fields []record.VisibleField) []record.VisibleField {
	var out []record.VisibleField
	for _, vf := range fields {
		if vf.Value.Kind != record.KindObject {
			out = append(out, vf)
			continue
		}
		nested, err := record.ScanJSONObject(vf.Value.Span)
		if err != nil {
			out = append(out, vf)
			continue
		}
		out = append(out, flattenNested(vf.Key, nested)...)
	}
	return out
}

func flattenNested(prefix string, fields []record.Field) []record.VisibleField {
	var out []record.VisibleField
	for _, f := range fields {
		key, err := f.DecodeKey()
		if err != nil {
			continue
		}
		full := prefix + "." + key
		if f.Value.Kind == record.KindObject {
			nested, err := record.ScanJSONObject(f.Value.Span)
			if err == nil {
				out = append(out, flattenNested(full, nested)...)
				continue
			}
		}
		out = append(out, record.VisibleField{Key: full, Value: f.Value})
	}
	return out
}

// formatField renders one key/value pair, applying expansion policy,
// numeric-preservation, highlight-field styling, and duplicate-value
// elision.
func (f *Formatter) formatField(c *style.Composer, lvl level.Level, vf record.VisibleField, st *State) error {
	keySty, err := f.cfg.Theme.Resolve(theme.ElementKey, lvl)
	if err != nil {
		return err
	}
	if f.cfg.HighlightFields[vf.Key] {
		keySty.Modes |= style.Bold
	}
	c.Write(keySty, vf.Key+"=")

	rendered, valueSty, err := f.renderValue(vf.Value, lvl)
	if err != nil {
		return err
	}

	if f.cfg.ElideDuplicateFields && st != nil {
		if prev, ok := st.lastFieldValues[vf.Key]; ok && prev == rendered {
			c.Write(valueSty, "↑")
			return nil
		}
		st.lastFieldValues[vf.Key] = rendered
	}

	switch f.cfg.Expansion {
	case ExpandNever:
		c.Write(valueSty, escapeSingleLine(rendered))
	default:
		if shouldExpandField(f.cfg.Expansion, rendered) {
			c.Write(valueSty, "\n  "+strings.ReplaceAll(rendered, "\n", "\n  "))
		} else {
			c.Write(valueSty, rendered)
		}
	}
	return nil
}

// renderValue decodes a value to display text, preserving the source's
// exact numeric textual representation except for scientific-notation
// normalisation within IEEE-754 double parse bounds (spec §4.6).
func (f *Formatter) renderValue(v record.Value, lvl level.Level) (string, style.Style, error) {
	switch v.Kind {
	case record.KindString:
		s, err := v.String()
		if err != nil {
			return "", style.Style{}, err
		}
		sty, err := f.cfg.Theme.Resolve(theme.ElementString, lvl)
		return s, sty, err
	case record.KindNumber:
		sty, err := f.cfg.Theme.Resolve(theme.ElementNumber, lvl)
		return normalizeNumber(string(v.Span)), sty, err
	case record.KindBool:
		el := theme.ElementBooleanFalse
		if v.Bool {
			el = theme.ElementBooleanTrue
		}
		sty, err := f.cfg.Theme.Resolve(el, lvl)
		return string(v.Span), sty, err
	case record.KindNull:
		sty, err := f.cfg.Theme.Resolve(theme.ElementNull, lvl)
		return "null", sty, err
	case record.KindArray:
		sty, err := f.cfg.Theme.Resolve(theme.ElementArray, lvl)
		return string(v.Span), sty, err
	default:
		sty, err := f.cfg.Theme.Resolve(theme.ElementObject, lvl)
		return string(v.Span), sty, err
	}
}

// normalizeNumber keeps the source's textual form unless it is in
// scientific notation and parses cleanly as a float64, in which case it
// is reformatted in the shortest round-tripping decimal form (spec
// §4.6: "scientific notation may be normalised when the source is
// within parse bounds of an IEEE-754 double").
func normalizeNumber(raw string) string {
	if !strings.ContainsAny(raw, "eE") {
		return raw
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
