// Package style implements the Style triple (spec §3) and an ANSI escape
// composer, grounded on the ANSI-code-building approach in the
// console-slog example from the pack (ToANSICode in theme.go) and the
// aurora-based coloring the teacher uses for its own DefaultOutputFormatter.
package style

import (
	"strconv"
	"strings"
)

// ColorKind distinguishes the four color spaces a Style's fg/bg may use.
type ColorKind int

const (
	ColorDefault ColorKind = iota
	ColorNamed16
	ColorPalette256
	ColorRGB24
)

// Color is one of: default (no color), a named 16-color ANSI code,
// an 8-bit palette-256 index, or a 24-bit RGB triple.
type Color struct {
	Kind ColorKind
	// Code holds the named16 base code (30-37/90-97) or the palette256 index.
	Code uint8
	R, G, B uint8
}

func Default() Color                  { return Color{Kind: ColorDefault} }
func Named16(code uint8) Color        { return Color{Kind: ColorNamed16, Code: code} }
func Palette256(idx uint8) Color      { return Color{Kind: ColorPalette256, Code: idx} }
func RGB(r, g, b uint8) Color         { return Color{Kind: ColorRGB24, R: r, G: g, B: b} }

// Named 16-color constants, foreground codes; add 10 for background,
// add 60 for the bright variants (matching the teacher-adjacent
// console-slog example's Black..White/BrightBlack..White tables).
const (
	Black = 30 + iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

const (
	BrightBlack = 90 + iota
	BrightRed
	BrightGreen
	BrightYellow
	BrightBlue
	BrightMagenta
	BrightCyan
	BrightWhite
)

// Modes is a bitset of SGR text modes.
type Modes uint16

const (
	Bold Modes = 1 << iota
	Faint
	Italic
	Underline
	Blink
	Reverse
	CrossedOut
)

var modeCodes = []struct {
	bit  Modes
	code int
}{
	{Bold, 1},
	{Faint, 2},
	{Italic, 3},
	{Underline, 4},
	{Blink, 5},
	{Reverse, 7},
	{CrossedOut, 9},
}

// Style is a (foreground, background, modes) triple referenced by element
// or role name, per spec §3.
type Style struct {
	FG, BG Color
	Modes  Modes
}

// codes returns the SGR parameter codes for this style, excluding the
// leading "\x1b[" and trailing "m".
func (s Style) codes() []string {
	var out []string
	for _, m := range modeCodes {
		if s.Modes&m.bit != 0 {
			out = append(out, strconv.Itoa(m.code))
		}
	}
	out = append(out, colorCodes(s.FG, false)...)
	out = append(out, colorCodes(s.BG, true)...)
	return out
}

func colorCodes(c Color, bg bool) []string {
	base := 30
	if bg {
		base = 40
	}
	switch c.Kind {
	case ColorDefault:
		return nil
	case ColorNamed16:
		code := int(c.Code)
		if code >= 90 {
			if bg {
				code += 10
			}
			return []string{strconv.Itoa(code)}
		}
		return []string{strconv.Itoa(base + (code - 30))}
	case ColorPalette256:
		return []string{strconv.Itoa(base + 8), "5", strconv.Itoa(int(c.Code))}
	case ColorRGB24:
		return []string{strconv.Itoa(base + 8), "2", strconv.Itoa(int(c.R)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.B))}
	}
	return nil
}

// Escape renders the minimal SGR escape sequence for s, or "" if s applies
// no styling at all.
func (s Style) Escape() string {
	codes := s.codes()
	if len(codes) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(codes, ";") + "m"
}

// IsZero reports whether s applies no visible styling.
func (s Style) IsZero() bool { return len(s.codes()) == 0 }

const Reset = "\x1b[0m"

// Composer writes styled runs to an underlying strings.Builder (read
// back with String), collapsing adjacent identical styles
// into a single escape sequence and emitting a reset only when needed
// (spec §4.12: "emits minimal escape sequences; collapses adjacent
// identical styles; emits a reset at end-of-line").
type Composer struct {
	buf     strings.Builder
	current Style
	open    bool
	enabled bool
}

// NewComposer creates a Composer.  When enabled is false, Write never
// emits escape codes, supporting --color never without forking the
// formatting code path (mirroring the teacher's approach of gating all
// color through a single Aurora instance rather than branching per call
// site).
func NewComposer(enabled bool) *Composer {
	return &Composer{enabled: enabled}
}

// Write appends text styled with s.  Adjacent calls with an identical
// style do not re-emit the escape sequence.
func (c *Composer) Write(s Style, text string) {
	if !c.enabled || s.IsZero() {
		if c.open {
			c.buf.WriteString(Reset)
			c.open = false
		}
		c.buf.WriteString(text)
		return
	}
	if !c.open || s != c.current {
		if c.open {
			c.buf.WriteString(Reset)
		}
		c.buf.WriteString(s.Escape())
		c.current = s
		c.open = true
	}
	c.buf.WriteString(text)
}

// EndLine flushes a trailing reset (if any style is open) and a newline.
func (c *Composer) EndLine() {
	if c.open {
		c.buf.WriteString(Reset)
		c.open = false
	}
	c.buf.WriteByte('\n')
}

func (c *Composer) String() string { return c.buf.String() }
func (c *Composer) Reset()         { c.buf.Reset(); c.open = false }
func (c *Composer) Len() int       { return c.buf.Len() }
