package config

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ResolveColor decides whether ANSI styling should be emitted for a given
// output destination, the way the teacher's cmd/jlog computes wantColor
// from isatty.IsTerminal(os.Stdout.Fd()) before --no-color/--no-monochrome
// overrides are applied. ColorAlways/ColorNever are absolute; ColorAuto
// defers to whether out is an interactive terminal.
func (r *Resolved) ResolveColor(out *os.File) bool {
	switch r.ColorMode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		fd := out.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}
