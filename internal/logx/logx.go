// Package logx provides the core's internal diagnostic logging (spec
// §7 "single-line messages to stderr with a category prefix"): a thin
// log/slog console handler styled the same way record output is, so a
// user sees one consistent visual language across both (spec's
// [AMBIENT] Logging addition).
package logx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	hllevel "github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/style"
	"github.com/cortexlog/hl/internal/theme"
)

// Options configures a Handler.
type Options struct {
	// Level sets the minimum record level logged. Debug mode (spec §6
	// --debug) should pass slog.LevelDebug here plus AddSource: true.
	Level     slog.Leveler
	AddSource bool
	Theme     *theme.Theme
	Color     bool
}

// Handler is a slog.Handler rendering one themed, single-line record per
// call, mirroring the teacher's "one line to stderr per condition,
// prefixed by category" contract (spec §7) but through a structured
// slog pipeline instead of bare os.Stderr.WriteString/EmitErrorFn calls.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	opts   Options
	groups []string
	attrs  []slog.Attr
}

var _ slog.Handler = (*Handler)(nil)

// New constructs a Handler writing to w.
func New(w io.Writer, opts Options) *Handler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	if opts.Theme == nil {
		opts.Theme = theme.DefaultTheme()
	}
	return &Handler{mu: &sync.Mutex{}, w: w, opts: opts}
}

// NewLogger is a convenience wrapper returning a *slog.Logger over a new
// Handler.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	return slog.New(New(w, opts))
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &cp
}

func (h *Handler) WithGroup(name string) slog.Handler {
	cp := *h
	cp.groups = append(append([]string(nil), h.groups...), name)
	return &cp
}

// category maps an slog.Level to spec §7's stderr prefix convention
// ("error:"/"warning:"/"info:").
func category(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warning"
	case l >= slog.LevelDebug && l < slog.LevelInfo:
		return "debug"
	default:
		return "info"
	}
}

func elementForLevel(l slog.Level) hllevel.Level {
	switch {
	case l >= slog.LevelError:
		return hllevel.Error
	case l >= slog.LevelWarn:
		return hllevel.Warning
	case l >= slog.LevelDebug && l < slog.LevelInfo:
		return hllevel.Debug
	default:
		return hllevel.Info
	}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	lvl := elementForLevel(r.Level)
	c := style.NewComposer(h.opts.Color)

	timeSty, _ := h.opts.Theme.Resolve(theme.ElementTime, lvl)
	c.Write(timeSty, r.Time.Format("15:04:05.000"))
	c.Write(style.Style{}, " ")

	catSty, _ := h.opts.Theme.Resolve(theme.ElementLevel, lvl)
	c.Write(catSty, category(r.Level)+":")
	c.Write(style.Style{}, " ")

	msgSty, _ := h.opts.Theme.Resolve(theme.ElementMessage, lvl)
	c.Write(msgSty, r.Message)

	if h.opts.AddSource && r.PC != 0 {
		if src := sourceOf(r); src != "" {
			c.Write(style.Style{}, " ")
			srcSty, _ := h.opts.Theme.Resolve(theme.ElementCaller, lvl)
			c.Write(srcSty, src)
		}
	}

	var b strings.Builder
	prefix := strings.Join(h.groups, ".")
	writeAttr := func(a slog.Attr) {
		key := a.Key
		if prefix != "" {
			key = prefix + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Any())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})
	fieldSty, _ := h.opts.Theme.Resolve(theme.ElementField, lvl)
	c.Write(fieldSty, b.String())

	c.EndLine()
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, c.String())
	return err
}
