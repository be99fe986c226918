package logx

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
)

// sourceOf renders r's program counter as "file:line" (spec §6 --debug
// "enables source location"), truncated to the final path element the
// way the teacher keeps diagnostics terse.
func sourceOf(r slog.Record) string {
	if r.PC == 0 {
		return ""
	}
	frames := runtime.CallersFrames([]uintptr{r.PC})
	frame, _ := frames.Next()
	if frame.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
