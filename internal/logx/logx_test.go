package logx

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerWritesCategoryPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Level: slog.LevelInfo})
	logger.Warn("index rebuild needed", "source", "app.log")

	out := buf.String()
	if !strings.Contains(out, "warning:") {
		t.Errorf("output = %q, want it to contain %q", out, "warning:")
	}
	if !strings.Contains(out, "index rebuild needed") {
		t.Errorf("output = %q, want it to contain the message", out)
	}
	if !strings.Contains(out, "source=app.log") {
		t.Errorf("output = %q, want it to contain the attribute", out)
	}
}

func TestHandlerRespectsLevelFloor(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Level: slog.LevelWarn})
	logger.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("expected no output below the level floor, got %q", buf.String())
	}
	logger.Error("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("expected the error-level record to be emitted")
	}
}

func TestHandlerWithAttrsPersistsAcrossCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, Options{Level: slog.LevelInfo}).With("run_id", "abc123")
	logger.Info("starting")
	if !strings.Contains(buf.String(), "run_id=abc123") {
		t.Errorf("output = %q, want it to contain the persisted attribute", buf.String())
	}
}
