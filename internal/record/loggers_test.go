package record

import (
	"bytes"
	"errors"
	"testing"

	"code.cloudfoundry.org/lager"
	joonix "github.com/joonix/log"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cortexlog/hl/internal/level"
)

// These fixtures generate real JSON output from the third-party
// structured-logging libraries the pack exercises (mirroring the
// teacher's integration-tests/loggers_test.go), exercising the alias
// table's ecosystem coverage and the timestamp scanner's unit
// autodetection against actual library output rather than hand-typed
// JSON.

func TestScanZapOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(enc, zapcore.AddSync(buf), zap.DebugLevel)
	l := zap.New(core)
	l.Info("disk low", zap.Int("pct", 91))
	l.Error("disk full", zap.Error(errors.New("no space")))

	lines := splitLines(buf.Bytes())
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}

	r := mustScan(t, lines[0])
	ts, ok := r.Time()
	if !ok || !ts.Valid() {
		t.Errorf("line 1 Time() = %v, %v", ts, ok)
	}
	if msg, ok := r.Message(); !ok || msg != "disk low" {
		t.Errorf("line 1 Message() = %q, %v", msg, ok)
	}
	if lvl, ok := r.Level(); !ok || lvl != level.Info {
		t.Errorf("line 1 Level() = %v, %v, want Info", lvl, ok)
	}

	r2 := mustScan(t, lines[1])
	if lvl, ok := r2.Level(); !ok || lvl != level.Error {
		t.Errorf("line 2 Level() = %v, %v, want Error", lvl, ok)
	}
}

func TestScanLogrusJSONOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := &logrus.Logger{Out: buf, Formatter: new(logrus.JSONFormatter), Level: logrus.DebugLevel}
	l.WithField("pct", 91).Warn("disk low")

	r := mustScan(t, bytes.TrimRight(buf.Bytes(), "\n"))
	if msg, ok := r.Message(); !ok || msg != "disk low" {
		t.Errorf("Message() = %q, %v", msg, ok)
	}
	if lvl, ok := r.Level(); !ok || lvl != level.Warning {
		t.Errorf("Level() = %v, %v, want Warning", lvl, ok)
	}
	ts, ok := r.Time()
	if !ok || !ts.Valid() {
		t.Errorf("Time() = %v, %v", ts, ok)
	}
}

func TestScanJoonixStackdriverOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	l := &logrus.Logger{Out: buf, Formatter: joonix.NewFormatter(), Level: logrus.DebugLevel}
	l.WithField("pct", 91).Info("disk low")

	r := mustScan(t, bytes.TrimRight(buf.Bytes(), "\n"))
	if msg, ok := r.Message(); !ok || msg != "disk low" {
		t.Errorf("Message() = %q, %v", msg, ok)
	}
	if lvl, ok := r.Level(); !ok || lvl != level.Info {
		t.Errorf("Level() = %v, %v, want Info", lvl, ok)
	}
	ts, ok := r.Time()
	if !ok || !ts.Valid() {
		t.Errorf("Time() = %v, %v", ts, ok)
	}
}

// lager's writer sink numbers levels 0-3 in its own scheme (debug, info,
// error, fatal), distinct from the syslog priorities DefaultTable maps;
// and both of lager's sinks append the logger's session name to the
// message text. The teacher's own loggers_test.go skips this combination
// for the same reason ("we can't handle the extra 'test.' appended to
// each message"); this fixture documents the same limitation here rather
// than silently dropping lager from the test matrix.
func TestScanLagerOutput(t *testing.T) {
	t.Skip("lager appends a session prefix to the message and uses non-syslog level codes; not handled by the default alias/level tables, matching the teacher's own skip")

	buf := &bytes.Buffer{}
	l := lager.NewLogger("test")
	l.RegisterSink(lager.NewWriterSink(buf, lager.DEBUG))
	l.Info("disk low", lager.Data{"pct": 91})
	_ = mustScan(t, bytes.TrimRight(buf.Bytes(), "\n"))
}

func mustScan(t *testing.T, line []byte) *Record {
	t.Helper()
	r, err := Scan(line, false, DefaultAliasTable(), level.DefaultTable(), TimeConfig{})
	if err != nil {
		t.Fatalf("Scan(%q): %v", line, err)
	}
	return r
}

func splitLines(buf []byte) [][]byte {
	var out [][]byte
	for _, l := range bytes.Split(bytes.TrimRight(buf, "\n"), []byte("\n")) {
		if len(l) > 0 {
			out = append(out, l)
		}
	}
	return out
}
