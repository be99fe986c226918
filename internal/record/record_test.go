package record

import (
	"testing"

	"github.com/cortexlog/hl/internal/level"
)

func testScan(t *testing.T, buf string, allowPrefix bool) *Record {
	t.Helper()
	r, err := Scan([]byte(buf), allowPrefix, DefaultAliasTable(), level.DefaultTable(), TimeConfig{})
	if err != nil {
		t.Fatalf("Scan(%q): %v", buf, err)
	}
	return r
}

func TestRecordResolvesPredefinedFields(t *testing.T) {
	r := testScan(t, `{"ts":"2024-01-02T03:04:05Z","level":"warn","msg":"disk low","logger":"svc.disk","caller":"disk.go:10","pct":91}`, false)

	ts, ok := r.Time()
	if !ok || !ts.Valid() {
		t.Fatalf("Time() = %v, %v", ts, ok)
	}
	lvl, ok := r.Level()
	if !ok || lvl != level.Warning {
		t.Fatalf("Level() = %v, %v, want Warning", lvl, ok)
	}
	msg, ok := r.Message()
	if !ok || msg != "disk low" {
		t.Fatalf("Message() = %q, %v", msg, ok)
	}
	logger, ok := r.Logger()
	if !ok || logger != "svc.disk" {
		t.Fatalf("Logger() = %q, %v", logger, ok)
	}
	caller, ok := r.Caller()
	if !ok || caller != "disk.go:10" {
		t.Fatalf("Caller() = %q, %v", caller, ok)
	}

	visible := r.VisibleFields()
	if len(visible) != 1 || visible[0].Key != "pct" {
		t.Fatalf("VisibleFields() = %+v, want just pct", visible)
	}
}

func TestRecordAliasPriorityFirstAliasWins(t *testing.T) {
	// "level" (rank 0) and "severity" (rank 1) both present: earlier
	// alias (level) must win per spec §4.3.
	r := testScan(t, `{"severity":"error","level":"info"}`, false)
	lvl, ok := r.Level()
	if !ok || lvl != level.Info {
		t.Fatalf("Level() = %v, %v, want Info (level alias has priority over severity)", lvl, ok)
	}
}

func TestRecordUnixTimestamp(t *testing.T) {
	r := testScan(t, `{"ts":1700000000,"msg":"hi"}`, false)
	ts, ok := r.Time()
	if !ok || !ts.Valid() {
		t.Fatalf("Time() = %v, %v", ts, ok)
	}
}

func TestRecordMissingPredefinedFields(t *testing.T) {
	r := testScan(t, `{"foo":"bar"}`, false)
	if _, ok := r.Time(); ok {
		t.Error("Time() ok on record with no time field")
	}
	if _, ok := r.Level(); ok {
		t.Error("Level() ok on record with no level field")
	}
	if _, ok := r.Message(); ok {
		t.Error("Message() ok on record with no message field")
	}
}

func TestRecordAllowPrefix(t *testing.T) {
	r := testScan(t, `garbage-prefix: {"msg":"hi"}`, true)
	if string(r.Prefix) != "garbage-prefix: " {
		t.Errorf("Prefix = %q, want %q", r.Prefix, "garbage-prefix: ")
	}
	msg, ok := r.Message()
	if !ok || msg != "hi" {
		t.Errorf("Message() = %q, %v", msg, ok)
	}
}

func TestRecordLogfmtFormat(t *testing.T) {
	r := testScan(t, `ts=1700000000 level=error msg="boom" code=500`, false)
	if r.Format != FormatLogfmt {
		t.Fatalf("Format = %v, want FormatLogfmt", r.Format)
	}
	lvl, ok := r.Level()
	if !ok || lvl != level.Error {
		t.Fatalf("Level() = %v, %v, want Error", lvl, ok)
	}
	visible := r.VisibleFields()
	if len(visible) != 1 || visible[0].Key != "code" {
		t.Fatalf("VisibleFields() = %+v, want just code", visible)
	}
}

func TestRecordDottedLookupHierarchicalAndFlat(t *testing.T) {
	r := testScan(t, `{"msg":"hi","a":{"b":{"c":42}},"a.b.c":"flat-wins-if-present"}`, false)

	v, ok := r.Lookup("a.b.c")
	if !ok {
		t.Fatalf("Lookup(a.b.c) not found")
	}
	s, err := v.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "flat-wins-if-present" {
		t.Errorf("Lookup(a.b.c) = %q, want flat match to win", s)
	}
}

func TestRecordDottedLookupHierarchicalOnly(t *testing.T) {
	r := testScan(t, `{"msg":"hi","a":{"b":{"c":42}}}`, false)
	v, ok := r.Lookup("a.b.c")
	if !ok {
		t.Fatalf("Lookup(a.b.c) not found")
	}
	n, err := v.Number()
	if err != nil {
		t.Fatalf("Number: %v", err)
	}
	if n != 42 {
		t.Errorf("Lookup(a.b.c) = %v, want 42", n)
	}
}

func TestRecordDottedLookupMissing(t *testing.T) {
	r := testScan(t, `{"msg":"hi","a":{"b":1}}`, false)
	if _, ok := r.Lookup("a.x.y"); ok {
		t.Error("Lookup(a.x.y) should not be found")
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		`{"a":1}`:        FormatJSON,
		`  {"a":1}`:      FormatJSON,
		`[1,2,3]`:        FormatJSON,
		`a=1 b=2`:        FormatLogfmt,
		`not json at all`: FormatLogfmt,
	}
	for in, want := range cases {
		if got := DetectFormat([]byte(in)); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", in, got, want)
		}
	}
}
