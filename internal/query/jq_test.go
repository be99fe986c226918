package query

import (
	"testing"

	"github.com/cortexlog/hl/internal/level"
)

func TestCompileJQEmptyProgramIsNoOp(t *testing.T) {
	stage, err := CompileJQ("", nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	res, err := stage.Run(r, level.DefaultTable())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Filtered || res.Fields != nil {
		t.Errorf("empty jq program should pass through unfiltered, got %+v", res)
	}
}

func TestCompileJQRewritesFields(t *testing.T) {
	stage, err := CompileJQ(`.code = 404`, nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	res, err := stage.Run(r, level.DefaultTable())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Filtered {
		t.Fatal("expected record to pass through")
	}
	if got, ok := res.Fields["code"].(float64); !ok || got != 404 {
		t.Errorf("code = %v, want 404", res.Fields["code"])
	}
}

func TestCompileJQSelectFiltersRecord(t *testing.T) {
	stage, err := CompileJQ(`select(.code == 200)`, nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	pass := mustRecord(t, `{"msg":"hi","code":200}`)
	res, err := stage.Run(pass, level.DefaultTable())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Filtered {
		t.Error("record matching select predicate should not be filtered")
	}

	fail := mustRecord(t, `{"msg":"hi","code":500}`)
	res, err = stage.Run(fail, level.DefaultTable())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Filtered {
		t.Error("record failing select predicate should be filtered")
	}
}

func TestCompileJQHighlightBuiltin(t *testing.T) {
	stage, err := CompileJQ(`highlight(.code == 200)`, nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	res, err := stage.Run(r, level.DefaultTable())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Highlight {
		t.Error("expected Highlight to be true")
	}
	if _, present := res.Fields[highlightKey]; present {
		t.Error("internal highlight key should be stripped from output fields")
	}
}

func TestCompileJQNilResultIsError(t *testing.T) {
	stage, err := CompileJQ(`null`, nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	r := mustRecord(t, `{"msg":"hi"}`)
	if _, err := stage.Run(r, level.DefaultTable()); err == nil {
		t.Error("expected error when jq program produces nil")
	}
}

func TestCompileJQBooleanResultIsError(t *testing.T) {
	stage, err := CompileJQ(`.code == 200`, nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	if _, err := stage.Run(r, level.DefaultTable()); err == nil {
		t.Error("expected error when jq program produces a bare boolean")
	}
}

func TestCompileJQInvalidProgramFailsToCompile(t *testing.T) {
	if _, err := CompileJQ(`.[`, nil); err == nil {
		t.Error("expected compile error for malformed jq program")
	}
}

func TestCompileJQVariablesAvailable(t *testing.T) {
	stage, err := CompileJQ(`.msg_from_var = $MSG`, nil)
	if err != nil {
		t.Fatalf("CompileJQ: %v", err)
	}
	r := mustRecord(t, `{"msg":"hello"}`)
	res, err := stage.Run(r, level.DefaultTable())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, _ := res.Fields["msg_from_var"].(string); got != "hello" {
		t.Errorf("msg_from_var = %v, want %q", res.Fields["msg_from_var"], "hello")
	}
}

func TestRecordToMapDecodesFields(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","a":1,"b":"x"}`)
	m, err := recordToMap(r)
	if err != nil {
		t.Fatalf("recordToMap: %v", err)
	}
	if _, ok := m["a"]; !ok {
		t.Error("expected field 'a' in map")
	}
	if _, ok := m["b"]; !ok {
		t.Error("expected field 'b' in map")
	}
}
