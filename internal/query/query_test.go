package query

import (
	"testing"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
)

func mustRecord(t *testing.T, buf string) *record.Record {
	t.Helper()
	r, err := record.Scan([]byte(buf), false, record.DefaultAliasTable(), level.DefaultTable(), record.TimeConfig{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return r
}

func evalQuery(t *testing.T, q string, r *record.Record) bool {
	t.Helper()
	expr, err := Parse(q, nil)
	if err != nil {
		t.Fatalf("Parse(%q): %v", q, err)
	}
	ev := &Evaluator{Levels: level.DefaultTable()}
	return ev.Eval(expr, r)
}

func TestEqualityAndAliases(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`code = 200`, true},
		{`code eq 200`, true},
		{`code != 200`, false},
		{`code ne 200`, false},
		{`code not eq 200`, false},
		{`code = 404`, false},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestOrdering(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`code > 100`, true},
		{`code gt 100`, true},
		{`code < 100`, false},
		{`code >= 200`, true},
		{`code <= 199`, false},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestSubstringAndRegex(t *testing.T) {
	r := mustRecord(t, `{"msg":"disk space low on /dev/sda1"}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`message contains "disk"`, true},
		{`message ~= "disk"`, true},
		{`message not contains "memory"`, true},
		{`message !~= "disk"`, false},
		{`message matches "sda[0-9]"`, true},
		{`message ~~= "sda[0-9]"`, true},
		{`message not matches "sda[0-9]"`, false},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestWildcardLike(t *testing.T) {
	r := mustRecord(t, `{"msg":"hello world"}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`message like "hello*"`, true},
		{`message like "h?llo world"`, true},
		{`message not like "goodbye*"`, true},
		{`message like "goodbye*"`, false},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestInSetLiteral(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","host":"web-1"}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`host in ("web-1", "web-2")`, true},
		{`host in ("web-3", "web-2")`, false},
		{`host not in ("web-3")`, true},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestExistsPredicate(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","code":200}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`exists(code)`, true},
		{`exists(missing)`, false},
		{`not exists(missing)`, true},
		{`not exists(code)`, false},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestAbsentFieldModifier(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi"}`)
	if got := evalQuery(t, `code = 200`, r); got {
		t.Error("absent field without '?' should be false")
	}
	if got := evalQuery(t, `code != 200`, r); got {
		t.Error("absent field negated form without '?' should still be false, not true")
	}
	if got := evalQuery(t, `code? = 200`, r); !got {
		t.Error("absent field with '?' should be true (include-absent)")
	}
}

func TestBooleanCombinators(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","a":1,"b":2}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`a = 1 and b = 2`, true},
		{`a = 1 && b = 3`, false},
		{`a = 1 or b = 3`, true},
		{`a = 9 || b = 2`, true},
		{`not (a = 9)`, true},
		{`!(a = 1)`, false},
		{`(a = 1 and b = 2) or a = 9`, true},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestLevelOrdering(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","level":"warning"}`)
	cases := []struct {
		q    string
		want bool
	}{
		{`level = warning`, true},
		{`level > info`, true},
		{`level < error`, true},
		{`level >= warning`, true},
		{`level < info`, false},
	}
	for _, tc := range cases {
		if got := evalQuery(t, tc.q, r); got != tc.want {
			t.Errorf("%q = %v, want %v", tc.q, got, tc.want)
		}
	}
}

func TestDottedPathField(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","a":{"b":5}}`)
	if got := evalQuery(t, `a.b = 5`, r); !got {
		t.Error("a.b = 5 should match nested field")
	}
}

func TestLiteralFieldLookupWithDotPrefix(t *testing.T) {
	r := mustRecord(t, `{"msg":"hi","level":"not-really-a-level-field-name"}`)
	// A leading '.' forces a literal lookup of the field named "level"
	// rather than resolving the predefined level slot.
	if got := evalQuery(t, `.level = "not-really-a-level-field-name"`, r); !got {
		t.Error(".level should perform a literal field lookup, not resolve the predefined level slot")
	}
}

func TestParseErrorOnMalformedQuery(t *testing.T) {
	if _, err := Parse(`code = `, nil); err == nil {
		t.Error("expected parse error for incomplete query")
	}
	if _, err := Parse(`code ~~= "("`, nil); err == nil {
		t.Error("expected parse error for invalid regex")
	}
}
