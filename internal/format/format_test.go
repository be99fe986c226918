package format

import (
	"strings"
	"testing"

	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/style"
	"github.com/cortexlog/hl/internal/theme"
)

func scanRecord(t *testing.T, buf string) *record.Record {
	t.Helper()
	r, err := record.Scan([]byte(buf), false, record.DefaultAliasTable(), level.DefaultTable(), record.TimeConfig{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	return r
}

func TestFormatBasicLine(t *testing.T) {
	r := scanRecord(t, `{"ts":"2024-01-02T03:04:05Z","level":"info","msg":"hello","code":200}`)
	f := New(Config{
		Theme:      theme.DefaultTheme(),
		Visibility: NewVisibility(nil, false),
		Expansion:  ExpandNever,
	})
	c := style.NewComposer(false)
	if err := f.Format(c, r, "", NewState()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := c.String()
	if !strings.Contains(out, "hello") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "code=200") {
		t.Errorf("output missing field: %q", out)
	}
}

func TestFormatHidesFieldsByPattern(t *testing.T) {
	r := scanRecord(t, `{"msg":"hi","secret_token":"abc","code":200}`)
	f := New(Config{
		Theme:      theme.DefaultTheme(),
		Visibility: NewVisibility([]string{"secret_*"}, false),
		Expansion:  ExpandNever,
	})
	c := style.NewComposer(false)
	if err := f.Format(c, r, "", NewState()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := c.String()
	if strings.Contains(out, "secret_token") {
		t.Errorf("expected secret_token to be hidden: %q", out)
	}
	if !strings.Contains(out, "code=200") {
		t.Errorf("expected code to remain visible: %q", out)
	}
}

func TestFormatRevealOverridesHide(t *testing.T) {
	r := scanRecord(t, `{"msg":"hi","a_one":1,"a_two":2}`)
	f := New(Config{
		Theme:      theme.DefaultTheme(),
		Visibility: NewVisibility([]string{"a_*", "!a_two"}, false),
		Expansion:  ExpandNever,
	})
	c := style.NewComposer(false)
	if err := f.Format(c, r, "", NewState()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := c.String()
	if strings.Contains(out, "a_one") {
		t.Errorf("expected a_one hidden: %q", out)
	}
	if !strings.Contains(out, "a_two=2") {
		t.Errorf("expected a_two revealed: %q", out)
	}
}

func TestFormatHideEmptyFields(t *testing.T) {
	r := scanRecord(t, `{"msg":"hi","empty":"","code":5}`)
	f := New(Config{
		Theme:      theme.DefaultTheme(),
		Visibility: NewVisibility(nil, true),
		Expansion:  ExpandNever,
	})
	c := style.NewComposer(false)
	if err := f.Format(c, r, "", NewState()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := c.String()
	if strings.Contains(out, "empty=") {
		t.Errorf("expected empty field hidden: %q", out)
	}
}

func TestFormatFlattenJoinsNestedKeys(t *testing.T) {
	r := scanRecord(t, `{"msg":"hi","a":{"b":{"c":1}}}`)
	f := New(Config{
		Theme:      theme.DefaultTheme(),
		Visibility: NewVisibility(nil, false),
		Expansion:  ExpandNever,
		Flatten:    true,
	})
	c := style.NewComposer(false)
	if err := f.Format(c, r, "", NewState()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	out := c.String()
	if !strings.Contains(out, "a.b.c=1") {
		t.Errorf("expected flattened key a.b.c=1, got %q", out)
	}
}

func TestFormatElidesDuplicateFieldValues(t *testing.T) {
	f := New(Config{
		Theme:                theme.DefaultTheme(),
		Visibility:           NewVisibility(nil, false),
		Expansion:            ExpandNever,
		ElideDuplicateFields: true,
	})
	st := NewState()

	r1 := scanRecord(t, `{"msg":"one","host":"a"}`)
	c1 := style.NewComposer(false)
	if err := f.Format(c1, r1, "", st); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(c1.String(), "host=a") {
		t.Fatalf("first line should show host=a: %q", c1.String())
	}

	r2 := scanRecord(t, `{"msg":"two","host":"a"}`)
	c2 := style.NewComposer(false)
	if err := f.Format(c2, r2, "", st); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(c2.String(), "host=↑") {
		t.Errorf("second line should elide repeated host value, got %q", c2.String())
	}
}

func TestFormatNumberPreservesSourceRepresentation(t *testing.T) {
	r := scanRecord(t, `{"msg":"hi","n":1.50}`)
	f := New(Config{
		Theme:      theme.DefaultTheme(),
		Visibility: NewVisibility(nil, false),
		Expansion:  ExpandNever,
	})
	c := style.NewComposer(false)
	if err := f.Format(c, r, "", NewState()); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(c.String(), "n=1.50") {
		t.Errorf("expected source numeric text 1.50 preserved, got %q", c.String())
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, name string
		want          bool
	}{
		{"secret_*", "secret_token", true},
		{"secret_*", "token", false},
		{"*", "anything", true},
		{"a*b", "axxxb", true},
		{"a*b", "ab", true},
		{"a*b", "axxxc", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
	}
	for _, tc := range cases {
		if got := globMatch(tc.pattern, tc.name); got != tc.want {
			t.Errorf("globMatch(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}
