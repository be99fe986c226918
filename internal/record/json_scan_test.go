package record

import (
	"testing"
)

func TestScanJSONObjectBasic(t *testing.T) {
	fields, err := ScanJSONObject([]byte(`{"ts":123,"level":"info","msg":"hello","ok":true,"n":null}`))
	if err != nil {
		t.Fatalf("ScanJSONObject: %v", err)
	}
	if len(fields) != 5 {
		t.Fatalf("got %d fields, want 5: %+v", len(fields), fields)
	}
	wantKeys := []string{"ts", "level", "msg", "ok", "n"}
	for i, k := range wantKeys {
		got, err := fields[i].DecodeKey()
		if err != nil {
			t.Fatalf("DecodeKey(%d): %v", i, err)
		}
		if got != k {
			t.Errorf("field %d key = %q, want %q", i, got, k)
		}
	}
	if fields[3].Value.Kind != KindBool || !fields[3].Value.Bool {
		t.Errorf("ok field = %+v, want bool true", fields[3].Value)
	}
	if fields[4].Value.Kind != KindNull {
		t.Errorf("n field = %+v, want null", fields[4].Value)
	}
}

func TestScanJSONObjectNestedSpans(t *testing.T) {
	fields, err := ScanJSONObject([]byte(`{"a":{"nested":1,"deep":[1,2,3]},"b":[1,2,{"c":3}]}`))
	if err != nil {
		t.Fatalf("ScanJSONObject: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("got %d fields, want 2", len(fields))
	}
	if fields[0].Value.Kind != KindObject {
		t.Errorf("a field kind = %v, want KindObject", fields[0].Value.Kind)
	}
	if string(fields[0].Value.Span) != `{"nested":1,"deep":[1,2,3]}` {
		t.Errorf("a field span = %q", fields[0].Value.Span)
	}
	if fields[1].Value.Kind != KindArray {
		t.Errorf("b field kind = %v, want KindArray", fields[1].Value.Kind)
	}
	if string(fields[1].Value.Span) != `[1,2,{"c":3}]` {
		t.Errorf("b field span = %q", fields[1].Value.Span)
	}
}

func TestScanJSONObjectEscapedKey(t *testing.T) {
	fields, err := ScanJSONObject([]byte(`{"a\"b":1}`))
	if err != nil {
		t.Fatalf("ScanJSONObject: %v", err)
	}
	if !fields[0].Escaped {
		t.Errorf("expected key to be flagged escaped")
	}
	key, err := fields[0].DecodeKey()
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	if key != `a"b` {
		t.Errorf("key = %q, want a\"b", key)
	}
}

func TestScanJSONObjectTrailingCommaRejected(t *testing.T) {
	_, err := ScanJSONObject([]byte(`{"a":1,}`))
	if err == nil {
		t.Fatalf("expected error for trailing comma")
	}
}

func TestScanJSONObjectRejectsNaNAndInfinity(t *testing.T) {
	cases := []string{`{"a":NaN}`, `{"a":Infinity}`, `{"a":-Infinity}`}
	for _, c := range cases {
		if _, err := ScanJSONObject([]byte(c)); err == nil {
			t.Errorf("%s: expected rejection", c)
		}
	}
}

func TestScanJSONObjectTopLevelArray(t *testing.T) {
	fields, err := ScanJSONObject([]byte(`[1,2,3]`))
	if err != nil {
		t.Fatalf("ScanJSONObject: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("got %d fields for bare array, want 0", len(fields))
	}
}

func TestScanJSONObjectTrailingGarbageRejected(t *testing.T) {
	_, err := ScanJSONObject([]byte(`{"a":1} garbage`))
	if err == nil {
		t.Fatalf("expected error for trailing data")
	}
}

func TestScanJSONObjectMalformedNumbers(t *testing.T) {
	cases := []string{`{"a":1.}`, `{"a":.1}`, `{"a":1e}`, `{"a":01}`}
	for _, c := range cases[:3] {
		if _, err := ScanJSONObject([]byte(c)); err == nil {
			t.Errorf("%s: expected rejection", c)
		}
	}
}

func TestValueStringUnescapedSpan(t *testing.T) {
	fields, err := ScanJSONObject([]byte(`{"msg":"hello world"}`))
	if err != nil {
		t.Fatalf("ScanJSONObject: %v", err)
	}
	s, err := fields[0].Value.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "hello world" {
		t.Errorf("String() = %q", s)
	}
}
