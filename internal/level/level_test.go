package level

import "testing"

func TestOrdering(t *testing.T) {
	tests := []struct {
		name string
		a, b Level
		less bool
	}{
		{"trace<debug", Trace, Debug, true},
		{"debug<info", Debug, Info, true},
		{"info<warning", Info, Warning, true},
		{"warning<error", Warning, Error, true},
		{"error!<trace", Error, Trace, false},
		{"equal", Info, Info, false},
		{"unknown left", Unknown, Info, false},
		{"unknown right", Info, Unknown, false},
		{"unknown both", Unknown, Unknown, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.a.Less(test.b); got != test.less {
				t.Errorf("%v.Less(%v) = %v, want %v", test.a, test.b, got, test.less)
			}
		})
	}
}

func TestMask(t *testing.T) {
	m := MaskOf(Info, Error)
	if !m.Has(Info) || !m.Has(Error) {
		t.Errorf("mask missing added levels: %08b", m)
	}
	if m.Has(Debug) || m.Has(Warning) {
		t.Errorf("mask has unexpected levels: %08b", m)
	}
	if !m.Intersects(MaskOf(Error)) {
		t.Errorf("expected intersection with Error")
	}
	if m.Intersects(MaskOf(Debug, Trace)) {
		t.Errorf("unexpected intersection")
	}
}

func TestFloor(t *testing.T) {
	m := Floor(Warning)
	for _, l := range []Level{Warning, Error} {
		if !m.Has(l) {
			t.Errorf("floor(Warning) missing %v", l)
		}
	}
	for _, l := range []Level{Trace, Debug, Info} {
		if m.Has(l) {
			t.Errorf("floor(Warning) unexpectedly has %v", l)
		}
	}
}

func TestDefaultTableParseString(t *testing.T) {
	tbl := DefaultTable()
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"INFO", Info, true},
		{"warn", Warning, true},
		{"Warning", Warning, true},
		{"err", Error, true},
		{"panic", Error, true},
		{"nonsense", Unknown, false},
	}
	for _, test := range tests {
		got, ok := tbl.ParseString(test.in)
		if ok != test.ok || (ok && got != test.want) {
			t.Errorf("ParseString(%q) = (%v, %v), want (%v, %v)", test.in, got, ok, test.want, test.ok)
		}
	}
}

func TestDefaultTableParsePriority(t *testing.T) {
	tbl := DefaultTable()
	if got, ok := tbl.ParsePriority(3); !ok || got != Error {
		t.Errorf("ParsePriority(3) = (%v, %v), want (Error, true)", got, ok)
	}
	if _, ok := tbl.ParsePriority(99); ok {
		t.Errorf("ParsePriority(99) unexpectedly ok")
	}
}
