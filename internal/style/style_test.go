package style

import "testing"

func TestEscapeMinimal(t *testing.T) {
	s := Style{}
	if got := s.Escape(); got != "" {
		t.Errorf("zero style Escape() = %q, want empty", got)
	}
	s2 := Style{FG: Named16(Red), Modes: Bold}
	if got, want := s2.Escape(), "\x1b[1;31m"; got != want {
		t.Errorf("Escape() = %q, want %q", got, want)
	}
}

func TestComposerCollapsesAdjacent(t *testing.T) {
	c := NewComposer(true)
	red := Style{FG: Named16(Red)}
	c.Write(red, "a")
	c.Write(red, "b")
	c.EndLine()
	want := "\x1b[31ma" + "b" + Reset + "\n"
	if got := c.String(); got != want {
		t.Errorf("Composer output = %q, want %q", got, want)
	}
}

func TestComposerDisabled(t *testing.T) {
	c := NewComposer(false)
	c.Write(Style{FG: Named16(Red), Modes: Bold}, "plain")
	c.EndLine()
	if got := c.String(); got != "plain\n" {
		t.Errorf("disabled composer emitted escapes: %q", got)
	}
}

func TestComposerSwitchesStyle(t *testing.T) {
	c := NewComposer(true)
	c.Write(Style{FG: Named16(Red)}, "a")
	c.Write(Style{FG: Named16(Blue)}, "b")
	c.EndLine()
	want := "\x1b[31ma" + Reset + "\x1b[34mb" + Reset + "\n"
	if got := c.String(); got != want {
		t.Errorf("Composer output = %q, want %q", got, want)
	}
}
