package config

import "testing"

func TestMergeLayersLaterWins(t *testing.T) {
	base := Layer{Name: "defaults", Flags: Flags{Color: "auto", Concurrency: 0}}
	user := Layer{Name: "user", Flags: Flags{Color: "always"}}
	cli := Layer{Name: "cli", Flags: Flags{Concurrency: 8}}

	merged := MergeLayers(base, user, cli)
	if merged.Color != "always" {
		t.Errorf("Color = %q, want %q", merged.Color, "always")
	}
	if merged.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", merged.Concurrency)
	}
}

func TestMergeLayersZeroValueDoesNotOverwrite(t *testing.T) {
	base := Layer{Name: "defaults", Flags: Flags{Theme: "default"}}
	cli := Layer{Name: "cli", Flags: Flags{}}
	merged := MergeLayers(base, cli)
	if merged.Theme != "default" {
		t.Errorf("Theme = %q, want %q (zero-value cli layer should not clear it)", merged.Theme, "default")
	}
}

func TestMergeLayersSlicesLastNonEmptyWins(t *testing.T) {
	base := Layer{Name: "defaults", Flags: Flags{Hide: []string{"password"}}}
	cli := Layer{Name: "cli", Flags: Flags{Hide: []string{"secret", "token"}}}
	merged := MergeLayers(base, cli)
	if len(merged.Hide) != 2 || merged.Hide[0] != "secret" {
		t.Errorf("Hide = %v, want [secret token]", merged.Hide)
	}
}

func TestResolveBufferSizeParsesIEC(t *testing.T) {
	f := Flags{BufferSize: "256 KiB", MaxMessageSize: "1 MiB"}
	r, err := Resolve(f)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.BufferSize != 256*1024 {
		t.Errorf("BufferSize = %d, want %d", r.BufferSize, 256*1024)
	}
	if r.MaxMessageSize != 1024*1024 {
		t.Errorf("MaxMessageSize = %d, want %d", r.MaxMessageSize, 1024*1024)
	}
}

func TestResolveRejectsMaxMessageSizeSmallerThanBuffer(t *testing.T) {
	f := Flags{BufferSize: "1 MiB", MaxMessageSize: "256 KiB"}
	if _, err := Resolve(f); err == nil {
		t.Error("expected ConfigError when max-message-size < buffer-size")
	}
}

func TestResolveRejectsUnknownLevel(t *testing.T) {
	f := Flags{Level: "not-a-level"}
	_, err := Resolve(f)
	if err == nil {
		t.Fatal("expected ConfigError for unrecognized --level")
	}
	var ce *Error
	if e, ok := err.(*Error); ok {
		ce = e
	}
	if ce == nil || ce.Kind != KindConfig {
		t.Errorf("error kind = %v, want KindConfig", err)
	}
}

func TestErrorIsMatchesOnKind(t *testing.T) {
	err := New(KindTheme, "missing role")
	if !err.Is(New(KindTheme, "different message")) {
		t.Error("errors with the same Kind should match via Is")
	}
	if err.Is(New(KindConfig, "missing role")) {
		t.Error("errors with different Kinds should not match via Is")
	}
}

func TestKindExitCode(t *testing.T) {
	cases := map[Kind]int{
		KindUsage:       1,
		KindConfig:      1,
		KindSourceIO:    2,
		KindTheme:       3,
		KindInterrupted: 130,
	}
	for kind, want := range cases {
		if got := kind.ExitCode(); got != want {
			t.Errorf("%v.ExitCode() = %d, want %d", kind, got, want)
		}
	}
}
