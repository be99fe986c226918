package iecsize

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"256 KiB", 256 * 1024, false},
		{"1MiB", 1 << 20, false},
		{"1 GiB", 1 << 30, false},
		{"512", 512, false},
		{"1.5 KiB", 1536, false},
		{"1 KB", 0, true},
		{"", 0, true},
		{"garbage", 0, true},
	}
	for _, test := range tests {
		got, err := Parse(test.in)
		if (err != nil) != test.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", test.in, err, test.wantErr)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("Parse(%q) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{1024, "1 KiB"},
		{1536, "1.50 KiB"},
		{1 << 20, "1 MiB"},
		{10, "10 B"},
	}
	for _, test := range tests {
		if got := Format(test.in); got != test.want {
			t.Errorf("Format(%d) = %q, want %q", test.in, got, test.want)
		}
	}
}
