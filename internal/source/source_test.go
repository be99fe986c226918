package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryReadEOF(t *testing.T) {
	m := NewMemory("mem", []byte("hello"))
	buf := make([]byte, 10)
	n, err := m.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	if _, err := m.Read(buf); err != io.EOF {
		t.Fatalf("second Read error = %v, want io.EOF", err)
	}
	if l, ok := m.Len(); !ok || l != 5 {
		t.Fatalf("Len() = %d, %v", l, ok)
	}
}

func TestFileRefreshDetectsGrowthAndShrink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.log")
	if err := os.WriteFile(path, []byte("aaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if err := os.WriteFile(path, []byte("aaaaaaaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	grew, shrank, err := f.Refresh()
	if err != nil || !grew || shrank {
		t.Fatalf("Refresh after growth = (%v, %v, %v)", grew, shrank, err)
	}

	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	grew, shrank, err = f.Refresh()
	if err != nil || grew || !shrank {
		t.Fatalf("Refresh after truncation = (%v, %v, %v)", grew, shrank, err)
	}
}

func TestOpenFileNotFound(t *testing.T) {
	_, err := OpenFile(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error")
	}
	var ioErr *IOError
	if !asIOError(err, &ioErr) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioErr.Kind != ErrKindNotFound {
		t.Errorf("Kind = %v, want ErrKindNotFound", ioErr.Kind)
	}
}

func asIOError(err error, target **IOError) bool {
	if e, ok := err.(*IOError); ok {
		*target = e
		return true
	}
	return false
}
