package segment

import (
	"bytes"
	"io"
	"testing"

	"github.com/cortexlog/hl/internal/source"
)

func collectBlocks(t *testing.T, data []byte, cfg Config) ([][]byte, []error) {
	t.Helper()
	seg, err := New(source.NewMemory("t", data), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var blocks [][]byte
	var errs []error
	for {
		b, err := seg.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		blocks = append(blocks, b.Bytes)
	}
	return blocks, errs
}

func TestBasicLFSplitting(t *testing.T) {
	data := []byte("line one\nline two\nline three\n")
	blocks, errs := collectBlocks(t, data, Config{Delimiter: LF, BufferSize: 12, MaxMessageSize: 64})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := [][]byte{[]byte("line one\n"), []byte("line two\n"), []byte("line three\n")}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks, want %d: %q", len(blocks), len(want), blocks)
	}
	for i := range want {
		if !bytes.Equal(blocks[i], want[i]) {
			t.Errorf("block %d = %q, want %q", i, blocks[i], want[i])
		}
	}
}

func TestFinalRecordWithoutTrailingDelimiter(t *testing.T) {
	data := []byte("line one\nline two")
	blocks, errs := collectBlocks(t, data, Config{Delimiter: LF, BufferSize: 64, MaxMessageSize: 64})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(blocks) != 2 || string(blocks[1]) != "line two" {
		t.Fatalf("got %q", blocks)
	}
}

func TestEmptyLinesPreserved(t *testing.T) {
	data := []byte("a\n\nb\n")
	blocks, errs := collectBlocks(t, data, Config{Delimiter: LF, BufferSize: 2, MaxMessageSize: 64})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := [][]byte{[]byte("a\n"), []byte("\n"), []byte("b\n")}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks: %q", len(blocks), blocks)
	}
	for i := range want {
		if !bytes.Equal(blocks[i], want[i]) {
			t.Errorf("block %d = %q, want %q", i, blocks[i], want[i])
		}
	}
}

func TestRoundTripReproducesInput(t *testing.T) {
	data := []byte("one\ntwo\nthree\nfour\nfive")
	seg, err := New(source.NewMemory("t", data), Config{Delimiter: LF, BufferSize: 8, MaxMessageSize: 64})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var got bytes.Buffer
	for {
		b, err := seg.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextBlock: %v", err)
		}
		got.Write(b.Bytes)
	}
	if got.String() != string(data) {
		t.Errorf("round trip = %q, want %q", got.String(), data)
	}
}

func TestCRLFInsideJSONStringDoesNotSplit(t *testing.T) {
	data := []byte("{\"msg\":\"line1\r\nline2\"}\r\n{\"msg\":\"ok\"}\r\n")
	blocks, errs := collectBlocks(t, data, Config{Delimiter: CRLF, BufferSize: 32, MaxMessageSize: 128})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %q", len(blocks), blocks)
	}
	if !bytes.Contains(blocks[0], []byte("line1\r\nline2")) {
		t.Errorf("first block lost the embedded CRLF: %q", blocks[0])
	}
}

func TestAutoDelimiterDetectsJSONBoundary(t *testing.T) {
	data := []byte("{\"a\":1,\n\"b\":2}\n{\"a\":3}\n")
	blocks, errs := collectBlocks(t, data, Config{Delimiter: Auto, BufferSize: 16, MaxMessageSize: 128})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2: %q", len(blocks), blocks)
	}
	if !bytes.Contains(blocks[0], []byte("\"a\":1,\n\"b\":2")) {
		t.Errorf("auto mode split inside balanced braces: %q", blocks[0])
	}
}

func TestOversizedRecordResyncs(t *testing.T) {
	oversized := bytes.Repeat([]byte("x"), 40)
	data := append([]byte("ok1\n"), append(oversized, []byte("\nok2\n")...)...)
	var reported []*OversizedRecordError
	seg, err := New(source.NewMemory("t", data), Config{Delimiter: LF, BufferSize: 8, MaxMessageSize: 16})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seg.OnOversized = func(e *OversizedRecordError) { reported = append(reported, e) }
	var got [][]byte
	for {
		b, err := seg.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextBlock: %v", err)
		}
		got = append(got, b.Bytes)
	}
	if len(reported) != 1 {
		t.Fatalf("got %d oversized reports, want 1", len(reported))
	}
	if len(got) != 2 || string(got[0]) != "ok1\n" || string(got[1]) != "ok2\n" {
		t.Fatalf("got blocks %q, want [ok1\\n ok2\\n]", got)
	}
}
