package follow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexlog/hl/internal/index"
	"github.com/cortexlog/hl/internal/level"
	"github.com/cortexlog/hl/internal/merge"
	"github.com/cortexlog/hl/internal/record"
	"github.com/cortexlog/hl/internal/segment"
	"github.com/cortexlog/hl/internal/source"
)

func newTrackedFile(t *testing.T, dir, name string, initial []byte) *TrackedSource {
	t.Helper()
	logPath := filepath.Join(dir, name+".log")
	if err := os.WriteFile(logPath, initial, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := source.OpenFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })

	segCfg := segment.Config{BufferSize: 256, MaxMessageSize: 4096}
	buildCfg := index.BuildConfig{
		Segment: segCfg,
		Aliases: record.DefaultAliasTable(),
		Levels:  level.DefaultTable(),
	}
	idxPath := filepath.Join(dir, name+".hlidx")
	id := index.Identity{SourcePath: logPath, FileSize: int64(len(initial)), MtimeNanos: f.ModTimeNano()}
	if err := index.Build(idxPath, id, f, buildCfg); err != nil {
		t.Fatalf("index.Build: %v", err)
	}
	idx, err := index.Load(idxPath)
	if err != nil {
		t.Fatalf("index.Load: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	return &TrackedSource{
		Input: merge.Input{
			Name:    name,
			Src:     f,
			Index:   idx,
			Segment: segCfg,
			Aliases: record.DefaultAliasTable(),
			Levels:  level.DefaultTable(),
		},
		File:      f,
		IndexPath: idxPath,
		Identity:  id,
		BuildCfg:  buildCfg,
	}
}

func TestTickEmitsNewlyAppendedRecords(t *testing.T) {
	dir := t.TempDir()
	ts := newTrackedFile(t, dir, "a", []byte(`{"ts":"2024-01-01T00:00:00Z","msg":"first"}`+"\n"))

	eng := &Engine{sources: []*TrackedSource{ts}, syncInterval: time.Second}

	var gotFirst []string
	if err := eng.tick(context.Background(), merge.Window{}, func(r merge.Record) error {
		gotFirst = append(gotFirst, r.SourceName)
		return nil
	}); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if len(gotFirst) != 1 {
		t.Fatalf("first tick emitted %d records, want 1", len(gotFirst))
	}

	f, err := os.OpenFile(filepath.Join(dir, "a.log"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"ts":"2024-01-01T00:00:01Z","msg":"second"}` + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	var gotSecond int
	if err := eng.tick(context.Background(), merge.Window{}, func(r merge.Record) error {
		gotSecond++
		return nil
	}); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if gotSecond != 1 {
		t.Errorf("second tick emitted %d records, want 1 (only the newly appended record)", gotSecond)
	}
}
