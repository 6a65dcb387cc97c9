package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hdtquery/hdt/internal/triples"
)

func buildTestStore(t *testing.T) *triples.Store {
	t.Helper()
	coords := [][3]uint64{
		{1, 1, 1},
		{1, 2, 2},
		{2, 1, 3},
		{3, 3, 1},
	}
	st, err := triples.BuildFromSorted(triples.SPO, coords, 3, 3, 3)
	if err != nil {
		t.Fatalf("BuildFromSorted: %v", err)
	}
	return st
}

func TestSidecarRoundTrip(t *testing.T) {
	st := buildTestStore(t)
	offsets := Offsets{
		BitmapY: 10, BitmapZ: 20, SequenceZ: 30,
		Dictionary: 40, DictShared: 50, DictSubjects: 60,
		DictPredicates: 70, DictObjects: 80, TriplesSection: 90,
	}
	s := FromStore(st, offsets, 123)

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if got.Order != s.Order {
		t.Errorf("order = %v, want %v", got.Order, s.Order)
	}
	if got.NumTriples != s.NumTriples {
		t.Errorf("numTriples = %d, want %d", got.NumTriples, s.NumTriples)
	}
	if got.HeaderSize != 123 {
		t.Errorf("headerSize = %d, want 123", got.HeaderSize)
	}
	if got.Offsets != offsets {
		t.Errorf("offsets = %+v, want %+v", got.Offsets, offsets)
	}
	if got.OP.A.Len() != st.OP.A.Len() {
		t.Errorf("op sequence length = %d, want %d", got.OP.A.Len(), st.OP.A.Len())
	}
	for i := uint64(0); i < st.OP.A.Len(); i++ {
		want, err := st.OP.A.Get(i)
		if err != nil {
			t.Fatalf("st.OP.A.Get(%d): %v", i, err)
		}
		gv, err := got.OP.A.Get(i)
		if err != nil {
			t.Fatalf("got.OP.A.Get(%d): %v", i, err)
		}
		if gv != want {
			t.Errorf("op sequence[%d] = %d, want %d", i, gv, want)
		}
	}
}

func TestOpenWritesAndReusesSidecar(t *testing.T) {
	dir := t.TempDir()
	hdtPath := filepath.Join(dir, "graph.hdt")
	if err := os.WriteFile(hdtPath, []byte("pretend hdt bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cachePath := Path(hdtPath)

	builds := 0
	build := func() (*Sidecar, error) {
		builds++
		return FromStore(buildTestStore(t), Offsets{}, 0), nil
	}

	if _, err := Open(hdtPath, cachePath, build); err != nil {
		t.Fatalf("Open (first): %v", err)
	}
	if builds != 1 {
		t.Fatalf("builds = %d after first Open, want 1", builds)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("sidecar file missing after Open: %v", err)
	}

	if _, err := Open(hdtPath, cachePath, build); err != nil {
		t.Fatalf("Open (second): %v", err)
	}
	if builds != 1 {
		t.Fatalf("builds = %d after second Open, want 1 (sidecar should be reused)", builds)
	}
}

func TestStaleWhenSidecarOlderThanHDT(t *testing.T) {
	dir := t.TempDir()
	hdtPath := filepath.Join(dir, "graph.hdt")
	cachePath := Path(hdtPath)

	if err := os.WriteFile(cachePath, []byte("old sidecar"), 0644); err != nil {
		t.Fatalf("WriteFile cache: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(cachePath, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.WriteFile(hdtPath, []byte("newer hdt bytes"), 0644); err != nil {
		t.Fatalf("WriteFile hdt: %v", err)
	}

	stale, err := Stale(hdtPath, cachePath)
	if err != nil {
		t.Fatalf("Stale: %v", err)
	}
	if !stale {
		t.Error("expected stale=true when sidecar predates the HDT file")
	}
}

func TestStaleWhenSidecarMissing(t *testing.T) {
	dir := t.TempDir()
	hdtPath := filepath.Join(dir, "graph.hdt")
	if err := os.WriteFile(hdtPath, []byte("hdt bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stale, err := Stale(hdtPath, Path(hdtPath))
	if err != nil {
		t.Fatalf("Stale: %v", err)
	}
	if !stale {
		t.Error("expected stale=true for a missing sidecar")
	}
}
