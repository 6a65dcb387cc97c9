package hdt

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/hdtquery/hdt/internal/cache"
	"github.com/hdtquery/hdt/internal/triples"
)

func buildSampleGraph(t *testing.T) *Graph {
	t.Helper()
	b := NewBuilder(0)
	b.AddTriple("<http://ex/alice>", "<http://ex/knows>", "<http://ex/bob>")
	b.AddTriple("<http://ex/alice>", "<http://ex/knows>", "<http://ex/carol>")
	b.AddTriple("<http://ex/bob>", "<http://ex/knows>", "<http://ex/carol>")
	b.AddTriple("<http://ex/carol>", "<http://ex/age>", `"30"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	g, err := b.Build(triples.SPO)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func collectTriples(t *testing.T, g *Graph, s, p, o string) [][3]string {
	t.Helper()
	it, err := g.TriplesWithPattern(s, p, o)
	if err != nil {
		t.Fatalf("TriplesWithPattern(%q,%q,%q): %v", s, p, o, err)
	}
	defer it.Close()
	var got [][3]string
	for {
		gs, gp, go_, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, [3]string{gs, gp, go_})
	}
	sort.Slice(got, func(i, j int) bool {
		return got[i][0]+got[i][1]+got[i][2] < got[j][0]+got[j][1]+got[j][2]
	})
	return got
}

func TestBuilderRoundTripInMemory(t *testing.T) {
	g := buildSampleGraph(t)
	defer g.Close()

	got := collectTriples(t, g, "<http://ex/alice>", "<http://ex/knows>", "")
	want := [][3]string{
		{"<http://ex/alice>", "<http://ex/knows>", "<http://ex/bob>"},
		{"<http://ex/alice>", "<http://ex/knows>", "<http://ex/carol>"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triple %d = %v, want %v", i, got[i], want[i])
		}
	}

	if got, err := g.TriplesWithPattern("<http://ex/nobody>", "", ""); err != nil {
		t.Fatalf("TriplesWithPattern unresolvable subject: %v", err)
	} else {
		s, _, _, ok, err := got.Next()
		if err != nil || ok {
			t.Errorf("expected empty iterator for unknown subject, got ok=%v s=%q err=%v", ok, s, err)
		}
	}

	if stats := g.Stats(); stats.NumTriples != 4 {
		t.Errorf("NumTriples = %d, want 4", stats.NumTriples)
	}
}

func writeGraphToTemp(t *testing.T, g *Graph) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.hdt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := g.WriteTo(f); err != nil {
		f.Close()
		t.Fatalf("WriteTo: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestWriteToAndOpenResident(t *testing.T) {
	g := buildSampleGraph(t)
	path := writeGraphToTemp(t, g)
	g.Close()

	opened, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()

	if stats := opened.Stats(); stats.NumTriples != 4 {
		t.Errorf("NumTriples = %d, want 4", stats.NumTriples)
	}

	got := collectTriples(t, opened, "", "<http://ex/knows>", "<http://ex/carol>")
	want := [][3]string{
		{"<http://ex/alice>", "<http://ex/knows>", "<http://ex/carol>"},
		{"<http://ex/bob>", "<http://ex/knows>", "<http://ex/carol>"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triple %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWriteToAndOpenHybridRegeneratesCache(t *testing.T) {
	g := buildSampleGraph(t)
	path := writeGraphToTemp(t, g)
	g.Close()

	opened, err := Open(path, WithHybrid(true))
	if err != nil {
		t.Fatalf("Open hybrid: %v", err)
	}
	defer opened.Close()

	if stats := opened.Stats(); !stats.Hybrid || stats.NumTriples != 4 {
		t.Errorf("stats = %+v, want hybrid=true numTriples=4", stats)
	}

	got := collectTriples(t, opened, "<http://ex/carol>", "", "")
	want := [][3]string{
		{"<http://ex/carol>", "<http://ex/age>", `"30"^^<http://www.w3.org/2001/XMLSchema#integer>`},
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("got %v, want %v", got, want)
	}

	sidecarPath := cache.Path(path)
	if _, err := os.Stat(sidecarPath); err != nil {
		t.Errorf("expected sidecar at %s after hybrid open: %v", sidecarPath, err)
	}

	reopened, err := Open(path, WithHybrid(true))
	if err != nil {
		t.Fatalf("Open hybrid (second): %v", err)
	}
	defer reopened.Close()
	got2 := collectTriples(t, reopened, "<http://ex/carol>", "", "")
	if len(got2) != 1 || got2[0] != want[0] {
		t.Fatalf("second open: got %v, want %v", got2, want)
	}
}

func TestImportNTriplesRoundTrip(t *testing.T) {
	b := NewBuilder(0)
	input := `<http://ex/alice> <http://ex/knows> <http://ex/bob> .
<http://ex/alice> <http://ex/knows> <http://ex/carol> .
<http://ex/carol> <http://ex/age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .
`
	n, err := b.ImportNTriples(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportNTriples: %v", err)
	}
	if n != 3 {
		t.Fatalf("ImportNTriples returned %d, want 3", n)
	}

	g, err := b.Build(triples.SPO)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer g.Close()

	if stats := g.Stats(); stats.NumTriples != 3 {
		t.Errorf("NumTriples = %d, want 3", stats.NumTriples)
	}

	got := collectTriples(t, g, "<http://ex/alice>", "<http://ex/knows>", "")
	want := [][3]string{
		{"<http://ex/alice>", "<http://ex/knows>", "<http://ex/bob>"},
		{"<http://ex/alice>", "<http://ex/knows>", "<http://ex/carol>"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("triple %d = %v, want %v", i, got[i], want[i])
		}
	}

	var buf bytes.Buffer
	if err := g.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if got := bytes.Count(buf.Bytes(), []byte(" .\n")); got != 3 {
		t.Errorf("Dump wrote %d lines, want 3", got)
	}
}

// TestResidentAndHybridAgree opens the same dataset resident and hybrid
// and checks that every one of the eight pattern shapes returns the same
// triples either way, the externally-observable equivalent of the
// original implementation's own structure-identity check between its
// in-memory and cache-backed triple access paths.
func TestResidentAndHybridAgree(t *testing.T) {
	g := buildSampleGraph(t)
	path := writeGraphToTemp(t, g)
	g.Close()

	resident, err := Open(path)
	if err != nil {
		t.Fatalf("Open resident: %v", err)
	}
	defer resident.Close()

	hybrid, err := Open(path, WithHybrid(true))
	if err != nil {
		t.Fatalf("Open hybrid: %v", err)
	}
	defer hybrid.Close()

	patterns := [][3]string{
		{"", "", ""},
		{"<http://ex/alice>", "", ""},
		{"", "<http://ex/knows>", ""},
		{"", "", "<http://ex/carol>"},
		{"<http://ex/alice>", "<http://ex/knows>", ""},
		{"<http://ex/bob>", "", "<http://ex/carol>"},
		{"", "<http://ex/knows>", "<http://ex/carol>"},
		{"<http://ex/alice>", "<http://ex/knows>", "<http://ex/bob>"},
	}
	for _, pat := range patterns {
		r := collectTriples(t, resident, pat[0], pat[1], pat[2])
		h := collectTriples(t, hybrid, pat[0], pat[1], pat[2])
		if len(r) != len(h) {
			t.Fatalf("pattern %v: resident=%v hybrid=%v", pat, r, h)
		}
		for i := range r {
			if r[i] != h[i] {
				t.Errorf("pattern %v: resident[%d]=%v hybrid[%d]=%v", pat, i, r[i], i, h[i])
			}
		}
	}
}

func TestDumpWritesNTriples(t *testing.T) {
	g := buildSampleGraph(t)
	defer g.Close()

	var buf bytes.Buffer
	if err := g.Dump(&buf); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("Dump wrote nothing")
	}
	if got := bytes.Count(buf.Bytes(), []byte(" .\n")); got != 4 {
		t.Errorf("Dump wrote %d lines, want 4", got)
	}
}
