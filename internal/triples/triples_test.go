package triples

import (
	"math/rand"
	"sort"
	"testing"
)

// refTriple is a plain (x,y,z) coordinate triple used to build both the
// Store under test and a brute-force reference to check it against.
type refTriple [3]uint64

// buildRandomGraph generates a random set of coordinate triples over S
// subjects, P predicates, O objects, sorted by (x,y,z) as BuildFromSorted
// requires.
func buildRandomGraph(rng *rand.Rand, s, p, o, n int) []refTriple {
	seen := make(map[refTriple]bool)
	var out []refTriple
	for len(out) < n {
		tr := refTriple{
			uint64(rng.Intn(s) + 1),
			uint64(rng.Intn(p) + 1),
			uint64(rng.Intn(o) + 1),
		}
		if seen[tr] {
			continue
		}
		seen[tr] = true
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		if out[i][1] != out[j][1] {
			return out[i][1] < out[j][1]
		}
		return out[i][2] < out[j][2]
	})
	return out
}

func buildStoreAndRef(t *testing.T, rng *rand.Rand, s, p, o, n int) (*Store, []refTriple) {
	t.Helper()
	coords := buildRandomGraph(rng, s, p, o, n)
	st, err := BuildFromSorted(SPO, coords, uint64(s), uint64(p), uint64(o))
	if err != nil {
		t.Fatalf("BuildFromSorted: %v", err)
	}
	return st, coords
}

func matchesPattern(tr refTriple, x, y, z uint64) bool {
	if x != 0 && tr[0] != x {
		return false
	}
	if y != 0 && tr[1] != y {
		return false
	}
	if z != 0 && tr[2] != z {
		return false
	}
	return true
}

func collect(t *testing.T, it Iterator) []refTriple {
	t.Helper()
	var out []refTriple
	for {
		x, y, z, ok, err := it.Next()
		if err != nil {
			t.Fatalf("iterator.Next: %v", err)
		}
		if !ok {
			break
		}
		out = append(out, refTriple{x, y, z})
	}
	return out
}

func referenceMatches(all []refTriple, x, y, z uint64) []refTriple {
	var out []refTriple
	for _, tr := range all {
		if matchesPattern(tr, x, y, z) {
			out = append(out, tr)
		}
	}
	return out
}

func sameSet(t *testing.T, got, want []refTriple) {
	t.Helper()
	sort.Slice(got, func(i, j int) bool { return got[i] != got[j] && less(got[i], got[j]) })
	sort.Slice(want, func(i, j int) bool { return want[i] != want[j] && less(want[i], want[j]) })
	if len(got) != len(want) {
		t.Fatalf("got %d triples, want %d\ngot:  %v\nwant: %v", len(got), len(want), got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %v, want %v\ngot:  %v\nwant: %v", i, got[i], want[i], got, want)
		}
	}
}

func less(a, b refTriple) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}

func TestAllEightPatterns(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	st, coords := buildStoreAndRef(t, rng, 6, 5, 8, 40)

	patterns := []struct {
		name    string
		x, y, z uint64
	}{
		{"SPO", 2, 3, 4},
		{"SP?", 2, 3, 0},
		{"S?O", 2, 0, 4},
		{"S??", 2, 0, 0},
		{"?P?", 0, 3, 0},
		{"??O", 0, 0, 4},
		{"?PO", 0, 3, 4},
		{"???", 0, 0, 0},
	}
	for _, pat := range patterns {
		it, err := PatternIterator(st, pat.x, pat.y, pat.z)
		if err != nil {
			t.Fatalf("%s: PatternIterator: %v", pat.name, err)
		}
		got := collect(t, it)
		want := referenceMatches(coords, pat.x, pat.y, pat.z)
		sameSet(t, got, want)
	}
}

func TestPatternIteratorOverMultipleRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		s, p, o := rng.Intn(8)+1, rng.Intn(6)+1, rng.Intn(10)+1
		n := rng.Intn(s*p*o) + 1
		if n > s*p*o {
			n = s * p * o
		}
		st, coords := buildStoreAndRef(t, rng, s, p, o, n)

		x := uint64(rng.Intn(s + 1))
		y := uint64(rng.Intn(p + 1))
		z := uint64(rng.Intn(o + 1))

		it, err := PatternIterator(st, x, y, z)
		if err != nil {
			t.Fatalf("trial %d: PatternIterator(%d,%d,%d): %v", trial, x, y, z, err)
		}
		got := collect(t, it)
		want := referenceMatches(coords, x, y, z)
		sameSet(t, got, want)
	}
}

func TestAbsentSubjectProducesEmptyIterator(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	st, _ := buildStoreAndRef(t, rng, 3, 3, 3, 9)

	it, err := PatternIterator(st, st.S+5, 0, 0)
	if err != nil {
		t.Fatalf("PatternIterator: %v", err)
	}
	got := collect(t, it)
	if len(got) != 0 {
		t.Fatalf("expected empty iterator for out-of-range subject, got %v", got)
	}
}

func TestOrderCoordRoundTrip(t *testing.T) {
	for _, ord := range []Order{SPO, SOP, PSO, POS, OSP, OPS} {
		s, p, o := uint64(3), uint64(5), uint64(7)
		x, y, z := ord.TripleToCoord(s, p, o)
		gotS, gotP, gotO, err := ord.CoordToTriple(x, y, z)
		if err != nil {
			t.Fatalf("%s: CoordToTriple: %v", ord, err)
		}
		if gotS != s || gotP != p || gotO != o {
			t.Fatalf("%s: round trip = (%d,%d,%d), want (%d,%d,%d)", ord, gotS, gotP, gotO, s, p, o)
		}
	}
}

func TestCoordToTripleRejectsZero(t *testing.T) {
	if _, _, _, err := SPO.CoordToTriple(1, 0, 1); err == nil {
		t.Error("CoordToTriple with a zero component should fail")
	}
}
