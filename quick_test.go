package hdt

import (
	"fmt"
	"math/rand"
	"reflect"
	"sort"
	"testing"
	"testing/quick"
)

// testGraph is a small set of (s,p,o) lexical triples. Its Generate
// method is grounded on the teacher's quick_test.go random-RDF-graph
// generator (testdata/testdataitem, a pool of predicates and subject/
// object nodes drawn from a shared base URI), adapted to build an
// immutable Graph via Builder instead of inserting into a mutable
// BoltDB-backed DB.
type testGraph [][3]string

func (testGraph) Generate(rnd *rand.Rand, size int) reflect.Value {
	base := "http://test.org/"

	numPreds := rnd.Intn(9) + 1
	preds := make([]string, numPreds)
	for i := range preds {
		preds[i] = fmt.Sprintf("<%sp%d>", base, rnd.Intn(1000))
	}

	numNodes := rnd.Intn(9) + 2
	nodes := make([]string, numNodes)
	for i := range nodes {
		nodes[i] = fmt.Sprintf("<%sn%d>", base, rnd.Intn(1000))
	}

	seen := make(map[[3]string]struct{})
	var out testGraph
	for _, s := range nodes {
		n := rnd.Intn(5) + 1
		for i := 0; i < n; i++ {
			p := preds[rnd.Intn(len(preds))]
			o := nodes[rnd.Intn(len(nodes))]
			tr := [3]string{s, p, o}
			if _, dup := seen[tr]; dup {
				continue
			}
			seen[tr] = struct{}{}
			out = append(out, tr)
		}
	}
	return reflect.ValueOf(out)
}

// TestTriplesWithPatternMatchesReference_Quick builds random graphs and
// checks every one of the eight pattern shapes against a brute-force
// reference scan over the same triples, mirroring the teacher's
// TestInsert_Quick but adapted to the build-once, read-only Graph this
// package exposes in place of DB's mutable Insert/Has.
func TestTriplesWithPatternMatchesReference_Quick(t *testing.T) {
	f := func(tg testGraph) bool {
		if len(tg) == 0 {
			return true
		}
		b := NewBuilder(0)
		for _, tr := range tg {
			b.AddTriple(tr[0], tr[1], tr[2])
		}
		g, err := b.Build(0)
		if err != nil {
			t.Errorf("Build: %v", err)
			return false
		}
		defer g.Close()

		patterns := [][3]string{
			{"", "", ""},
			{tg[0][0], "", ""},
			{"", tg[0][1], ""},
			{"", "", tg[0][2]},
			{tg[0][0], tg[0][1], ""},
			{tg[0][0], "", tg[0][2]},
			{"", tg[0][1], tg[0][2]},
			{tg[0][0], tg[0][1], tg[0][2]},
		}
		for _, pat := range patterns {
			if !referenceMatchesGraph(t, g, tg, pat[0], pat[1], pat[2]) {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}

func referenceMatchesGraph(t *testing.T, g *Graph, tg testGraph, s, p, o string) bool {
	t.Helper()
	var want [][3]string
	for _, tr := range tg {
		if (s == "" || tr[0] == s) && (p == "" || tr[1] == p) && (o == "" || tr[2] == o) {
			want = append(want, tr)
		}
	}
	sort.Slice(want, func(i, j int) bool { return tripleLess(want[i], want[j]) })

	it, err := g.TriplesWithPattern(s, p, o)
	if err != nil {
		t.Errorf("TriplesWithPattern(%q,%q,%q): %v", s, p, o, err)
		return false
	}
	defer it.Close()

	var got [][3]string
	for {
		gs, gp, go_, ok, err := it.Next()
		if err != nil {
			t.Errorf("Next: %v", err)
			return false
		}
		if !ok {
			break
		}
		got = append(got, [3]string{gs, gp, go_})
	}
	sort.Slice(got, func(i, j int) bool { return tripleLess(got[i], got[j]) })

	if len(got) != len(want) {
		t.Errorf("pattern (%q,%q,%q): got %d triples, want %d (got=%v want=%v)", s, p, o, len(got), len(want), got, want)
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pattern (%q,%q,%q): triple %d = %v, want %v", s, p, o, i, got[i], want[i])
			return false
		}
	}
	return true
}

func tripleLess(a, b [3]string) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[2] < b[2]
}
