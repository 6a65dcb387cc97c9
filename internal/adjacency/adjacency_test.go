package adjacency

import (
	"testing"

	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/bitseq"
)

// buildExample builds an adjacency list with three groups:
// group 1: [10, 20, 30]
// group 2: [5]
// group 3: [1, 2]
func buildExample(t *testing.T) *List {
	t.Helper()
	values := []uint64{10, 20, 30, 5, 1, 2}
	lastOfGroup := map[int]bool{2: true, 3: true, 5: true}

	sb := bitseq.NewBuilder(uint64(len(values)), 6)
	bb := bitmap.NewBuilder(uint64(len(values)))
	for i, v := range values {
		sb.Set(uint64(i), v)
		if lastOfGroup[i] {
			bb.Set(uint64(i))
		}
	}
	return &List{A: sb.Freeze(), B: bb.Freeze()}
}

func TestFindLast(t *testing.T) {
	l := buildExample(t)

	cases := []struct {
		group      uint64
		wantFind   uint64
		wantLast   uint64
	}{
		{1, 0, 2},
		{2, 3, 3},
		{3, 4, 5},
	}
	for _, c := range cases {
		find, err := l.Find(c.group)
		if err != nil {
			t.Fatalf("Find(%d): %v", c.group, err)
		}
		if find != c.wantFind {
			t.Errorf("Find(%d) = %d, want %d", c.group, find, c.wantFind)
		}
		last, err := l.Last(c.group)
		if err != nil {
			t.Fatalf("Last(%d): %v", c.group, err)
		}
		if last != c.wantLast {
			t.Errorf("Last(%d) = %d, want %d", c.group, last, c.wantLast)
		}
	}
}

func TestSearch(t *testing.T) {
	l := buildExample(t)

	pos, ok, err := l.Search(1, 20)
	if err != nil || !ok {
		t.Fatalf("Search(1,20) failed: ok=%v err=%v", ok, err)
	}
	if pos != 1 {
		t.Errorf("Search(1,20) = %d, want 1", pos)
	}

	if _, ok, err := l.Search(1, 99); err != nil || ok {
		t.Errorf("Search(1,99) should be not-found, got ok=%v err=%v", ok, err)
	}

	pos, ok, err = l.Search(3, 1)
	if err != nil || !ok || pos != 4 {
		t.Errorf("Search(3,1) = (%d,%v,%v), want (4,true,nil)", pos, ok, err)
	}
}

func TestGetID(t *testing.T) {
	l := buildExample(t)
	for i, want := range []uint64{10, 20, 30, 5, 1, 2} {
		got, err := l.GetID(uint64(i))
		if err != nil {
			t.Fatalf("GetID(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("GetID(%d) = %d, want %d", i, got, want)
		}
	}
}
