package triples

import (
	"math/bits"

	"github.com/hdtquery/hdt/internal/adjacency"
	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/wavelet"
)

// widthFor returns the bit width needed to hold values up to and
// including max, forced to at least one bit (mirrors
// wavelet.BitsForAlphabet, used here for the plain Z sequence rather
// than a wavelet-encoded one).
func widthFor(max uint64) uint8 {
	if max == 0 {
		return 1
	}
	return uint8(bits.Len64(max))
}

// pairGroup accumulates the object list for one (subject, predicate) pair
// while scanning sorted input triples.
type pairGroup struct {
	x, y uint64
	zs   []uint64
}

// BuildFromSorted constructs a Store from triples already sorted in
// (x,y,z) coordinate order under the given permutation (spec §4.5: the
// store reads B_Y, B_Z, Y, Z directly off disk in the persisted case;
// this is the from-scratch construction path used both by tests and by
// the hybrid cache's "regenerate" fallback). S, P, O are the distinct
// subject/predicate/object counts.
func BuildFromSorted(order Order, coords [][3]uint64, s, p, o uint64) (*Store, error) {
	var groups []pairGroup
	for _, c := range coords {
		x, y, z := c[0], c[1], c[2]
		if len(groups) == 0 || groups[len(groups)-1].x != x || groups[len(groups)-1].y != y {
			groups = append(groups, pairGroup{x: x, y: y})
		}
		g := &groups[len(groups)-1]
		g.zs = append(g.zs, z)
	}

	m := uint64(len(groups))
	n := uint64(len(coords))

	yVals := make([]uint64, m)
	byBuilder := bitmap.NewBuilder(m)
	zSeqBuilder := bitseq.NewBuilder(n, widthFor(o))
	bzBuilder := bitmap.NewBuilder(n)

	var zPos uint64
	for i, g := range groups {
		yVals[i] = g.y
		if i == len(groups)-1 || groups[i+1].x != g.x {
			byBuilder.Set(uint64(i))
		}
		for _, z := range g.zs {
			zSeqBuilder.Set(zPos, z)
			zPos++
		}
		bzBuilder.Set(zPos - 1)
	}

	by := byBuilder.Freeze()
	wy := wavelet.Build(yVals, wavelet.BitsForAlphabet(p))
	lz := &adjacency.List{A: zSeqBuilder.Freeze(), B: bzBuilder.Freeze()}

	op, err := DeriveOP(by, wy, lz, o)
	if err != nil {
		return nil, err
	}

	return &Store{
		Order: order,
		BY:    by,
		WY:    wy,
		LZ:    lz,
		OP:    op,
		S:     s,
		P:     p,
		O:     o,
		N:     n,
	}, nil
}
