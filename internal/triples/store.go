package triples

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/hdtquery/hdt/internal/adjacency"
	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/format"
	"github.com/hdtquery/hdt/internal/wavelet"
)

// Store is the bitmap-triples structure of spec §4.5: layer Y (subjects),
// layer Z (predicate groups), and the derived object->position inverse
// index OP.
type Store struct {
	Order Order

	BY bitmap.Bitmap   // layer-Y group-boundary bitmap, one 1 per subject
	WY *wavelet.Wavelet // layer-Y values (predicate ids), wavelet-encoded
	LZ *adjacency.List  // layer Z: (Z sequence, B_Z boundary bitmap)
	OP *adjacency.List  // inverse index: (O_pos sequence, B_OP boundary bitmap)

	S, P, O uint64 // distinct subject/predicate/object counts
	N       uint64 // triple count
}

// FindY returns the Y-position of the first element of subject-group s
// (1-indexed s).
func (t *Store) FindY(s uint64) (uint64, error) {
	if s > t.S {
		return 0, fmt.Errorf("%w: find_y(%d) with %d subjects", format.ErrOutOfRange, s, t.S)
	}
	return adjacency.FindBoundary(t.BY, s)
}

// LastY returns the Y-position of the last element of subject-group s.
func (t *Store) LastY(s uint64) (uint64, error) {
	if s > t.S {
		return 0, fmt.Errorf("%w: last_y(%d) with %d subjects", format.ErrOutOfRange, s, t.S)
	}
	return adjacency.LastBoundary(t.BY, s)
}

// SearchY binary searches W_Y over [find_y(s), last_y(s)] for predicate p.
func (t *Store) SearchY(s, p uint64) (pos uint64, ok bool, err error) {
	lo, err := t.FindY(s)
	if err != nil {
		return 0, false, err
	}
	hi, err := t.LastY(s)
	if err != nil {
		return 0, false, err
	}
	if hi < lo {
		return 0, false, nil
	}
	n := int(hi - lo + 1)
	i := sort.Search(n, func(i int) bool {
		v, serr := t.WY.Access(lo + uint64(i))
		if serr != nil {
			err = serr
			return true
		}
		return v >= p
	})
	if err != nil {
		return 0, false, err
	}
	if i == n {
		return 0, false, nil
	}
	pos = lo + uint64(i)
	v, verr := t.WY.Access(pos)
	if verr != nil {
		return 0, false, verr
	}
	if v != p {
		return 0, false, nil
	}
	return pos, true, nil
}

// FindZ returns the Z-position of the first element of the (s,p) group
// whose Y-position is posY.
func (t *Store) FindZ(posY uint64) (uint64, error) {
	return t.LZ.Find(posY + 1)
}

// LastZ returns the Z-position of the last element of the (s,p) group
// whose Y-position is posY.
func (t *Store) LastZ(posY uint64) (uint64, error) {
	return t.LZ.Last(posY + 1)
}

// SearchZ binary searches Z over [find_z(posY), last_z(posY)] for o.
func (t *Store) SearchZ(posY, o uint64) (uint64, bool, error) {
	return t.LZ.Search(posY+1, o)
}

// FindOP returns the OP-position of the first element of object-group o.
func (t *Store) FindOP(o uint64) (uint64, error) {
	if o > t.O {
		return 0, fmt.Errorf("%w: find_op(%d) with %d objects", format.ErrOutOfRange, o, t.O)
	}
	return t.OP.Find(o)
}

// LastOP returns the OP-position of the last element of object-group o.
func (t *Store) LastOP(o uint64) (uint64, error) {
	return t.OP.Last(o)
}

// SubjectOf returns the subject id owning layer-Y position posY:
// rank1(B_Y, posY) + 1 (spec §4.5 reverse mapping, step 3).
func (t *Store) SubjectOf(posY uint64) (uint64, error) {
	r, err := t.BY.Rank1(posY)
	if err != nil {
		return 0, err
	}
	return r + 1, nil
}

// PredicateAt returns the predicate id (layer-Y value) at posY.
func (t *Store) PredicateAt(posY uint64) (uint64, error) {
	return t.WY.Access(posY)
}

// YPositionOfZ maps a Z-position to its owning Y-position:
// rank1(B_Z, posZ) (spec §4.5 reverse mapping, step 1).
func (t *Store) YPositionOfZ(posZ uint64) (uint64, error) {
	return t.LZ.B.Rank1(posZ)
}

// ObjectAt returns the object id (layer-Z value) at posZ.
func (t *Store) ObjectAt(posZ uint64) (uint64, error) {
	return t.LZ.GetID(posZ)
}

// TripleAtZ reconstructs the full (s,p,o) at Z-position posZ via the
// spec §4.5 reverse mapping.
func (t *Store) TripleAtZ(posZ uint64) (s, p, o uint64, err error) {
	posY, err := t.YPositionOfZ(posZ)
	if err != nil {
		return 0, 0, 0, err
	}
	p, err = t.PredicateAt(posY)
	if err != nil {
		return 0, 0, 0, err
	}
	s, err = t.SubjectOf(posY)
	if err != nil {
		return 0, 0, 0, err
	}
	o, err = t.ObjectAt(posZ)
	if err != nil {
		return 0, 0, 0, err
	}
	return s, p, o, nil
}

// Close releases the store's resident and file-streamed structures.
func (t *Store) Close() error {
	var err error
	if e := t.BY.Close(); e != nil {
		err = e
	}
	if e := t.LZ.Close(); e != nil && err == nil {
		err = e
	}
	if e := t.OP.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

// yzPair is one layer-Z entry paired with its owning layer-Y position
// and predicate, used to derive OP.
type yzPair struct {
	posY uint64
	pred uint64
	obj  uint64
}

// DeriveOP builds the inverse object->position index from a fully
// constructed Y/Z layer (spec §4.5): bucket the Y-positions by the
// object they point to (via Z), sort each bucket by predicate, and mark
// group boundaries. This is the O(N log N) derivation the hybrid cache
// exists to persist.
func DeriveOP(by bitmap.Bitmap, wy *wavelet.Wavelet, lz *adjacency.List, numObjects uint64) (*adjacency.List, error) {
	n := lz.A.Len()
	pairs := make([]yzPair, n)
	for posZ := uint64(0); posZ < n; posZ++ {
		posY, err := lz.B.Rank1(posZ)
		if err != nil {
			return nil, err
		}
		pred, err := wy.Access(posY)
		if err != nil {
			return nil, err
		}
		obj, err := lz.A.Get(posZ)
		if err != nil {
			return nil, err
		}
		pairs[posZ] = yzPair{posY: posY, pred: pred, obj: obj}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].obj != pairs[j].obj {
			return pairs[i].obj < pairs[j].obj
		}
		return pairs[i].pred < pairs[j].pred
	})

	width := uint8(1)
	if n > 1 {
		width = uint8(bits.Len64(n - 1))
	}
	sb := bitseq.NewBuilder(n, width)
	bb := bitmap.NewBuilder(n)
	for i, pr := range pairs {
		sb.Set(uint64(i), pr.posY)
		if i == len(pairs)-1 || pairs[i+1].obj != pr.obj {
			bb.Set(uint64(i))
		}
	}

	return &adjacency.List{A: sb.Freeze(), B: bb.Freeze()}, nil
}
