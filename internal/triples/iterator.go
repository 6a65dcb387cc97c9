package triples

import "sort"

// Iterator lazily emits (x,y,z) store-coordinate triples in SPO-relative
// order (spec §4.5: "four specialized iterators ... no buffering beyond
// O(1) cursor state"). It is single-threaded and not restartable: once
// exhausted (Next returns ok=false), it stays exhausted.
type Iterator interface {
	Next() (x, y, z uint64, ok bool, err error)
	Close() error
}

// PatternIterator dispatches to the iterator variant matching which of
// x, y, z are bound (nonzero) vs variable (zero), generalizing the
// spec's eight named patterns (SPO, SP?, ... ???) to whatever coordinate
// the store's permutation assigns to "first/second/third" — the nesting
// Y-over-Z-over-OP is structural, not tied to the subject/predicate/
// object labels (spec §4.5).
func PatternIterator(t *Store, x, y, z uint64) (Iterator, error) {
	switch {
	case x != 0:
		return newSubjectIterator(t, x, y, z)
	case y != 0 && z != 0:
		return newPredicateObjectIterator(t, y, z)
	case y != 0:
		return newPredicateIterator(t, y)
	case z != 0:
		return newObjectIterator(t, z)
	default:
		return newUnrestrictedIterator(t)
	}
}

// subjectIterator handles every pattern with x bound: S??, SP?, S?O, SPO.
type subjectIterator struct {
	t *Store

	x, y, z uint64 // y, z are 0 when variable
	haveY   bool   // true once we've resolved a single y (bound or from a fixed group)

	yLo, yHi uint64
	curY     uint64
	zLo, zHi uint64
	curZ     uint64
	started  bool
	done     bool
}

func newSubjectIterator(t *Store, x, y, z uint64) (*subjectIterator, error) {
	it := &subjectIterator{t: t, x: x, y: y, z: z}
	if x > t.S {
		it.done = true
		return it, nil
	}
	if y != 0 {
		pos, ok, err := t.SearchY(x, y)
		if err != nil {
			return nil, err
		}
		if !ok {
			it.done = true
			return it, nil
		}
		it.yLo, it.yHi = pos, pos
	} else {
		lo, err := t.FindY(x)
		if err != nil {
			return nil, err
		}
		hi, err := t.LastY(x)
		if err != nil {
			return nil, err
		}
		if hi < lo {
			it.done = true
			return it, nil
		}
		it.yLo, it.yHi = lo, hi
	}
	it.curY = it.yLo
	if err := it.loadZRange(); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *subjectIterator) loadZRange() error {
	lo, err := it.t.FindZ(it.curY)
	if err != nil {
		return err
	}
	hi, err := it.t.LastZ(it.curY)
	if err != nil {
		return err
	}
	it.zLo, it.zHi = lo, hi
	it.curZ = lo
	return nil
}

func (it *subjectIterator) Next() (uint64, uint64, uint64, bool, error) {
	for {
		if it.done {
			return 0, 0, 0, false, nil
		}
		if it.zLo > it.zHi || it.curZ > it.zHi {
			it.curY++
			if it.curY > it.yHi {
				it.done = true
				return 0, 0, 0, false, nil
			}
			if err := it.loadZRange(); err != nil {
				return 0, 0, 0, false, err
			}
			continue
		}
		posZ := it.curZ
		it.curZ++
		obj, err := it.t.ObjectAt(posZ)
		if err != nil {
			return 0, 0, 0, false, err
		}
		if it.z != 0 && obj != it.z {
			continue
		}
		p, err := it.t.PredicateAt(it.curY)
		if err != nil {
			return 0, 0, 0, false, err
		}
		return it.x, p, obj, true, nil
	}
}

func (it *subjectIterator) Close() error { return nil }

// predicateIterator handles ?P?: fixed predicate, any subject, any object.
type predicateIterator struct {
	t *Store
	p uint64

	total uint64
	i     uint64

	posY     uint64
	zLo, zHi uint64
	curZ     uint64
	haveZ    bool
	done     bool
}

func newPredicateIterator(t *Store, p uint64) (*predicateIterator, error) {
	total, err := t.WY.Rank(t.WY.Len(), p)
	if err != nil {
		return nil, err
	}
	it := &predicateIterator{t: t, p: p, total: total}
	if total == 0 {
		it.done = true
	}
	return it, nil
}

func (it *predicateIterator) advanceGroup() error {
	posY, ok, err := it.t.WY.Select(it.i, it.p)
	if err != nil {
		return err
	}
	if !ok {
		it.done = true
		return nil
	}
	it.posY = posY
	lo, err := it.t.FindZ(posY)
	if err != nil {
		return err
	}
	hi, err := it.t.LastZ(posY)
	if err != nil {
		return err
	}
	it.zLo, it.zHi, it.curZ, it.haveZ = lo, hi, lo, true
	return nil
}

func (it *predicateIterator) Next() (uint64, uint64, uint64, bool, error) {
	for {
		if it.done {
			return 0, 0, 0, false, nil
		}
		if !it.haveZ {
			if err := it.advanceGroup(); err != nil {
				return 0, 0, 0, false, err
			}
			continue
		}
		if it.curZ > it.zHi {
			it.i++
			it.haveZ = false
			if it.i >= it.total {
				it.done = true
				return 0, 0, 0, false, nil
			}
			continue
		}
		obj, err := it.t.ObjectAt(it.curZ)
		if err != nil {
			return 0, 0, 0, false, err
		}
		it.curZ++
		s, err := it.t.SubjectOf(it.posY)
		if err != nil {
			return 0, 0, 0, false, err
		}
		return s, it.p, obj, true, nil
	}
}

func (it *predicateIterator) Close() error { return nil }

// objectIterator handles ??O: fixed object, any subject, any predicate.
type objectIterator struct {
	t    *Store
	o    uint64
	k    uint64
	hi   uint64
	done bool
}

func newObjectIterator(t *Store, o uint64) (*objectIterator, error) {
	if o > t.O {
		return &objectIterator{done: true}, nil
	}
	lo, err := t.FindOP(o)
	if err != nil {
		return nil, err
	}
	hi, err := t.LastOP(o)
	if err != nil {
		return nil, err
	}
	it := &objectIterator{t: t, o: o, k: lo, hi: hi}
	if hi < lo {
		it.done = true
	}
	return it, nil
}

func (it *objectIterator) Next() (uint64, uint64, uint64, bool, error) {
	if it.done || it.k > it.hi {
		return 0, 0, 0, false, nil
	}
	posY, err := it.t.OP.GetID(it.k)
	if err != nil {
		return 0, 0, 0, false, err
	}
	it.k++
	y, err := it.t.PredicateAt(posY)
	if err != nil {
		return 0, 0, 0, false, err
	}
	x, err := it.t.SubjectOf(posY)
	if err != nil {
		return 0, 0, 0, false, err
	}
	return x, y, it.o, true, nil
}

func (it *objectIterator) Close() error { return nil }

// predicateObjectIterator handles ?PO: fixed predicate and object, any
// subject. It binary-searches the OP object-group of o for the
// sub-range whose Y-positions carry predicate p (spec §4.5 "two-sided
// binary search using both find_op(o)/last_op(o) and W_Y.access as the
// key").
type predicateObjectIterator struct {
	t        *Store
	p, o     uint64
	k, hi    uint64
	done     bool
}

func newPredicateObjectIterator(t *Store, p, o uint64) (*predicateObjectIterator, error) {
	if o > t.O {
		return &predicateObjectIterator{done: true}, nil
	}
	lo, err := t.FindOP(o)
	if err != nil {
		return nil, err
	}
	hi, err := t.LastOP(o)
	if err != nil {
		return nil, err
	}
	if hi < lo {
		return &predicateObjectIterator{done: true}, nil
	}

	keyAt := func(k uint64) (uint64, error) {
		posY, err := t.OP.GetID(k)
		if err != nil {
			return 0, err
		}
		return t.PredicateAt(posY)
	}

	n := int(hi - lo + 1)
	var ferr error
	lower := sort.Search(n, func(i int) bool {
		v, err := keyAt(lo + uint64(i))
		if err != nil {
			ferr = err
			return true
		}
		return v >= p
	})
	if ferr != nil {
		return nil, ferr
	}
	upper := sort.Search(n, func(i int) bool {
		v, err := keyAt(lo + uint64(i))
		if err != nil {
			ferr = err
			return true
		}
		return v > p
	})
	if ferr != nil {
		return nil, ferr
	}
	if lower >= upper {
		return &predicateObjectIterator{done: true}, nil
	}
	return &predicateObjectIterator{t: t, p: p, o: o, k: lo + uint64(lower), hi: lo + uint64(upper) - 1}, nil
}

func (it *predicateObjectIterator) Next() (uint64, uint64, uint64, bool, error) {
	if it.done || it.k > it.hi {
		return 0, 0, 0, false, nil
	}
	posY, err := it.t.OP.GetID(it.k)
	if err != nil {
		return 0, 0, 0, false, err
	}
	it.k++
	x, err := it.t.SubjectOf(posY)
	if err != nil {
		return 0, 0, 0, false, err
	}
	return x, it.p, it.o, true, nil
}

func (it *predicateObjectIterator) Close() error { return nil }

// unrestrictedIterator handles ???: walks Z sequentially, computing
// (s,p) on the fly via rank1 on B_Z and B_Y (spec §4.5).
type unrestrictedIterator struct {
	t      *Store
	posZ   uint64
	done   bool
}

func newUnrestrictedIterator(t *Store) (*unrestrictedIterator, error) {
	return &unrestrictedIterator{t: t, done: t.N == 0}, nil
}

func (it *unrestrictedIterator) Next() (uint64, uint64, uint64, bool, error) {
	if it.done || it.posZ >= it.t.N {
		return 0, 0, 0, false, nil
	}
	s, p, o, err := it.t.TripleAtZ(it.posZ)
	if err != nil {
		return 0, 0, 0, false, err
	}
	it.posZ++
	return s, p, o, true, nil
}

func (it *unrestrictedIterator) Close() error { return nil }
