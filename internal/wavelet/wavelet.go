// Package wavelet implements the wavelet matrix of spec §4.3: a compressed
// sequence of small-alphabet integers supporting access/rank/select in
// O(log sigma). It is built once from an in-RAM sequence of layer-Y values
// and is always resident (spec: "Not file-streamable; always resident.").
package wavelet

import (
	"fmt"
	"math/bits"

	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/format"
)

// Wavelet is a wavelet matrix over an alphabet [0, 2^levels).
type Wavelet struct {
	length uint64
	levels []*bitmap.RAM // one rank/select bitmap per bit-level, MSB first
	zeros  []uint64      // number of 0-bits routed at each level
}

// BitsForAlphabet returns the number of levels needed to represent values
// up to and including max, forced to at least one bit even when max is 0
// (spec §9: "On tiny graphs the alphabet width must be forced to at least
// one bit").
func BitsForAlphabet(max uint64) int {
	if max == 0 {
		return 1
	}
	return bits.Len64(max)
}

// Build constructs a wavelet matrix over values, each of which must fit in
// `levels` bits.
func Build(values []uint64, levels int) *Wavelet {
	if levels < 1 {
		levels = 1
	}
	length := uint64(len(values))
	cur := make([]uint64, length)
	copy(cur, values)

	w := &Wavelet{length: length, levels: make([]*bitmap.RAM, levels), zeros: make([]uint64, levels)}

	for level := 0; level < levels; level++ {
		bitIdx := uint(levels - 1 - level)
		b := bitmap.NewBuilder(length)
		zeroVals := make([]uint64, 0, length)
		oneVals := make([]uint64, 0, length)
		for i, v := range cur {
			if (v>>bitIdx)&1 == 1 {
				b.Set(uint64(i))
				oneVals = append(oneVals, v)
			} else {
				zeroVals = append(zeroVals, v)
			}
		}
		w.zeros[level] = uint64(len(zeroVals))
		w.levels[level] = b.Freeze()
		cur = append(zeroVals, oneVals...)
	}
	return w
}

// Len returns the number of elements in the sequence.
func (w *Wavelet) Len() uint64 { return w.length }

// Access returns the value at position i.
func (w *Wavelet) Access(i uint64) (uint64, error) {
	if i >= w.length {
		return 0, fmt.Errorf("%w: wavelet.Access(%d) with %d entries", format.ErrOutOfRange, i, w.length)
	}
	pos := i
	var value uint64
	for level := range w.levels {
		bm := w.levels[level]
		bit, err := bm.Access(pos)
		if err != nil {
			return 0, err
		}
		rank1, err := bm.Rank1(pos)
		if err != nil {
			return 0, err
		}
		value <<= 1
		if bit {
			value |= 1
			pos = w.zeros[level] + rank1
		} else {
			pos = pos - rank1
		}
	}
	return value, nil
}

// Rank returns the number of occurrences of v in positions [0, pos).
func (w *Wavelet) Rank(pos uint64, v uint64) (uint64, error) {
	if pos > w.length {
		return 0, fmt.Errorf("%w: wavelet.Rank(%d,...) with %d entries", format.ErrOutOfRange, pos, w.length)
	}
	lo, hi := uint64(0), pos
	levels := len(w.levels)
	for level := 0; level < levels; level++ {
		bitIdx := uint(levels - 1 - level)
		bit := (v >> bitIdx) & 1
		bm := w.levels[level]

		rLo, err := bm.Rank1(lo)
		if err != nil {
			return 0, err
		}
		rHi, err := bm.Rank1(hi)
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			lo = w.zeros[level] + rLo
			hi = w.zeros[level] + rHi
		} else {
			lo = lo - rLo
			hi = hi - rHi
		}
	}
	return hi - lo, nil
}

// Select returns the position of the k-th (0-indexed) occurrence of v.
func (w *Wavelet) Select(k uint64, v uint64) (uint64, bool, error) {
	total, err := w.Rank(w.length, v)
	if err != nil {
		return 0, false, err
	}
	if k >= total {
		return 0, false, nil
	}

	levels := len(w.levels)
	lo := uint64(0)
	for level := 0; level < levels; level++ {
		bitIdx := uint(levels - 1 - level)
		bit := (v >> bitIdx) & 1
		bm := w.levels[level]
		rLo, err := bm.Rank1(lo)
		if err != nil {
			return 0, false, err
		}
		if bit == 1 {
			lo = w.zeros[level] + rLo
		} else {
			lo = lo - rLo
		}
	}

	pos := lo + k
	for level := levels - 1; level >= 0; level-- {
		bitIdx := uint(levels - 1 - level)
		bit := (v >> bitIdx) & 1
		bm := w.levels[level]
		if bit == 1 {
			p, ok, err := bm.Select1(pos - w.zeros[level])
			if err != nil {
				return 0, false, err
			}
			if !ok {
				return 0, false, fmt.Errorf("%w: wavelet select inversion: no such 1-bit", format.ErrOutOfRange)
			}
			pos = p
		} else {
			p, err := select0(bm, pos)
			if err != nil {
				return 0, false, err
			}
			pos = p
		}
	}
	return pos, true, nil
}

// select0 returns the position of the k-th (0-indexed) zero-bit in bm,
// found by binary search over Rank1 since Bitmap exposes no native
// select0 (the format only specifies select over one-bits).
func select0(bm *bitmap.RAM, k uint64) (uint64, error) {
	lo, hi := uint64(0), bm.Len()
	for lo < hi {
		mid := (lo + hi) / 2
		r1, err := bm.Rank1(mid + 1)
		if err != nil {
			return 0, err
		}
		rank0 := (mid + 1) - r1
		if rank0 > k {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// SizeInBytes returns the combined resident size of all levels.
func (w *Wavelet) SizeInBytes() int64 {
	var total int64
	for _, lvl := range w.levels {
		total += lvl.SizeInBytes()
	}
	return total
}
