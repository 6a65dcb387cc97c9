package bitmap

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"

	"github.com/hdtquery/hdt/internal/format"
)

// RAM is an in-memory rank/select bitmap backed by a roaring.Bitmap of the
// set bit positions.
type RAM struct {
	bits  *roaring.Bitmap
	m     uint64
	ones  uint64
}

var _ Bitmap = (*RAM)(nil)

// NewRAM wraps a pre-built roaring.Bitmap of one-bit positions as a
// rank/select Bitmap of length m.
func NewRAM(bits *roaring.Bitmap, m uint64) *RAM {
	return &RAM{bits: bits, m: m, ones: bits.GetCardinality()}
}

func (b *RAM) Len() uint64       { return b.m }
func (b *RAM) CountOnes() uint64 { return b.ones }
func (b *RAM) Close() error      { return nil }

// SizeInBytes approximates the resident footprint via roaring's own
// reported serialized size, since a Rank9Sel-style fixed-overhead
// accounting doesn't apply to a compressed-container structure.
func (b *RAM) SizeInBytes() int64 {
	return int64(b.bits.GetSizeInBytes())
}

func (b *RAM) Access(i uint64) (bool, error) {
	if i >= b.m {
		return false, fmt.Errorf("%w: bitmap.Access(%d) with %d bits", format.ErrOutOfRange, i, b.m)
	}
	return b.bits.Contains(uint32(i)), nil
}

// Rank1 returns the number of one-bits in [0, i). roaring.Bitmap.Rank(x)
// returns the count of values <= x, so rank1(i) = Rank(i-1) for i>0.
func (b *RAM) Rank1(i uint64) (uint64, error) {
	if i > b.m {
		return 0, fmt.Errorf("%w: bitmap.Rank1(%d) with %d bits", format.ErrOutOfRange, i, b.m)
	}
	if i == 0 {
		return 0, nil
	}
	return b.bits.Rank(uint32(i - 1)), nil
}

// Select1 returns the position of the k-th (0-indexed) one-bit.
func (b *RAM) Select1(k uint64) (uint64, bool, error) {
	if k >= b.ones {
		return 0, false, nil
	}
	pos, err := b.bits.Select(uint32(k))
	if err != nil {
		return 0, false, nil
	}
	return uint64(pos), true, nil
}

// Builder accumulates one-bit positions before freezing into a RAM bitmap.
type Builder struct {
	bits *roaring.Bitmap
	m    uint64
}

// NewBuilder allocates a builder for a bitmap of m bits.
func NewBuilder(m uint64) *Builder {
	return &Builder{bits: roaring.NewBitmap(), m: m}
}

// Set marks position i as a one-bit.
func (b *Builder) Set(i uint64) {
	b.bits.Add(uint32(i))
}

// Freeze returns the built RAM bitmap.
func (b *Builder) Freeze() *RAM {
	b.bits.RunOptimize()
	return NewRAM(b.bits, b.m)
}
