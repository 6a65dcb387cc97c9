// Package bitmap implements the rank/select bit vector of spec §4.2. The
// in-RAM backend is a thin adapter over github.com/RoaringBitmap/roaring
// (the teacher's own dependency): a HDT boundary bitmap has exactly one
// one-bit per group (S, distinct-(s,p) pairs, or O groups) out of N total
// positions, which is precisely the sparse-set shape roaring is built for,
// and roaring.Bitmap.Rank/Select already compute rank1/select1 directly.
// The file-streamed backend evaluates rank/select by an O(m/64) linear
// scan over on-disk words, as spec §4.2 allows for deployments where the
// bitmap exceeds the RAM budget.
package bitmap

// BitmapType is the type byte identifying the plain rank/select bitmap
// encoding on disk (spec §4.2).
const BitmapType byte = 1

// Bitmap is a bit vector of m bits supporting O(1) (RAM) or O(m/64)
// (file-streamed) rank1/select1/access.
type Bitmap interface {
	// Len returns the number of bits, m.
	Len() uint64

	// CountOnes returns the total number of one-bits.
	CountOnes() uint64

	// Access returns the bit at position i.
	Access(i uint64) (bool, error)

	// Rank1 returns the number of one-bits in [0, i).
	Rank1(i uint64) (uint64, error)

	// Select1 returns the position of the k-th one-bit (0-indexed), or
	// ok=false if k >= CountOnes().
	Select1(k uint64) (pos uint64, ok bool, err error)

	// SizeInBytes returns the size of the underlying word storage.
	SizeInBytes() int64

	// Close releases any resources held by the bitmap.
	Close() error
}
