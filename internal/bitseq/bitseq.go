// Package bitseq implements the bit-packed integer sequence of spec §4.1:
// entries of a fixed bit-width W packed little-endian into a byte buffer,
// with both an in-RAM backend and a file-streamed backend sharing the same
// disk encoding and the same Sequence interface.
package bitseq

// SequenceType is the type byte identifying the "Log64" bit-packed
// sequence encoding on disk (spec §4.1).
const SequenceType byte = 1

// Sequence is a random-access array of W-bit unsigned integers.
type Sequence interface {
	// Get returns the i-th entry. It returns format.ErrOutOfRange if
	// i >= Len().
	Get(i uint64) (uint64, error)

	// Len returns the number of entries.
	Len() uint64

	// Width returns the bit width of each entry.
	Width() uint8

	// SizeInBytes returns the size of the packed representation.
	SizeInBytes() int64

	// Close releases any resources (file handles, mappings) held by the
	// sequence. It is a no-op for in-RAM sequences.
	Close() error
}

// maskFor returns a mask with the low `width` bits set. width must be in
// [1, 64].
func maskFor(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// wordsNeeded returns the number of 64-bit words needed to hold `entries`
// values of `width` bits each.
func wordsNeeded(entries uint64, width uint8) uint64 {
	bits := entries * uint64(width)
	return (bits + 63) / 64
}

// extract pulls a `width`-bit value starting at bit offset `bitOff` out of
// a little-endian packed word pair. It handles entries that span exactly
// one or two 64-bit words, which is the only case that can occur since
// width <= 64.
func extract(lo, hi uint64, bitOff uint8, width uint8) uint64 {
	v := lo >> bitOff
	if bitOff+width > 64 {
		// the entry spans into hi; the number of bits still missing is
		// (bitOff+width-64).
		missing := bitOff + width - 64
		v |= hi << (64 - bitOff)
		_ = missing
	}
	return v & maskFor(width)
}
