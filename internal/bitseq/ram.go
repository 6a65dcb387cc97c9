package bitseq

import (
	"fmt"

	"github.com/hdtquery/hdt/internal/format"
)

// RAM is an in-memory bit-packed sequence.
type RAM struct {
	words   []uint64
	entries uint64
	width   uint8
}

var _ Sequence = (*RAM)(nil)

// NewRAM wraps a pre-built word array. Callers normally get a *RAM from
// Builder.Freeze instead of calling this directly.
func NewRAM(words []uint64, entries uint64, width uint8) *RAM {
	return &RAM{words: words, entries: entries, width: width}
}

func (s *RAM) Len() uint64   { return s.entries }
func (s *RAM) Width() uint8  { return s.width }
func (s *RAM) Close() error  { return nil }
func (s *RAM) SizeInBytes() int64 {
	return int64(len(s.words)) * 8
}

// Get returns the i-th entry.
func (s *RAM) Get(i uint64) (uint64, error) {
	if i >= s.entries {
		return 0, fmt.Errorf("%w: bitseq.Get(%d) with %d entries", format.ErrOutOfRange, i, s.entries)
	}
	if s.width == 0 {
		return 0, nil
	}
	bitPos := i * uint64(s.width)
	wordIdx := bitPos / 64
	bitOff := uint8(bitPos % 64)

	lo := s.words[wordIdx]
	var hi uint64
	if bitOff+s.width > 64 {
		hi = s.words[wordIdx+1]
	}
	return extract(lo, hi, bitOff, s.width), nil
}

// Builder constructs a RAM sequence entry by entry.
type Builder struct {
	words   []uint64
	entries uint64
	width   uint8
}

// NewBuilder allocates a builder for `entries` values of `width` bits.
func NewBuilder(entries uint64, width uint8) *Builder {
	if width == 0 {
		width = 1
	}
	return &Builder{
		words:   make([]uint64, wordsNeeded(entries, width)),
		entries: entries,
		width:   width,
	}
}

// Set stores value v (masked to width bits) at entry index i.
func (b *Builder) Set(i uint64, v uint64) {
	v &= maskFor(b.width)
	bitPos := i * uint64(b.width)
	wordIdx := bitPos / 64
	bitOff := uint8(bitPos % 64)

	b.words[wordIdx] &^= maskFor(b.width) << bitOff
	b.words[wordIdx] |= v << bitOff

	if bitOff+b.width > 64 {
		spilled := 64 - bitOff
		b.words[wordIdx+1] &^= maskFor(b.width - spilled)
		b.words[wordIdx+1] |= v >> spilled
	}
}

// Freeze returns the built RAM sequence.
func (b *Builder) Freeze() *RAM {
	return &RAM{words: b.words, entries: b.entries, width: b.width}
}
