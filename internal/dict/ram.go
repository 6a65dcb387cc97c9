package dict

import (
	"fmt"

	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/format"
)

// RAM is an in-memory PFC section: the full packed byte array resident,
// plus a resident block-offsets sequence (spec §4.6 "In-RAM" backend).
type RAM struct {
	packed       []byte
	blockOffsets bitseq.Sequence
	numStrings   uint64
	blockSize    uint64
}

var _ Section = (*RAM)(nil)

// NewRAM wraps a pre-built packed byte array and block-offsets sequence.
func NewRAM(packed []byte, blockOffsets bitseq.Sequence, numStrings, blockSize uint64) *RAM {
	return &RAM{packed: packed, blockOffsets: blockOffsets, numStrings: numStrings, blockSize: blockSize}
}

func (s *RAM) NumStrings() uint64 { return s.numStrings }
func (s *RAM) Close() error       { return nil }

func (s *RAM) SizeInBytes() int64 {
	return int64(len(s.packed)) + s.blockOffsets.SizeInBytes()
}

func (s *RAM) numBlocks() uint64 {
	if s.numStrings == 0 {
		return 0
	}
	return (s.numStrings + s.blockSize - 1) / s.blockSize
}

func (s *RAM) blockStart(block uint64) (uint64, error) {
	return s.blockOffsets.Get(block)
}

// blockStrings decodes the full contents of block blockIdx.
func (s *RAM) blockStrings(blockIdx uint64) ([]string, error) {
	start, err := s.blockStart(blockIdx)
	if err != nil {
		return nil, err
	}
	want := int(s.blockSize)
	if blockIdx == s.numBlocks()-1 {
		if rem := int(s.numStrings % s.blockSize); rem != 0 {
			want = rem
		}
	}
	return decodeBlock(s.packed[start:], want)
}

func (s *RAM) IDToString(id uint64) (string, error) {
	if id == 0 || id > s.numStrings {
		return "", fmt.Errorf("%w: dict.IDToString(%d) with %d strings", format.ErrOutOfRange, id, s.numStrings)
	}
	blockIdx := (id - 1) / s.blockSize
	offset := (id - 1) % s.blockSize

	strs, err := s.blockStrings(blockIdx)
	if err != nil {
		return "", err
	}
	if int(offset) >= len(strs) {
		return "", fmt.Errorf("%w: dict.IDToString(%d): block %d holds only %d strings", format.ErrOutOfRange, id, blockIdx, len(strs))
	}
	return strs[offset], nil
}

func (s *RAM) StringToID(target string) (uint64, error) {
	numBlocks := s.numBlocks()
	if numBlocks == 0 {
		return 0, nil
	}
	blockIdx, err := binarySearchBlocks(int(numBlocks), target, func(i int) (string, error) {
		start, err := s.blockStart(uint64(i))
		if err != nil {
			return "", err
		}
		first, _, err := readCString(s.packed, int(start))
		if err != nil {
			return "", err
		}
		return string(first), nil
	})
	if err != nil {
		return 0, err
	}
	if blockIdx < 0 {
		return 0, nil
	}

	strs, err := s.blockStrings(uint64(blockIdx))
	if err != nil {
		return 0, err
	}
	offset := searchBlockDecoded(strs, target)
	if offset < 0 {
		return 0, nil
	}
	return uint64(blockIdx)*s.blockSize + uint64(offset) + 1, nil
}

// Builder accumulates a sorted sequence of strings and produces a frozen
// RAM PFC section.
type Builder struct {
	blockSize uint64
	strings   []string
}

// NewBuilder allocates a builder with the given block size B.
func NewBuilder(blockSize uint64) *Builder {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	return &Builder{blockSize: blockSize}
}

// Add appends the next string. Callers must add strings in sorted order;
// Freeze does not re-sort.
func (b *Builder) Add(s string) {
	b.strings = append(b.strings, s)
}

// Freeze encodes the accumulated strings into blocks and returns the
// built RAM section.
func (b *Builder) Freeze() *RAM {
	n := uint64(len(b.strings))
	if n == 0 {
		return NewRAM(nil, bitseq.NewBuilder(0, 1).Freeze(), 0, b.blockSize)
	}
	numBlocks := (n + b.blockSize - 1) / b.blockSize

	var packed []byte
	offsets := make([]uint64, numBlocks)
	for blk := uint64(0); blk < numBlocks; blk++ {
		offsets[blk] = uint64(len(packed))
		start := blk * b.blockSize
		end := start + b.blockSize
		if end > n {
			end = n
		}
		first := b.strings[start]
		packed = append(packed, []byte(first)...)
		packed = append(packed, 0x00)
		prev := []byte(first)
		for i := start + 1; i < end; i++ {
			cur := []byte(b.strings[i])
			shared := commonPrefixLen(prev, cur)
			packed = format.AppendVByte(packed, uint64(shared))
			packed = append(packed, cur[shared:]...)
			packed = append(packed, 0x00)
			prev = cur
		}
	}

	width := blockOffsetWidth(uint64(len(packed)))
	sb := bitseq.NewBuilder(numBlocks, width)
	for i, off := range offsets {
		sb.Set(uint64(i), off)
	}
	return NewRAM(packed, sb.Freeze(), n, b.blockSize)
}
