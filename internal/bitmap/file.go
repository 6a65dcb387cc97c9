package bitmap

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/hdtquery/hdt/internal/diskio"
	"github.com/hdtquery/hdt/internal/format"
)

// FileBacked is a rank/select bitmap whose words live on disk. It keeps
// no rank/select index of its own: rank1 and
// select1 are evaluated by an O(m/64) scan over on-disk words, which is
// the accepted cost for a bitmap too large to justify residency
// (spec §4.2) — in practice bitmaps stay in RAM (they're small), and this
// backend exists only for the deployments that don't fit that assumption.
type FileBacked struct {
	handle  *diskio.Handle
	offset  int64
	m       uint64
	nWords  uint64
	ones    uint64 // computed once at bind time by scanning words
}

var _ Bitmap = (*FileBacked)(nil)

// NewFileBacked binds a bitmap of m bits to the words starting at byte
// offset within handle. It scans the words once to cache CountOnes.
func NewFileBacked(handle *diskio.Handle, offset int64, m uint64) (*FileBacked, error) {
	nWords := (m + 63) / 64
	fb := &FileBacked{handle: handle.Retain(), offset: offset, m: m, nWords: nWords}

	var ones uint64
	buf := make([]byte, nWords*8)
	if err := handle.ReadAt(buf, offset); err != nil {
		handle.Release()
		return nil, err
	}
	for i := uint64(0); i < nWords; i++ {
		ones += uint64(bits.OnesCount64(binary.LittleEndian.Uint64(buf[i*8:])))
	}
	fb.ones = ones
	return fb, nil
}

func (b *FileBacked) Len() uint64        { return b.m }
func (b *FileBacked) CountOnes() uint64  { return b.ones }
func (b *FileBacked) SizeInBytes() int64 { return int64(b.nWords) * 8 }
func (b *FileBacked) Close() error       { return b.handle.Release() }

func (b *FileBacked) word(idx uint64) (uint64, error) {
	buf := make([]byte, 8)
	if err := b.handle.ReadAt(buf, b.offset+int64(idx)*8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (b *FileBacked) Access(i uint64) (bool, error) {
	if i >= b.m {
		return false, fmt.Errorf("%w: bitmap.Access(%d) with %d bits", format.ErrOutOfRange, i, b.m)
	}
	w, err := b.word(i / 64)
	if err != nil {
		return false, err
	}
	return w&(1<<(i%64)) != 0, nil
}

func (b *FileBacked) Rank1(i uint64) (uint64, error) {
	if i > b.m {
		return 0, fmt.Errorf("%w: bitmap.Rank1(%d) with %d bits", format.ErrOutOfRange, i, b.m)
	}
	var rank uint64
	fullWords := i / 64
	for idx := uint64(0); idx < fullWords; idx++ {
		w, err := b.word(idx)
		if err != nil {
			return 0, err
		}
		rank += uint64(bits.OnesCount64(w))
	}
	if rem := i % 64; rem > 0 {
		w, err := b.word(fullWords)
		if err != nil {
			return 0, err
		}
		mask := (uint64(1) << rem) - 1
		rank += uint64(bits.OnesCount64(w & mask))
	}
	return rank, nil
}

func (b *FileBacked) Select1(k uint64) (uint64, bool, error) {
	if k >= b.ones {
		return 0, false, nil
	}
	var seen uint64
	for idx := uint64(0); idx < b.nWords; idx++ {
		w, err := b.word(idx)
		if err != nil {
			return 0, false, err
		}
		c := uint64(bits.OnesCount64(w))
		if seen+c > k {
			remaining := k - seen
			for bit := 0; bit < 64; bit++ {
				if w&(1<<uint(bit)) != 0 {
					if remaining == 0 {
						return idx*64 + uint64(bit), true, nil
					}
					remaining--
				}
			}
		}
		seen += c
	}
	return 0, false, nil
}
