package bitseq

import (
	"fmt"

	"github.com/hdtquery/hdt/internal/diskio"
	"github.com/hdtquery/hdt/internal/format"
)

// FileBacked is a bit-packed sequence whose words live on disk, read
// through a shared diskio.Handle (mmap-backed when possible) rather than
// held resident in RAM. It is the backend used for the Z sequence in
// hybrid mode (spec §4.8).
type FileBacked struct {
	handle  *diskio.Handle
	offset  int64 // byte offset of the first packed-data byte
	entries uint64
	width   uint8
}

var _ Sequence = (*FileBacked)(nil)

// NewFileBacked binds a sequence of `entries` values of `width` bits to the
// packed data starting at byte `offset` within handle. The handle is
// retained; the caller remains responsible for its own reference.
func NewFileBacked(handle *diskio.Handle, offset int64, entries uint64, width uint8) *FileBacked {
	return &FileBacked{handle: handle.Retain(), offset: offset, entries: entries, width: width}
}

func (s *FileBacked) Len() uint64  { return s.entries }
func (s *FileBacked) Width() uint8 { return s.width }
func (s *FileBacked) SizeInBytes() int64 {
	return int64(wordsNeeded(s.entries, s.width) * 8)
}
func (s *FileBacked) Close() error { return s.handle.Release() }

// Get reads the i-th entry, spanning at most two on-disk words.
func (s *FileBacked) Get(i uint64) (uint64, error) {
	if i >= s.entries {
		return 0, fmt.Errorf("%w: bitseq.Get(%d) with %d entries", format.ErrOutOfRange, i, s.entries)
	}
	if s.width == 0 {
		return 0, nil
	}
	bitPos := i * uint64(s.width)
	wordIdx := bitPos / 64
	bitOff := uint8(bitPos % 64)

	// Read 16 bytes (two words) only when the entry spans a word
	// boundary; 8 bytes hold it otherwise.
	spans := bitOff+s.width > 64
	n := 8
	if spans {
		n = 16
	}
	buf := make([]byte, n)
	if err := s.handle.ReadAt(buf, s.offset+int64(wordIdx)*8); err != nil {
		return 0, err
	}

	lo := leUint64(buf[0:8])
	var hi uint64
	if spans {
		hi = leUint64(buf[8:16])
	}
	return extract(lo, hi, bitOff, s.width), nil
}

func leUint64(b []byte) uint64 {
	return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
}
