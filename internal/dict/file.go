package dict

import (
	"fmt"

	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/diskio"
	"github.com/hdtquery/hdt/internal/format"
)

// initialChunkBytes is the first-guess read size for a single block access
// (spec §4.6: "reading a fixed-size chunk per block access"). A block
// holds at most DefaultBlockSize short strings in the common case, so 256
// bytes covers most blocks in one read; readBlock doubles and retries when
// a block's strings run longer than the current chunk.
const initialChunkBytes = 256

// FileBacked is a PFC section whose packed bytes are read from disk on
// demand; the (small) block-offsets sequence stays resident (spec §4.6
// "File-streamed" backend).
type FileBacked struct {
	handle       *diskio.Handle
	dataOffset   int64
	packedLen    uint64
	blockOffsets bitseq.Sequence
	numStrings   uint64
	blockSize    uint64
}

var _ Section = (*FileBacked)(nil)

// NewFileBacked binds a PFC section to packed bytes of length packedLen
// starting at dataOffset within handle, using the given resident
// block-offsets sequence. The handle is retained.
func NewFileBacked(handle *diskio.Handle, dataOffset int64, packedLen uint64, blockOffsets bitseq.Sequence, numStrings, blockSize uint64) *FileBacked {
	return &FileBacked{
		handle:       handle.Retain(),
		dataOffset:   dataOffset,
		packedLen:    packedLen,
		blockOffsets: blockOffsets,
		numStrings:   numStrings,
		blockSize:    blockSize,
	}
}

func (s *FileBacked) NumStrings() uint64 { return s.numStrings }
func (s *FileBacked) Close() error {
	var err error
	if e := s.blockOffsets.Close(); e != nil {
		err = e
	}
	if e := s.handle.Release(); e != nil && err == nil {
		err = e
	}
	return err
}

func (s *FileBacked) SizeInBytes() int64 {
	return s.blockOffsets.SizeInBytes()
}

func (s *FileBacked) numBlocks() uint64 {
	if s.numStrings == 0 {
		return 0
	}
	return (s.numStrings + s.blockSize - 1) / s.blockSize
}

// readBlock reads and decodes block blockIdx, doubling the read window
// until the whole block fits or the section's packed data is exhausted.
func (s *FileBacked) readBlock(blockIdx uint64) ([]string, error) {
	start, err := s.blockOffsets.Get(blockIdx)
	if err != nil {
		return nil, err
	}
	want := int(s.blockSize)
	if blockIdx == s.numBlocks()-1 {
		if rem := int(s.numStrings % s.blockSize); rem != 0 {
			want = rem
		}
	}

	chunk := initialChunkBytes
	for {
		remaining := s.packedLen - start
		n := uint64(chunk)
		if n > remaining {
			n = remaining
		}
		buf := make([]byte, n)
		if err := s.handle.ReadAt(buf, s.dataOffset+int64(start)); err != nil {
			return nil, err
		}
		strs, err := decodeBlock(buf, want)
		if err == nil && len(strs) == want {
			return strs, nil
		}
		if n == remaining {
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: dict.FileBacked: block %d truncated: got %d of %d strings", format.ErrFormat, blockIdx, len(strs), want)
		}
		chunk *= 2
	}
}

func (s *FileBacked) IDToString(id uint64) (string, error) {
	if id == 0 || id > s.numStrings {
		return "", fmt.Errorf("%w: dict.IDToString(%d) with %d strings", format.ErrOutOfRange, id, s.numStrings)
	}
	blockIdx := (id - 1) / s.blockSize
	offset := (id - 1) % s.blockSize

	strs, err := s.readBlock(blockIdx)
	if err != nil {
		return "", err
	}
	if int(offset) >= len(strs) {
		return "", fmt.Errorf("%w: dict.IDToString(%d): block %d holds only %d strings", format.ErrOutOfRange, id, blockIdx, len(strs))
	}
	return strs[offset], nil
}

func (s *FileBacked) StringToID(target string) (uint64, error) {
	numBlocks := s.numBlocks()
	if numBlocks == 0 {
		return 0, nil
	}
	blockIdx, err := binarySearchBlocks(int(numBlocks), target, func(i int) (string, error) {
		strs, err := s.readBlock(uint64(i))
		if err != nil {
			return "", err
		}
		return strs[0], nil
	})
	if err != nil {
		return 0, err
	}
	if blockIdx < 0 {
		return 0, nil
	}

	strs, err := s.readBlock(uint64(blockIdx))
	if err != nil {
		return 0, err
	}
	offset := searchBlockDecoded(strs, target)
	if offset < 0 {
		return 0, nil
	}
	return uint64(blockIdx)*s.blockSize + uint64(offset) + 1, nil
}
