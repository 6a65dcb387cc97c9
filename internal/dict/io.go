package dict

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/format"
)

// WriteTo serializes the section using the disk encoding from spec §4.6:
//
//	type=2 || vbyte(num_strings) || vbyte(packed_length) || vbyte(B) || CRC8 || block_offsets_sequence || packed_bytes || CRC32C
func (s *RAM) WriteTo(w io.Writer) (int64, error) {
	var total int64

	meta := []byte{SectionType}
	meta = format.AppendVByte(meta, s.numStrings)
	meta = format.AppendVByte(meta, uint64(len(s.packed)))
	meta = format.AppendVByte(meta, s.blockSize)
	metaCRC := format.CRC8(meta)

	n, err := w.Write(meta)
	total += int64(n)
	if err != nil {
		return total, err
	}
	n, err = w.Write([]byte{metaCRC})
	total += int64(n)
	if err != nil {
		return total, err
	}

	nb, err := s.blockOffsets.(*bitseq.RAM).WriteTo(w)
	total += nb
	if err != nil {
		return total, err
	}

	n, err = w.Write(s.packed)
	total += int64(n)
	if err != nil {
		return total, err
	}

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], format.CRC32C(s.packed))
	n, err = w.Write(crcBuf[:])
	total += int64(n)
	return total, err
}

// ReadFrom reads a PFC section previously written by WriteTo.
func ReadFrom(r io.Reader) (*RAM, error) {
	br := bufio.NewReader(r)

	typ, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading dictionary section type: %v", format.ErrIO, err)
	}
	if typ != SectionType {
		return nil, fmt.Errorf("%w: unknown dictionary section type %d", format.ErrFormat, typ)
	}
	numStrings, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dictionary num_strings: %v", format.ErrIO, err)
	}
	packedLen, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dictionary packed_length: %v", format.ErrIO, err)
	}
	blockSize, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dictionary block size: %v", format.ErrIO, err)
	}

	meta := []byte{typ}
	meta = format.AppendVByte(meta, numStrings)
	meta = format.AppendVByte(meta, packedLen)
	meta = format.AppendVByte(meta, blockSize)
	wantMetaCRC, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading dictionary metadata CRC8: %v", format.ErrIO, err)
	}
	if got := format.CRC8(meta); got != wantMetaCRC {
		return nil, fmt.Errorf("%w: dictionary metadata CRC8 mismatch: want %#x got %#x", format.ErrChecksum, wantMetaCRC, got)
	}

	blockOffsets, err := bitseq.ReadFrom(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading dictionary block offsets: %v", format.ErrIO, err)
	}

	packed := make([]byte, packedLen)
	if _, err := io.ReadFull(br, packed); err != nil {
		return nil, fmt.Errorf("%w: reading dictionary packed bytes: %v", format.ErrIO, err)
	}

	var crcBuf [4]byte
	if _, err := io.ReadFull(br, crcBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading dictionary packed-bytes CRC32C: %v", format.ErrIO, err)
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf[:])
	if got := format.CRC32C(packed); got != wantCRC {
		return nil, fmt.Errorf("%w: dictionary packed-bytes CRC32C mismatch: want %#x got %#x", format.ErrChecksum, wantCRC, got)
	}

	return NewRAM(packed, blockOffsets, numStrings, blockSize), nil
}
