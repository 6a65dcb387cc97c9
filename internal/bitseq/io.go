package bitseq

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hdtquery/hdt/internal/format"
)

// WriteTo serializes the sequence using the disk encoding from spec §4.1:
//
//	type(1) || width(1) || vbyte(entries) || CRC8 || packed_data || CRC32C
func (s *RAM) WriteTo(w io.Writer) (int64, error) {
	var total int64

	meta := []byte{SequenceType, s.width}
	meta = format.AppendVByte(meta, s.entries)
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

	packed := make([]byte, len(s.words)*8)
	for i, word := range s.words {
		binary.LittleEndian.PutUint64(packed[i*8:], word)
	}
	n, err = w.Write(packed)
	total += int64(n)
	if err != nil {
		return total, err
	}

	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], format.CRC32C(packed))
	n, err = w.Write(crcBuf[:])
	total += int64(n)
	return total, err
}

// ReadFrom reads a sequence previously written by WriteTo. It reconstructs
// a RAM sequence; hybrid mode wraps a file offset directly instead of
// calling this (see FileBacked).
func ReadFrom(r io.Reader) (*RAM, error) {
	br := bufio.NewReader(r)

	typ, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading sequence type: %v", format.ErrIO, err)
	}
	if typ != SequenceType {
		return nil, fmt.Errorf("%w: unknown sequence type %d", format.ErrFormat, typ)
	}
	width, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading sequence width: %v", format.ErrIO, err)
	}
	entries, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading sequence entry count: %v", format.ErrIO, err)
	}

	meta := []byte{typ, width}
	meta = format.AppendVByte(meta, entries)
	wantMetaCRC, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading sequence metadata CRC8: %v", format.ErrIO, err)
	}
	if got := format.CRC8(meta); got != wantMetaCRC {
		return nil, fmt.Errorf("%w: sequence metadata CRC8 mismatch: want %#x got %#x", format.ErrChecksum, wantMetaCRC, got)
	}

	nWords := wordsNeeded(entries, width)
	packed := make([]byte, nWords*8)
	if _, err := io.ReadFull(br, packed); err != nil {
		return nil, fmt.Errorf("%w: reading packed sequence data: %v", format.ErrIO, err)
	}

	var crcBuf [4]byte
	if _, err := io.ReadFull(br, crcBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading sequence CRC32C: %v", format.ErrIO, err)
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf[:])
	if got := format.CRC32C(packed); got != wantCRC {
		return nil, fmt.Errorf("%w: sequence data CRC32C mismatch: want %#x got %#x", format.ErrChecksum, wantCRC, got)
	}

	words := make([]uint64, nWords)
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(packed[i*8:])
	}
	return &RAM{words: words, entries: entries, width: width}, nil
}
