package bitmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"

	"github.com/RoaringBitmap/roaring"

	"github.com/hdtquery/hdt/internal/format"
)

// WriteTo serializes the bitmap using the disk encoding from spec §4.2:
//
//	type=1 || vbyte(m) || CRC8 || ceil(m/64) 64-bit words || CRC32C
func (b *RAM) WriteTo(w io.Writer) (int64, error) {
	var total int64

	meta := []byte{BitmapType}
	meta = format.AppendVByte(meta, b.m)
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

	nWords := (b.m + 63) / 64
	packed := make([]byte, nWords*8)
	it := b.bits.Iterator()
	for it.HasNext() {
		pos := it.Next()
		wordIdx := pos / 64
		bitOff := pos % 64
		packed[wordIdx*8+bitOff/8] |= 1 << (bitOff % 8)
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

// ReadFrom reads a bitmap previously written by WriteTo into a RAM bitmap.
func ReadFrom(r io.Reader) (*RAM, error) {
	br := bufio.NewReader(r)

	typ, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading bitmap type: %v", format.ErrIO, err)
	}
	if typ != BitmapType {
		return nil, fmt.Errorf("%w: unknown bitmap type %d", format.ErrFormat, typ)
	}
	m, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading bitmap length: %v", format.ErrIO, err)
	}

	meta := []byte{typ}
	meta = format.AppendVByte(meta, m)
	wantMetaCRC, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading bitmap metadata CRC8: %v", format.ErrIO, err)
	}
	if got := format.CRC8(meta); got != wantMetaCRC {
		return nil, fmt.Errorf("%w: bitmap metadata CRC8 mismatch: want %#x got %#x", format.ErrChecksum, wantMetaCRC, got)
	}

	nWords := (m + 63) / 64
	packed := make([]byte, nWords*8)
	if _, err := io.ReadFull(br, packed); err != nil {
		return nil, fmt.Errorf("%w: reading bitmap words: %v", format.ErrIO, err)
	}

	var crcBuf [4]byte
	if _, err := io.ReadFull(br, crcBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: reading bitmap CRC32C: %v", format.ErrIO, err)
	}
	wantCRC := binary.LittleEndian.Uint32(crcBuf[:])
	if got := format.CRC32C(packed); got != wantCRC {
		return nil, fmt.Errorf("%w: bitmap data CRC32C mismatch: want %#x got %#x", format.ErrChecksum, wantCRC, got)
	}

	rb := roaring.NewBitmap()
	for wordIdx := uint64(0); wordIdx < nWords; wordIdx++ {
		word := binary.LittleEndian.Uint64(packed[wordIdx*8:])
		for word != 0 {
			bitOff := bits.TrailingZeros64(word)
			rb.Add(uint32(wordIdx*64 + uint64(bitOff)))
			word &= word - 1
		}
	}
	rb.RunOptimize()
	return NewRAM(rb, m), nil
}
