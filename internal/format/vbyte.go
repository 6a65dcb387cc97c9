// Package format implements the HDT wire-format primitives shared by every
// section of the file: vbyte integers, the "$HDT" control-info block, and
// the three checksum flavors used across the format (CRC8-SMBUS for
// metadata, CRC16-ARC for control-info payloads, CRC32C for packed data).
package format

import (
	"encoding/binary"
	"io"
)

// WriteVByte writes n as a little-endian base-128 varint: the continuation
// bit is the high bit of each byte. This is bit-for-bit the same encoding
// as encoding/binary's Uvarint, so we reuse it rather than hand-rolling a
// second implementation of the same seven-bits-per-byte scheme.
func WriteVByte(w io.Writer, n uint64) (int, error) {
	var buf [binary.MaxVarintLen64]byte
	sz := binary.PutUvarint(buf[:], n)
	return w.Write(buf[:sz])
}

// AppendVByte appends the vbyte encoding of n to buf and returns the result.
func AppendVByte(buf []byte, n uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	sz := binary.PutUvarint(tmp[:], n)
	return append(buf, tmp[:sz]...)
}

// ReadVByte reads a vbyte-encoded integer from r.
func ReadVByte(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

// SizeVByte returns the number of bytes WriteVByte would emit for n.
func SizeVByte(n uint64) int {
	var buf [binary.MaxVarintLen64]byte
	return binary.PutUvarint(buf[:], n)
}
