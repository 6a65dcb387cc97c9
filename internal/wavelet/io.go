package wavelet

import (
	"bufio"
	"fmt"
	"io"

	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/format"
)

// WriteTo serializes the wavelet matrix: vbyte(levels), vbyte(length),
// then for each level a bitmap.RAM section followed by vbyte(zeros).
// This framing is internal to the hybrid-cache sidecar (spec §4.8); the
// matrix itself is never file-streamed (spec §4.3), so there is no
// separate "main HDT file" encoding for it to match.
func (w *Wavelet) WriteTo(out io.Writer) (int64, error) {
	var total int64
	n, err := format.WriteVByte(out, uint64(len(w.levels)))
	total += int64(n)
	if err != nil {
		return total, err
	}
	n, err = format.WriteVByte(out, w.length)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for level, bm := range w.levels {
		nb, err := bm.WriteTo(out)
		total += nb
		if err != nil {
			return total, err
		}
		n, err = format.WriteVByte(out, w.zeros[level])
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// byteReader adapts an io.Reader to io.ByteReader for vbyte decoding.
type byteReader struct{ io.Reader }

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.Reader, buf[:])
	return buf[0], err
}

// ReadFrom reads a wavelet matrix previously written by WriteTo.
func ReadFrom(r io.Reader) (*Wavelet, error) {
	br := bufio.NewReader(r)
	levels, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading wavelet level count: %v", format.ErrIO, err)
	}
	length, err := format.ReadVByte(br)
	if err != nil {
		return nil, fmt.Errorf("%w: reading wavelet length: %v", format.ErrIO, err)
	}

	w := &Wavelet{length: length, levels: make([]*bitmap.RAM, levels), zeros: make([]uint64, levels)}
	for level := uint64(0); level < levels; level++ {
		bm, err := bitmap.ReadFrom(br)
		if err != nil {
			return nil, fmt.Errorf("%w: reading wavelet level %d: %v", format.ErrIO, level, err)
		}
		w.levels[level] = bm
		z, err := format.ReadVByte(br)
		if err != nil {
			return nil, fmt.Errorf("%w: reading wavelet level %d zero count: %v", format.ErrIO, level, err)
		}
		w.zeros[level] = z
	}
	return w, nil
}
