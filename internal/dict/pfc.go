// Package dict implements the dictionary subsystem of spec §4.6/4.7: a
// plain-front-coded (PFC) sorted string section with bidirectional
// id<->string lookup, composed into the four-section (shared/subjects/
// predicates/objects) dictionary that assigns the disjoint id ranges
// subject-ids, predicate-ids, and object-ids translate through.
package dict

import (
	"bytes"
	"fmt"

	"github.com/hdtquery/hdt/internal/format"
)

// SectionType is the type byte identifying a plain-front-coded dictionary
// section on disk (spec §4.6).
const SectionType byte = 2

// DefaultBlockSize is the number of strings per front-coding block (B).
// Spec §4.6 calls B "typically 8 or 16"; 16 matches HDT's own reference
// defaults and keeps the common-prefix replay short on id_to_string.
const DefaultBlockSize = 16

// Section is a sorted set of byte strings addressable by a 1-based id.
// id 0 is reserved for "not found" (spec §3).
type Section interface {
	// NumStrings returns the number of strings in the section.
	NumStrings() uint64

	// SizeInBytes returns the resident footprint.
	SizeInBytes() int64

	// IDToString returns the string for id (1-indexed). Returns
	// format.ErrOutOfRange if id is 0 or exceeds NumStrings().
	IDToString(id uint64) (string, error)

	// StringToID returns the id for s, or 0 if s is not present.
	StringToID(s string) (uint64, error)

	// Close releases any resources (file handles) held by the section.
	Close() error
}

// decodeBlock replays a front-coded block starting at data[0], returning
// up to `want` strings (the last block of a section may hold fewer than
// B strings). Each string after the first is reconstructed from the
// previous one by truncating to its common-prefix length and appending
// its suffix bytes (spec §4.6 layout).
func decodeBlock(data []byte, want int) ([]string, error) {
	strs := make([]string, 0, want)
	pos := 0

	first, n, err := readCString(data, pos)
	if err != nil {
		return nil, err
	}
	strs = append(strs, string(first))
	pos += n

	prev := first
	for len(strs) < want {
		if pos >= len(data) {
			break
		}
		br := &sliceByteReader{data: data, pos: pos}
		shared, err := format.ReadVByte(br)
		if err != nil {
			return nil, fmt.Errorf("%w: pfc block: reading common-prefix length: %v", format.ErrFormat, err)
		}
		pos = br.pos
		suffix, n, err := readCString(data, pos)
		if err != nil {
			return nil, err
		}
		pos += n

		if shared > uint64(len(prev)) {
			return nil, fmt.Errorf("%w: pfc block: common-prefix length %d exceeds previous string length %d", format.ErrFormat, shared, len(prev))
		}
		cur := make([]byte, 0, int(shared)+len(suffix))
		cur = append(cur, prev[:shared]...)
		cur = append(cur, suffix...)
		strs = append(strs, string(cur))
		prev = cur
	}
	return strs, nil
}

// readCString reads a NUL-terminated byte string starting at data[pos],
// returning the string bytes (excluding the terminator) and the number
// of bytes consumed (including the terminator).
func readCString(data []byte, pos int) ([]byte, int, error) {
	end := bytes.IndexByte(data[pos:], 0x00)
	if end < 0 {
		return nil, 0, fmt.Errorf("%w: pfc block: unterminated string", format.ErrFormat)
	}
	return data[pos : pos+end], end + 1, nil
}

// sliceByteReader adapts a byte slice + cursor to io.ByteReader for
// decoding a single vbyte out of an in-memory block, advancing pos as
// bytes are consumed so the caller can recover how far it read.
type sliceByteReader struct {
	data []byte
	pos  int
}

func (r *sliceByteReader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("%w: pfc block: vbyte read past end", format.ErrFormat)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// commonPrefixLen returns the length of the longest common prefix of a
// and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// searchBlockDecoded walks a decoded block's strings and looks for target,
// using the monotone-cshared shortcut of spec §4.6: since delta between
// a candidate and the running front-coded prefix only decreases once
// the key has diverged before the prefix point, a delta smaller than
// the best common-prefix seen so far proves the key is absent.
func searchBlockDecoded(strs []string, target string) int {
	best := -1
	cshared := 0
	for i, s := range strs {
		delta := commonPrefixLen([]byte(s), []byte(target))
		if i > 0 && delta < cshared {
			break
		}
		if s == target {
			best = i
			break
		}
		if delta > cshared || i == 0 {
			cshared = delta
		}
	}
	return best
}

// blockOffsetWidth returns the bit width needed to hold an offset up to
// packedLen.
func blockOffsetWidth(packedLen uint64) uint8 {
	w := uint8(1)
	for (uint64(1) << w) <= packedLen {
		w++
	}
	return w
}

// binarySearchBlocks returns the index of the last block whose first
// string is <= target, or -1 if target precedes every block's first
// string. firstOf(i) must return the first string of block i.
func binarySearchBlocks(numBlocks int, target string, firstOf func(int) (string, error)) (int, error) {
	lo, hi := 0, numBlocks-1
	best := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		first, err := firstOf(mid)
		if err != nil {
			return 0, err
		}
		if first <= target {
			best = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return best, nil
}
