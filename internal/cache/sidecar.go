// Package cache implements the hybrid sidecar of spec §4.8: a file next
// to the main HDT dataset carrying the derived op-index, the wavelet
// matrix W_Y, and the byte offsets a second open needs to bind
// file-streamed sequences/bitmaps directly to the main file without
// re-parsing it.
package cache

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hdtquery/hdt/internal/adjacency"
	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/format"
	"github.com/hdtquery/hdt/internal/triples"
	"github.com/hdtquery/hdt/internal/wavelet"
)

// Version is bumped whenever the sidecar's on-disk layout changes
// incompatibly; it is stamped into the suffix of the sidecar's path. The
// control info records the separate format.CacheFormatVersion string,
// which ReadFrom checks so a stale layout is never mistaken for a fresh
// one.
const Version = 1

// Offsets are byte positions into the main HDT file that let a
// file-streamed sequence/bitmap bind directly to its bytes on a second
// open (spec §4.8).
type Offsets struct {
	BitmapY        int64
	BitmapZ        int64
	SequenceZ      int64
	Dictionary     int64
	DictShared     int64
	DictSubjects   int64
	DictPredicates int64
	DictObjects    int64
	TriplesSection int64
}

// Sidecar is the parsed contents of a hybrid-cache file.
type Sidecar struct {
	Order      triples.Order
	NumTriples uint64
	HeaderSize uint64
	OP         *adjacency.List
	WY         *wavelet.Wavelet
	Offsets    Offsets
}

// Path returns the sidecar path for the given HDT dataset path (spec §4.8:
// "<hdt-path>.index.v<version>-cache").
func Path(hdtPath string) string {
	return fmt.Sprintf("%s.index.v%d-cache", hdtPath, Version)
}

// WriteTo serializes the sidecar as a type=index control-info block
// followed by OP's bitmap and sequence, the wavelet matrix, and the nine
// little-endian uint64 offsets (spec §4.8).
func (s *Sidecar) WriteTo(w io.Writer) (int64, error) {
	var total int64

	ci := format.NewControlInfo(format.TypeIndex)
	ci.Set(format.PropFormat, format.CacheFormatVersion)
	ci.Set(format.PropOrder, strconv.Itoa(int(s.Order)))
	ci.Set(format.PropNumTriples, strconv.FormatUint(s.NumTriples, 10))
	ci.Set(format.PropHeaderSize, strconv.FormatUint(s.HeaderSize, 10))
	n, err := ci.WriteTo(w)
	total += n
	if err != nil {
		return total, err
	}

	opB, ok := s.OP.B.(*bitmap.RAM)
	if !ok {
		return total, fmt.Errorf("%w: op-index bitmap must be resident to serialize", format.ErrFormat)
	}
	nb, err := opB.WriteTo(w)
	total += nb
	if err != nil {
		return total, err
	}

	opA, ok := s.OP.A.(interface {
		WriteTo(io.Writer) (int64, error)
	})
	if !ok {
		return total, fmt.Errorf("%w: op-index sequence must be resident to serialize", format.ErrFormat)
	}
	nb, err = opA.WriteTo(w)
	total += nb
	if err != nil {
		return total, err
	}

	nb, err = s.WY.WriteTo(w)
	total += nb
	if err != nil {
		return total, err
	}

	offs := []int64{
		s.Offsets.BitmapY, s.Offsets.BitmapZ, s.Offsets.SequenceZ,
		s.Offsets.Dictionary, s.Offsets.DictShared, s.Offsets.DictSubjects,
		s.Offsets.DictPredicates, s.Offsets.DictObjects, s.Offsets.TriplesSection,
	}
	var buf [8]byte
	for _, off := range offs {
		binary.LittleEndian.PutUint64(buf[:], uint64(off))
		nw, err := w.Write(buf[:])
		total += int64(nw)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadFrom parses a sidecar previously written by WriteTo.
func ReadFrom(r io.Reader) (*Sidecar, error) {
	br := bufio.NewReader(r)
	ci, err := format.ReadControlInfo(br)
	if err != nil {
		return nil, fmt.Errorf("cache: reading control info: %w", err)
	}
	if ci.Type != format.TypeIndex {
		return nil, fmt.Errorf("%w: sidecar control info has type %d, want index", format.ErrFormat, ci.Type)
	}
	fv, _ := ci.Get(format.PropFormat)
	if fv != format.CacheFormatVersion {
		return nil, fmt.Errorf("%w: sidecar format %q, want %q", format.ErrCacheStale, fv, format.CacheFormatVersion)
	}

	orderStr, _ := ci.Get(format.PropOrder)
	orderInt, err := strconv.Atoi(orderStr)
	if err != nil {
		return nil, fmt.Errorf("%w: sidecar order property %q: %v", format.ErrFormat, orderStr, err)
	}
	numTriplesStr, _ := ci.Get(format.PropNumTriples)
	numTriples, err := strconv.ParseUint(numTriplesStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: sidecar numTriples property %q: %v", format.ErrFormat, numTriplesStr, err)
	}
	headerSizeStr, _ := ci.Get(format.PropHeaderSize)
	headerSize, err := strconv.ParseUint(headerSizeStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: sidecar headerSize property %q: %v", format.ErrFormat, headerSizeStr, err)
	}

	opB, err := bitmap.ReadFrom(br)
	if err != nil {
		return nil, fmt.Errorf("cache: reading op-index bitmap: %w", err)
	}
	opA, err := bitseq.ReadFrom(br)
	if err != nil {
		return nil, fmt.Errorf("cache: reading op-index sequence: %w", err)
	}
	wy, err := wavelet.ReadFrom(br)
	if err != nil {
		return nil, fmt.Errorf("cache: reading wavelet matrix: %w", err)
	}

	var rawOffs [9]int64
	for i := range rawOffs {
		var buf [8]byte
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: reading sidecar offset %d: %v", format.ErrIO, i, err)
		}
		rawOffs[i] = int64(binary.LittleEndian.Uint64(buf[:]))
	}

	return &Sidecar{
		Order:      triples.Order(orderInt),
		NumTriples: numTriples,
		HeaderSize: headerSize,
		OP:         &adjacency.List{A: opA, B: opB},
		WY:         wy,
		Offsets: Offsets{
			BitmapY: rawOffs[0], BitmapZ: rawOffs[1], SequenceZ: rawOffs[2],
			Dictionary: rawOffs[3], DictShared: rawOffs[4], DictSubjects: rawOffs[5],
			DictPredicates: rawOffs[6], DictObjects: rawOffs[7], TriplesSection: rawOffs[8],
		},
	}, nil
}

// WriteAtomic writes the sidecar to a temp file next to path and renames
// it into place, so a concurrent reader never observes a partial sidecar
// (spec §5: "sidecar writes use create-then-rename for atomicity").
func WriteAtomic(path string, s *Sidecar) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp sidecar: %v", format.ErrIO, err)
	}
	tmpName := tmp.Name()
	if _, err := s.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp sidecar: %v", format.ErrIO, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: renaming sidecar into place: %v", format.ErrIO, err)
	}
	return nil
}

// Load reads a sidecar from path.
func Load(path string) (*Sidecar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadFrom(bufio.NewReader(f))
}
