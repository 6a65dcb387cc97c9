package hdt

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
	"os"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hdtquery/hdt/internal/adjacency"
	"github.com/hdtquery/hdt/internal/bitmap"
	"github.com/hdtquery/hdt/internal/bitseq"
	"github.com/hdtquery/hdt/internal/cache"
	"github.com/hdtquery/hdt/internal/dict"
	"github.com/hdtquery/hdt/internal/diskio"
	"github.com/hdtquery/hdt/internal/format"
	"github.com/hdtquery/hdt/internal/triples"
	"github.com/hdtquery/hdt/internal/wavelet"
)

// datasetFormatMarker is the global control-info format property value
// for a dataset written by this package (spec §6: global control info
// carries a format marker, loosely specified beyond that).
const datasetFormatMarker = "hdtquery-hdt-v1"

// On-disk layout (spec §6):
//
//	[global control info][dataset header][dictionary control info]
//	[shared][subjects][predicates][objects]
//	[triples control info][B_Y][B_Z][Y sequence][Z sequence]
//
// The Y sequence is written so a cold, non-hybrid open can rebuild W_Y
// without a sidecar; hybrid mode's sidecar never records an offset for
// it; see internal/cache.

// countingWriter tracks the number of bytes written through it so
// WriteTo can record precise byte offsets for the hybrid cache sidecar
// without a separate dry-run pass.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// bitmapMetaSize returns the byte length of a bitmap section's header
// (type + vbyte(m) + CRC8) preceding its packed words, per
// internal/bitmap's WriteTo framing.
func bitmapMetaSize(m uint64) int64 {
	return int64(1 + format.SizeVByte(m) + 1)
}

// bitseqMetaSize returns the byte length of a sequence section's header
// (type + width + vbyte(entries) + CRC8) preceding its packed words, per
// internal/bitseq's WriteTo framing.
func bitseqMetaSize(entries uint64) int64 {
	return int64(1 + 1 + format.SizeVByte(entries) + 1)
}

// zSeqWidth returns the bit width needed to hold object ids up to and
// including max, the same rule internal/triples.BuildFromSorted uses for
// the Z sequence.
func zSeqWidth(max uint64) uint8 {
	if max == 0 {
		return 1
	}
	return uint8(bits.Len64(max))
}

// WriteTo serializes g as a single HDT dataset file to w, in the layout
// above. Hybrid-mode callers still get a complete, self-sufficient file:
// the sidecar is a separate artifact written by WriteHybridCache, not a
// substitute for the on-disk Y sequence.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	offs, err := writeDataset(cw, g)
	if err != nil {
		return cw.n, err
	}
	g.lastOffsets = &offs
	return cw.n, nil
}

// writeDataset writes g's dataset bytes to cw and returns the byte
// offsets a hybrid sidecar needs to bind B_Y, B_Z and the Z sequence
// directly, plus the dataset header's byte length.
func writeDataset(cw *countingWriter, g *Graph) (cache.Offsets, error) {
	var offs cache.Offsets

	global := format.NewControlInfo(format.TypeGlobal)
	global.Set(format.PropFormat, datasetFormatMarker)
	global.Set(format.PropNumTriples, strconv.FormatUint(g.store.N, 10))
	if _, err := global.WriteTo(cw); err != nil {
		return offs, err
	}

	headerStart := cw.n
	header := format.NewControlInfo(format.TypeHeader)
	if _, err := header.WriteTo(cw); err != nil {
		return offs, err
	}
	g.headerSize = uint64(cw.n - headerStart)

	dictCI := format.NewControlInfo(format.TypeDictionary)
	dictCI.Set(format.PropFormat, dict.FourSectionFormat)
	if _, err := dictCI.WriteTo(cw); err != nil {
		return offs, err
	}

	offs.Dictionary = cw.n
	sections := []struct {
		sec *dict.RAM
		off *int64
	}{
		{g.dict.Shared.(*dict.RAM), &offs.DictShared},
		{g.dict.Subjects.(*dict.RAM), &offs.DictSubjects},
		{g.dict.Predicates.(*dict.RAM), &offs.DictPredicates},
		{g.dict.Objects.(*dict.RAM), &offs.DictObjects},
	}
	for _, s := range sections {
		*s.off = cw.n
		if _, err := s.sec.WriteTo(cw); err != nil {
			return offs, err
		}
	}

	triplesCI := format.NewControlInfo(format.TypeTriples)
	triplesCI.Set(format.PropOrder, strconv.Itoa(int(g.store.Order)))
	triplesCI.Set(format.PropNumTriples, strconv.FormatUint(g.store.N, 10))
	offs.TriplesSection = cw.n
	if _, err := triplesCI.WriteTo(cw); err != nil {
		return offs, err
	}

	byRAM, ok := g.store.BY.(*bitmap.RAM)
	if !ok {
		return offs, fmt.Errorf("%w: layer-Y bitmap must be resident to write a dataset", format.ErrFormat)
	}
	offs.BitmapY = cw.n + bitmapMetaSize(byRAM.Len())
	if _, err := byRAM.WriteTo(cw); err != nil {
		return offs, err
	}

	bzRAM, ok := g.store.LZ.B.(*bitmap.RAM)
	if !ok {
		return offs, fmt.Errorf("%w: layer-Z bitmap must be resident to write a dataset", format.ErrFormat)
	}
	offs.BitmapZ = cw.n + bitmapMetaSize(bzRAM.Len())
	if _, err := bzRAM.WriteTo(cw); err != nil {
		return offs, err
	}

	ySeq, err := rebuildYSequence(g.store)
	if err != nil {
		return offs, err
	}
	if _, err := ySeq.WriteTo(cw); err != nil {
		return offs, err
	}

	zRAM, ok := g.store.LZ.A.(*bitseq.RAM)
	if !ok {
		return offs, fmt.Errorf("%w: layer-Z sequence must be resident to write a dataset", format.ErrFormat)
	}
	offs.SequenceZ = cw.n + bitseqMetaSize(zRAM.Len())
	if _, err := zRAM.WriteTo(cw); err != nil {
		return offs, err
	}

	return offs, nil
}

// rebuildYSequence materializes W_Y's values as a plain packed sequence,
// the form the main dataset file carries so a cold, non-hybrid open can
// reconstruct the wavelet matrix without ever touching a cache sidecar
// (spec §4.3: "Not file-streamable; always resident" describes the
// matrix itself, not its source values).
func rebuildYSequence(st *triples.Store) (*bitseq.RAM, error) {
	n := st.WY.Len()
	width := uint8(wavelet.BitsForAlphabet(st.P))
	b := bitseq.NewBuilder(n, width)
	for i := uint64(0); i < n; i++ {
		v, err := st.WY.Access(i)
		if err != nil {
			return nil, err
		}
		b.Set(i, v)
	}
	return b.Freeze(), nil
}

// WriteHybridCache writes (or rewrites) the hybrid sidecar for a dataset
// already written to hdtPath, using g's in-memory OP index and wavelet
// matrix plus the offsets WriteTo last computed. Callers that want a
// hybrid-ready pair on disk call WriteTo then WriteHybridCache.
func (g *Graph) WriteHybridCache(hdtPath string) error {
	if g.lastOffsets == nil {
		return fmt.Errorf("%w: WriteHybridCache called before WriteTo", format.ErrFormat)
	}
	s := cache.FromStore(g.store, *g.lastOffsets, g.headerSize)
	return cache.WriteAtomic(cache.Path(hdtPath), s)
}

// sequentialReader tracks the absolute file offset of the next byte the
// shared bufio.Reader will hand out, so section offsets can be recovered
// during a cold, from-scratch parse (needed to regenerate a stale or
// missing hybrid sidecar). bufio.NewReaderSize(r, size) returns r itself
// unchanged whenever r is already a *bufio.Reader with a buffer at least
// that large (see the bufio package), so passing the same *bufio.Reader
// into every nested ReadFrom call below never double-buffers or drops
// bytes.
type sequentialReader struct {
	f  *os.File
	br *bufio.Reader
}

func newSequentialReader(f *os.File) *sequentialReader {
	return &sequentialReader{f: f, br: bufio.NewReaderSize(f, 64*1024)}
}

func (s *sequentialReader) offset() (int64, error) {
	cur, err := s.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return cur - int64(s.br.Buffered()), nil
}

// Open opens the HDT dataset at path. By default the dictionary and
// triples structures are parsed fully into RAM; WithHybrid(true) instead
// binds B_Y, B_Z and the Z sequence to the file (internal/diskio) and
// loads the derived op-index and wavelet matrix from a cache sidecar,
// regenerating it if missing or stale (spec §4.8). The dictionary stays
// resident in both modes: it is typically a small fraction of a
// dataset's bytes next to the triples structures the sidecar targets,
// and internal/dict's FileBacked backend (built for exactly this
// purpose) is not yet wired in here — a follow-up, not a silent gap,
// since dict.NewFileBacked already exists and only needs a binding call
// site.
func Open(path string, opts ...OpenOption) (*Graph, error) {
	cfg := newConfig(opts)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", format.ErrIO, path, err)
	}
	defer f.Close()

	sr := newSequentialReader(f)

	if _, err := format.ReadControlInfo(sr.br); err != nil {
		return nil, &LoadError{Path: path, Section: "global control info", Err: err}
	}

	headerStart, err := sr.offset()
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dataset header", Err: err}
	}
	if _, err := format.ReadControlInfo(sr.br); err != nil {
		return nil, &LoadError{Path: path, Section: "dataset header", Err: err}
	}
	headerEnd, err := sr.offset()
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dataset header", Err: err}
	}
	headerSize := uint64(headerEnd - headerStart)

	dictCI, err := format.ReadControlInfo(sr.br)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dictionary control info", Err: err}
	}
	if fv, _ := dictCI.Get(format.PropFormat); fv != dict.FourSectionFormat {
		return nil, &LoadError{Path: path, Section: "dictionary", Err: fmt.Errorf("%w: unsupported dictionary format %q", ErrFormat, fv)}
	}

	shared, err := dict.ReadFrom(sr.br)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dictionary shared section", Err: err}
	}
	subjects, err := dict.ReadFrom(sr.br)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dictionary subjects section", Err: err}
	}
	predicates, err := dict.ReadFrom(sr.br)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dictionary predicates section", Err: err}
	}
	objects, err := dict.ReadFrom(sr.br)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "dictionary objects section", Err: err}
	}
	d := &dict.Dictionary{Shared: shared, Subjects: subjects, Predicates: predicates, Objects: objects}

	triplesCI, err := format.ReadControlInfo(sr.br)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "triples control info", Err: err}
	}
	orderStr, _ := triplesCI.Get(format.PropOrder)
	orderInt, err := strconv.Atoi(orderStr)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "triples control info", Err: fmt.Errorf("%w: order property %q: %v", ErrFormat, orderStr, err)}
	}
	order := triples.Order(orderInt)

	o := d.NumShared() + d.NumObjects()
	p := d.NumPredicates()

	dc, err := lru.New[decodeKey, string](decodeCacheSize)
	if err != nil {
		return nil, err
	}

	if cfg.hybrid {
		handle, err := diskio.Open(path)
		if err != nil {
			return nil, err
		}
		cachePath := cfg.cachePath
		if cachePath == "" {
			cachePath = cache.Path(path)
		}
		st, err := openHybridStore(path, sr, order, p, o, handle, cachePath, headerSize)
		if err != nil {
			handle.Release()
			return nil, err
		}
		return &Graph{dict: d, store: st, hybrid: true, handle: handle, decode: dc, headerSize: headerSize}, nil
	}

	st, _, err := readResidentStore(sr, order, p, o)
	if err != nil {
		return nil, &LoadError{Path: path, Section: "triples", Err: err}
	}
	return &Graph{dict: d, store: st, decode: dc, headerSize: headerSize}, nil
}

// readResidentStore reads B_Y, B_Z, the Y sequence and the Z sequence
// fully into RAM from sr, rebuilds W_Y, and derives OP, returning the
// store plus the byte offsets each structure started at (needed when
// regenerating a stale hybrid sidecar).
func readResidentStore(sr *sequentialReader, order triples.Order, p, o uint64) (*triples.Store, cache.Offsets, error) {
	var offs cache.Offsets

	offs.TriplesSection, _ = sr.offset()

	by, err := bitmap.ReadFrom(sr.br)
	if err != nil {
		return nil, offs, fmt.Errorf("reading B_Y: %w", err)
	}
	afterBY, err := sr.offset()
	if err != nil {
		return nil, offs, err
	}
	offs.BitmapY = afterBY - 4 - int64((by.Len()+63)/64)*8

	bz, err := bitmap.ReadFrom(sr.br)
	if err != nil {
		return nil, offs, fmt.Errorf("reading B_Z: %w", err)
	}
	afterBZ, err := sr.offset()
	if err != nil {
		return nil, offs, err
	}
	offs.BitmapZ = afterBZ - 4 - int64((bz.Len()+63)/64)*8

	ySeq, err := bitseq.ReadFrom(sr.br)
	if err != nil {
		return nil, offs, fmt.Errorf("reading Y sequence: %w", err)
	}

	z, err := bitseq.ReadFrom(sr.br)
	if err != nil {
		return nil, offs, fmt.Errorf("reading Z sequence: %w", err)
	}
	afterZ, err := sr.offset()
	if err != nil {
		return nil, offs, err
	}
	offs.SequenceZ = afterZ - 4 - int64(wordsNeededFor(z.Len(), z.Width()))*8

	yVals := make([]uint64, ySeq.Len())
	for i := range yVals {
		v, err := ySeq.Get(uint64(i))
		if err != nil {
			return nil, offs, err
		}
		yVals[i] = v
	}
	wy := wavelet.Build(yVals, wavelet.BitsForAlphabet(p))

	lz := &adjacency.List{A: z, B: bz}
	op, err := triples.DeriveOP(by, wy, lz, o)
	if err != nil {
		return nil, offs, err
	}

	st := &triples.Store{
		Order: order,
		BY:    by,
		WY:    wy,
		LZ:    lz,
		OP:    op,
		S:     numSubjectGroups(by),
		P:     p,
		O:     o,
		N:     z.Len(),
	}
	return st, offs, nil
}

// numSubjectGroups returns the number of 1-bits in B_Y, the distinct
// subject count the store was built with (BuildFromSorted sizes B_Y to
// exactly one bit per subject group).
func numSubjectGroups(by *bitmap.RAM) uint64 {
	return by.CountOnes()
}

// wordsNeededFor returns the number of 64-bit words a packed sequence of
// `entries` values of `width` bits occupies, mirroring the unexported
// formula internal/bitseq uses for the same purpose.
func wordsNeededFor(entries uint64, width uint8) uint64 {
	return (entries*uint64(width) + 63) / 64
}

// openHybridStore loads (or regenerates) the hybrid cache sidecar and
// binds B_Y, B_Z and the Z sequence directly to handle, skipping the
// O(N log N) op-index/wavelet rederivation the sidecar exists to avoid
// (spec §4.8).
func openHybridStore(path string, sr *sequentialReader, order triples.Order, p, o uint64, handle *diskio.Handle, cachePath string, headerSize uint64) (*triples.Store, error) {
	build := func() (*cache.Sidecar, error) {
		st, offs, err := readResidentStore(sr, order, p, o)
		if err != nil {
			return nil, err
		}
		return cache.FromStore(st, offs, headerSize), nil
	}

	s, err := cache.Open(path, cachePath, build)
	if err != nil {
		return nil, err
	}

	m := s.WY.Len()
	by, err := bitmap.NewFileBacked(handle, s.Offsets.BitmapY, m)
	if err != nil {
		return nil, err
	}
	bz, err := bitmap.NewFileBacked(handle, s.Offsets.BitmapZ, s.NumTriples)
	if err != nil {
		return nil, err
	}
	z := bitseq.NewFileBacked(handle, s.Offsets.SequenceZ, s.NumTriples, zSeqWidth(o))

	return &triples.Store{
		Order: order,
		BY:    by,
		WY:    s.WY,
		LZ:    &adjacency.List{A: z, B: bz},
		OP:    s.OP,
		S:     by.CountOnes(),
		P:     p,
		O:     o,
		N:     s.NumTriples,
	}, nil
}
