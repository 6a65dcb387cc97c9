// Package hdt implements an in-process, read-only RDF graph engine over
// the Header-Dictionary-Triples binary format: a four-section
// plain-front-coded dictionary (internal/dict) and a bitmap-triples store
// (internal/triples), framed per the on-disk layout of internal/format,
// with an optional hybrid-mode sidecar (internal/cache) that lets a
// second open bind file-streamed structures directly without
// re-deriving them.
package hdt

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/golang-lru/v2"

	"github.com/hdtquery/hdt/internal/cache"
	"github.com/hdtquery/hdt/internal/dict"
	"github.com/hdtquery/hdt/internal/diskio"
	"github.com/hdtquery/hdt/internal/triples"
	"github.com/hdtquery/hdt/rdf"
)

// Graph is a read-only RDF graph backed by an in-memory or hybrid HDT
// dataset. A Graph is immutable once built or opened and is safe to share
// across goroutines; individual Iterators are not.
type Graph struct {
	dict  *dict.Dictionary
	store *triples.Store

	hybrid bool
	handle *diskio.Handle
	decode *lru.Cache[decodeKey, string]

	// headerSize is populated by WriteTo and Open, lastOffsets by WriteTo
	// only; both are consumed by WriteHybridCache. A Graph built in memory
	// via Builder and never written to disk has neither set.
	headerSize  uint64
	lastOffsets *cache.Offsets
}

// decodeKey identifies one dictionary lookup for the decode cache.
type decodeKey struct {
	section byte
	id      uint64
}

const (
	sectionSubject byte = iota
	sectionPredicate
	sectionObject
)

const decodeCacheSize = 4096

// Stats holds descriptive statistics about an open Graph (supplements
// spec.md with the teacher's own DB.Stats, generalized from "term count"
// to the dictionary/triples-section breakdown HDT actually exposes).
type Stats struct {
	NumTriples    uint64
	NumSubjects   uint64
	NumPredicates uint64
	NumObjects    uint64
	NumShared     uint64
	DictBytes     int64
	TriplesBytes  int64
	Hybrid        bool
}

// String renders Stats in a human-readable form using go-humanize, the
// same library sourcegraph-zoekt and dolthub-dolt use to format shard/
// chunk-store sizes.
func (s Stats) String() string {
	return fmt.Sprintf(
		"%s triples, %s subjects, %s predicates, %s objects (%s shared), dictionary %s, triples %s, hybrid=%v",
		humanize.Comma(int64(s.NumTriples)), humanize.Comma(int64(s.NumSubjects)), humanize.Comma(int64(s.NumPredicates)),
		humanize.Comma(int64(s.NumObjects)), humanize.Comma(int64(s.NumShared)),
		humanize.Bytes(uint64(s.DictBytes)), humanize.Bytes(uint64(s.TriplesBytes)), s.Hybrid,
	)
}

// Stats returns statistics about the open graph.
func (g *Graph) Stats() Stats {
	return Stats{
		NumTriples:    g.store.N,
		NumSubjects:   g.store.S,
		NumPredicates: g.store.P,
		NumObjects:    g.store.O,
		NumShared:     g.dict.NumShared(),
		DictBytes:     g.dict.SizeInBytes(),
		TriplesBytes:  g.store.LZ.A.SizeInBytes() + g.store.LZ.B.SizeInBytes(),
		Hybrid:        g.hybrid,
	}
}

// TriplesWithPattern returns an iterator over every stored triple
// matching the given pattern; an empty string means variable (spec §6:
// "None means variable"). A string the dictionary does not contain
// produces an immediately empty iterator, not an error.
func (g *Graph) TriplesWithPattern(s, p, o string) (*Iterator, error) {
	var sid, pid, oid uint64
	var err error

	if s != "" {
		sid, err = g.dict.StringToSubjectID(s)
		if err != nil {
			return nil, err
		}
		if sid == 0 {
			return emptyIterator(g), nil
		}
	}
	if p != "" {
		pid, err = g.dict.StringToPredicateID(p)
		if err != nil {
			return nil, err
		}
		if pid == 0 {
			return emptyIterator(g), nil
		}
	}
	if o != "" {
		oid, err = g.dict.StringToObjectID(o)
		if err != nil {
			return nil, err
		}
		if oid == 0 {
			return emptyIterator(g), nil
		}
	}

	x, y, z := g.store.Order.TripleToCoord(sid, pid, oid)
	inner, err := triples.PatternIterator(g.store, x, y, z)
	if err != nil {
		return nil, err
	}
	return &Iterator{g: g, inner: inner}, nil
}

// Dump writes every triple in the graph as N-Triples to w (supplements
// spec.md with the teacher's DB.Dump, generalized from Turtle to
// N-Triples since the dictionary's lexical forms are already NT framing).
func (g *Graph) Dump(w io.Writer) error {
	return g.forEach(func(s, p, o string) error {
		_, err := fmt.Fprintf(w, "%s %s %s .\n", s, p, o)
		return err
	})
}

// forEach walks every triple in the graph, mirroring the teacher's
// test-only DB.forEach (db_test.go) used to cross-check Describe.
func (g *Graph) forEach(fn func(s, p, o string) error) error {
	it, err := g.TriplesWithPattern("", "", "")
	if err != nil {
		return err
	}
	defer it.Close()
	for {
		s, p, o, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(s, p, o); err != nil {
			return err
		}
	}
}

// Close releases the graph's resident and file-streamed resources.
func (g *Graph) Close() error {
	var err error
	if e := g.dict.Close(); e != nil {
		err = e
	}
	if e := g.store.Close(); e != nil && err == nil {
		err = e
	}
	if g.handle != nil {
		if e := g.handle.Release(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Builder accumulates triples (as already-lexicalized NT strings, or via
// AddRDFTriple for an rdf.Term-typed triple) and builds an immutable
// Graph, mirroring the teacher's Import/ImportGraph incremental-then-
// freeze shape without a mutable backing store in between.
type Builder struct {
	dictBuilder *dict.Builder
	coords      [][3]string
	blockSize   uint64
}

// NewBuilder allocates a Builder. blockSize is the PFC front-coding block
// size (spec §4.6); dict.DefaultBlockSize is used if 0.
func NewBuilder(blockSize uint64) *Builder {
	if blockSize == 0 {
		blockSize = dict.DefaultBlockSize
	}
	return &Builder{
		dictBuilder: dict.NewDictionaryBuilder(blockSize),
		blockSize:   blockSize,
	}
}

// AddTriple records one triple given its three dictionary lexical forms
// directly (e.g. "<http://example.org/alice>", `"Alice"@en`).
func (b *Builder) AddTriple(s, p, o string) {
	b.dictBuilder.AddTriple(s, p, o)
	b.coords = append(b.coords, [3]string{s, p, o})
}

// AddRDFTriple records tr, converting each term to its dictionary lexical
// form via rdf.Term.Lexical.
func (b *Builder) AddRDFTriple(tr rdf.Triple) {
	b.AddTriple(tr.Subj.Lexical(), tr.Pred.Lexical(), tr.Obj.Lexical())
}

// ImportNTriples decodes N-Triples from r and records every triple,
// mirroring the teacher's streaming DB.Import (minus its bucketed
// BoltDB commit batching, which has no equivalent in an immutable,
// build-once dictionary).
func (b *Builder) ImportNTriples(r io.Reader) (int, error) {
	dec := rdf.NewDecoder(r)
	n := 0
	for {
		tr, err := dec.Decode()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		b.AddRDFTriple(tr)
		n++
	}
}

// Build freezes the dictionary, resolves every recorded triple to ids,
// and constructs the bitmap-triples store under order (triples.SPO if
// order is zero).
func (b *Builder) Build(order triples.Order) (*Graph, error) {
	if order == 0 {
		order = triples.SPO
	}
	d := b.dictBuilder.Freeze()

	seen := make(map[[3]uint64]struct{}, len(b.coords))
	coords := make([][3]uint64, 0, len(b.coords))
	for _, tr := range b.coords {
		sid, err := d.StringToSubjectID(tr[0])
		if err != nil {
			return nil, err
		}
		pid, err := d.StringToPredicateID(tr[1])
		if err != nil {
			return nil, err
		}
		oid, err := d.StringToObjectID(tr[2])
		if err != nil {
			return nil, err
		}
		x, y, z := order.TripleToCoord(sid, pid, oid)
		key := [3]uint64{x, y, z}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		coords = append(coords, key)
	}
	sortCoords(coords)

	s := d.NumShared() + d.NumSubjects()
	p := d.NumPredicates()
	o := d.NumShared() + d.NumObjects()

	st, err := triples.BuildFromSorted(order, coords, s, p, o)
	if err != nil {
		return nil, err
	}

	dc, err := lru.New[decodeKey, string](decodeCacheSize)
	if err != nil {
		return nil, err
	}
	return &Graph{dict: d, store: st, decode: dc}, nil
}

// sortCoords sorts triples in (x,y,z) order, the order BuildFromSorted
// requires.
func sortCoords(coords [][3]uint64) {
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
}
