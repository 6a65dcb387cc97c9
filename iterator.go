package hdt

import (
	"github.com/hdtquery/hdt/internal/triples"
)

// Iterator lazily emits matching (subject, predicate, object) lexical
// strings. It is single-threaded and not restartable, mirroring
// internal/triples.Iterator one level up the stack with dictionary
// id->string resolution and a small decode cache in between.
type Iterator struct {
	g     *Graph
	inner triples.Iterator
	empty bool
}

func emptyIterator(g *Graph) *Iterator {
	return &Iterator{g: g, empty: true}
}

// Next returns the next matching triple's lexical forms, or ok=false once
// the iterator is exhausted.
func (it *Iterator) Next() (s, p, o string, ok bool, err error) {
	if it.empty || it.inner == nil {
		return "", "", "", false, nil
	}
	x, y, z, ok, err := it.inner.Next()
	if err != nil || !ok {
		return "", "", "", false, err
	}
	sid, pid, oid, err := it.g.store.Order.CoordToTriple(x, y, z)
	if err != nil {
		return "", "", "", false, err
	}
	s, err = it.g.decodeSubject(sid)
	if err != nil {
		return "", "", "", false, err
	}
	p, err = it.g.decodePredicate(pid)
	if err != nil {
		return "", "", "", false, err
	}
	o, err = it.g.decodeObject(oid)
	if err != nil {
		return "", "", "", false, err
	}
	return s, p, o, true, nil
}

// Close releases the iterator's cursor state.
func (it *Iterator) Close() error {
	if it.inner == nil {
		return nil
	}
	return it.inner.Close()
}

// decodeSubject/decodePredicate/decodeObject resolve a dictionary id to
// its lexical string through the graph's LRU decode cache
// (hashicorp/golang-lru/v2), since the same small set of frequently
// occurring terms (predicates especially) is resolved over and over
// across a long pattern scan.
func (g *Graph) decodeSubject(id uint64) (string, error) {
	return g.decodeCached(sectionSubject, id, g.dict.SubjectIDToString)
}

func (g *Graph) decodePredicate(id uint64) (string, error) {
	return g.decodeCached(sectionPredicate, id, g.dict.PredicateIDToString)
}

func (g *Graph) decodeObject(id uint64) (string, error) {
	return g.decodeCached(sectionObject, id, g.dict.ObjectIDToString)
}

func (g *Graph) decodeCached(section byte, id uint64, resolve func(uint64) (string, error)) (string, error) {
	key := decodeKey{section: section, id: id}
	if v, ok := g.decode.Get(key); ok {
		return v, nil
	}
	v, err := resolve(id)
	if err != nil {
		return "", err
	}
	g.decode.Add(key, v)
	return v, nil
}
