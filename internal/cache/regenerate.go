package cache

import (
	"github.com/hdtquery/hdt/internal/triples"
)

// FromStore builds a fresh Sidecar from an in-memory triples.Store and
// the byte offsets of the structures it mirrors into the main HDT file
// (spec §4.8: "regenerates it from a fresh in-memory build").
func FromStore(st *triples.Store, offsets Offsets, headerSize uint64) *Sidecar {
	return &Sidecar{
		Order:      st.Order,
		NumTriples: st.N,
		HeaderSize: headerSize,
		OP:         st.OP,
		WY:         st.WY,
		Offsets:    offsets,
	}
}

// Open either loads a fresh sidecar from cachePath, or calls build to
// construct one from scratch and atomically persists it, matching spec
// §4.8's automatic lifecycle: "open-hdt-with-cache either reads an
// existing sidecar (version-checked) or regenerates it from a fresh
// in-memory build, writes it atomically next to the HDT file, and
// reopens in hybrid mode."
func Open(hdtPath, cachePath string, build func() (*Sidecar, error)) (*Sidecar, error) {
	stale, err := Stale(hdtPath, cachePath)
	if err != nil {
		return nil, err
	}
	if !stale {
		s, err := Load(cachePath)
		if err == nil {
			return s, nil
		}
		// Fall through to regeneration: a sidecar that stats as fresh but
		// fails to parse is the same "malformed -> regenerate" case as a
		// stale one (spec §7).
	}

	s, err := build()
	if err != nil {
		return nil, err
	}
	if err := WriteAtomic(cachePath, s); err != nil {
		return nil, err
	}
	return s, nil
}
