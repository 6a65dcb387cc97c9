package triples

import "errors"

// errZeroComponent is returned by CoordToTriple when asked to convert a
// coordinate with a zero component, which spec §4.5 defines as a
// failure (zero is reserved for "variable"/"not found", never a valid
// stored coordinate).
var errZeroComponent = errors.New("triples: zero coordinate component")
