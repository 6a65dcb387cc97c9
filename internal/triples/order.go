// Package triples implements the bitmap-triples store of spec §4.5: two
// layered adjacency structures (Y over subjects, Z over predicate groups)
// plus a wavelet matrix over Y and a derived object->position inverse
// index, together with the coordinate conversion and pattern-matching
// iterators that walk them.
package triples

import "fmt"

// Order is one of the six triple permutations a store may be built
// under (spec §3). SPO is the default.
type Order uint8

const (
	SPO Order = iota + 1
	SOP
	PSO
	POS
	OSP
	OPS
)

// String renders the order's three-letter mnemonic.
func (o Order) String() string {
	switch o {
	case SPO:
		return "SPO"
	case SOP:
		return "SOP"
	case PSO:
		return "PSO"
	case POS:
		return "POS"
	case OSP:
		return "OSP"
	case OPS:
		return "OPS"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the six defined orders.
func (o Order) Valid() bool {
	return o >= SPO && o <= OPS
}

// components returns, for each order, the letter sequence (as indices
// into [s,p,o]) that x,y,z correspond to.
func (o Order) components() [3]int {
	switch o {
	case SPO:
		return [3]int{0, 1, 2}
	case SOP:
		return [3]int{0, 2, 1}
	case PSO:
		return [3]int{1, 0, 2}
	case POS:
		return [3]int{1, 2, 0}
	case OSP:
		return [3]int{2, 0, 1}
	case OPS:
		return [3]int{2, 1, 0}
	default:
		return [3]int{0, 1, 2}
	}
}

// CoordToTriple permutes store coordinates (x,y,z) back into (s,p,o)
// according to order, failing if any coordinate is zero (spec §4.5:
// "fail if any component is zero").
func (o Order) CoordToTriple(x, y, z uint64) (s, p, o2 uint64, err error) {
	if x == 0 || y == 0 || z == 0 {
		return 0, 0, 0, fmt.Errorf("%w: coord_to_triple(%d,%d,%d): zero component", errZeroComponent, x, y, z)
	}
	coords := [3]uint64{x, y, z}
	idx := o.components()
	var spo [3]uint64
	spo[idx[0]] = coords[0]
	spo[idx[1]] = coords[1]
	spo[idx[2]] = coords[2]
	return spo[0], spo[1], spo[2], nil
}

// TripleToCoord is the inverse of CoordToTriple: given (s,p,o), returns
// the (x,y,z) coordinates the store of this order would index them
// under.
func (o Order) TripleToCoord(s, p, obj uint64) (x, y, z uint64) {
	spo := [3]uint64{s, p, obj}
	idx := o.components()
	return spo[idx[0]], spo[idx[1]], spo[idx[2]]
}
