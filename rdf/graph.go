package rdf

import "fmt"

// Triple represents a RDF Triple, also known as a RDF Statement.
type Triple struct {
	// Subj is the subject of the Triple
	Subj URI
	// Pred is the predicate of the Triple
	Pred URI
	// Obj is the object of the triple.
	Obj Term
}

// String returns a N-Triples serialization of the Triple.
func (tr Triple) String() string {
	return fmt.Sprintf("%s %s %s .", tr.Subj.Lexical(), tr.Pred.Lexical(), tr.Obj.Lexical())
}
