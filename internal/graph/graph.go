// Package graph models the knowledge graph as an explicit set of triples.
//
// A Graph is rebuilt from inputs on every iteration; Add is idempotent and
// iteration order is always sorted, so two graphs built from the same
// inputs serialize to identical bytes.
package graph

import (
	"sort"
	"strconv"
)

// TermKind distinguishes IRIs from literals.
type TermKind uint8

const (
	KindIRI TermKind = iota + 1
	KindLiteral
)

// Term is a node or literal. The zero Term matches anything in Match.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string // literals only; empty means xsd:string
}

// Any is the wildcard term for Match.
var Any = Term{}

// NewIRI returns an IRI term.
func NewIRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// NewLiteral returns a plain string literal.
func NewLiteral(v string) Term {
	return Term{Kind: KindLiteral, Value: v}
}

// NewTypedLiteral returns a literal with an explicit datatype IRI.
func NewTypedLiteral(v, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

// NewInteger returns an xsd:integer literal.
func NewInteger(n int) Term {
	return NewTypedLiteral(strconv.Itoa(n), XSDInteger)
}

// IsIRI reports whether t is an IRI.
func (t Term) IsIRI() bool { return t.Kind == KindIRI }

// IsZero reports whether t is the wildcard.
func (t Term) IsZero() bool { return t == Term{} }

// String renders t in Turtle syntax with the default prefixes.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return Compact(t.Value)
	case KindLiteral:
		s := quote(t.Value)
		if t.Datatype != "" {
			s += "^^" + Compact(t.Datatype)
		}
		return s
	default:
		return "*"
	}
}

func (t Term) less(o Term) bool {
	if t.Kind != o.Kind {
		return t.Kind < o.Kind
	}
	if t.Value != o.Value {
		return t.Value < o.Value
	}
	return t.Datatype < o.Datatype
}

// Triple is a subject-predicate-object statement.
type Triple struct {
	S, P, O Term
}

func (t Triple) String() string {
	return t.S.String() + " " + t.P.String() + " " + t.O.String() + " ."
}

func (t Triple) less(o Triple) bool {
	if t.S != o.S {
		return t.S.less(o.S)
	}
	if t.P != o.P {
		return t.P.less(o.P)
	}
	return t.O.less(o.O)
}

func (t Triple) matches(s, p, o Term) bool {
	return (s.IsZero() || t.S == s) && (p.IsZero() || t.P == p) && (o.IsZero() || t.O == o)
}

// Graph is a set of triples.
type Graph struct {
	triples map[Triple]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{triples: make(map[Triple]struct{})}
}

// Add inserts a triple. It reports whether the triple was new; adding a
// triple that is already present is a no-op.
func (g *Graph) Add(s, p, o Term) bool {
	t := Triple{S: s, P: p, O: o}
	if _, ok := g.triples[t]; ok {
		return false
	}
	g.triples[t] = struct{}{}
	return true
}

// Remove deletes a triple and reports whether it was present.
func (g *Graph) Remove(s, p, o Term) bool {
	t := Triple{S: s, P: p, O: o}
	if _, ok := g.triples[t]; !ok {
		return false
	}
	delete(g.triples, t)
	return true
}

// Has reports whether the exact triple is present.
func (g *Graph) Has(s, p, o Term) bool {
	_, ok := g.triples[Triple{S: s, P: p, O: o}]
	return ok
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns every triple in sorted order.
func (g *Graph) Triples() []Triple {
	return g.Match(Any, Any, Any)
}

// Match returns the sorted triples matching the pattern; Any matches all.
func (g *Graph) Match(s, p, o Term) []Triple {
	out := make([]Triple, 0)
	for t := range g.triples {
		if t.matches(s, p, o) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}

// Objects returns the sorted objects of (s, p, *).
func (g *Graph) Objects(s, p Term) []Term {
	matched := g.Match(s, p, Any)
	out := make([]Term, len(matched))
	for i, t := range matched {
		out[i] = t.O
	}
	return out
}

// Object returns the first object of (s, p, *) in sorted order.
func (g *Graph) Object(s, p Term) (Term, bool) {
	objs := g.Objects(s, p)
	if len(objs) == 0 {
		return Term{}, false
	}
	return objs[0], true
}

// Clone returns an independent copy of g.
func (g *Graph) Clone() *Graph {
	c := &Graph{triples: make(map[Triple]struct{}, len(g.triples))}
	for t := range g.triples {
		c.triples[t] = struct{}{}
	}
	return c
}

// Equal reports whether g and o hold the same triple set.
func (g *Graph) Equal(o *Graph) bool {
	if g.Len() != o.Len() {
		return false
	}
	for t := range g.triples {
		if _, ok := o.triples[t]; !ok {
			return false
		}
	}
	return true
}
