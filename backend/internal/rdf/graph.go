package rdf

import (
	"cmp"
	"slices"
)

// Graph is a set of triples. Identical triples collapse; insertion order carries
// no meaning.
type Graph struct {
	triples map[Triple]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{triples: make(map[Triple]struct{})}
}

// Assemble folds triples into a new graph.
func Assemble(triples []Triple) *Graph {
	g := NewGraph()
	for _, t := range triples {
		g.Add(t)
	}
	return g
}

// Assemble folds triples into a graph keyed by their serialized form, so a relation
// label and the local IRI it is written as count as one triple.
func (n Namespaces) Assemble(triples []Triple) *Graph {
	g := NewGraph()
	for _, t := range triples {
		g.Add(n.Canonical(t))
	}
	return g
}

// Add inserts t and reports whether it was new.
func (g *Graph) Add(t Triple) bool {
	if _, ok := g.triples[t]; ok {
		return false
	}
	g.triples[t] = struct{}{}
	return true
}

// Len returns the number of distinct triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns a sorted snapshot. Sorting only makes serialized output stable.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, 0, len(g.triples))
	for t := range g.triples {
		out = append(out, t)
	}
	slices.SortFunc(out, compareTriples)
	return out
}

func compareTerms(a, b Term) int {
	if c := cmp.Compare(a.Value, b.Value); c != 0 {
		return c
	}
	return cmp.Compare(a.Kind, b.Kind)
}

func compareTriples(a, b Triple) int {
	if c := compareTerms(a.Subject, b.Subject); c != 0 {
		return c
	}
	if c := compareTerms(a.Predicate, b.Predicate); c != 0 {
		return c
	}
	return compareTerms(a.Object, b.Object)
}
