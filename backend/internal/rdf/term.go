// Package rdf holds the triple model shared by the builder, the enricher and the
// exporters: terms, namespaces and the deduplicating Graph.
package rdf

import (
	"fmt"
	"strings"
)

// RDFType is the rdf:type predicate IRI.
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Kind classifies a Term.
type Kind int

const (
	// KindLiteral is an opaque text value with no namespace
	KindLiteral Kind = iota
	// KindExternal is an IRI in the external knowledge-base namespace
	KindExternal
	// KindLocal is an IRI minted under the private namespace
	KindLocal
	// KindURI is any other IRI (ontology predicates, classes)
	KindURI
	// KindRelation is a bare relation label emitted by the generator
	KindRelation
)

var kindNames = map[Kind]string{
	KindLiteral:  "literal",
	KindExternal: "external",
	KindLocal:    "local",
	KindURI:      "uri",
	KindRelation: "relation",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown term kind %q", string(b))
}

// Term is a resolved reference: an IRI of some kind, a relation label or a literal.
// Terms are comparable so triples can key a map.
type Term struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Value string `json:"value" yaml:"value"`
}

func Literal(v string) Term  { return Term{Kind: KindLiteral, Value: v} }
func External(v string) Term { return Term{Kind: KindExternal, Value: v} }
func Local(v string) Term    { return Term{Kind: KindLocal, Value: v} }
func URI(v string) Term      { return Term{Kind: KindURI, Value: v} }
func Relation(v string) Term { return Term{Kind: KindRelation, Value: v} }

// IsIRI reports whether the term names a resource rather than a value.
func (t Term) IsIRI() bool {
	return t.Kind == KindExternal || t.Kind == KindLocal || t.Kind == KindURI
}

// IsExternal reports whether the term is a knowledge-base resource.
func (t Term) IsExternal() bool {
	return t.Kind == KindExternal
}

func (t Term) String() string {
	return t.Value
}

// Triple is one RDF statement. The predicate is never a literal.
type Triple struct {
	Subject   Term `json:"subject" yaml:"subject"`
	Predicate Term `json:"predicate" yaml:"predicate"`
	Object    Term `json:"object" yaml:"object"`
}

// NewTriple builds a triple, rejecting a literal predicate.
func NewTriple(s, p, o Term) (Triple, error) {
	if p.Kind == KindLiteral {
		return Triple{}, fmt.Errorf("predicate %q cannot be a literal", p.Value)
	}
	return Triple{Subject: s, Predicate: p, Object: o}, nil
}

func (t Triple) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Subject.Value, t.Predicate.Value, t.Object.Value)
}

// hasScheme reports whether v looks like an absolute http(s) IRI.
func hasScheme(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// Predicate classifies a relation string: IRIs keep their IRI, anything else is a
// relation label.
func (n Namespaces) Predicate(v string) Term {
	switch {
	case n.IsExternal(v):
		return External(v)
	case n.IsLocal(v):
		return Local(v)
	case hasScheme(v):
		return URI(v)
	default:
		return Relation(v)
	}
}
