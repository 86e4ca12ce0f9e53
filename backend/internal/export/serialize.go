package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	ntriples "github.com/knakk/rdf"
	"gopkg.in/yaml.v3"

	"kg-extractor/backend/internal/rdf"
)

// Format names a serialization of a graph.
type Format string

const (
	FormatNTriples Format = "ntriples"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatDOT      Format = "dot"
)

// ParseFormat accepts a format name, case-insensitively. "nt" is an alias for
// N-Triples and "yml" for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ntriples", "nt", "n-triples":
		return FormatNTriples, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "dot":
		return FormatDOT, nil
	}
	return "", fmt.Errorf("unknown format %q (want ntriples, json, yaml or dot)", s)
}

// Statement is the serialized view of a triple. Predicates are always IRIs here;
// ObjectType is "iri" or "literal".
type Statement struct {
	Subject    string `json:"subject" yaml:"subject"`
	Predicate  string `json:"predicate" yaml:"predicate"`
	Object     string `json:"object" yaml:"object"`
	ObjectType string `json:"object_type" yaml:"object_type"`
}

// Statements converts g into sorted statements, URI-izing relation labels. Triples
// that serialize identically are written once.
func Statements(g *rdf.Graph, ns rdf.Namespaces) []Statement {
	triples := g.Triples()
	out := make([]Statement, 0, len(triples))
	seen := make(map[Statement]struct{}, len(triples))
	for _, t := range triples {
		objectType := "literal"
		if t.Object.IsIRI() {
			objectType = "iri"
		}
		st := Statement{
			Subject:    t.Subject.Value,
			Predicate:  ns.PredicateIRI(t.Predicate),
			Object:     t.Object.Value,
			ObjectType: objectType,
		}
		if _, ok := seen[st]; ok {
			continue
		}
		seen[st] = struct{}{}
		out = append(out, st)
	}
	return out
}

// Write serializes g to w in the given format.
func Write(w io.Writer, format Format, g *rdf.Graph, ns rdf.Namespaces) error {
	switch format {
	case FormatNTriples:
		return WriteNTriples(w, g, ns)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Statements(g, ns))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Statements(g, ns)); err != nil {
			return err
		}
		return enc.Close()
	case FormatDOT:
		return WriteDOT(w, g, ns)
	}
	return fmt.Errorf("unsupported format %q", format)
}

// WriteNTriples writes one N-Triples line per statement. Every IRI is validated
// before anything is written, so a statement that cannot be expressed fails the
// whole write instead of producing an unparseable line.
func WriteNTriples(w io.Writer, g *rdf.Graph, ns rdf.Namespaces) error {
	stmts := Statements(g, ns)
	triples := make([]ntriples.Triple, 0, len(stmts))
	for _, st := range stmts {
		t, err := ntTriple(st)
		if err != nil {
			return fmt.Errorf("invalid statement (%s, %s, %s): %w", st.Subject, st.Predicate, st.Object, err)
		}
		triples = append(triples, t)
	}

	enc := ntriples.NewTripleEncoder(w, ntriples.NTriples)
	if err := enc.EncodeAll(triples); err != nil {
		return err
	}
	return enc.Close()
}

func ntTriple(st Statement) (ntriples.Triple, error) {
	subj, err := ntriples.NewIRI(st.Subject)
	if err != nil {
		return ntriples.Triple{}, err
	}
	pred, err := ntriples.NewIRI(st.Predicate)
	if err != nil {
		return ntriples.Triple{}, err
	}

	var obj ntriples.Object
	if st.ObjectType == "iri" {
		obj, err = ntriples.NewIRI(st.Object)
	} else {
		obj, err = ntriples.NewLiteral(st.Object)
	}
	if err != nil {
		return ntriples.Triple{}, err
	}
	return ntriples.Triple{Subj: subj, Pred: pred, Obj: obj}, nil
}
