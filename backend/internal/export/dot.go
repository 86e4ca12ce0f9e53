// Package export turns an assembled graph into the shapes that leave the
// process: Graphviz images, N-Triples, JSON and YAML.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"kg-extractor/backend/internal/rdf"
)

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// WriteDOT writes g as a directed Graphviz graph. Resources are ellipses labelled
// with their short name, literals are boxes, predicates label the edges.
func WriteDOT(w io.Writer, g *rdf.Graph, ns rdf.Namespaces) error {
	bw := bufio.NewWriter(w)
	ids := make(map[rdf.Term]string)

	node := func(t rdf.Term) string {
		if id, ok := ids[t]; ok {
			return id
		}
		id := fmt.Sprintf("n%d", len(ids))
		ids[t] = id
		if t.IsIRI() {
			fmt.Fprintf(bw, "  %s [label=\"%s\", shape=ellipse, tooltip=\"%s\"];\n",
				id, dotEscaper.Replace(ns.ShortName(t.Value)), dotEscaper.Replace(t.Value))
		} else {
			fmt.Fprintf(bw, "  %s [label=\"%s\", shape=box];\n", id, dotEscaper.Replace(t.Value))
		}
		return id
	}

	fmt.Fprintln(bw, "digraph G {")
	fmt.Fprintln(bw, "  rankdir=LR;")
	fmt.Fprintln(bw, `  node [fontname="Helvetica", fontsize=10];`)
	fmt.Fprintln(bw, `  edge [fontname="Helvetica", fontsize=9];`)
	for _, t := range g.Triples() {
		from := node(t.Subject)
		to := node(objectTerm(t.Object))
		label := ns.ShortName(ns.PredicateIRI(t.Predicate))
		fmt.Fprintf(bw, "  %s -> %s [label=\"%s\"];\n", from, to, dotEscaper.Replace(label))
	}
	fmt.Fprintln(bw, "}")

	return bw.Flush()
}

// objectTerm draws relation-kind objects as literals.
func objectTerm(t rdf.Term) rdf.Term {
	if t.Kind == rdf.KindRelation {
		return rdf.Literal(t.Value)
	}
	return t
}
