// Package enrich augments triples with facts fetched from a SPARQL knowledge base:
// every predicate linking two resolved resources, and the rdf:type of each resource.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	"kg-extractor/backend/pkg/logger"
)

// DefaultTypeLimit caps rdf:type results per resource.
const DefaultTypeLimit = 10

// Binding is one SPARQL result row: variable name to value.
type Binding map[string]string

// KnowledgeBase runs SELECT queries.
type KnowledgeBase interface {
	Select(ctx context.Context, query string) ([]Binding, error)
}

// QueryResult separates "no rows" from "the call failed"; both degrade the same way.
type QueryResult struct {
	Values   []string
	FellBack bool
	Err      error
}

// Options tune the enricher.
type Options struct {
	TypeLimit int
	// KeepSubjectOnlyOriginals re-emits the original triple when the subject is an
	// external resource but the object is not. Off by default, which drops it.
	KeepSubjectOnlyOriginals bool
}

// Enricher queries the knowledge base one request at a time.
type Enricher struct {
	kb     KnowledgeBase
	ns     rdf.Namespaces
	opts   Options
	logger *zap.Logger
}

// New creates an enricher.
func New(kb KnowledgeBase, ns rdf.Namespaces, opts Options) *Enricher {
	if opts.TypeLimit <= 0 {
		opts.TypeLimit = DefaultTypeLimit
	}
	return &Enricher{
		kb:     kb,
		ns:     ns,
		opts:   opts,
		logger: logger.Get(),
	}
}

// WithLogger replaces the enricher's logger.
func (e *Enricher) WithLogger(l *zap.Logger) *Enricher {
	e.logger = l
	return e
}

// Enrich expands each triple (s, p, o):
//   - s and o both external: one triple per predicate linking them, plus the
//     original; just the original when none are found.
//   - s external: its rdf:type triples.
//   - o external: its rdf:type triples.
//   - s not external: the original, unchanged.
//
// A triple whose subject is external and object is not yields only type triples.
func (e *Enricher) Enrich(ctx context.Context, triples []rdf.Triple) []rdf.Triple {
	out := make([]rdf.Triple, 0, len(triples))
	for _, t := range triples {
		s, o := t.Subject, t.Object

		if s.IsExternal() && o.IsExternal() {
			res := e.PairPredicates(ctx, s.Value, o.Value)
			for _, p := range res.Values {
				out = append(out, rdf.Triple{Subject: s, Predicate: e.ns.Predicate(p), Object: o})
			}
			out = append(out, t)
		}
		if s.IsExternal() {
			out = append(out, e.typeTriples(ctx, s)...)
		}
		if o.IsExternal() {
			out = append(out, e.typeTriples(ctx, o)...)
		}

		if !s.IsExternal() {
			out = append(out, t)
		} else if !o.IsExternal() && e.opts.KeepSubjectOnlyOriginals {
			out = append(out, t)
		}
	}

	e.logger.Debug("Enriched triples",
		zap.Int("in", len(triples)),
		zap.Int("out", len(out)),
	)
	return out
}

func (e *Enricher) typeTriples(ctx context.Context, subject rdf.Term) []rdf.Triple {
	res := e.Types(ctx, subject.Value)
	triples := make([]rdf.Triple, 0, len(res.Values))
	for _, v := range res.Values {
		triples = append(triples, rdf.Triple{
			Subject:   subject,
			Predicate: rdf.URI(rdf.RDFType),
			Object:    e.ns.Classify(v),
		})
	}
	return triples
}

// PairPredicates returns every predicate p with <s> p <o> in the knowledge base.
func (e *Enricher) PairPredicates(ctx context.Context, s, o string) QueryResult {
	query, err := PairPredicatesQuery(s, o)
	if err != nil {
		return e.fallback("pair_predicates", s, err)
	}
	return e.selectValues(ctx, "pair_predicates", s, query, "predicate", 0)
}

// Types returns at most TypeLimit rdf:type objects of iri.
func (e *Enricher) Types(ctx context.Context, iri string) QueryResult {
	query, err := TypesQuery(iri, e.opts.TypeLimit)
	if err != nil {
		return e.fallback("types", iri, err)
	}
	return e.selectValues(ctx, "types", iri, query, "type", e.opts.TypeLimit)
}

func (e *Enricher) selectValues(ctx context.Context, kind, iri, query, variable string, limit int) QueryResult {
	rows, err := e.kb.Select(ctx, query)
	if err != nil {
		return e.fallback(kind, iri, err)
	}

	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if v, ok := row[variable]; ok && v != "" {
			values = append(values, v)
		}
		if limit > 0 && len(values) == limit {
			break
		}
	}
	if len(values) == 0 {
		e.logger.Debug("No enrichment results",
			zap.String("query_kind", kind),
			zap.String("iri", iri),
		)
	}
	return QueryResult{Values: values}
}

func (e *Enricher) fallback(kind, iri string, err error) QueryResult {
	e.logger.Warn("Knowledge-base query failed, keeping original triple",
		zap.String("query_kind", kind),
		zap.String("iri", iri),
		zap.Error(err),
	)
	return QueryResult{FellBack: true, Err: err}
}

// PairPredicatesQuery builds the "all predicates connecting s to o" query.
func PairPredicatesQuery(s, o string) (string, error) {
	if err := checkIRI(s); err != nil {
		return "", err
	}
	if err := checkIRI(o); err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT DISTINCT ?predicate\nWHERE {\n  <%s> ?predicate <%s> .\n}", s, o), nil
}

// TypesQuery builds the "rdf:type objects of iri" query.
func TypesQuery(iri string, limit int) (string, error) {
	if err := checkIRI(iri); err != nil {
		return "", err
	}
	if limit <= 0 {
		limit = DefaultTypeLimit
	}
	return fmt.Sprintf("PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>\nSELECT ?type\nWHERE {\n  <%s> rdf:type ?type .\n}\nLIMIT %d", iri, limit), nil
}

// checkIRI rejects characters that cannot appear inside <...> in SPARQL.
func checkIRI(iri string) error {
	if iri == "" {
		return fmt.Errorf("empty IRI")
	}
	if i := strings.IndexAny(iri, "<>\"{}|^`\\ \t\n"); i >= 0 {
		return fmt.Errorf("IRI %q contains %q", iri, iri[i])
	}
	return nil
}
