package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
)

const (
	dbrA = "http://dbpedia.org/resource/A"
	dbrB = "http://dbpedia.org/resource/B"
	p1   = "http://dbpedia.org/ontology/p1"
	p2   = "http://dbpedia.org/ontology/p2"
)

// fakeKB answers pair and type queries from tables and records every query
type fakeKB struct {
	pairs   map[[2]string][]string
	types   map[string][]string
	failAll bool
	queries []string
}

func (f *fakeKB) Select(ctx context.Context, query string) ([]Binding, error) {
	f.queries = append(f.queries, query)
	if f.failAll {
		return nil, errors.New("endpoint unavailable")
	}

	var rows []Binding
	if strings.Contains(query, "?predicate") {
		for pair, preds := range f.pairs {
			if strings.Contains(query, "<"+pair[0]+"> ?predicate <"+pair[1]+">") {
				for _, p := range preds {
					rows = append(rows, Binding{"predicate": p})
				}
			}
		}
		return rows, nil
	}
	for iri, types := range f.types {
		if strings.Contains(query, "<"+iri+"> rdf:type") {
			for _, ty := range types {
				rows = append(rows, Binding{"type": ty})
			}
		}
	}
	return rows, nil
}

func newTestEnricher(kb KnowledgeBase, opts Options) *Enricher {
	return New(kb, rdf.DefaultNamespaces, opts).WithLogger(zap.NewNop())
}

func TestEnrich_PairPredicatesUnionWithOriginal(t *testing.T) {
	kb := &fakeKB{pairs: map[[2]string][]string{{dbrA, dbrB}: {p1, p2}}}
	original := rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.Relation("instance of"), Object: rdf.External(dbrB)}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})

	assert.Equal(t, []rdf.Triple{
		{Subject: rdf.External(dbrA), Predicate: rdf.URI(p1), Object: rdf.External(dbrB)},
		{Subject: rdf.External(dbrA), Predicate: rdf.URI(p2), Object: rdf.External(dbrB)},
		original,
	}, got)
}

func TestEnrich_PairWithoutPredicatesKeepsOriginal(t *testing.T) {
	kb := &fakeKB{}
	original := rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.Relation("r"), Object: rdf.External(dbrB)}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})

	assert.Equal(t, []rdf.Triple{original}, got)
	assert.Len(t, kb.queries, 3)
}

func TestEnrich_TypesForBothEndpoints(t *testing.T) {
	kb := &fakeKB{types: map[string][]string{
		dbrA: {"http://dbpedia.org/ontology/Place"},
		dbrB: {"http://dbpedia.org/ontology/Country", "http://www.w3.org/2002/07/owl#Thing"},
	}}
	original := rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.Relation("country"), Object: rdf.External(dbrB)}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})

	require.Len(t, got, 4)
	assert.Equal(t, original, got[0])
	assert.Equal(t, rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.URI(rdf.RDFType), Object: rdf.URI("http://dbpedia.org/ontology/Place")}, got[1])
	assert.Equal(t, rdf.External(dbrB), got[2].Subject)
	assert.Equal(t, rdf.External(dbrB), got[3].Subject)
}

func TestEnrich_NonExternalTriplesUnchanged(t *testing.T) {
	kb := &fakeKB{}
	in := []rdf.Triple{
		{Subject: rdf.Local("http://example.org/Bill"), Predicate: rdf.Relation("occupation"), Object: rdf.Literal("doctor")},
		{Subject: rdf.Local("http://example.org/A"), Predicate: rdf.Relation("r"), Object: rdf.Local("http://example.org/B")},
	}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), in)

	assert.Equal(t, in, got)
	assert.Empty(t, kb.queries)
}

func TestEnrich_LocalSubjectExternalObject(t *testing.T) {
	kb := &fakeKB{types: map[string][]string{dbrB: {"http://dbpedia.org/ontology/Country"}}}
	original := rdf.Triple{Subject: rdf.Local("http://example.org/Bill"), Predicate: rdf.Relation("citizenship"), Object: rdf.External(dbrB)}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})

	require.Len(t, got, 2)
	assert.Equal(t, rdf.External(dbrB), got[0].Subject)
	assert.Equal(t, original, got[1])
}

// An external subject with a non-external object keeps only the subject's type
// triples; the original is not re-appended.
func TestEnrich_ExternalSubjectLiteralObjectDropsOriginal(t *testing.T) {
	kb := &fakeKB{types: map[string][]string{dbrA: {"http://dbpedia.org/ontology/University"}}}
	original := rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.Relation("inception"), Object: rdf.Literal("1991")}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})

	require.Len(t, got, 1)
	assert.Equal(t, rdf.URI(rdf.RDFType), got[0].Predicate)
	assert.NotContains(t, got, original)

	kb.types = nil
	got = newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})
	assert.Empty(t, got)
}

func TestEnrich_KeepSubjectOnlyOriginals(t *testing.T) {
	kb := &fakeKB{}
	original := rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.Relation("inception"), Object: rdf.Literal("1991")}

	got := newTestEnricher(kb, Options{KeepSubjectOnlyOriginals: true}).Enrich(context.Background(), []rdf.Triple{original})

	assert.Equal(t, []rdf.Triple{original}, got)
}

func TestEnrich_QueryFailureDegrades(t *testing.T) {
	kb := &fakeKB{failAll: true}
	original := rdf.Triple{Subject: rdf.External(dbrA), Predicate: rdf.Relation("r"), Object: rdf.External(dbrB)}

	got := newTestEnricher(kb, Options{}).Enrich(context.Background(), []rdf.Triple{original})

	assert.Equal(t, []rdf.Triple{original}, got)
}

func TestQueryResult_DistinguishesFailureFromEmpty(t *testing.T) {
	e := newTestEnricher(&fakeKB{}, Options{})
	empty := e.PairPredicates(context.Background(), dbrA, dbrB)
	assert.False(t, empty.FellBack)
	assert.NoError(t, empty.Err)
	assert.Empty(t, empty.Values)

	e = newTestEnricher(&fakeKB{failAll: true}, Options{})
	failed := e.PairPredicates(context.Background(), dbrA, dbrB)
	assert.True(t, failed.FellBack)
	assert.Error(t, failed.Err)
	assert.Empty(t, failed.Values)
}

func TestTypes_CappedAtLimit(t *testing.T) {
	var many []string
	for i := 0; i < 25; i++ {
		many = append(many, "http://dbpedia.org/ontology/T"+string(rune('a'+i)))
	}
	kb := &fakeKB{types: map[string][]string{dbrA: many}}

	res := newTestEnricher(kb, Options{}).Types(context.Background(), dbrA)

	assert.Len(t, res.Values, DefaultTypeLimit)
	require.Len(t, kb.queries, 1)
	assert.Contains(t, kb.queries[0], "LIMIT 10")
}

func TestQueries_RejectUnsafeIRIs(t *testing.T) {
	_, err := PairPredicatesQuery(dbrA, "http://dbpedia.org/resource/B> } DROP ALL {")
	assert.Error(t, err)

	_, err = TypesQuery("", 10)
	assert.Error(t, err)

	q, err := TypesQuery(dbrA, 0)
	require.NoError(t, err)
	assert.Contains(t, q, "<"+dbrA+"> rdf:type ?type")
	assert.Contains(t, q, "LIMIT 10")

	res := newTestEnricher(&fakeKB{}, Options{}).Types(context.Background(), "not an iri")
	assert.True(t, res.FellBack)
}
