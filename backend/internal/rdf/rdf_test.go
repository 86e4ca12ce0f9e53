package rdf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Paris-Saclay University", "Paris_Saclay_University"},
		{"Saint-Quentin-en-Yvelines", "Saint_Quentin_en_Yvelines"},
		{"Côte d'Ivoire", "Côte_dIvoire"},
		{"  Bill  ", "Bill"},
		{"Higüey", "Higüey"},
		{`Dwayne "The Rock" Johnson`, "Dwayne_%22The_Rock%22_Johnson"},
		{"Foo<Bar>", "Foo%3CBar%3E"},
		{`a{b}|c^d` + "`e\\f", "a%7Bb%7D%7Cc%5Ed%60e%5Cf"},
		{"100%", "100%25"},
		{"tab\there", "tab%09here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LocalName(tt.in), tt.in)
	}
}

func TestNamespaces_Classify(t *testing.T) {
	ns := DefaultNamespaces

	assert.Equal(t, External("http://dbpedia.org/resource/Paris"), ns.Classify("http://dbpedia.org/resource/Paris"))
	assert.Equal(t, Local("http://example.org/Bill"), ns.Classify("http://example.org/Bill"))
	assert.Equal(t, URI("http://dbpedia.org/ontology/City"), ns.Classify("http://dbpedia.org/ontology/City"))
	assert.Equal(t, Literal("1991"), ns.Classify("1991"))
}

func TestNamespaces_ExternalFromPage(t *testing.T) {
	ns := DefaultNamespaces

	assert.Equal(t, "http://dbpedia.org/resource/Paris_Saclay_University",
		ns.ExternalFromPage("https://en.wikipedia.org/wiki/Paris_Saclay_University").Value)
	assert.Equal(t, "http://dbpedia.org/resource/Versailles",
		ns.ExternalFromPage("Versailles").Value)
}

func TestNamespaces_Predicate(t *testing.T) {
	ns := DefaultNamespaces

	assert.Equal(t, Relation("instance of"), ns.Predicate("instance of"))
	assert.Equal(t, URI(RDFType), ns.Predicate(RDFType))
	assert.Equal(t, "http://example.org/instance_of", ns.PredicateIRI(Relation("instance of")))
	assert.Equal(t, RDFType, ns.PredicateIRI(URI(RDFType)))
}

func TestNamespaces_ShortName(t *testing.T) {
	ns := DefaultNamespaces

	assert.Equal(t, "dbr:Paris", ns.ShortName("http://dbpedia.org/resource/Paris"))
	assert.Equal(t, "ex:Bill", ns.ShortName("http://example.org/Bill"))
	assert.Equal(t, "rdf:type", ns.ShortName(RDFType))
	assert.Equal(t, "country", ns.ShortName("http://dbpedia.org/ontology/country"))
}

func TestNewTriple_RejectsLiteralPredicate(t *testing.T) {
	_, err := NewTriple(Local("http://example.org/a"), Literal("p"), Literal("o"))
	assert.Error(t, err)

	tr, err := NewTriple(Local("http://example.org/a"), Relation("p"), Literal("o"))
	require.NoError(t, err)
	assert.Equal(t, "p", tr.Predicate.Value)
}

func TestAssemble_CollapsesDuplicates(t *testing.T) {
	a := Triple{External("http://dbpedia.org/resource/A"), Relation("instance of"), External("http://dbpedia.org/resource/B")}
	b := Triple{External("http://dbpedia.org/resource/A"), URI(RDFType), URI("http://dbpedia.org/ontology/Place")}

	g := Assemble([]Triple{a, b, a, a, b})

	assert.Equal(t, 2, g.Len())
	assert.ElementsMatch(t, []Triple{a, b}, g.Triples())
	assert.False(t, g.Add(a))
}

func TestAssemble_KindIsPartOfIdentity(t *testing.T) {
	lit := Triple{Local("http://example.org/A"), Relation("r"), Literal("http://example.org/B")}
	iri := Triple{Local("http://example.org/A"), Relation("r"), Local("http://example.org/B")}

	assert.Equal(t, 2, Assemble([]Triple{lit, iri}).Len())
}

func TestGraph_TriplesSorted(t *testing.T) {
	g := Assemble([]Triple{
		{Local("http://example.org/b"), Relation("r"), Literal("x")},
		{Local("http://example.org/a"), Relation("r"), Literal("y")},
		{Local("http://example.org/a"), Relation("q"), Literal("z")},
	})

	got := g.Triples()
	require.Len(t, got, 3)
	assert.Equal(t, "q", got[0].Predicate.Value)
	assert.Equal(t, "http://example.org/a", got[1].Subject.Value)
	assert.Equal(t, "http://example.org/b", got[2].Subject.Value)
}

func TestNamespaces_Canonical(t *testing.T) {
	ns := DefaultNamespaces

	got := ns.Canonical(Triple{Local("http://example.org/Bill"), Relation("birth place"), Relation("Seattle")})
	assert.Equal(t, Triple{Local("http://example.org/Bill"), Local("http://example.org/birth_place"), Literal("Seattle")}, got)

	got = ns.Canonical(Triple{URI("http://dbpedia.org/resource/Paris"), URI(RDFType), External("http://dbpedia.org/ontology/City")})
	assert.Equal(t, Triple{External("http://dbpedia.org/resource/Paris"), URI(RDFType), URI("http://dbpedia.org/ontology/City")}, got)
}

func TestNamespaces_AssembleCollapsesSerializedDuplicates(t *testing.T) {
	ns := DefaultNamespaces
	bill := Local("http://example.org/Bill")
	triples := []Triple{
		{bill, Relation("birth place"), Literal("Seattle")},
		{bill, Local("http://example.org/birth_place"), Literal("Seattle")},
		{bill, Relation("birth place"), Local("http://example.org/Seattle")},
	}

	assert.Equal(t, 3, Assemble(triples).Len())

	g := ns.Assemble(triples)
	assert.Equal(t, 2, g.Len())
	for _, tr := range g.Triples() {
		assert.Equal(t, KindLocal, tr.Predicate.Kind)
	}
}

func TestTerm_JSONUsesKindNames(t *testing.T) {
	data, err := json.Marshal(Local("http://example.org/Bill"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"local","value":"http://example.org/Bill"}`, string(data))

	var term Term
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"external","value":"x"}`), &term))
	assert.Equal(t, KindExternal, term.Kind)
}
