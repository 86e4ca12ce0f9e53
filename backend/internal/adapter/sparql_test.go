package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kg-extractor/backend/internal/enrich"
	"kg-extractor/backend/internal/rdf"
	kgerrors "kg-extractor/backend/pkg/errors"
)

func TestSPARQLClient_Select(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", sparqlResultsJSON)
		_, _ = w.Write([]byte(`{
			"head": {"vars": ["type"]},
			"results": {"bindings": [
				{"type": {"type": "uri", "value": "http://dbpedia.org/ontology/Place"}},
				{"type": {"type": "uri", "value": "http://www.w3.org/2002/07/owl#Thing"}}
			]}
		}`))
	}))
	defer srv.Close()

	query, err := enrich.TypesQuery("http://dbpedia.org/resource/Versailles", 10)
	require.NoError(t, err)

	rows, err := NewSPARQLClient(srv.URL, 5*time.Second).Select(context.Background(), query)

	require.NoError(t, err)
	assert.Equal(t, query, gotQuery)
	assert.Equal(t, sparqlResultsJSON, gotAccept)
	assert.Equal(t, []enrich.Binding{
		{"type": "http://dbpedia.org/ontology/Place"},
		{"type": "http://www.w3.org/2002/07/owl#Thing"},
	}, rows)
}

func TestSPARQLClient_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head":{"vars":["predicate"]},"results":{"bindings":[]}}`))
	}))
	defer srv.Close()

	rows, err := NewSPARQLClient(srv.URL, 5*time.Second).Select(context.Background(), "SELECT ?predicate WHERE {}")

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSPARQLClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Virtuoso 37000 Error SP030: SPARQL compiler", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewSPARQLClient(srv.URL, 5*time.Second).Select(context.Background(), "SELECT")

	var failed *kgerrors.ErrSPARQLQueryFailed
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, http.StatusBadRequest, failed.StatusCode)
	assert.False(t, kgerrors.IsRetryable(err))
}

func TestSPARQLClient_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := NewSPARQLClient(srv.URL, 5*time.Second).Select(context.Background(), "SELECT")

	assert.True(t, kgerrors.IsErrorType(err, kgerrors.ErrorTypeSPARQL))
}

func TestSPARQLClient_DrivesEnricher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"head":{"vars":["predicate"]},"results":{"bindings":[
			{"predicate":{"type":"uri","value":"http://dbpedia.org/ontology/country"}}
		]}}`))
	}))
	defer srv.Close()

	e := enrich.New(NewSPARQLClient(srv.URL, 5*time.Second), rdf.DefaultNamespaces, enrich.Options{})
	res := e.PairPredicates(context.Background(), "http://dbpedia.org/resource/Yvelines", "http://dbpedia.org/resource/France")

	assert.False(t, res.FellBack)
	assert.Equal(t, []string{"http://dbpedia.org/ontology/country"}, res.Values)
}
