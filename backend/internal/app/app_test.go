package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kg-extractor/backend/internal/enrich"
	"kg-extractor/backend/internal/eval"
	"kg-extractor/backend/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Env:               "test",
		LiteLLMURL:        "http://127.0.0.1:0",
		ModelID:           "m",
		CorefModelID:      "c",
		EmbeddingModelID:  "e",
		WikipediaURL:      "http://127.0.0.1:0",
		SPARQLEndpoint:    "http://127.0.0.1:0/sparql",
		ExternalNamespace: "http://dbpedia.org/resource/",
		LocalNamespace:    "http://example.org/",
		TypeLimit:         10,
		HTTPTimeout:       time.Second,
		GraphOutputDir:    "",
		DotBinary:         "dot",
	}
}

func TestNew_WithoutNeo4j(t *testing.T) {
	a, err := New(context.Background(), testConfig())

	require.NoError(t, err)
	assert.NotNil(t, a.Pipeline)
	assert.Nil(t, a.Repository)
	assert.Equal(t, "http://example.org/", a.Namespaces.Local)
	assert.NoError(t, a.Close(context.Background()))
}

func TestEnrichOptions(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, enrich.Options{TypeLimit: 10}, enrichOptions(cfg))

	cfg.TypeLimit = 3
	cfg.KeepOriginals = true
	assert.Equal(t, enrich.Options{TypeLimit: 3, KeepSubjectOnlyOriginals: true}, enrichOptions(cfg))
}

func TestEvaluator_Modes(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)

	for _, mode := range []string{"", "lexical", "Embedding"} {
		e, err := a.Evaluator(mode)
		require.NoError(t, err, mode)
		assert.NotNil(t, e)
	}

	_, err = a.Evaluator("bleu")
	assert.Error(t, err)
}

func TestEvaluator_LexicalScores(t *testing.T) {
	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	e, err := a.Evaluator(CompareLexical)
	require.NoError(t, err)

	ref, err := eval.LoadReference(strings.NewReader("- [Bill, occupation, doctor]\n"))
	require.NoError(t, err)
	m, err := e.Evaluate(context.Background(), ref, ref)

	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.F1, 1e-9)
}
