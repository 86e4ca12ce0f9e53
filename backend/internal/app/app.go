// Package app wires configuration into a ready-to-run extraction pipeline. Both
// the HTTP server and the CLI build on it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/adapter"
	"kg-extractor/backend/internal/builder"
	"kg-extractor/backend/internal/enrich"
	"kg-extractor/backend/internal/eval"
	"kg-extractor/backend/internal/export"
	"kg-extractor/backend/internal/graph"
	"kg-extractor/backend/internal/pipeline"
	"kg-extractor/backend/internal/rdf"
	"kg-extractor/backend/internal/resolver"
	"kg-extractor/backend/pkg/config"
	"kg-extractor/backend/pkg/logger"
)

// Comparator modes accepted by Evaluator.
const (
	CompareLexical   = "lexical"
	CompareEmbedding = "embedding"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config     *config.Config
	Namespaces rdf.Namespaces
	LLM        *adapter.LLMAdapter
	Renderer   *export.GraphvizRenderer
	Exporter   *export.Exporter
	Pipeline   *pipeline.Pipeline
	Repository *graph.Repository // nil unless Neo4j is enabled

	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New builds every collaborator from cfg. Neo4j is connected only when enabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Get()
	ns := rdf.Namespaces{
		External: cfg.ExternalNamespace,
		Local:    cfg.LocalNamespace,
	}

	llm := adapter.NewLLMAdapter(cfg.LiteLLMURL, cfg.OpenRouterAPIKey, cfg.ModelID, cfg.CorefModelID).
		WithEmbeddingModel(cfg.EmbeddingModelID)
	lookup := adapter.NewWikipediaLookup(cfg.WikipediaURL, cfg.HTTPTimeout)
	kb := adapter.NewSPARQLClient(cfg.SPARQLEndpoint, cfg.HTTPTimeout)

	renderer := export.NewGraphvizRenderer(cfg.DotBinary, ns)
	exporter := export.NewExporter(renderer, cfg.GraphOutputDir)

	a := &App{
		Config:     cfg,
		Namespaces: ns,
		LLM:        llm,
		Renderer:   renderer,
		Exporter:   exporter,
		logger:     log,
	}

	if cfg.Neo4jEnabled {
		driver, err := graph.Connect(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
		if err != nil {
			return nil, err
		}
		a.driver = driver
		a.Repository = graph.NewRepository(driver, ns)
		if err := a.Repository.EnsureSchema(ctx); err != nil {
			log.Warn("Failed to ensure graph schema", zap.Error(err))
		}
		exporter.WithStore(a.Repository)
		log.Info("Neo4j persistence enabled", zap.String("uri", cfg.Neo4jURI))
	}

	a.Pipeline = pipeline.New(llm, builder.New(resolver.New(lookup, ns), ns)).
		WithCoref(llm).
		WithEnricher(enrich.New(kb, ns, enrichOptions(cfg))).
		WithExporter(exporter).
		WithNamespaces(ns)

	return a, nil
}

func enrichOptions(cfg *config.Config) enrich.Options {
	return enrich.Options{
		TypeLimit:                cfg.TypeLimit,
		KeepSubjectOnlyOriginals: cfg.KeepOriginals,
	}
}

// Evaluator returns an evaluator using the named comparator.
func (a *App) Evaluator(mode string) (*eval.Evaluator, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", CompareLexical:
		return eval.NewEvaluator(eval.LexicalComparator{}), nil
	case CompareEmbedding:
		return eval.NewEvaluator(eval.NewEmbeddingComparator(a.LLM, eval.DefaultSimilarityThreshold)), nil
	}
	return nil, fmt.Errorf("unknown comparator %q (want %s or %s)", mode, CompareLexical, CompareEmbedding)
}

// Close releases the Neo4j driver, if any.
func (a *App) Close(ctx context.Context) error {
	if a.driver == nil {
		return nil
	}
	return a.driver.Close(ctx)
}
