// Package pipeline runs one extraction end to end: coreference rewrite, tag-stream
// generation, parsing, URI resolution, enrichment, assembly and export.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/export"
	"kg-extractor/backend/internal/rdf"
	"kg-extractor/backend/internal/resolver"
	"kg-extractor/backend/internal/triplet"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

// Generator produces a tagged triplet stream for a text.
type Generator interface {
	GenerateTriplets(ctx context.Context, text string) (string, error)
}

// CorefResolver rewrites a text with referring expressions replaced by their
// antecedents.
type CorefResolver interface {
	ResolveCoreferences(ctx context.Context, text string) (string, error)
}

// TripleBuilder converts parsed triplets to RDF triples.
type TripleBuilder interface {
	BuildWithResolutions(ctx context.Context, triplets []triplet.Triplet) ([]rdf.Triple, resolver.Map)
}

// GraphEnricher augments triples from a knowledge base.
type GraphEnricher interface {
	Enrich(ctx context.Context, triples []rdf.Triple) []rdf.Triple
}

// GraphExporter renders and persists an assembled graph.
type GraphExporter interface {
	Export(ctx context.Context, g *rdf.Graph, name string) (*export.Result, error)
	Persist(ctx context.Context, runID string, g *rdf.Graph) error
}

// Options control a single run.
type Options struct {
	// SkipCoref sends the text to generation as is
	SkipCoref bool
	// Render exports an image named GraphName (the run ID when empty)
	Render    bool
	GraphName string
	// Persist hands the graph to the exporter's store
	Persist bool
}

// Result carries every intermediate product of a run.
type Result struct {
	RunID        string            `json:"run_id"`
	Text         string            `json:"text"`
	ResolvedText string            `json:"resolved_text"`
	Stream       string            `json:"stream"`
	Triplets     []triplet.Triplet `json:"triplets"`
	Resolutions  resolver.Map      `json:"resolutions"`
	RDFTriples   []rdf.Triple      `json:"rdf_triples"`
	Enriched     []rdf.Triple      `json:"enriched"`
	Graph        *rdf.Graph        `json:"-"`
	ImagePath    string            `json:"image_path,omitempty"`
	Duration     time.Duration     `json:"duration"`
}

// Pipeline wires the extraction stages. Generation and building are required;
// coreference, enrichment and export are optional.
type Pipeline struct {
	generator Generator
	coref     CorefResolver
	parser    *triplet.Parser
	builder   TripleBuilder
	enricher  GraphEnricher
	exporter  GraphExporter
	ns        rdf.Namespaces
	logger    *zap.Logger
}

// New creates a pipeline using the REBEL tag vocabulary.
func New(generator Generator, builder TripleBuilder) *Pipeline {
	return &Pipeline{
		generator: generator,
		parser:    triplet.NewParser(triplet.REBEL),
		builder:   builder,
		ns:        rdf.DefaultNamespaces,
		logger:    logger.Get(),
	}
}

func (p *Pipeline) WithCoref(c CorefResolver) *Pipeline {
	p.coref = c
	return p
}

func (p *Pipeline) WithEnricher(e GraphEnricher) *Pipeline {
	p.enricher = e
	return p
}

func (p *Pipeline) WithExporter(e GraphExporter) *Pipeline {
	p.exporter = e
	return p
}

func (p *Pipeline) WithParser(parser *triplet.Parser) *Pipeline {
	p.parser = parser
	return p
}

// WithNamespaces sets the namespaces the graph is assembled under.
func (p *Pipeline) WithNamespaces(ns rdf.Namespaces) *Pipeline {
	p.ns = ns
	return p
}

func (p *Pipeline) WithLogger(l *zap.Logger) *Pipeline {
	p.logger = l
	return p
}

var newlineFolder = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Normalize folds newlines to spaces and trims the text.
func Normalize(text string) string {
	return strings.TrimSpace(newlineFolder.Replace(text))
}

// Run extracts a graph from text. Blank text returns errors.ErrEmptyText before any
// collaborator is called. A failing coreference step is logged and the original
// text is used; a failing generation step aborts the run. Export and persistence
// errors are returned together with the otherwise complete result.
func (p *Pipeline) Run(ctx context.Context, text string, opts Options) (*Result, error) {
	start := time.Now()
	text = Normalize(text)
	if text == "" {
		return nil, kgerrors.ErrEmptyText
	}

	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))
	log.Info("Extraction started", zap.Int("text_len", len(text)))

	res := &Result{RunID: runID, Text: text, ResolvedText: text}

	if p.coref != nil && !opts.SkipCoref {
		resolved, err := p.coref.ResolveCoreferences(ctx, text)
		if err != nil {
			log.Warn("Coreference resolution failed, using original text", zap.Error(err))
		} else if resolved = Normalize(resolved); resolved != "" {
			res.ResolvedText = resolved
		}
	}

	stream, err := p.generator.GenerateTriplets(ctx, res.ResolvedText)
	if err != nil {
		return nil, fmt.Errorf("failed to generate triplets: %w", err)
	}
	res.Stream = stream

	res.Triplets = p.parser.Parse(stream)
	res.RDFTriples, res.Resolutions = p.builder.BuildWithResolutions(ctx, res.Triplets)

	res.Enriched = res.RDFTriples
	if p.enricher != nil {
		res.Enriched = p.enricher.Enrich(ctx, res.RDFTriples)
	}
	res.Graph = p.ns.Assemble(res.Enriched)

	log.Info("Graph assembled",
		zap.Int("triplets", len(res.Triplets)),
		zap.Int("rdf_triples", len(res.RDFTriples)),
		zap.Int("enriched", len(res.Enriched)),
		zap.Int("graph", res.Graph.Len()),
	)

	err = p.export(ctx, res, opts)
	res.Duration = time.Since(start)
	return res, err
}

func (p *Pipeline) export(ctx context.Context, res *Result, opts Options) error {
	if p.exporter == nil {
		return nil
	}
	if opts.Render {
		name := opts.GraphName
		if strings.TrimSpace(name) == "" {
			name = res.RunID
		}
		out, err := p.exporter.Export(ctx, res.Graph, name)
		if err != nil {
			return fmt.Errorf("failed to export graph: %w", err)
		}
		res.ImagePath = out.ImagePath
	}
	if opts.Persist {
		if err := p.exporter.Persist(ctx, res.RunID, res.Graph); err != nil {
			return err
		}
	}
	return nil
}
