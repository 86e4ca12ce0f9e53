// Package builder turns mention-level triplets into RDF triples.
package builder

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	"kg-extractor/backend/internal/resolver"
	"kg-extractor/backend/internal/triplet"
	"kg-extractor/backend/pkg/logger"
)

// MentionResolver resolves a batch of distinct mentions in one pass.
type MentionResolver interface {
	Resolve(ctx context.Context, mentions map[string]struct{}) resolver.Map
}

// Builder converts triplets to triples. Subjects always become IRIs; objects become
// IRIs only when they resolve externally or also occur as a head in the batch, and
// stay literals otherwise (dates, counts, free text).
type Builder struct {
	resolver MentionResolver
	ns       rdf.Namespaces
	logger   *zap.Logger
}

// New creates a builder.
func New(r MentionResolver, ns rdf.Namespaces) *Builder {
	return &Builder{
		resolver: r,
		ns:       ns,
		logger:   logger.Get(),
	}
}

// WithLogger replaces the builder's logger.
func (b *Builder) WithLogger(l *zap.Logger) *Builder {
	b.logger = l
	return b
}

// Build emits one triple per triplet, in order.
func (b *Builder) Build(ctx context.Context, triplets []triplet.Triplet) []rdf.Triple {
	triples, _ := b.BuildWithResolutions(ctx, triplets)
	return triples
}

// BuildWithResolutions is Build that also returns the batch's resolution map.
func (b *Builder) BuildWithResolutions(ctx context.Context, triplets []triplet.Triplet) ([]rdf.Triple, resolver.Map) {
	if len(triplets) == 0 {
		return []rdf.Triple{}, resolver.Map{}
	}

	resolved := b.resolver.Resolve(ctx, triplet.Mentions(triplets))
	subjects := triplet.Heads(triplets)

	out := make([]rdf.Triple, 0, len(triplets))
	for _, t := range triplets {
		out = append(out, rdf.Triple{
			Subject:   b.subject(resolved.Value(t.Head)),
			Predicate: b.ns.Predicate(t.Relation),
			Object:    b.object(t.Tail, resolved.Value(t.Tail), subjects),
		})
	}

	b.logger.Debug("Built RDF triples",
		zap.Int("triplets", len(triplets)),
		zap.Int("subjects", len(subjects)),
	)
	return out, resolved
}

func (b *Builder) subject(value string) rdf.Term {
	if b.ns.IsExternal(value) {
		return rdf.External(value)
	}
	return b.ns.Mint(value)
}

func (b *Builder) object(raw, value string, subjects map[string]struct{}) rdf.Term {
	if b.ns.IsExternal(value) {
		return rdf.External(value)
	}
	if _, isSubject := subjects[value]; isSubject && !strings.HasPrefix(value, "http") {
		return b.ns.Mint(value)
	}
	return rdf.Literal(raw)
}
