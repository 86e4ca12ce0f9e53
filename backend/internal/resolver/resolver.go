// Package resolver maps mention text to canonical knowledge-base IRIs.
package resolver

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

// Lookup finds the canonical page identifier for a candidate name. Implementations
// return *errors.ErrLookupNotFound, *errors.ErrLookupAmbiguous or any other error
// on failure; the resolver treats them all the same.
type Lookup interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, name string) (string, error)

func (f LookupFunc) Lookup(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// Resolution is the outcome for one mention. Value is an external IRI on success and
// the mention text unchanged when the lookup fell back.
type Resolution struct {
	Mention  string `json:"mention"`
	Value    string `json:"value"`
	FellBack bool   `json:"fell_back"`
	Err      error  `json:"-"`
}

// Map is the per-batch mention to resolution table. It is built once for a batch
// and never persisted.
type Map map[string]Resolution

// Value returns the resolved form of mention, or the mention itself if it was never
// resolved.
func (m Map) Value(mention string) string {
	if res, ok := m[mention]; ok {
		return res.Value
	}
	return mention
}

// Resolver resolves mentions one lookup at a time, with no caching across calls.
type Resolver struct {
	lookup Lookup
	ns     rdf.Namespaces
	logger *zap.Logger
}

// New creates a resolver.
func New(lookup Lookup, ns rdf.Namespaces) *Resolver {
	return &Resolver{
		lookup: lookup,
		ns:     ns,
		logger: logger.Get(),
	}
}

// WithLogger replaces the resolver's logger.
func (r *Resolver) WithLogger(l *zap.Logger) *Resolver {
	r.logger = l
	return r
}

// Resolve issues exactly one lookup per distinct mention, sequentially.
func (r *Resolver) Resolve(ctx context.Context, mentions map[string]struct{}) Map {
	names := make([]string, 0, len(mentions))
	for m := range mentions {
		names = append(names, m)
	}
	// Order has no effect on the result, sorting just keeps the logs readable
	slices.Sort(names)

	out := make(Map, len(names))
	fellBack := 0
	for _, name := range names {
		res := r.ResolveOne(ctx, name)
		if res.FellBack {
			fellBack++
		}
		out[name] = res
	}

	r.logger.Debug("Resolved mentions",
		zap.Int("mentions", len(names)),
		zap.Int("fell_back", fellBack),
	)
	return out
}

// ResolveOne resolves a single mention. Any lookup failure falls back to the mention
// text; the error is kept on the result and logged, never returned.
func (r *Resolver) ResolveOne(ctx context.Context, mention string) Resolution {
	pageID, err := r.lookup.Lookup(ctx, mention)
	if err == nil && pageID == "" {
		err = kgerrors.NewLookupNotFound(mention)
	}
	if err != nil {
		r.logFallback(mention, err)
		return Resolution{Mention: mention, Value: mention, FellBack: true, Err: err}
	}

	return Resolution{
		Mention: mention,
		Value:   r.ns.ExternalFromPage(pageID).Value,
	}
}

func (r *Resolver) logFallback(mention string, err error) {
	var notFound *kgerrors.ErrLookupNotFound
	var ambiguous *kgerrors.ErrLookupAmbiguous
	switch {
	case errors.As(err, &notFound):
		r.logger.Debug("No page for mention, keeping text", zap.String("mention", mention))
	case errors.As(err, &ambiguous):
		r.logger.Debug("Ambiguous mention, keeping text",
			zap.String("mention", mention),
			zap.Int("options", len(ambiguous.Options)),
		)
	default:
		r.logger.Warn("Lookup failed, keeping text",
			zap.String("mention", mention),
			zap.Error(err),
		)
	}
}
