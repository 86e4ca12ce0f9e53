package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	kgerrors "kg-extractor/backend/pkg/errors"
)

// fakeLookup answers from a table and counts calls per name
type fakeLookup struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls map[string]int
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		pages: make(map[string]string),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeLookup) Lookup(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	if err, ok := f.errs[name]; ok {
		return "", err
	}
	if page, ok := f.pages[name]; ok {
		return page, nil
	}
	return "", kgerrors.NewLookupNotFound(name)
}

func newTestResolver(l Lookup) *Resolver {
	return New(l, rdf.DefaultNamespaces).WithLogger(zap.NewNop())
}

func TestResolveOne_Success(t *testing.T) {
	lookup := newFakeLookup()
	lookup.pages["Paris"] = "https://en.wikipedia.org/wiki/Paris"

	res := newTestResolver(lookup).ResolveOne(context.Background(), "Paris")

	assert.False(t, res.FellBack)
	assert.NoError(t, res.Err)
	assert.Equal(t, "http://dbpedia.org/resource/Paris", res.Value)
}

func TestResolveOne_FallsBackOnEveryFailure(t *testing.T) {
	lookup := newFakeLookup()
	lookup.errs["Mercury"] = kgerrors.NewLookupAmbiguous("Mercury", []string{"Mercury (planet)", "Mercury (element)"})
	lookup.errs["Flaky"] = kgerrors.NewLookupFailed("Flaky", errors.New("connection reset"))
	lookup.errs["Weird"] = errors.New("anything else")

	r := newTestResolver(lookup)
	for _, name := range []string{"Paris-Saclay University", "Mercury", "Flaky", "Weird"} {
		res := r.ResolveOne(context.Background(), name)
		assert.True(t, res.FellBack, name)
		assert.Error(t, res.Err, name)
		assert.Equal(t, name, res.Value, name)
	}
}

func TestResolveOne_EmptyPageIsNotFound(t *testing.T) {
	lookup := LookupFunc(func(ctx context.Context, name string) (string, error) {
		return "", nil
	})

	res := newTestResolver(lookup).ResolveOne(context.Background(), "Nowhere")

	assert.True(t, res.FellBack)
	assert.True(t, kgerrors.IsErrorType(res.Err, kgerrors.ErrorTypeLookup))
}

func TestResolve_OneLookupPerDistinctMention(t *testing.T) {
	lookup := newFakeLookup()
	lookup.pages["Versailles"] = "https://en.wikipedia.org/wiki/Versailles"

	mentions := map[string]struct{}{
		"Versailles": {},
		"Yvelines":   {},
		"1991":       {},
	}
	got := newTestResolver(lookup).Resolve(context.Background(), mentions)

	require.Len(t, got, 3)
	for name := range mentions {
		assert.Equal(t, 1, lookup.calls[name], name)
	}
	assert.Equal(t, "http://dbpedia.org/resource/Versailles", got.Value("Versailles"))
	assert.Equal(t, "Yvelines", got.Value("Yvelines"))
	assert.True(t, got["1991"].FellBack)
}

func TestMap_ValueOfUnknownMention(t *testing.T) {
	m := Map{}
	assert.Equal(t, "unseen", m.Value("unseen"))
}
