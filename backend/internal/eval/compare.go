package eval

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"kg-extractor/backend/internal/triplet"
)

// DefaultSimilarityThreshold is the cosine similarity above which two triplets
// are considered the same fact.
const DefaultSimilarityThreshold = 0.85

// Comparator decides whether a predicted triplet states the same fact as a
// reference triplet.
type Comparator interface {
	Match(ctx context.Context, predicted, reference triplet.Triplet) (bool, error)
}

// Preparer is implemented by comparators that can precompute work for a whole
// evaluation in one pass.
type Preparer interface {
	Prepare(ctx context.Context, triplets []triplet.Triplet) error
}

// Sentence joins the three fields with spaces.
func Sentence(t triplet.Triplet) string {
	return t.Head + " " + t.Relation + " " + t.Tail
}

// LexicalComparator matches triplets whose normalized sentences are equal, nearly
// contain each other or share most of their longer words.
type LexicalComparator struct{}

var whitespace = regexp.MustCompile(`\s+`)

func normalizeSentence(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimRight(s, ".,!?;:")
}

func (LexicalComparator) Match(_ context.Context, predicted, reference triplet.Triplet) (bool, error) {
	a := normalizeSentence(Sentence(predicted))
	b := normalizeSentence(Sentence(reference))
	return a == b || similarSentences(a, b), nil
}

// similarSentences is a cheap string similarity: containment with a length ratio of
// at least 0.8, or at least 70% overlap of words longer than three characters.
func similarSentences(a, b string) bool {
	if len(a) < 10 || len(b) < 10 {
		return false
	}

	if strings.Contains(a, b) || strings.Contains(b, a) {
		ratio := float64(min(len(a), len(b))) / float64(max(len(a), len(b)))
		return ratio >= 0.8
	}

	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return false
	}

	set := make(map[string]bool)
	for _, w := range wordsA {
		if len(w) > 3 {
			set[w] = true
		}
	}
	matches := 0
	for _, w := range wordsB {
		if len(w) > 3 && set[w] {
			matches++
		}
	}

	avg := (len(wordsA) + len(wordsB)) / 2
	return avg > 0 && float64(matches)/float64(avg) >= 0.7
}

// Embedder returns one vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingComparator matches triplets whose sentence embeddings have a cosine
// similarity strictly above Threshold. Embeddings are cached by sentence.
type EmbeddingComparator struct {
	embedder  Embedder
	Threshold float64

	mu    sync.Mutex
	cache map[string][]float32
}

func NewEmbeddingComparator(embedder Embedder, threshold float64) *EmbeddingComparator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &EmbeddingComparator{
		embedder:  embedder,
		Threshold: threshold,
		cache:     make(map[string][]float32),
	}
}

// Prepare embeds every sentence not yet cached in a single request.
func (c *EmbeddingComparator) Prepare(ctx context.Context, triplets []triplet.Triplet) error {
	c.mu.Lock()
	var missing []string
	seen := make(map[string]bool)
	for _, t := range triplets {
		s := Sentence(t)
		if _, ok := c.cache[s]; !ok && !seen[s] {
			seen[s] = true
			missing = append(missing, s)
		}
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return nil
	}
	vectors, err := c.embedder.Embed(ctx, missing)
	if err != nil {
		return fmt.Errorf("failed to embed triplets: %w", err)
	}
	if len(vectors) != len(missing) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(missing))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range missing {
		c.cache[s] = vectors[i]
	}
	return nil
}

func (c *EmbeddingComparator) Match(ctx context.Context, predicted, reference triplet.Triplet) (bool, error) {
	if err := c.Prepare(ctx, []triplet.Triplet{predicted, reference}); err != nil {
		return false, err
	}

	c.mu.Lock()
	a := c.cache[Sentence(predicted)]
	b := c.cache[Sentence(reference)]
	c.mu.Unlock()

	return Cosine(a, b) > c.Threshold, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
