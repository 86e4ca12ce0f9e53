// Package eval scores extracted triplets against a hand-written reference set.
package eval

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"kg-extractor/backend/internal/triplet"
	"kg-extractor/backend/pkg/logger"
)

// Match pairs a predicted triplet with the first reference triplet it matched.
type Match struct {
	Predicted triplet.Triplet `json:"predicted" yaml:"predicted"`
	Reference triplet.Triplet `json:"reference" yaml:"reference"`
}

// Metrics are precision, recall and F1 of one evaluation.
type Metrics struct {
	Precision float64 `json:"precision" yaml:"precision"`
	Recall    float64 `json:"recall" yaml:"recall"`
	F1        float64 `json:"f1" yaml:"f1"`
	Correct   int     `json:"correct" yaml:"correct"`
	Predicted int     `json:"predicted" yaml:"predicted"`
	Reference int     `json:"reference" yaml:"reference"`
	Matches   []Match `json:"matches" yaml:"matches"`
}

type Evaluator struct {
	comparator Comparator
	logger     *zap.Logger
}

func NewEvaluator(c Comparator) *Evaluator {
	return &Evaluator{comparator: c, logger: logger.Get()}
}

// Evaluate counts a predicted triplet as correct when it matches at least one
// reference triplet. Reference triplets may be matched more than once. Zero
// denominators give zero scores.
func (e *Evaluator) Evaluate(ctx context.Context, predicted, reference []triplet.Triplet) (*Metrics, error) {
	if p, ok := e.comparator.(Preparer); ok {
		all := make([]triplet.Triplet, 0, len(predicted)+len(reference))
		all = append(all, predicted...)
		all = append(all, reference...)
		if err := p.Prepare(ctx, all); err != nil {
			return nil, err
		}
	}

	m := &Metrics{
		Predicted: len(predicted),
		Reference: len(reference),
		Matches:   []Match{},
	}
	for _, pred := range predicted {
		for _, ref := range reference {
			ok, err := e.comparator.Match(ctx, pred, ref)
			if err != nil {
				return nil, fmt.Errorf("failed to compare triplets: %w", err)
			}
			if ok {
				m.Correct++
				m.Matches = append(m.Matches, Match{Predicted: pred, Reference: ref})
				break
			}
		}
	}

	m.Precision = ratio(m.Correct, m.Predicted)
	m.Recall = ratio(m.Correct, m.Reference)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	e.logger.Info("Evaluation complete",
		zap.Int("correct", m.Correct),
		zap.Int("predicted", m.Predicted),
		zap.Int("reference", m.Reference),
		zap.Float64("f1", m.F1),
	)
	return m, nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// LoadReference reads a YAML list of triplets. Each item is either a mapping with
// head, type and tail keys or a three-element sequence [head, relation, tail].
func LoadReference(r io.Reader) ([]triplet.Triplet, error) {
	var items []yaml.Node
	if err := yaml.NewDecoder(r).Decode(&items); err != nil {
		if err == io.EOF {
			return []triplet.Triplet{}, nil
		}
		return nil, fmt.Errorf("failed to parse reference: %w", err)
	}

	out := make([]triplet.Triplet, 0, len(items))
	for i, item := range items {
		var t triplet.Triplet
		switch item.Kind {
		case yaml.MappingNode:
			if err := item.Decode(&t); err != nil {
				return nil, fmt.Errorf("reference item %d: %w", i+1, err)
			}
		case yaml.SequenceNode:
			var fields []string
			if err := item.Decode(&fields); err != nil {
				return nil, fmt.Errorf("reference item %d: %w", i+1, err)
			}
			if len(fields) != 3 {
				return nil, fmt.Errorf("reference item %d (line %d): want 3 fields, got %d", i+1, item.Line, len(fields))
			}
			t = triplet.Triplet{Head: fields[0], Relation: fields[1], Tail: fields[2]}
		default:
			return nil, fmt.Errorf("reference item %d (line %d): expected mapping or sequence", i+1, item.Line)
		}
		out = append(out, t)
	}
	return out, nil
}
