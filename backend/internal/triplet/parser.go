// Package triplet recovers (head, relation, tail) triplets from the flat tagged
// token stream a REBEL-style generator emits.
package triplet

import "strings"

// Triplet is a mention-level fact before URI resolution.
type Triplet struct {
	Head     string `json:"head" yaml:"head"`
	Relation string `json:"type" yaml:"type"`
	Tail     string `json:"tail" yaml:"tail"`
}

// Vocabulary names the sentinel markers stripped before tokenizing and the three
// control tokens that drive the parser.
type Vocabulary struct {
	Sentinels []string
	Triplet   string // opens a triplet, head follows
	Subject   string // closes the head, tail follows
	Object    string // closes the tail, relation follows
}

// REBEL is the vocabulary of Babelscape/rebel-large.
var REBEL = Vocabulary{
	Sentinels: []string{"<s>", "<pad>", "</s>"},
	Triplet:   "<triplet>",
	Subject:   "<subj>",
	Object:    "<obj>",
}

type state int

const (
	stateNone state = iota
	stateSubject
	stateObject
	stateRelation
)

// Parser is a flat state machine over whitespace-separated tokens.
type Parser struct {
	vocab Vocabulary
}

// NewParser creates a parser for the given vocabulary.
func NewParser(vocab Vocabulary) *Parser {
	return &Parser{vocab: vocab}
}

// Parse parses with the REBEL vocabulary.
func Parse(stream string) []Triplet {
	return NewParser(REBEL).Parse(stream)
}

// Parse returns one triplet per complete marker group. A triplet is only known to
// be complete when the next control token or the end of the stream arrives, so a
// stream that stops before any relation token drops its last partial triplet.
// Malformed or empty input yields an empty slice.
func (p *Parser) Parse(stream string) []Triplet {
	text := strings.TrimSpace(stream)
	for _, s := range p.vocab.Sentinels {
		text = strings.ReplaceAll(text, s, "")
	}

	var (
		triplets                  []Triplet
		subject, relation, object strings.Builder
		current                   = stateNone
	)

	flush := func() {
		triplets = append(triplets, Triplet{
			Head:     strings.TrimSpace(subject.String()),
			Relation: strings.TrimSpace(relation.String()),
			Tail:     strings.TrimSpace(object.String()),
		})
	}

	for _, token := range strings.Fields(text) {
		switch token {
		case p.vocab.Triplet:
			current = stateSubject
			if relation.Len() > 0 {
				flush()
				relation.Reset()
			}
			subject.Reset()
		case p.vocab.Subject:
			current = stateObject
			// The relation is kept: a following group under the same head reuses it
			// until a new one arrives.
			if relation.Len() > 0 {
				flush()
			}
			object.Reset()
		case p.vocab.Object:
			current = stateRelation
			relation.Reset()
		default:
			var acc *strings.Builder
			switch current {
			case stateSubject:
				acc = &subject
			case stateObject:
				acc = &object
			case stateRelation:
				acc = &relation
			default:
				continue
			}
			acc.WriteByte(' ')
			acc.WriteString(token)
		}
	}

	if subject.Len() > 0 && relation.Len() > 0 && object.Len() > 0 {
		flush()
	}

	if triplets == nil {
		return []Triplet{}
	}
	return triplets
}

// Mentions returns the distinct head and tail texts of a batch.
func Mentions(triplets []Triplet) map[string]struct{} {
	set := make(map[string]struct{}, len(triplets)*2)
	for _, t := range triplets {
		set[t.Head] = struct{}{}
		set[t.Tail] = struct{}{}
	}
	return set
}

// Heads returns the distinct head texts of a batch.
func Heads(triplets []Triplet) map[string]struct{} {
	set := make(map[string]struct{}, len(triplets))
	for _, t := range triplets {
		set[t.Head] = struct{}{}
	}
	return set
}
