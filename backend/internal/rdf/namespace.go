package rdf

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Namespaces holds the two IRI prefixes the pipeline tells apart by prefix match.
type Namespaces struct {
	External string
	Local    string
}

// DefaultNamespaces resolves against DBpedia and mints under example.org.
var DefaultNamespaces = Namespaces{
	External: "http://dbpedia.org/resource/",
	Local:    "http://example.org/",
}

var localNameReplacer = strings.NewReplacer(" ", "_", "-", "_", "'", "")

// LocalName turns mention text into an IRI-safe local name:
// spaces and hyphens become underscores, apostrophes are dropped, and any
// character an IRI reference cannot carry is percent-encoded.
func LocalName(text string) string {
	return escapeIRIChars(localNameReplacer.Replace(strings.TrimSpace(text)))
}

const hexDigits = "0123456789ABCDEF"

// escapeIRIChars percent-encodes controls, whitespace, '%' and the characters
// N-Triples forbids inside <...>. Other non-ASCII text is kept as IRI characters.
func escapeIRIChars(s string) string {
	if !strings.ContainsFunc(s, forbiddenInIRI) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if !forbiddenInIRI(r) {
			b.WriteRune(r)
			continue
		}
		var buf [4]byte
		n := utf8.EncodeRune(buf[:], r)
		for _, c := range buf[:n] {
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0F])
		}
	}
	return b.String()
}

func forbiddenInIRI(r rune) bool {
	if r <= 0x20 || r == 0x7F || unicode.IsSpace(r) {
		return true
	}
	return strings.ContainsRune("<>\"{}|^`\\%", r)
}

// IsExternal reports whether v is an IRI in the external resource namespace.
func (n Namespaces) IsExternal(v string) bool {
	return n.External != "" && strings.HasPrefix(v, n.External)
}

// IsLocal reports whether v is an IRI in the private namespace.
func (n Namespaces) IsLocal(v string) bool {
	return n.Local != "" && strings.HasPrefix(v, n.Local)
}

// Mint synthesizes a local IRI for mention text.
func (n Namespaces) Mint(text string) Term {
	return Local(n.Local + LocalName(text))
}

// ExternalFromPage builds an external IRI from a canonical page identifier by
// appending its last path segment to the external namespace.
func (n Namespaces) ExternalFromPage(pageID string) Term {
	segment := pageID
	if i := strings.LastIndex(strings.TrimRight(pageID, "/"), "/"); i >= 0 {
		segment = strings.TrimRight(pageID, "/")[i+1:]
	}
	return External(n.External + segment)
}

// Classify maps a resolver value to a term by prefix. Values without an http(s)
// scheme are literals.
func (n Namespaces) Classify(v string) Term {
	switch {
	case n.IsExternal(v):
		return External(v)
	case n.IsLocal(v):
		return Local(v)
	case hasScheme(v):
		return URI(v)
	default:
		return Literal(v)
	}
}

// PredicateIRI returns the IRI a predicate is serialized under. Relation labels are
// minted into the local namespace; IRIs are kept.
func (n Namespaces) PredicateIRI(p Term) string {
	if p.Kind == KindRelation || p.Kind == KindLiteral {
		return n.Local + LocalName(p.Value)
	}
	return p.Value
}

// Canonical returns t as it is serialized: the predicate as its IRI, IRIs kinded by
// namespace, and non-IRI objects as literals.
func (n Namespaces) Canonical(t Triple) Triple {
	object := Literal(t.Object.Value)
	if t.Object.IsIRI() {
		object = n.iri(t.Object.Value)
	}
	return Triple{
		Subject:   n.iri(t.Subject.Value),
		Predicate: n.iri(n.PredicateIRI(t.Predicate)),
		Object:    object,
	}
}

func (n Namespaces) iri(v string) Term {
	switch {
	case n.IsExternal(v):
		return External(v)
	case n.IsLocal(v):
		return Local(v)
	default:
		return URI(v)
	}
}

// ShortName renders an IRI with a prefix for display: dbr:, ex:, rdf: or the last
// path segment.
func (n Namespaces) ShortName(iri string) string {
	switch {
	case n.IsExternal(iri):
		return "dbr:" + strings.TrimPrefix(iri, n.External)
	case n.IsLocal(iri):
		return "ex:" + strings.TrimPrefix(iri, n.Local)
	case iri == RDFType:
		return "rdf:type"
	}
	if i := strings.LastIndexAny(iri, "/#"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}
