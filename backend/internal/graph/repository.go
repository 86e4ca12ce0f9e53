package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"kg-extractor/backend/internal/rdf"
	kgerrors "kg-extractor/backend/pkg/errors"
	"kg-extractor/backend/pkg/logger"
)

// Repository stores extracted graphs in Neo4j. Resources are merged by IRI and
// shared across runs; each statement is a TRIPLE relationship tagged with the run
// that produced it.
type Repository struct {
	driver neo4j.DriverWithContext
	ns     rdf.Namespaces
	logger *zap.Logger
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext, ns rdf.Namespaces) *Repository {
	return &Repository{
		driver: driver,
		ns:     ns,
		logger: logger.Get(),
	}
}

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, kgerrors.NewGraphConnectionFailed(uri, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, kgerrors.NewGraphConnectionFailed(uri, err)
	}
	return driver, nil
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

const saveResourceTriplesQuery = `
	UNWIND $rows AS row
	MERGE (s:Resource {iri: row.subject})
	ON CREATE SET s.kind = row.subject_kind
	MERGE (o:Resource {iri: row.object})
	ON CREATE SET o.kind = row.object_kind
	MERGE (s)-[t:TRIPLE {predicate: row.predicate, run_id: $runID}]->(o)
	ON CREATE SET t.label = row.predicate_value,
	              t.predicate_kind = row.predicate_kind,
	              t.created_at = datetime()
	RETURN count(t) AS written
`

const saveLiteralTriplesQuery = `
	UNWIND $rows AS row
	MERGE (s:Resource {iri: row.subject})
	ON CREATE SET s.kind = row.subject_kind
	MERGE (o:Literal {value: row.object})
	MERGE (s)-[t:TRIPLE {predicate: row.predicate, run_id: $runID}]->(o)
	ON CREATE SET t.label = row.predicate_value,
	              t.predicate_kind = row.predicate_kind,
	              t.created_at = datetime()
	RETURN count(t) AS written
`

// SaveGraph merges every triple of g under runID in one write transaction.
func (r *Repository) SaveGraph(ctx context.Context, runID string, g *rdf.Graph) error {
	resources, literals := tripleRows(g.Triples(), r.ns)

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	written, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		var total int64
		for _, batch := range []struct {
			query string
			rows  []map[string]any
		}{
			{saveResourceTriplesQuery, resources},
			{saveLiteralTriplesQuery, literals},
		} {
			if len(batch.rows) == 0 {
				continue
			}
			result, err := tx.Run(ctx, batch.query, map[string]any{
				"runID": runID,
				"rows":  batch.rows,
			})
			if err != nil {
				return nil, err
			}
			record, err := result.Single(ctx)
			if err != nil {
				return nil, err
			}
			total += getInt64FromRecord(record, "written")
		}
		return total, nil
	})
	if err != nil {
		return kgerrors.NewGraphQueryFailed("save graph", err)
	}

	r.logger.Info("Graph persisted",
		zap.String("run_id", runID),
		zap.Any("written", written),
		zap.Int("triples", g.Len()),
	)
	return nil
}

// FetchRun reloads the graph written by one run.
func (r *Repository) FetchRun(ctx context.Context, runID string) (*rdf.Graph, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (s:Resource)-[t:TRIPLE {run_id: $runID}]->(o)
		RETURN
			s.iri AS subject,
			s.kind AS subject_kind,
			t.predicate AS predicate,
			t.label AS predicate_value,
			t.predicate_kind AS predicate_kind,
			coalesce(o.iri, o.value) AS object,
			CASE WHEN o:Literal THEN 'literal' ELSE o.kind END AS object_kind
	`

	result, err := session.Run(ctx, query, map[string]any{"runID": runID})
	if err != nil {
		return nil, kgerrors.NewGraphQueryFailed("fetch run", err)
	}

	g := rdf.NewGraph()
	for result.Next(ctx) {
		record := result.Record()
		predicate := termFromRecord(record, "predicate_value", "predicate_kind", rdf.KindURI)
		if predicate.Value == "" {
			predicate = rdf.URI(getStringFromRecord(record, "predicate"))
		}
		g.Add(rdf.Triple{
			Subject:   termFromRecord(record, "subject", "subject_kind", rdf.KindExternal),
			Predicate: predicate,
			Object:    termFromRecord(record, "object", "object_kind", rdf.KindLiteral),
		})
	}
	if err := result.Err(); err != nil {
		return nil, kgerrors.NewGraphQueryFailed("fetch run", err)
	}
	if g.Len() == 0 {
		return nil, ErrRunNotFound{RunID: runID}
	}
	return g, nil
}

// DeleteRun removes the statements of one run and any resource or literal left
// without relationships. It returns ErrRunNotFound when the run has no statements.
func (r *Repository) DeleteRun(ctx context.Context, runID string) (int, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH ()-[t:TRIPLE {run_id: $runID}]->()
			DELETE t
			RETURN count(t) AS deleted
		`, map[string]any{"runID": runID})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			MATCH (n)
			WHERE (n:Resource OR n:Literal) AND NOT (n)--()
			DELETE n
		`, nil); err != nil {
			return nil, err
		}
		return int(getInt64FromRecord(record, "deleted")), nil
	})
	if err != nil {
		return 0, kgerrors.NewGraphQueryFailed("delete run", err)
	}

	count, _ := deleted.(int)
	if count == 0 {
		return 0, ErrRunNotFound{RunID: runID}
	}
	r.logger.Info("Run deleted", zap.String("run_id", runID), zap.Int("triples", count))
	return count, nil
}

// tripleRows splits triples into query parameters for IRI objects and literal
// objects. Predicates are stored by IRI; the original label and kind ride along so
// FetchRun can rebuild the exact term. Rows are unique by (subject, predicate IRI,
// object), which is what the MERGE matches on; the first triple of a group wins.
func tripleRows(triples []rdf.Triple, ns rdf.Namespaces) (resources, literals []map[string]any) {
	type rowKey struct {
		subject, predicate, object string
		iri                        bool
	}
	seen := make(map[rowKey]struct{}, len(triples))
	for _, t := range triples {
		key := rowKey{t.Subject.Value, ns.PredicateIRI(t.Predicate), t.Object.Value, t.Object.IsIRI()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		row := map[string]any{
			"subject":         t.Subject.Value,
			"subject_kind":    t.Subject.Kind.String(),
			"predicate":       ns.PredicateIRI(t.Predicate),
			"predicate_value": t.Predicate.Value,
			"predicate_kind":  t.Predicate.Kind.String(),
			"object":          t.Object.Value,
			"object_kind":     t.Object.Kind.String(),
		}
		if t.Object.IsIRI() {
			resources = append(resources, row)
		} else {
			literals = append(literals, row)
		}
	}
	return resources, literals
}

func termFromRecord(record *neo4j.Record, valueKey, kindKey string, fallback rdf.Kind) rdf.Term {
	kind := fallback
	if name := getStringFromRecord(record, kindKey); name != "" {
		var k rdf.Kind
		if err := k.UnmarshalText([]byte(name)); err == nil {
			kind = k
		}
	}
	return rdf.Term{Kind: kind, Value: getStringFromRecord(record, valueKey)}
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	str, _ := val.(string)
	return str
}

// Counts come back as int64 from the driver
func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch n := val.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

// ErrRunNotFound is returned when no statements carry the run identifier
type ErrRunNotFound struct {
	RunID string
}

func (e ErrRunNotFound) Error() string {
	return fmt.Sprintf("run not found: %s", e.RunID)
}
