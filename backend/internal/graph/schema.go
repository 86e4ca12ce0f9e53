package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

type migration struct {
	name        string
	description string
	query       string
}

var migrations = []migration{
	{
		name:        "Create Constraints",
		description: "Unique IRIs for resources",
		query: `
			// One node per IRI, shared by every run
			CREATE CONSTRAINT resource_iri_unique IF NOT EXISTS FOR (r:Resource) REQUIRE r.iri IS UNIQUE;
		`,
	},
	{
		name:        "Create Indexes",
		description: "Lookup indexes for literals and run-scoped statements",
		query: `
			CREATE INDEX literal_value IF NOT EXISTS FOR (l:Literal) ON (l.value);
			CREATE INDEX triple_run_id IF NOT EXISTS FOR ()-[t:TRIPLE]-() ON (t.run_id);
			CREATE INDEX triple_predicate IF NOT EXISTS FOR ()-[t:TRIPLE]-() ON (t.predicate);
		`,
	},
}

// EnsureSchema creates constraints and indexes. Every statement is idempotent, so
// it runs on each startup; individual failures are logged and skipped.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for i, m := range migrations {
		r.logger.Debug("Running migration",
			zap.Int("step", i+1),
			zap.Int("total", len(migrations)),
			zap.String("name", m.name),
			zap.String("description", m.description),
		)

		for j, stmt := range splitStatements(m.query) {
			if _, err := session.Run(ctx, stmt, nil); err != nil {
				// Older servers reject some index forms
				r.logger.Warn("Migration statement failed",
					zap.String("migration", m.name),
					zap.Int("statement", j+1),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// splitStatements splits a Cypher script on semicolons, dropping // comment lines
// and /* */ blocks.
func splitStatements(script string) []string {
	var kept []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "//") {
			continue
		}
		kept = append(kept, line)
	}

	var statements []string
	for _, part := range strings.Split(removeBlockComments(strings.Join(kept, "\n")), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}

func removeBlockComments(text string) string {
	for {
		start := strings.Index(text, "/*")
		if start < 0 {
			return text
		}
		end := strings.Index(text[start+2:], "*/")
		if end < 0 {
			return text
		}
		text = text[:start] + text[start+end+4:]
	}
}
