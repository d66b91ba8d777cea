package export

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v4/neo4j"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

const (
	mergeEntityQuery = `
		MERGE (e:Entity {project: $project, id: $id})
		SET e.name = $name,
			e.level = $level,
			e.seed = $seed,
			e.importance = $importance,
			e.description = $description,
			e.updated_at = datetime()
	`
	mergeRelationQuery = `
		MATCH (a:Entity {project: $project, id: $source})
		MATCH (b:Entity {project: $project, id: $target})
		MERGE (a)-[r:RELATES]-(b)
		SET r.weight = $weight,
			r.type = $type,
			r.description = $description,
			r.updated_at = datetime()
	`
)

// Neo4jSink writes graph documents into Neo4j with MERGE so repeated
// exports of the same project update in place.
type Neo4jSink struct {
	driver neo4j.Driver
}

// NewNeo4jSink connects to uri with basic auth and verifies connectivity.
func NewNeo4jSink(uri, username, password string) (*Neo4jSink, error) {
	driver, err := neo4j.NewDriver(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(); err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to reach Neo4j at %s: %w", uri, err)
	}
	return &Neo4jSink{driver: driver}, nil
}

func (s *Neo4jSink) Name() string { return "neo4j" }

// Export writes every node then every edge in one write transaction.
func (s *Neo4jSink) Export(ctx context.Context, project string, doc GraphDocument) (err error) {
	done := metrics.TimeOp("export_neo4j")
	defer func() { done(err == nil) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	session := s.driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close()

	_, err = session.WriteTransaction(func(tx neo4j.Transaction) (interface{}, error) {
		for _, n := range doc.Nodes {
			if _, err := tx.Run(mergeEntityQuery, map[string]interface{}{
				"project":     project,
				"id":          n.ID,
				"name":        n.Label,
				"level":       n.Level,
				"seed":        n.Seed,
				"importance":  n.Importance,
				"description": n.Description,
			}); err != nil {
				return nil, fmt.Errorf("merge entity %q: %w", n.Label, err)
			}
		}
		for _, e := range doc.Edges {
			if _, err := tx.Run(mergeRelationQuery, map[string]interface{}{
				"project":     project,
				"source":      e.Source,
				"target":      e.Target,
				"weight":      e.Weight,
				"type":        e.RelationType,
				"description": e.Description,
			}); err != nil {
				return nil, fmt.Errorf("merge relation %s-%s: %w", e.Source, e.Target, err)
			}
		}
		return nil, nil
	})
	return err
}

func (s *Neo4jSink) Close() error {
	if s.driver != nil {
		return s.driver.Close()
	}
	return nil
}
