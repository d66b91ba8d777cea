package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/export"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

// Export implements export.Sink by saving doc as the project graph.
func (dm *DBManager) Export(ctx context.Context, projectName string, doc export.GraphDocument) error {
	snap := apptype.GraphSnapshot{
		Entities:      make([]apptype.Entity, 0, len(doc.Nodes)),
		Relationships: make([]apptype.Relationship, 0, len(doc.Edges)),
	}
	labels := make(map[string]string, len(doc.Nodes))
	for i, n := range doc.Nodes {
		labels[n.ID] = n.Label
		snap.Entities = append(snap.Entities, apptype.Entity{
			Name:        n.Label,
			Key:         n.ID,
			Seq:         i,
			Level:       n.Level,
			Importance:  n.Importance,
			Description: n.Description,
		})
	}
	for _, e := range doc.Edges {
		snap.Relationships = append(snap.Relationships, apptype.Relationship{
			A:            labels[e.Source],
			B:            labels[e.Target],
			Weight:       e.Weight,
			RelationType: e.RelationType,
			Description:  e.Description,
		})
	}
	return dm.SaveSnapshot(ctx, projectName, snap, "")
}

// ReadGraph loads the project graph. Entities come back in insertion order,
// relations sorted by endpoint key.
func (dm *DBManager) ReadGraph(ctx context.Context, projectName string) (apptype.GraphSnapshot, error) {
	done := metrics.TimeOp("db_read_graph")
	success := false
	defer func() { done(success) }()
	snap := apptype.GraphSnapshot{Entities: []apptype.Entity{}, Relationships: []apptype.Relationship{}}
	db, err := dm.getDB(projectName)
	if err != nil {
		return snap, err
	}

	stmt, err := dm.getPreparedStmt(ctx, projectName, db,
		"SELECT name, display_name, level, importance, description FROM entities ORDER BY rowid")
	if err != nil {
		return snap, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e apptype.Entity
		if err := rows.Scan(&e.Key, &e.Name, &e.Level, &e.Importance, &e.Description); err != nil {
			return snap, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.Seq = len(snap.Entities)
		snap.Entities = append(snap.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	stmt, err = dm.getPreparedStmt(ctx, projectName, db, `
        SELECT a.display_name, b.display_name, r.weight, r.relation_type, r.description
        FROM relations r
        JOIN entities a ON a.name = r.source
        JOIN entities b ON b.name = r.target
        ORDER BY r.source, r.target`)
	if err != nil {
		return snap, err
	}
	relRows, err := stmt.QueryContext(ctx)
	if err != nil {
		return snap, fmt.Errorf("failed to query relations: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r apptype.Relationship
		if err := relRows.Scan(&r.A, &r.B, &r.Weight, &r.RelationType, &r.Description); err != nil {
			return snap, fmt.Errorf("failed to scan relation: %w", err)
		}
		snap.Relationships = append(snap.Relationships, r)
	}
	if err := relRows.Err(); err != nil {
		return snap, err
	}
	success = true
	return snap, nil
}

// GetEntity looks an entity up by name, case-insensitively.
func (dm *DBManager) GetEntity(ctx context.Context, projectName, name string) (apptype.Entity, bool, error) {
	db, err := dm.getDB(projectName)
	if err != nil {
		return apptype.Entity{}, false, err
	}
	stmt, err := dm.getPreparedStmt(ctx, projectName, db,
		"SELECT name, display_name, level, importance, description FROM entities WHERE name = ?")
	if err != nil {
		return apptype.Entity{}, false, err
	}
	var e apptype.Entity
	err = stmt.QueryRowContext(ctx, graphstore.NormalizeName(name)).Scan(&e.Key, &e.Name, &e.Level, &e.Importance, &e.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return apptype.Entity{}, false, nil
	}
	if err != nil {
		return apptype.Entity{}, false, fmt.Errorf("failed to query entity: %w", err)
	}
	return e, true, nil
}

// GetNeighbors returns the stored 1-hop neighbors of name sorted by key.
func (dm *DBManager) GetNeighbors(ctx context.Context, projectName, name string) ([]apptype.Neighbor, error) {
	done := metrics.TimeOp("db_get_neighbors")
	success := false
	defer func() { done(success) }()
	db, err := dm.getDB(projectName)
	if err != nil {
		return nil, err
	}
	stmt, err := dm.getPreparedStmt(ctx, projectName, db, `
        SELECT e.display_name, r.weight, r.relation_type
        FROM relations r
        JOIN entities e ON e.name = CASE WHEN r.source = ? THEN r.target ELSE r.source END
        WHERE r.source = ? OR r.target = ?
        ORDER BY e.name`)
	if err != nil {
		return nil, err
	}
	key := graphstore.NormalizeName(name)
	rows, err := stmt.QueryContext(ctx, key, key, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbor relations: %w", err)
	}
	defer rows.Close()

	out := []apptype.Neighbor{}
	for rows.Next() {
		var n apptype.Neighbor
		if err := rows.Scan(&n.Name, &n.Weight, &n.RelationType); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	success = true
	return out, nil
}
