package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

const (
	upsertEntitySQL = `INSERT INTO entities (name, display_name, level, importance, description, run_id)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            display_name = excluded.display_name,
            level = excluded.level,
            importance = excluded.importance,
            description = excluded.description,
            run_id = excluded.run_id,
            updated_at = CURRENT_TIMESTAMP`

	upsertRelationSQL = `INSERT INTO relations (source, target, weight, relation_type, description)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(source, target) DO UPDATE SET
            weight = excluded.weight,
            relation_type = excluded.relation_type,
            description = excluded.description,
            updated_at = CURRENT_TIMESTAMP`
)

// SaveSnapshot upserts every entity and relationship of snap in a single
// transaction. Rows already present for the project are updated in place.
func (dm *DBManager) SaveSnapshot(ctx context.Context, projectName string, snap apptype.GraphSnapshot, runID string) error {
	done := metrics.TimeOp("db_save_snapshot")
	success := false
	defer func() { done(success) }()
	db, err := dm.getDB(projectName)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertEntities(ctx, tx, snap.Entities, runID); err != nil {
		return err
	}
	if err := upsertRelations(ctx, tx, snap.Relationships); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

func upsertEntities(ctx context.Context, tx *sql.Tx, entities []apptype.Entity, runID string) error {
	if len(entities) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, upsertEntitySQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()
	for _, e := range entities {
		key := e.Key
		if key == "" {
			key = graphstore.NormalizeName(e.Name)
		}
		if key == "" {
			return fmt.Errorf("entity name cannot be empty")
		}
		if _, err := stmt.ExecContext(ctx, key, e.Name, e.Level, e.Importance, e.Description, runID); err != nil {
			return fmt.Errorf("failed to upsert entity %q: %w", e.Name, err)
		}
	}
	return nil
}

func upsertRelations(ctx context.Context, tx *sql.Tx, relations []apptype.Relationship) error {
	if len(relations) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, upsertRelationSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()
	for _, r := range relations {
		src, tgt := graphstore.NormalizeName(r.A), graphstore.NormalizeName(r.B)
		if src == "" || tgt == "" || r.RelationType == "" {
			return fmt.Errorf("relation fields cannot be empty")
		}
		if tgt < src {
			src, tgt = tgt, src
		}
		if _, err := stmt.ExecContext(ctx, src, tgt, r.Weight, r.RelationType, r.Description); err != nil {
			return fmt.Errorf("failed to upsert relation (%s - %s): %w", src, tgt, err)
		}
	}
	return nil
}
