package database

import (
	"context"
	"database/sql"
	"fmt"
)

// getPreparedStmt returns or prepares and caches a statement for the given project DB
func (dm *DBManager) getPreparedStmt(ctx context.Context, projectName string, db *sql.DB, sqlText string) (*sql.Stmt, error) {
	if !dm.config.MultiProjectMode {
		projectName = defaultProject
	}
	dm.stmtMu.RLock()
	if projCache, ok := dm.stmtCache[projectName]; ok {
		if stmt, ok := projCache[sqlText]; ok {
			dm.stmtMu.RUnlock()
			return stmt, nil
		}
	}
	dm.stmtMu.RUnlock()

	stmt, err := db.PrepareContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	dm.stmtMu.Lock()
	defer dm.stmtMu.Unlock()
	if _, ok := dm.stmtCache[projectName]; !ok {
		dm.stmtCache[projectName] = make(map[string]*sql.Stmt)
	}
	if existing, ok := dm.stmtCache[projectName][sqlText]; ok {
		_ = stmt.Close()
		return existing, nil
	}
	dm.stmtCache[projectName][sqlText] = stmt
	return stmt, nil
}
