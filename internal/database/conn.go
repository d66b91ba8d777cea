// Package database exports relationship graphs into libSQL databases, one
// per project, and reads them back.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

const defaultProject = "default"

// DBManager owns one libSQL handle per project plus a prepared statement cache.
type DBManager struct {
	config *Config
	dbs    map[string]*sql.DB
	mu     sync.RWMutex

	stmtCache map[string]map[string]*sql.Stmt
	stmtMu    sync.RWMutex
}

// NewDBManager creates a new database manager
func NewDBManager(config *Config) (*DBManager, error) {
	manager := &DBManager{
		config:    config,
		dbs:       make(map[string]*sql.DB),
		stmtCache: make(map[string]map[string]*sql.Stmt),
	}

	// If not in multi-project mode, initialize the default database immediately
	if !config.MultiProjectMode {
		if _, err := manager.getDB(defaultProject); err != nil {
			return nil, fmt.Errorf("failed to initialize default database: %w", err)
		}
	}
	return manager, nil
}

// getDB retrieves a database connection for a given project, creating it if necessary
func (dm *DBManager) getDB(projectName string) (*sql.DB, error) {
	if !dm.config.MultiProjectMode {
		projectName = defaultProject
	}
	dm.mu.RLock()
	db, ok := dm.dbs[projectName]
	dm.mu.RUnlock()
	if ok {
		return db, nil
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	// Double-check if another goroutine created the DB while we were waiting for the lock
	if db, ok := dm.dbs[projectName]; ok {
		return db, nil
	}

	var dbURL string
	if dm.config.MultiProjectMode {
		if projectName == "" {
			return nil, fmt.Errorf("project name cannot be empty in multi-project mode")
		}
		dbPath := filepath.Join(dm.config.ProjectsDir, projectName, "libsql.db")
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create project directory for %s: %w", projectName, err)
		}
		dbURL = fmt.Sprintf("file:%s", dbPath)
	} else {
		dbURL = dm.config.URL
	}

	newDb, err := sql.Open("libsql", withAuthToken(dbURL, dm.config.AuthToken))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connector for project %s: %w", projectName, err)
	}
	if err := dm.initialize(newDb); err != nil {
		newDb.Close()
		return nil, fmt.Errorf("failed to initialize database for project %s: %w", projectName, err)
	}

	if dm.config.MaxOpenConns > 0 {
		newDb.SetMaxOpenConns(dm.config.MaxOpenConns)
	}
	if dm.config.MaxIdleConns > 0 {
		newDb.SetMaxIdleConns(dm.config.MaxIdleConns)
	}
	if dm.config.ConnMaxIdleSec > 0 {
		newDb.SetConnMaxIdleTime(time.Duration(dm.config.ConnMaxIdleSec) * time.Second)
	}
	if dm.config.ConnMaxLifeSec > 0 {
		newDb.SetConnMaxLifetime(time.Duration(dm.config.ConnMaxLifeSec) * time.Second)
	}

	dm.dbs[projectName] = newDb
	dm.stmtMu.Lock()
	if _, ok := dm.stmtCache[projectName]; !ok {
		dm.stmtCache[projectName] = make(map[string]*sql.Stmt)
	}
	dm.stmtMu.Unlock()
	return newDb, nil
}

// withAuthToken appends authToken to remote URLs; local files are returned as is.
func withAuthToken(dbURL, token string) string {
	if token == "" || strings.HasPrefix(dbURL, "file:") {
		return dbURL
	}
	if u, err := url.Parse(dbURL); err == nil {
		q := u.Query()
		q.Set("authToken", token)
		u.RawQuery = q.Encode()
		return u.String()
	}
	if strings.Contains(dbURL, "?") {
		return dbURL + "&authToken=" + url.QueryEscape(token)
	}
	return dbURL + "?authToken=" + url.QueryEscape(token)
}

// initialize creates tables and indexes if they don't exist
func (dm *DBManager) initialize(db *sql.DB) error {
	done := metrics.TimeOp("db_initialize")
	success := false
	defer func() { done(success) }()
	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for initialization: %w", err)
	}
	defer tx.Rollback()

	for _, statement := range schema() {
		if _, err := tx.Exec(statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	success = true
	return nil
}

func (dm *DBManager) Name() string { return "libsql" }

// Config returns the manager configuration.
func (dm *DBManager) Config() *Config { return dm.config }

// Close closes every cached statement and project database.
func (dm *DBManager) Close() error {
	dm.stmtMu.Lock()
	for _, stmts := range dm.stmtCache {
		for _, s := range stmts {
			_ = s.Close()
		}
	}
	dm.stmtCache = make(map[string]map[string]*sql.Stmt)
	dm.stmtMu.Unlock()

	dm.mu.Lock()
	defer dm.mu.Unlock()
	var errs []error
	for name, db := range dm.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database for project %s: %w", name, err))
		}
	}
	dm.dbs = make(map[string]*sql.DB)
	return errors.Join(errs...)
}
