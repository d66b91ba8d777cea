package database

// schema returns the DDL for exported graphs. Entity names are stored by
// normalized key; relations keep the smaller key as source.
func schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS entities (
        name TEXT PRIMARY KEY,
        display_name TEXT NOT NULL,
        level INTEGER NOT NULL DEFAULT 0,
        importance REAL NOT NULL DEFAULT 0,
        description TEXT NOT NULL DEFAULT '',
        run_id TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    )`,

		`CREATE TABLE IF NOT EXISTS relations (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        source TEXT NOT NULL,
        target TEXT NOT NULL,
        weight REAL NOT NULL,
        relation_type TEXT NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        UNIQUE (source, target),
        FOREIGN KEY (source) REFERENCES entities(name),
        FOREIGN KEY (target) REFERENCES entities(name)
    )`,

		`CREATE INDEX IF NOT EXISTS idx_entities_level ON entities(level)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target)`,
		`CREATE INDEX IF NOT EXISTS idx_relations_weight ON relations(weight)`,
	}
}
