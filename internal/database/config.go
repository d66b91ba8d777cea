package database

import (
	"os"
)

// Config holds the database configuration
type Config struct {
	URL              string
	AuthToken        string
	ProjectsDir      string
	MultiProjectMode bool

	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxIdleSec int
	ConnMaxLifeSec int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	url := os.Getenv("LIBSQL_URL")
	if url == "" {
		url = "file:./deepsearch.db"
	}

	cfg := &Config{
		URL:       url,
		AuthToken: os.Getenv("LIBSQL_AUTH_TOKEN"),
	}
	if dir := os.Getenv("PROJECTS_DIR"); dir != "" {
		cfg.ProjectsDir = dir
		cfg.MultiProjectMode = true
	}
	return cfg
}
