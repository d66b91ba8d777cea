package deepsearch

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/database"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

// Config exposes a stable wrapper for scorer, analyzer and sink settings in
// package mode. Zero values fall back to the built-in defaults.
type Config struct {
	// APIKey enables the OpenAI-compatible scorer.
	APIKey            string
	BaseURL           string
	Model             string
	RequestsPerSecond float64
	// FixturePath serves relationship scores from a JSON table instead.
	FixturePath string

	// DefaultWeight is the no-API estimate and the weight given to failed
	// scorer calls; nil keeps the built-in default.
	DefaultWeight *float64
	Workers       int
	ScorerTimeout time.Duration
	MaxEntities   int

	// DatabaseURL or ProjectsDir enables the libSQL sink.
	DatabaseURL   string
	AuthToken     string
	ProjectsDir   string
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	Log logrus.FieldLogger
}

func (c *Config) scorerConfig() scorer.Config {
	return scorer.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		Model:             c.Model,
		RequestsPerSecond: c.RequestsPerSecond,
		FixturePath:       c.FixturePath,
		DefaultWeight:     c.DefaultWeight,
		Log:               c.Log,
	}
}

func (c *Config) analyzerConfig() analyzer.Config {
	ac := analyzer.DefaultConfig()
	if c.DefaultWeight != nil {
		ac.DefaultWeight = *c.DefaultWeight
	}
	if c.Workers > 0 {
		ac.Workers = c.Workers
	}
	if c.ScorerTimeout > 0 {
		ac.ScorerTimeout = c.ScorerTimeout
	}
	if c.MaxEntities > 0 {
		ac.MaxEntities = c.MaxEntities
	}
	return ac
}

func (c *Config) sinkConfig() deepsearch.SinkConfig {
	sc := deepsearch.SinkConfig{
		Neo4jURI:      c.Neo4jURI,
		Neo4jUser:     c.Neo4jUser,
		Neo4jPassword: c.Neo4jPassword,
	}
	if c.DatabaseURL != "" || c.ProjectsDir != "" {
		sc.Database = &database.Config{
			URL:              c.DatabaseURL,
			AuthToken:        c.AuthToken,
			ProjectsDir:      c.ProjectsDir,
			MultiProjectMode: c.ProjectsDir != "",
		}
	}
	return sc
}
