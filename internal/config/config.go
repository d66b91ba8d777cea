// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/database"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

// Config is the full runtime configuration.
type Config struct {
	Scorer   Scorer
	Analyzer Analyzer
	LibSQL   LibSQL
	Neo4j    Neo4j
	Metrics  Metrics
	Log      Log
}

// Scorer configures the relationship scorer.
type Scorer struct {
	APIKey            string        `env:"OPENAI_API_KEY"`
	BaseURL           string        `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	Model             string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Temperature       float32       `env:"OPENAI_TEMPERATURE" envDefault:"0.2" validate:"gte=0,lte=2"`
	Timeout           time.Duration `env:"SCORER_TIMEOUT" envDefault:"30s" validate:"gt=0"`
	RequestsPerSecond float64       `env:"SCORER_RPS" envDefault:"0" validate:"gte=0"`
	Burst             int           `env:"SCORER_BURST" envDefault:"1" validate:"gte=1"`
	DefaultWeight     float64       `env:"SCORER_DEFAULT_WEIGHT" envDefault:"0.1" validate:"gte=0,lte=1"`
	BreakerFailures   uint32        `env:"SCORER_BREAKER_FAILURES" envDefault:"5" validate:"gte=1"`
	BreakerCooldown   time.Duration `env:"SCORER_BREAKER_COOLDOWN" envDefault:"30s"`
	FixturePath       string        `env:"SCORER_FIXTURE"`
}

// Analyzer configures graph building and expansion.
type Analyzer struct {
	Workers     int `env:"ANALYZER_WORKERS" envDefault:"4" validate:"gte=1,lte=64"`
	MaxEntities int `env:"ANALYZER_MAX_ENTITIES" envDefault:"500" validate:"gte=2"`
}

// LibSQL configures the optional libSQL export sink.
type LibSQL struct {
	URL         string `env:"LIBSQL_URL"`
	AuthToken   string `env:"LIBSQL_AUTH_TOKEN"`
	ProjectsDir string `env:"PROJECTS_DIR"`
}

// Neo4j configures the optional Neo4j export sink.
type Neo4j struct {
	URI      string `env:"NEO4J_URI"`
	User     string `env:"NEO4J_USER" envDefault:"neo4j"`
	Password string `env:"NEO4J_PASSWORD"`
}

type Metrics struct {
	Prometheus bool   `env:"METRICS_PROMETHEUS"`
	Addr       string `env:"METRICS_ADDR" envDefault:":9090"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads envFile when it exists, then parses and validates the
// environment. An empty envFile means ".env".
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat %s: %w", envFile, err)
	}
	return FromEnv()
}

// FromEnv parses and validates the current environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ScorerConfig maps the scorer section onto scorer.Config.
func (c *Config) ScorerConfig() scorer.Config {
	return scorer.Config{
		APIKey:            c.Scorer.APIKey,
		BaseURL:           c.Scorer.BaseURL,
		Model:             c.Scorer.Model,
		Temperature:       c.Scorer.Temperature,
		RequestsPerSecond: c.Scorer.RequestsPerSecond,
		Burst:             c.Scorer.Burst,
		BreakerFailures:   c.Scorer.BreakerFailures,
		BreakerCooldown:   c.Scorer.BreakerCooldown,
		FixturePath:       c.Scorer.FixturePath,
		DefaultWeight:     &c.Scorer.DefaultWeight,
	}
}

// AnalyzerConfig maps the analyzer settings onto analyzer.Config.
func (c *Config) AnalyzerConfig() analyzer.Config {
	return analyzer.Config{
		DefaultWeight: c.Scorer.DefaultWeight,
		Workers:       c.Analyzer.Workers,
		ScorerTimeout: c.Scorer.Timeout,
		MaxEntities:   c.Analyzer.MaxEntities,
	}
}

// DatabaseConfig returns the libSQL sink configuration, or nil when neither
// LIBSQL_URL nor PROJECTS_DIR is set.
func (c *Config) DatabaseConfig() *database.Config {
	if c.LibSQL.URL == "" && c.LibSQL.ProjectsDir == "" {
		return nil
	}
	return &database.Config{
		URL:              c.LibSQL.URL,
		AuthToken:        c.LibSQL.AuthToken,
		ProjectsDir:      c.LibSQL.ProjectsDir,
		MultiProjectMode: c.LibSQL.ProjectsDir != "",
	}
}
