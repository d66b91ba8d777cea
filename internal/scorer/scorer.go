// Package scorer estimates relationships between entities.
//
// A Scorer is chosen once at startup: LiveScorer talks to an
// OpenAI-compatible chat endpoint, DefaultScorer answers with a fixed neutral
// estimate when no API is configured, and StaticScorer serves a fixed table.
package scorer

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultWeight is the neutral estimate used when scoring is unavailable or fails.
	DefaultWeight = 0.1
	// DefaultRelationType labels relationships that could not be classified.
	DefaultRelationType = "related_to"
)

var (
	ErrUnavailable       = errors.New("scorer unavailable")
	ErrTimeout           = errors.New("scorer timed out")
	ErrMalformedResponse = errors.New("scorer returned a malformed response")
)

// PairScore is the estimate for one pair of entities.
type PairScore struct {
	Weight       float64 `json:"weight"`
	RelationType string  `json:"relationType"`
	Description  string  `json:"description"`
}

// Candidate is a related entity proposed during expansion.
type Candidate struct {
	Name         string  `json:"name"`
	Weight       float64 `json:"weight"`
	RelationType string  `json:"relationType,omitempty"`
}

// Scorer defines the relationship estimation surface consumed by the analyzer.
// Implementations must be safe for concurrent use.
type Scorer interface {
	// Name identifies the variant (e.g., "openai", "default").
	Name() string
	// ScorePair estimates the relationship between a and b.
	ScorePair(ctx context.Context, a, b, topic string) (PairScore, error)
	// FindRelated returns up to maxCount entities related to entity, best first.
	FindRelated(ctx context.Context, entity, topic string, maxCount int) ([]Candidate, error)
}

// Describer is implemented by scorers able to summarize a single entity.
type Describer interface {
	Describe(ctx context.Context, entity, topic string) (string, error)
}

// Config selects and tunes a scorer variant.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	// RequestsPerSecond limits outgoing calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	BreakerCooldown time.Duration
	// FixturePath points at a JSON table for StaticScorer.
	FixturePath string
	// DefaultWeight is the DefaultScorer estimate; nil uses DefaultWeight.
	DefaultWeight *float64
	// Log receives LiveScorer diagnostics; nil uses the logrus standard logger.
	Log logrus.FieldLogger
}

// New constructs the scorer variant implied by cfg.
func New(cfg Config) (Scorer, error) {
	switch {
	case cfg.FixturePath != "":
		return LoadStaticScorer(cfg.FixturePath)
	case cfg.APIKey != "" && cfg.Log != nil:
		return NewLiveScorerWithLogger(cfg, cfg.Log), nil
	case cfg.APIKey != "":
		return NewLiveScorer(cfg), nil
	case cfg.DefaultWeight != nil:
		return NewDefaultScorerWithWeight(*cfg.DefaultWeight), nil
	default:
		return NewDefaultScorer(), nil
	}
}

// Fallback is the estimate applied when a scorer call fails.
func Fallback(a, b string) PairScore {
	return PairScore{
		Weight:       DefaultWeight,
		RelationType: DefaultRelationType,
		Description:  "Relationship between " + a + " and " + b,
	}
}

// Truncate caps candidates at maxCount. A non-positive maxCount yields none.
func Truncate(cands []Candidate, maxCount int) []Candidate {
	if maxCount <= 0 {
		return []Candidate{}
	}
	if len(cands) > maxCount {
		return cands[:maxCount]
	}
	return cands
}
