// Package analyzer populates a graph store from seed entities and grows it by
// asking a scorer for related entities.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

const (
	DefaultWorkers       = 4
	DefaultScorerTimeout = 30 * time.Second
	// DefaultMaxEntities caps how large expansion may grow a graph.
	DefaultMaxEntities = 500
)

var ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")

// Config tunes the analyzer. Use DefaultConfig and override fields.
type Config struct {
	// DefaultWeight is applied to pairs whose scoring failed.
	DefaultWeight float64
	Workers       int
	ScorerTimeout time.Duration
	MaxEntities   int
}

// DefaultConfig returns the stock analyzer settings.
func DefaultConfig() Config {
	return Config{
		DefaultWeight: scorer.DefaultWeight,
		Workers:       DefaultWorkers,
		ScorerTimeout: DefaultScorerTimeout,
		MaxEntities:   DefaultMaxEntities,
	}
}

// Analyzer drives scorer calls and commits their results to a Store.
type Analyzer struct {
	store  *graphstore.Store
	scorer scorer.Scorer
	cfg    Config
	log    logrus.FieldLogger

	// scored holds pair keys already sent to ScorePair.
	scored mapset.Set[[2]string]
	// expanded holds entity keys already sent to FindRelated.
	expanded mapset.Set[string]
}

// New wires an analyzer around store and sc.
func New(store *graphstore.Store, sc scorer.Scorer, cfg Config, log logrus.FieldLogger) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ScorerTimeout <= 0 {
		cfg.ScorerTimeout = DefaultScorerTimeout
	}
	if cfg.MaxEntities <= 0 {
		cfg.MaxEntities = DefaultMaxEntities
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{
		store:    store,
		scorer:   sc,
		cfg:      cfg,
		log:      log.WithField("component", "analyzer"),
		scored:   mapset.NewSet[[2]string](),
		expanded: mapset.NewSet[string](),
	}
}

// Store returns the graph the analyzer writes to.
func (a *Analyzer) Store() *graphstore.Store { return a.store }

// Scorer returns the scorer in use.
func (a *Analyzer) Scorer() scorer.Scorer { return a.scorer }

// BuildReport summarizes one BuildGraphFromEntities call.
type BuildReport struct {
	Entities       []string      `json:"entities"`
	PairsScored    int           `json:"pairsScored"`
	Kept           int           `json:"kept"`
	BelowThreshold int           `json:"belowThreshold"`
	Degraded       int           `json:"degraded"`
	Duration       time.Duration `json:"duration"`
}

type pair struct{ a, b string }

func pairID(a, b string) [2]string {
	ka, kb := graphstore.NormalizeName(a), graphstore.NormalizeName(b)
	if kb < ka {
		ka, kb = kb, ka
	}
	return [2]string{ka, kb}
}

func validThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	return nil
}

// BuildGraphFromEntities adds every seed and scores every unordered pair of
// seeds, keeping relationships whose weight reaches threshold. Scorer
// failures degrade to the configured default weight. The only error returned
// after validation is cancellation, in which case everything committed so
// far stays in the store.
func (a *Analyzer) BuildGraphFromEntities(ctx context.Context, entities []string, topic string, threshold float64) (BuildReport, error) {
	start := time.Now()
	report := BuildReport{Entities: []string{}}
	if err := validThreshold(threshold); err != nil {
		return report, err
	}
	ctx, span := startBuildSpan(ctx, len(entities), threshold)

	seen := mapset.NewSet[string]()
	for _, name := range entities {
		ent, _, err := a.store.AddEntityAtLevel(name, 0)
		if err != nil {
			a.log.WithError(err).WithField("entity", name).Warn("skipping seed")
			continue
		}
		if seen.Add(ent.Key) {
			report.Entities = append(report.Entities, ent.Name)
		}
	}

	pairs := make([]pair, 0, len(report.Entities)*(len(report.Entities)-1)/2)
	for i := 0; i < len(report.Entities); i++ {
		for j := i + 1; j < len(report.Entities); j++ {
			pairs = append(pairs, pair{report.Entities[i], report.Entities[j]})
		}
	}

	err := a.scorePairs(ctx, pairs, topic, threshold, &report)
	report.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("analyzer.kept", report.Kept),
		attribute.Int("analyzer.degraded", report.Degraded),
	)
	endSpan(span, err)

	a.log.WithFields(logrus.Fields{
		"entities":        len(report.Entities),
		"pairs":           report.PairsScored,
		"kept":            report.Kept,
		"below_threshold": report.BelowThreshold,
		"degraded":        report.Degraded,
		"duration":        report.Duration.String(),
	}).Info("built graph from seed entities")
	return report, err
}

// scorePairs dispatches pairs in order on a bounded pool and commits each
// result through the store as it arrives.
func (a *Analyzer) scorePairs(ctx context.Context, pairs []pair, topic string, threshold float64, report *BuildReport) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for _, p := range pairs {
		if gctx.Err() != nil {
			break
		}
		a.scored.Add(pairID(p.a, p.b))

		g.Go(func() error {
			score, degraded, err := a.scoreOne(gctx, p.a, p.b, topic)
			if err != nil {
				return err
			}
			kept := false
			if score.Weight >= threshold {
				if _, err := a.store.AddRelationship(p.a, p.b, score.Weight, score.RelationType, score.Description); err != nil {
					a.log.WithError(err).WithFields(logrus.Fields{"a": p.a, "b": p.b}).Warn("rejected relationship")
				} else {
					kept = true
				}
			}
			mu.Lock()
			defer mu.Unlock()
			report.PairsScored++
			if degraded {
				report.Degraded++
			}
			if kept {
				report.Kept++
			} else {
				report.BelowThreshold++
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// scoreOne calls the scorer with its own deadline. A failed call yields the
// fallback estimate; only cancellation of ctx itself is returned as an error.
func (a *Analyzer) scoreOne(ctx context.Context, x, y, topic string) (scorer.PairScore, bool, error) {
	done := metrics.TimeScorer("score_pair")
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.ScorerTimeout)
	defer cancel()
	callCtx, span := startScoreSpan(callCtx, "ScorePair", x+"|"+y)

	score, err := a.scorer.ScorePair(callCtx, x, y, topic)
	if err == nil && (math.IsNaN(score.Weight) || score.Weight < 0 || score.Weight > 1) {
		err = fmt.Errorf("%w: weight %v out of range", scorer.ErrMalformedResponse, score.Weight)
	}
	endSpan(span, err)
	if err == nil {
		if score.RelationType == "" {
			score.RelationType = scorer.DefaultRelationType
		}
		done(metrics.OutcomeOK)
		return score, false, nil
	}
	if ctx.Err() != nil {
		done(metrics.OutcomeCanceled)
		return scorer.PairScore{}, false, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", scorer.ErrTimeout, err)
	}
	done(metrics.OutcomeFallback)
	a.log.WithError(err).WithFields(logrus.Fields{"a": x, "b": y}).Warn("scorer failed, using default estimate")
	fb := scorer.Fallback(x, y)
	fb.Weight = a.cfg.DefaultWeight
	return fb, true, nil
}
