package analyzer

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

// ExpandOptions controls ExpandNetwork.
type ExpandOptions struct {
	Order        int
	MaxPerEntity int
	Threshold    float64
	// CrossLink scores every new entity against all other entities after each level.
	CrossLink bool
}

// LevelReport describes one expansion level.
type LevelReport struct {
	Level      int      `json:"level"`
	Queried    []string `json:"queried"`
	Discovered []string `json:"discovered"`
	Linked     int      `json:"linked"`
	Failures   int      `json:"failures"`
}

// ExpansionReport summarizes one ExpandNetwork call.
type ExpansionReport struct {
	Levels       []LevelReport `json:"levels"`
	Discovered   int           `json:"discovered"`
	StoppedEarly bool          `json:"stoppedEarly"`
	Capped       bool          `json:"capped"`
	CrossLinks   *BuildReport  `json:"crossLinks,omitempty"`
	Duration     time.Duration `json:"duration"`
}

type relatedResult struct {
	source string
	cands  []scorer.Candidate
	err    error
}

// ExpandNetwork grows the graph outward from every current entity, level by
// level, for up to opts.Order levels. No entity is ever expanded twice by the
// same analyzer and the graph only grows. A level that discovers nothing new
// ends expansion.
func (a *Analyzer) ExpandNetwork(ctx context.Context, topic string, opts ExpandOptions) (report ExpansionReport, err error) {
	start := time.Now()
	report = ExpansionReport{Levels: []LevelReport{}}
	if err = validThreshold(opts.Threshold); err != nil {
		return report, err
	}
	ctx, span := startExpandSpan(ctx, opts)
	defer func() {
		report.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("analyzer.levels", len(report.Levels)),
			attribute.Int("analyzer.discovered", report.Discovered),
		)
		endSpan(span, err)
	}()

	frontier := make([]string, 0, a.store.Order())
	for _, e := range a.store.Entities() {
		frontier = append(frontier, e.Name)
	}

	for level := 1; level <= opts.Order; level++ {
		queue := make([]string, 0, len(frontier))
		for _, name := range frontier {
			if a.expanded.Add(graphstore.NormalizeName(name)) {
				queue = append(queue, name)
			}
		}
		if len(queue) == 0 {
			report.StoppedEarly = true
			break
		}

		results := a.findRelated(ctx, queue, topic, opts.MaxPerEntity)
		lr, capped := a.commitLevel(level, results, opts)
		discovered := lr.Discovered
		report.Levels = append(report.Levels, lr)
		report.Discovered += len(discovered)
		report.Capped = report.Capped || capped
		metrics.Default().IncExpansionEntities(level, len(discovered))

		a.log.WithFields(logrus.Fields{
			"level":      level,
			"queried":    len(lr.Queried),
			"discovered": len(discovered),
			"failures":   lr.Failures,
			"order":      a.store.Order(),
		}).Info("expansion level complete")

		if opts.CrossLink && len(discovered) > 0 {
			if report.CrossLinks == nil {
				report.CrossLinks = &BuildReport{Entities: []string{}}
			}
			if err = a.crossLink(ctx, discovered, topic, opts.Threshold, report.CrossLinks); err != nil {
				return report, err
			}
		}
		if err = ctx.Err(); err != nil {
			return report, err
		}
		if len(discovered) == 0 {
			report.StoppedEarly = level < opts.Order
			break
		}
		frontier = discovered
	}
	return report, nil
}

// findRelated queries every queued entity on the worker pool. Results keep
// queue order so commits are deterministic.
func (a *Analyzer) findRelated(ctx context.Context, queue []string, topic string, maxPerEntity int) []relatedResult {
	results := make([]relatedResult, len(queue))
	g := new(errgroup.Group)
	g.SetLimit(a.cfg.Workers)
	for i, name := range queue {
		results[i].source = name
		if ctx.Err() != nil {
			results[i].err = ctx.Err()
			continue
		}
		g.Go(func() error {
			done := metrics.TimeScorer("find_related")
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.ScorerTimeout)
			defer cancel()
			callCtx, span := startScoreSpan(callCtx, "FindRelated", name)
			cands, err := a.scorer.FindRelated(callCtx, name, topic, maxPerEntity)
			endSpan(span, err)
			switch {
			case err == nil:
				done(metrics.OutcomeOK)
			case ctx.Err() != nil:
				done(metrics.OutcomeCanceled)
			default:
				done(metrics.OutcomeFallback)
			}
			results[i].cands = scorer.Truncate(cands, maxPerEntity)
			results[i].err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// commitLevel adds candidates to the store in result order. It reports
// whether candidates were dropped because the entity ceiling was reached.
func (a *Analyzer) commitLevel(level int, results []relatedResult, opts ExpandOptions) (LevelReport, bool) {
	lr := LevelReport{Level: level, Queried: []string{}, Discovered: []string{}}
	capped := false
	for _, res := range results {
		lr.Queried = append(lr.Queried, res.source)
		if res.err != nil {
			lr.Failures++
			a.log.WithError(res.err).WithField("entity", res.source).Warn("expansion failed for entity")
			continue
		}
		for _, c := range res.cands {
			key := graphstore.NormalizeName(c.Name)
			if key == "" || key == graphstore.NormalizeName(res.source) {
				continue
			}
			if !a.store.Has(c.Name) && a.store.Order() >= a.cfg.MaxEntities {
				capped = true
				continue
			}
			ent, created, err := a.store.AddEntityAtLevel(c.Name, level)
			if err != nil {
				continue
			}
			if created {
				lr.Discovered = append(lr.Discovered, ent.Name)
			}
			if c.Weight < opts.Threshold {
				continue
			}
			desc := fmt.Sprintf("%s discovered from %s", ent.Name, res.source)
			if _, err := a.store.AddRelationship(res.source, ent.Name, c.Weight, c.RelationType, desc); err != nil {
				a.log.WithError(err).WithFields(logrus.Fields{"a": res.source, "b": ent.Name}).Warn("rejected relationship")
				continue
			}
			a.scored.Add(pairID(res.source, ent.Name))
			lr.Linked++
		}
	}
	if capped {
		a.log.WithField("max_entities", a.cfg.MaxEntities).Warn("entity ceiling reached, dropping candidates")
	}
	return lr, capped
}

// crossLink scores each newly discovered entity against every other entity
// whose pair has not been scored yet.
func (a *Analyzer) crossLink(ctx context.Context, discovered []string, topic string, threshold float64, report *BuildReport) error {
	all := a.store.Entities()
	var pairs []pair
	planned := mapset.NewSet[[2]string]()
	for _, d := range discovered {
		for _, other := range all {
			id := pairID(d, other.Name)
			if id[0] == id[1] || planned.Contains(id) || a.scored.Contains(id) {
				continue
			}
			planned.Add(id)
			pairs = append(pairs, pair{d, other.Name})
		}
	}
	return a.scorePairs(ctx, pairs, topic, threshold, report)
}
