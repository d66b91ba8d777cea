// Package deepsearch runs the end-to-end analysis: build or expand a graph
// from seed entities, analyze neighborhoods and connecting paths, compute
// statistics and write the run artifacts.
package deepsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/export"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/paths"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/stats"
)

const (
	DefaultOrder             = 1
	DefaultMaxPerEntity      = 3
	DefaultThreshold         = 0.2
	DefaultNeighborhoodOrder = 3
	DefaultProject           = "default"
	// TotalSteps is the number of progress steps reported by Run.
	TotalSteps = 5
)

var ErrNoEntities = errors.New("at least one entity is required")

// Request describes one run.
type Request struct {
	Entities     []string
	Context      string
	Expand       bool
	Order        int
	MaxPerEntity int
	Threshold    float64
	CrossLink    bool
	// Describe asks the scorer for a short description of every entity.
	Describe          bool
	NeighborhoodOrder int
	MaxPathLength     int
	// OutputDir receives JSON and HTML artifacts; empty skips file output.
	OutputDir string
	NoHTML    bool
	Project   string
	// Progress, when set, is called as each step starts.
	Progress func(step int, message string)
}

func (r *Request) applyDefaults() {
	if r.Order <= 0 {
		r.Order = DefaultOrder
	}
	if r.MaxPerEntity <= 0 {
		r.MaxPerEntity = DefaultMaxPerEntity
	}
	if r.NeighborhoodOrder <= 0 {
		r.NeighborhoodOrder = DefaultNeighborhoodOrder
	}
	if r.MaxPathLength <= 0 {
		r.MaxPathLength = paths.DefaultMaxPathLength
	}
	if r.Project == "" {
		r.Project = DefaultProject
	}
}

// Result is everything a run produced. It is written to results.json.
type Result struct {
	RunID         string                                  `json:"runId"`
	StartedAt     time.Time                               `json:"startedAt"`
	Duration      time.Duration                           `json:"duration"`
	Entities      []string                                `json:"entities"`
	Context       string                                  `json:"context"`
	Scorer        string                                  `json:"scorer"`
	Build         analyzer.BuildReport                    `json:"build"`
	Expansion     *analyzer.ExpansionReport               `json:"expansion,omitempty"`
	Neighborhoods map[string][]apptype.NeighborhoodLayer `json:"neighborhoodAnalysis"`
	Paths         map[string]paths.PathSummary            `json:"pathAnalysis"`
	Influence     []analyzer.RankedEntity                 `json:"influence"`
	Relationships analyzer.RelationshipSummary            `json:"relationshipSummary"`
	Statistics    stats.Report                            `json:"statistics"`
	Conclusions   []string                                `json:"conclusions"`
	Graph         export.GraphDocument                    `json:"graphData"`
	Artifacts     []string                                `json:"artifacts,omitempty"`
	SinkErrors    map[string]string                       `json:"sinkErrors,omitempty"`

	// Store is the final graph, for callers that keep querying it.
	Store *graphstore.Store `json:"-"`
}

// Pipeline runs requests against one scorer and a set of export sinks.
type Pipeline struct {
	scorer scorer.Scorer
	cfg    analyzer.Config
	sinks  []export.Sink
	log    logrus.FieldLogger
}

// New builds a pipeline. Sinks receive the final graph of every run.
func New(sc scorer.Scorer, cfg analyzer.Config, log logrus.FieldLogger, sinks ...export.Sink) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{scorer: sc, cfg: cfg, sinks: sinks, log: log}
}

// Run executes req on a fresh graph.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	return p.RunOn(ctx, graphstore.New(), req)
}

// RunOn executes req against an existing store, growing it in place.
func (p *Pipeline) RunOn(ctx context.Context, store *graphstore.Store, req Request) (*Result, error) {
	req.applyDefaults()
	seeds := dedupe(req.Entities)
	if len(seeds) == 0 {
		return nil, ErrNoEntities
	}

	res := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Entities:  seeds,
		Context:   req.Context,
		Scorer:    p.scorer.Name(),
		Store:     store,
	}
	log := p.log.WithFields(logrus.Fields{"run_id": res.RunID, "project": req.Project})
	an := analyzer.New(store, p.scorer, p.cfg, log)
	progress := func(step int, msg string) {
		log.WithField("step", step).Info(msg)
		if req.Progress != nil {
			req.Progress(step, msg)
		}
	}

	progress(1, "building relationship graph")
	build, err := an.BuildGraphFromEntities(ctx, seeds, req.Context, req.Threshold)
	res.Build = build
	if err != nil {
		return res, fmt.Errorf("build graph: %w", err)
	}
	if req.Expand {
		progress(1, fmt.Sprintf("expanding entity network (order=%d)", req.Order))
		exp, err := an.ExpandNetwork(ctx, req.Context, analyzer.ExpandOptions{
			Order:        req.Order,
			MaxPerEntity: req.MaxPerEntity,
			Threshold:    req.Threshold,
			CrossLink:    req.CrossLink,
		})
		res.Expansion = &exp
		if err != nil {
			return res, fmt.Errorf("expand network: %w", err)
		}
	}
	if req.Describe {
		n := an.DescribeEntities(ctx, req.Context)
		log.WithField("described", n).Debug("entity descriptions fetched")
	}
	metrics.Default().SetGraphSize(req.Project, store.Order(), store.Size())

	progress(2, "analyzing neighborhood orders")
	res.Neighborhoods = AnalyzeNeighborhoods(store, seeds, req.NeighborhoodOrder)

	progress(3, "analyzing connection paths")
	res.Paths = AnalyzePaths(store, seeds, req.MaxPathLength)

	progress(4, "calculating network statistics")
	res.Influence = an.RankByInfluence(0)
	res.Relationships = analyzer.Summarize(store)
	res.Statistics = stats.Compute(store)
	res.Conclusions = stats.Conclusions(res.Statistics, SeedDistances(res.Paths))
	res.Graph = export.NewDocument(store.Snapshot())

	progress(5, "writing artifacts")
	p.exportSinks(ctx, req.Project, res, log)
	res.Duration = time.Since(res.StartedAt)
	if req.OutputDir != "" {
		if err := writeArtifacts(req, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (p *Pipeline) exportSinks(ctx context.Context, project string, res *Result, log logrus.FieldLogger) {
	for _, s := range p.sinks {
		if err := s.Export(ctx, project, res.Graph); err != nil {
			log.WithError(err).WithField("sink", s.Name()).Warn("export sink failed")
			if res.SinkErrors == nil {
				res.SinkErrors = map[string]string{}
			}
			res.SinkErrors[s.Name()] = err.Error()
		}
	}
}

func writeArtifacts(req Request, res *Result) error {
	js := export.NewJSONStore(req.OutputDir)
	graphPath, err := js.WriteGraph(res.Graph)
	if err != nil {
		return err
	}
	res.Artifacts = append(res.Artifacts, graphPath)
	if !req.NoHTML {
		title := "Knowledge Graph"
		if req.Context != "" {
			title += ": " + req.Context
		}
		v := export.NewHTMLVisualizer(req.OutputDir, title)
		graphHTML, err := v.RenderGraph(res.Graph)
		if err != nil {
			return err
		}
		res.Artifacts = append(res.Artifacts, graphHTML)
		charts, err := v.RenderDistributions(res.Statistics)
		res.Artifacts = append(res.Artifacts, charts...)
		if err != nil {
			return err
		}
	}
	resultsPath, err := js.WriteResults(res)
	if err != nil {
		return err
	}
	res.Artifacts = append(res.Artifacts, resultsPath)
	return nil
}

// Close releases every sink.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// dedupe drops blank names and repeated keys, keeping first spellings.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		k := graphstore.NormalizeName(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, n)
	}
	return out
}
