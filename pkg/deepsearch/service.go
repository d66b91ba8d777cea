// Package deepsearch is the library entry point: build and expand
// relationship graphs and analyze them without the MCP transport or CLI.
package deepsearch

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/database"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/paths"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/stats"
)

type (
	Request           = deepsearch.Request
	Result            = deepsearch.Result
	BuildReport       = analyzer.BuildReport
	ExpandOptions     = analyzer.ExpandOptions
	ExpansionReport   = analyzer.ExpansionReport
	Neighbor          = apptype.Neighbor
	NeighborhoodLayer = apptype.NeighborhoodLayer
	PathRecord        = apptype.PathRecord
	PathSummary       = paths.PathSummary
	GraphSnapshot     = apptype.GraphSnapshot
	StatsReport       = stats.Report
)

// ErrNoDatabase is returned by LoadProject when no libSQL sink is configured.
var ErrNoDatabase = errors.New("no database configured")

// Service holds one working graph and the pipeline that feeds it.
type Service struct {
	scorer   scorer.Scorer
	cfg      analyzer.Config
	pipeline *deepsearch.Pipeline
	db       *database.DBManager
	log      logrus.FieldLogger

	mu sync.RWMutex
	an *analyzer.Analyzer
}

// NewService constructs a Service with the provided config.
func NewService(cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	sc, err := scorer.New(cfg.scorerConfig())
	if err != nil {
		return nil, err
	}
	db, sinks, err := deepsearch.OpenSinks(cfg.sinkConfig())
	if err != nil {
		return nil, err
	}
	ac := cfg.analyzerConfig()
	return &Service{
		scorer:   sc,
		cfg:      ac,
		pipeline: deepsearch.New(sc, ac, log, sinks...),
		db:       db,
		log:      log,
		an:       analyzer.New(graphstore.New(), sc, ac, log),
	}, nil
}

// Close releases resources.
func (s *Service) Close() error { return s.pipeline.Close() }

// ScorerName reports which scorer variant is in use.
func (s *Service) ScorerName() string { return s.scorer.Name() }

func (s *Service) current() *analyzer.Analyzer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.an
}

func (s *Service) reset(store *graphstore.Store) {
	s.mu.Lock()
	s.an = analyzer.New(store, s.scorer, s.cfg, s.log)
	s.mu.Unlock()
}

// DeepSearch runs the full pipeline on a fresh graph, which then becomes the
// service's working graph.
func (s *Service) DeepSearch(ctx context.Context, req Request) (*Result, error) {
	res, err := s.pipeline.Run(ctx, req)
	if res != nil && res.Store != nil {
		s.reset(res.Store)
	}
	return res, err
}

// Build scores every pair of entities into the working graph.
func (s *Service) Build(ctx context.Context, entities []string, topic string, threshold float64) (BuildReport, error) {
	return s.current().BuildGraphFromEntities(ctx, entities, topic, threshold)
}

// Expand grows the working graph with related entities.
func (s *Service) Expand(ctx context.Context, topic string, opts ExpandOptions) (ExpansionReport, error) {
	return s.current().ExpandNetwork(ctx, topic, opts)
}

// Neighbors returns up to limit neighbors of name, strongest first.
func (s *Service) Neighbors(name string, limit int) []Neighbor {
	return analyzer.StrongestConnections(s.current().Store(), name, limit)
}

// NeighborhoodOrders groups entities around root by hop distance.
func (s *Service) NeighborhoodOrders(root string, maxOrder int) []NeighborhoodLayer {
	return paths.NeighborhoodOrders(s.current().Store(), root, maxOrder)
}

// ConnectingPaths enumerates simple paths between a and b, strongest first.
func (s *Service) ConnectingPaths(a, b string, maxLength int) []PathRecord {
	return paths.ConnectingPaths(s.current().Store(), a, b, maxLength)
}

// PathSummary reports the shortest and strongest paths between a and b.
func (s *Service) PathSummary(a, b string, maxLength int) PathSummary {
	return paths.Summary(s.current().Store(), a, b, maxLength)
}

// Stats computes network statistics of the working graph.
func (s *Service) Stats() StatsReport {
	return stats.Compute(s.current().Store())
}

// Graph returns a copy of the working graph.
func (s *Service) Graph() GraphSnapshot {
	return s.current().Store().Snapshot()
}

// LoadProject replaces the working graph with one previously exported to
// the libSQL sink.
func (s *Service) LoadProject(ctx context.Context, project string) error {
	if s.db == nil {
		return ErrNoDatabase
	}
	snap, err := s.db.ReadGraph(ctx, project)
	if err != nil {
		return err
	}
	store, err := graphstore.Load(snap)
	if err != nil {
		return err
	}
	s.reset(store)
	return nil
}
