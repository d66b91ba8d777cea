package server

import (
	"context"
	"sort"
	"sync"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
)

// projects keeps one analyzer (and so one graph) per project name. Graphs
// live for the lifetime of the process; when a database is configured an
// unknown project is first reloaded from it.
type projects struct {
	mu     sync.Mutex
	byName map[string]*analyzer.Analyzer
}

func newProjects() *projects {
	return &projects{byName: make(map[string]*analyzer.Analyzer)}
}

// project returns the project's analyzer, creating or reloading it on first use.
func (s *MCPServer) project(ctx context.Context, name string) *analyzer.Analyzer {
	s.projects.mu.Lock()
	defer s.projects.mu.Unlock()
	if an, ok := s.projects.byName[name]; ok {
		return an
	}
	store := graphstore.New()
	if s.db != nil {
		snap, err := s.db.ReadGraph(ctx, name)
		if err != nil {
			s.log.WithError(err).WithField("project", name).Warn("could not reload project graph")
		} else if loaded, err := graphstore.Load(snap); err == nil {
			store = loaded
		}
	}
	an := analyzer.New(store, s.scorer, s.cfg, s.log.WithField("project", name))
	s.projects.byName[name] = an
	return an
}

// replace installs a fresh graph for the project.
func (s *MCPServer) replace(name string, store *graphstore.Store) {
	an := analyzer.New(store, s.scorer, s.cfg, s.log.WithField("project", name))
	s.projects.mu.Lock()
	s.projects.byName[name] = an
	s.projects.mu.Unlock()
	metrics.Default().SetGraphSize(name, store.Order(), store.Size())
}

func (p *projects) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.byName))
	for n := range p.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
