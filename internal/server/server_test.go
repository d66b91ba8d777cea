package server

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/database"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/export"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/logging"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

func testScorer() *scorer.StaticScorer {
	sc := scorer.NewStaticScorer()
	sc.SetPair("Python", "JavaScript", scorer.PairScore{Weight: 0.8, RelationType: "related_language"})
	sc.SetPair("JavaScript", "Rust", scorer.PairScore{Weight: 0.6, RelationType: "related_language"})
	sc.SetRelated("Python", scorer.Candidate{Name: "Django", Weight: 0.9, RelationType: "framework"})
	return sc
}

func newTestServer(t *testing.T, db *database.DBManager) *MCPServer {
	t.Helper()
	opts := Options{
		Scorer:   testScorer(),
		Analyzer: analyzer.DefaultConfig(),
		Log:      logging.Discard(),
	}
	if db != nil {
		opts.DB = db
		opts.Sinks = []export.Sink{db}
	}
	return NewMCPServer(opts)
}

func params[T any](args T) *mcp.CallToolParamsFor[T] {
	return &mcp.CallToolParamsFor[T]{Arguments: args}
}

func TestBuildThenQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.handleBuildGraph(ctx, nil, params(apptype.BuildGraphArgs{
		Entities: []string{"Python", "JavaScript", "Rust"},
		Context:  "programming languages",
	}))
	require.NoError(t, err)

	nb, err := s.handleNeighbors(ctx, nil, params(apptype.EntityArgs{Name: "javascript"}))
	require.NoError(t, err)
	assert.True(t, nb.StructuredContent.Found)
	assert.Equal(t, "JavaScript", nb.StructuredContent.Entity)
	require.Len(t, nb.StructuredContent.Neighbors, 2)
	assert.Equal(t, "Python", nb.StructuredContent.Neighbors[0].Name)

	layers, err := s.handleNeighborhoodOrders(ctx, nil, params(apptype.NeighborhoodArgs{Name: "Python"}))
	require.NoError(t, err)
	require.Len(t, layers.StructuredContent.Layers, 2)
	assert.Equal(t, 1, layers.StructuredContent.Layers[1].Count)

	ps, err := s.handleConnectingPaths(ctx, nil, params(apptype.PathArgs{Source: "Python", Target: "Rust"}))
	require.NoError(t, err)
	require.Len(t, ps.StructuredContent.Paths, 1)
	assert.Equal(t, []string{"Python", "JavaScript", "Rust"}, ps.StructuredContent.Paths[0].Nodes)

	sum, err := s.handlePathSummary(ctx, nil, params(apptype.PathArgs{Source: "Python", Target: "Rust"}))
	require.NoError(t, err)
	assert.True(t, sum.StructuredContent.Connected)
	assert.Equal(t, 2, sum.StructuredContent.ShortestLength)

	st, err := s.handleGraphStats(ctx, nil, params(apptype.ReadGraphArgs{}))
	require.NoError(t, err)
	assert.Equal(t, 3, st.StructuredContent.Basic.Nodes)
	assert.Equal(t, map[string]int{"1": 2, "2": 1}, st.StructuredContent.DegreeDistribution)
	assert.Equal(t, "Analyzed a network of 3 entities with 2 relationships", st.StructuredContent.Conclusions[0])
}

func TestExpandNetwork(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.handleExpandNetwork(ctx, nil, params(apptype.ExpandNetworkArgs{}))
	assert.Error(t, err, "expanding an empty project")

	_, err = s.handleBuildGraph(ctx, nil, params(apptype.BuildGraphArgs{Entities: []string{"Python", "JavaScript"}}))
	require.NoError(t, err)
	res, err := s.handleExpandNetwork(ctx, nil, params(apptype.ExpandNetworkArgs{Order: 1}))
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)

	graph, err := s.handleReadGraph(ctx, nil, params(apptype.ReadGraphArgs{}))
	require.NoError(t, err)
	assert.Len(t, graph.StructuredContent.Entities, 3)
}

func TestProjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.handleBuildGraph(ctx, nil, params(apptype.BuildGraphArgs{
		ProjectArgs: apptype.ProjectArgs{ProjectName: "alpha"},
		Entities:    []string{"Python", "JavaScript"},
	}))
	require.NoError(t, err)

	other, err := s.handleReadGraph(ctx, nil, params(apptype.ReadGraphArgs{ProjectArgs: apptype.ProjectArgs{ProjectName: "beta"}}))
	require.NoError(t, err)
	assert.Empty(t, other.StructuredContent.Entities)

	h, err := s.handleHealth(ctx, nil, params(apptype.HealthArgs{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, h.StructuredContent.Projects)
	assert.Equal(t, "static", h.StructuredContent.Scorer)
	assert.False(t, h.StructuredContent.Persistence)
}

func TestBuildGraph_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t, nil)

	_, err := s.handleBuildGraph(ctx, nil, params(apptype.BuildGraphArgs{}))
	assert.Error(t, err)

	bad := 1.5
	_, err = s.handleBuildGraph(ctx, nil, params(apptype.BuildGraphArgs{Entities: []string{"a", "b"}, Threshold: &bad}))
	assert.ErrorIs(t, err, analyzer.ErrInvalidThreshold)
}

func TestDeepSearch_PersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	cfg := database.NewConfig()
	cfg.URL = "file:server-test?mode=memory&cache=shared"
	cfg.MultiProjectMode = false
	db, err := database.NewDBManager(cfg)
	require.NoError(t, err)
	defer db.Close()

	s := newTestServer(t, db)
	res, err := s.handleDeepSearch(ctx, nil, params(apptype.DeepSearchArgs{
		Entities: []string{"Python", "JavaScript", "Rust"},
		Context:  "programming languages",
	}))
	require.NoError(t, err)
	out := res.StructuredContent
	assert.NotEmpty(t, out.RunID)
	assert.Equal(t, 3, out.Nodes)
	assert.Equal(t, 2, out.Relationships)
	assert.Empty(t, out.SinkErrors)
	assert.Contains(t, out.Paths, "Python <-> Rust")

	// A second server sharing the database reloads the saved graph.
	fresh := newTestServer(t, db)
	graph, err := fresh.handleReadGraph(ctx, nil, params(apptype.ReadGraphArgs{}))
	require.NoError(t, err)
	loaded, err := graphstore.Load(graph.StructuredContent)
	require.NoError(t, err)
	rel, ok := loaded.Relationship("python", "javascript")
	require.True(t, ok)
	assert.Equal(t, 0.8, rel.Weight)
}
