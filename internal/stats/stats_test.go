package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

type edge struct {
	a, b string
	w    float64
}

func buildGraph(t *testing.T, edges ...edge) *graphstore.Store {
	t.Helper()
	s := graphstore.New()
	for _, e := range edges {
		_, err := s.AddRelationship(e.a, e.b, e.w, "rel", "")
		require.NoError(t, err)
	}
	return s
}

func TestCompute_Star(t *testing.T) {
	g := buildGraph(t,
		edge{"hub", "a", 0.9},
		edge{"hub", "b", 0.8},
		edge{"hub", "c", 0.7},
	)
	r := Compute(g)

	assert.Equal(t, Basic{Nodes: 4, Edges: 3, AverageDegree: 1.5, Density: 0.5}, r.Basic)
	assert.True(t, r.Connectivity.Connected)
	assert.Equal(t, 1, r.Connectivity.Components)
	assert.Equal(t, 4, r.Connectivity.LargestComponent)
	assert.Equal(t, 2, r.Connectivity.Diameter)
	// three pairs at distance 1, three at distance 2
	assert.InDelta(t, 1.5, r.Connectivity.AveragePathLength, 1e-9)

	require.NotEmpty(t, r.Centrality.Betweenness)
	assert.Equal(t, "hub", r.Centrality.Betweenness[0].Name)
	assert.InDelta(t, 1.0, r.Centrality.Betweenness[0].Score, 1e-9)
	assert.Equal(t, "hub", r.Centrality.Degree[0].Name)
	assert.InDelta(t, 1.0, r.Centrality.Degree[0].Score, 1e-9)
	assert.Equal(t, "hub", r.Centrality.Closeness[0].Name)
	assert.InDelta(t, 1.0, r.Centrality.Closeness[0].Score, 1e-9)
	assert.Equal(t, "hub", r.Centrality.PageRank[0].Name)

	assert.Equal(t, map[int]int{1: 3, 3: 1}, r.DegreeDistribution)
	assert.Zero(t, r.Clustering.AverageCoefficient)

	assert.InDelta(t, 0.8, r.Weights.Mean, 1e-9)
	assert.Equal(t, 0.7, r.Weights.Min)
	assert.Equal(t, 0.9, r.Weights.Max)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}, r.Weights.Histogram)
}

func TestCompute_Disconnected(t *testing.T) {
	g := buildGraph(t,
		edge{"a", "b", 0.5},
		edge{"b", "c", 0.5},
		edge{"x", "y", 0.5},
	)
	_, err := g.AddEntity("island")
	require.NoError(t, err)

	r := Compute(g)
	assert.False(t, r.Connectivity.Connected)
	assert.Equal(t, 3, r.Connectivity.Components)
	assert.Equal(t, 3, r.Connectivity.LargestComponent)
	assert.Equal(t, -1, r.Connectivity.Diameter)
	assert.InDelta(t, 4.0/3.0, r.Connectivity.AveragePathLength, 1e-9)

	m := ComputeMetrics(g)
	assert.Zero(t, m.Closeness["island"])
	assert.Zero(t, m.Degree["island"])
}

func TestCompute_TwoCliquesFormCommunities(t *testing.T) {
	g := buildGraph(t,
		edge{"a1", "a2", 0.9}, edge{"a1", "a3", 0.9}, edge{"a2", "a3", 0.9},
		edge{"b1", "b2", 0.9}, edge{"b1", "b3", 0.9}, edge{"b2", "b3", 0.9},
		edge{"a3", "b1", 0.1},
	)
	r := Compute(g)
	require.Len(t, r.Clustering.Communities, 2)
	assert.Equal(t, []string{"a1", "a2", "a3"}, r.Clustering.Communities[0])
	assert.Equal(t, []string{"b1", "b2", "b3"}, r.Clustering.Communities[1])
	assert.Equal(t, []int{3, 3}, r.Clustering.CommunitySizes)
	assert.Greater(t, r.Clustering.Modularity, 0.3)

	m := ComputeMetrics(g)
	assert.InDelta(t, 1.0, m.Clustering["a1"], 1e-9)
	assert.InDelta(t, 1.0/3.0, m.Clustering["a3"], 1e-9)
	assert.Greater(t, r.Clustering.AverageCoefficient, 0.5)
}

func TestCompute_Empty(t *testing.T) {
	r := Compute(graphstore.New())
	assert.Zero(t, r.Basic.Nodes)
	assert.False(t, r.Connectivity.Connected)
	assert.Empty(t, r.Centrality.PageRank)
	assert.Empty(t, r.Clustering.Communities)
	assert.Len(t, r.Weights.Histogram, WeightBins)
}

func TestTop_TiesBreakByName(t *testing.T) {
	got := Top(map[string]float64{"b": 0.5, "a": 0.5, "c": 0.9}, 2)
	assert.Equal(t, []Score{{Name: "c", Score: 0.9}, {Name: "a", Score: 0.5}}, got)
}

func TestCompareAndInfluential(t *testing.T) {
	g := buildGraph(t,
		edge{"hub", "a", 0.9},
		edge{"hub", "b", 0.8},
		edge{"hub", "c", 0.7},
	)
	cmp := CompareImportance(g, []string{"HUB", "ghost"})
	require.Len(t, cmp, 1)
	assert.InDelta(t, 1.0, cmp["hub"].Degree, 1e-9)
	assert.InDelta(t, 1.0, cmp["hub"].Betweenness, 1e-9)

	assert.Equal(t, []string{"hub"}, InfluentialEntities(g, 0.5))
}

func TestConclusions(t *testing.T) {
	g := buildGraph(t,
		edge{"hub", "a", 0.9},
		edge{"hub", "b", 0.8},
		edge{"hub", "c", 0.7},
	)
	r := Compute(g)
	lines := Conclusions(r, []int{1, 2, 0})
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Equal(t, "Analyzed a network of 4 entities with 3 relationships", lines[0])
	assert.Equal(t, "The network is fully connected with an average path length of 1.50", lines[1])
	assert.Equal(t, "Overall relationship strength is very strong (average weight: 0.80)", lines[2])
	assert.Contains(t, lines[3], "Most influential entities: hub (")
	assert.Equal(t, "Query entities are connected with an average distance of 1.5 hops", lines[4])

	split := buildGraph(t, edge{"a", "b", 0.2}, edge{"c", "d", 0.2})
	lines = Conclusions(Compute(split), nil)
	assert.Equal(t, "The network has 2 disconnected components", lines[1])
	assert.Contains(t, lines, "Overall relationship strength is weak (average weight: 0.20)")
}

func TestStrengthLabel(t *testing.T) {
	assert.Equal(t, "very strong", StrengthLabel(0.7))
	assert.Equal(t, "strong", StrengthLabel(0.5))
	assert.Equal(t, "moderate", StrengthLabel(0.3))
	assert.Equal(t, "weak", StrengthLabel(0.29))
}
