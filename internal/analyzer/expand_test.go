package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

func TestExpand_TerminatesWhenLevelFindsNothing(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.SetPair("A", "B", scorer.PairScore{Weight: 0.6, RelationType: "x"})
	sc.SetRelated("A", scorer.Candidate{Name: "C", Weight: 0.7})
	// C only points back at known entities, so level 2 discovers nothing new.
	sc.SetRelated("C", scorer.Candidate{Name: "A", Weight: 0.4}, scorer.Candidate{Name: "B", Weight: 0.1})
	a := newTestAnalyzer(sc)

	_, err := a.BuildGraphFromEntities(context.Background(), []string{"A", "B"}, "", 0.2)
	require.NoError(t, err)
	report, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 3, MaxPerEntity: 2, Threshold: 0.2})
	require.NoError(t, err)

	require.Len(t, report.Levels, 2)
	assert.Equal(t, []string{"C"}, report.Levels[0].Discovered)
	assert.Empty(t, report.Levels[1].Discovered)
	assert.True(t, report.StoppedEarly)
	queries := sc.RelatedQueries()
	require.Len(t, queries, 3, "no level 3 query expected")
	assert.ElementsMatch(t, []string{"a", "b"}, queries[:2])
	assert.Equal(t, "c", queries[2])

	// C-A was rescored during expansion and overwritten; C-B fell below threshold.
	rel, ok := a.Store().Relationship("A", "C")
	require.True(t, ok)
	assert.Equal(t, 0.4, rel.Weight)
	_, ok = a.Store().Relationship("B", "C")
	assert.False(t, ok)

	c, ok := a.Store().Entity("c")
	require.True(t, ok)
	assert.Equal(t, 1, c.Level)
}

func TestExpand_NeverQueriesEntityTwice(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.SetRelated("root", scorer.Candidate{Name: "x", Weight: 0.5}, scorer.Candidate{Name: "y", Weight: 0.5})
	sc.SetRelated("x", scorer.Candidate{Name: "z", Weight: 0.5}, scorer.Candidate{Name: "root", Weight: 0.5})
	sc.SetRelated("y", scorer.Candidate{Name: "z", Weight: 0.5})
	sc.SetRelated("z", scorer.Candidate{Name: "w", Weight: 0.5})
	a := newTestAnalyzer(sc, func(c *Config) { c.Workers = 3 })
	_, err := a.Store().AddEntity("root")
	require.NoError(t, err)

	report, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 5, MaxPerEntity: 5, Threshold: 0})
	require.NoError(t, err)
	for _, name := range []string{"root", "x", "y", "z", "w"} {
		assert.Equal(t, 1, sc.RelatedCalls(name), name)
	}
	assert.Equal(t, 4, report.Discovered)

	// A second call finds no unexpanded frontier.
	again, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 2, MaxPerEntity: 5, Threshold: 0})
	require.NoError(t, err)
	assert.Empty(t, again.Levels)
	assert.Equal(t, 1, sc.RelatedCalls("root"))
}

func TestExpand_RespectsMaxPerEntityAndThreshold(t *testing.T) {
	sc := funcScorer{
		score: func(context.Context, string, string) (scorer.PairScore, error) { return scorer.PairScore{}, nil },
		related: func(_ context.Context, entity string, max int) ([]scorer.Candidate, error) {
			all := []scorer.Candidate{{Name: entity + "-1", Weight: 0.9}, {Name: entity + "-2", Weight: 0.1}, {Name: entity + "-3", Weight: 0.9}}
			return all, nil
		},
	}
	a := newTestAnalyzer(sc)
	_, err := a.Store().AddEntity("seed")
	require.NoError(t, err)

	report, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 1, MaxPerEntity: 2, Threshold: 0.2})
	require.NoError(t, err)
	assert.Equal(t, []string{"seed-1", "seed-2"}, report.Levels[0].Discovered)
	assert.Equal(t, 1, report.Levels[0].Linked)
	assert.False(t, a.Store().Has("seed-3"))
	assert.True(t, a.Store().Has("seed-2"))
	assert.Empty(t, a.Store().Neighbors("seed-2"))
}

func TestExpand_FailureSkipsEntity(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.FailRelated("a", scorer.ErrUnavailable)
	sc.SetRelated("b", scorer.Candidate{Name: "c", Weight: 0.8})
	a := newTestAnalyzer(sc)
	_, err := a.BuildGraphFromEntities(context.Background(), []string{"a", "b"}, "", 0.5)
	require.NoError(t, err)

	report, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 1, MaxPerEntity: 3, Threshold: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Levels[0].Failures)
	assert.True(t, a.Store().Has("c"))
}

func TestExpand_EntityCeiling(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.SetRelated("a",
		scorer.Candidate{Name: "b", Weight: 0.5},
		scorer.Candidate{Name: "c", Weight: 0.5},
		scorer.Candidate{Name: "d", Weight: 0.5},
	)
	a := newTestAnalyzer(sc, func(c *Config) { c.MaxEntities = 3 })
	_, err := a.Store().AddEntity("a")
	require.NoError(t, err)

	report, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 1, MaxPerEntity: 5, Threshold: 0})
	require.NoError(t, err)
	assert.True(t, report.Capped)
	assert.Equal(t, 3, a.Store().Order())
	assert.False(t, a.Store().Has("d"))
}

func TestExpand_CrossLink(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.SetPair("a", "b", scorer.PairScore{Weight: 0.5, RelationType: "x"})
	sc.SetPair("b", "c", scorer.PairScore{Weight: 0.7, RelationType: "y"})
	sc.SetRelated("a", scorer.Candidate{Name: "c", Weight: 0.6})
	a := newTestAnalyzer(sc)
	_, err := a.BuildGraphFromEntities(context.Background(), []string{"a", "b"}, "", 0.2)
	require.NoError(t, err)
	before := sc.PairCalls()

	report, err := a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 1, MaxPerEntity: 2, Threshold: 0.2, CrossLink: true})
	require.NoError(t, err)
	require.NotNil(t, report.CrossLinks)
	// Only b-c is new: a-c was linked by expansion itself.
	assert.Equal(t, 1, sc.PairCalls()-before)
	rel, ok := a.Store().Relationship("b", "c")
	require.True(t, ok)
	assert.Equal(t, "y", rel.RelationType)
}

func TestExpand_GraphOnlyGrows(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.SetPair("a", "b", scorer.PairScore{Weight: 0.9, RelationType: "x"})
	sc.SetRelated("a", scorer.Candidate{Name: "n1", Weight: 0.3})
	sc.SetRelated("n1", scorer.Candidate{Name: "n2", Weight: 0.3})
	a := newTestAnalyzer(sc)
	_, err := a.BuildGraphFromEntities(context.Background(), []string{"a", "b"}, "", 0.2)
	require.NoError(t, err)
	before := a.Store().Snapshot()

	_, err = a.ExpandNetwork(context.Background(), "", ExpandOptions{Order: 2, MaxPerEntity: 1, Threshold: 0.2})
	require.NoError(t, err)
	after := a.Store().Snapshot()
	for _, r := range before.Relationships {
		got, ok := a.Store().Relationship(r.A, r.B)
		require.True(t, ok)
		assert.Equal(t, r.Weight, got.Weight)
	}
	assert.Len(t, after.Entities, 4)
}

func TestRankingAndSummary(t *testing.T) {
	sc := scorer.NewStaticScorer()
	sc.SetPair("hub", "a", scorer.PairScore{Weight: 0.9, RelationType: "x"})
	sc.SetPair("hub", "b", scorer.PairScore{Weight: 0.7, RelationType: "x"})
	sc.SetPair("hub", "c", scorer.PairScore{Weight: 0.5, RelationType: "y"})
	sc.SetPair("a", "b", scorer.PairScore{Weight: 0.2, RelationType: "y"})
	a := newTestAnalyzer(sc)
	_, err := a.BuildGraphFromEntities(context.Background(), []string{"hub", "a", "b", "c"}, "", 0.1)
	require.NoError(t, err)

	top := StrongestConnections(a.Store(), "hub", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].Name)
	assert.Equal(t, "b", top[1].Name)

	ranked := a.RankByInfluence(1)
	require.Len(t, ranked, 1)
	assert.Equal(t, "hub", ranked[0].Name)
	hub, _ := a.Store().Entity("hub")
	assert.InDelta(t, ranked[0].Score, hub.Importance, 1e-12)
	assert.InDelta(t, 0.7*(1+0.1386294361), InfluenceScore(a.Store(), "hub"), 1e-6)
	assert.Zero(t, InfluenceScore(a.Store(), "ghost"))

	sum := Summarize(a.Store())
	assert.Equal(t, 4, sum.Total)
	assert.InDelta(t, 0.575, sum.AverageWeight, 1e-9)
	assert.Equal(t, 0.2, sum.MinWeight)
	assert.Equal(t, 0.9, sum.MaxWeight)
	assert.Equal(t, map[string]int{BucketWeak: 1, BucketModerate: 1, BucketStrong: 1, BucketVeryStrong: 1}, sum.Buckets)
	assert.Equal(t, map[string]int{"x": 2, "y": 2}, sum.Types)
}
