package deepsearch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/export"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/logging"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

func languageScorer() *scorer.StaticScorer {
	sc := scorer.NewStaticScorer()
	sc.SetPair("Python", "JavaScript", scorer.PairScore{Weight: 0.8, RelationType: "related_language"})
	sc.SetPair("JavaScript", "Rust", scorer.PairScore{Weight: 0.6, RelationType: "related_language"})
	sc.SetPair("Python", "Rust", scorer.PairScore{Weight: 0.1, RelationType: "related_language"})
	return sc
}

type recordingSink struct {
	name     string
	err      error
	exported []export.GraphDocument
	closed   bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Export(_ context.Context, _ string, doc export.GraphDocument) error {
	s.exported = append(s.exported, doc)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

func TestRun_BuildAndAnalyze(t *testing.T) {
	p := New(languageScorer(), analyzer.DefaultConfig(), logging.Discard())

	var steps []int
	res, err := p.Run(context.Background(), Request{
		Entities:  []string{"Python", "JavaScript", "Rust", "python"},
		Context:   "programming languages",
		Threshold: DefaultThreshold,
		Progress:  func(step int, _ string) { steps = append(steps, step) },
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Python", "JavaScript", "Rust"}, res.Entities)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, steps)
	assert.Equal(t, "static", res.Scorer)
	assert.NotEmpty(t, res.RunID)
	assert.Nil(t, res.Expansion)
	assert.Equal(t, 3, res.Store.Order())
	assert.Equal(t, 2, res.Store.Size())

	layers := res.Neighborhoods["Python"]
	require.NotEmpty(t, layers)
	assert.Equal(t, 1, layers[0].Order)
	assert.Equal(t, 1, layers[0].Count)

	require.Len(t, res.Paths, 3)
	pr := res.Paths[PairKey("Python", "Rust")]
	assert.Equal(t, 2, pr.ShortestLength)
	assert.Equal(t, []string{"Python", "JavaScript", "Rust"}, pr.ShortestPath)

	require.NotEmpty(t, res.Conclusions)
	assert.Equal(t, "Analyzed a network of 3 entities with 2 relationships", res.Conclusions[0])
	assert.Contains(t, res.Conclusions, "Query entities are connected with an average distance of 1.3 hops")
	assert.Len(t, res.Graph.Nodes, 3)
	assert.Len(t, res.Graph.Edges, 2)
	assert.Empty(t, res.Artifacts)
}

func TestRun_Expand(t *testing.T) {
	sc := languageScorer()
	sc.SetRelated("Python", scorer.Candidate{Name: "Django", Weight: 0.9, RelationType: "framework"})
	p := New(sc, analyzer.DefaultConfig(), logging.Discard())

	res, err := p.Run(context.Background(), Request{
		Entities:  []string{"Python", "JavaScript"},
		Expand:    true,
		Threshold: DefaultThreshold,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Expansion)
	assert.True(t, res.Store.Has("Django"))

	e, ok := res.Store.Entity("Django")
	require.True(t, ok)
	assert.Equal(t, 1, e.Level)
}

func TestRun_NoEntities(t *testing.T) {
	p := New(languageScorer(), analyzer.DefaultConfig(), logging.Discard())
	_, err := p.Run(context.Background(), Request{Entities: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoEntities)
}

func TestRun_WritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	p := New(languageScorer(), analyzer.DefaultConfig(), logging.Discard())

	res, err := p.Run(context.Background(), Request{
		Entities:  []string{"Python", "JavaScript"},
		Context:   "languages",
		Threshold: DefaultThreshold,
		OutputDir: dir,
	})
	require.NoError(t, err)

	for _, name := range []string{
		export.GraphFile, export.ResultsFile,
		export.GraphHTMLFile, export.WeightHTMLFile, export.DegreeHTMLFile,
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.Len(t, res.Artifacts, 5)

	raw, err := os.ReadFile(filepath.Join(dir, export.ResultsFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"entities", "context", "neighborhoodAnalysis", "pathAnalysis", "statistics", "conclusions", "graphData"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "languages", decoded["context"])
}

func TestRun_NoHTML(t *testing.T) {
	dir := t.TempDir()
	p := New(languageScorer(), analyzer.DefaultConfig(), logging.Discard())

	res, err := p.Run(context.Background(), Request{
		Entities:  []string{"Python", "JavaScript"},
		OutputDir: dir,
		NoHTML:    true,
	})
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 2)
	assert.NoFileExists(t, filepath.Join(dir, export.GraphHTMLFile))
}

func TestRun_SinkErrorsAreRecorded(t *testing.T) {
	good := &recordingSink{name: "good"}
	bad := &recordingSink{name: "bad", err: errors.New("connection refused")}
	p := New(languageScorer(), analyzer.DefaultConfig(), logging.Discard(), good, bad)

	res, err := p.Run(context.Background(), Request{Entities: []string{"Python", "JavaScript"}})
	require.NoError(t, err)

	require.Len(t, good.exported, 1)
	assert.Len(t, good.exported[0].Nodes, 2)
	assert.Equal(t, map[string]string{"bad": "connection refused"}, res.SinkErrors)

	require.NoError(t, p.Close())
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
}

func TestRunOn_GrowsExistingStore(t *testing.T) {
	p := New(languageScorer(), analyzer.DefaultConfig(), logging.Discard())
	first, err := p.Run(context.Background(), Request{Entities: []string{"Python", "JavaScript"}})
	require.NoError(t, err)

	second, err := p.RunOn(context.Background(), first.Store, Request{Entities: []string{"JavaScript", "Rust"}})
	require.NoError(t, err)
	assert.Same(t, first.Store, second.Store)
	assert.Equal(t, 3, second.Store.Order())
	assert.Equal(t, 2, second.Store.Size())
}

func TestSeedDistances(t *testing.T) {
	assert.Empty(t, SeedDistances(nil))
}
