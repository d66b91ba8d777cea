package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/stats"
)

func sampleStore(t *testing.T) *graphstore.Store {
	t.Helper()
	s := graphstore.New()
	_, err := s.AddRelationship("Python", "JavaScript", 0.8, "alternative_to", "both scripting languages")
	require.NoError(t, err)
	_, _, err = s.AddEntityAtLevel("Django", 1)
	require.NoError(t, err)
	_, err = s.AddRelationship("Python", "Django", 0.9, "framework_of", "")
	require.NoError(t, err)
	return s
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(sampleStore(t).Snapshot())
	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Edges, 2)

	byID := map[string]Node{}
	for _, n := range doc.Nodes {
		byID[n.ID] = n
	}
	assert.True(t, byID["python"].Seed)
	assert.Equal(t, "Python", byID["python"].Label)
	assert.Equal(t, 2, byID["python"].Degree)
	assert.False(t, byID["django"].Seed)
	assert.Equal(t, 1, byID["django"].Level)

	for _, e := range doc.Edges {
		assert.Less(t, e.Source, e.Target)
	}
}

func TestJSONStore_WritesGraphAndResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	js := NewJSONStore(dir)
	doc := NewDocument(sampleStore(t).Snapshot())

	p, err := js.WriteGraph(doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, GraphFile), p)

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	var back GraphDocument
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, doc, back)

	p, err = js.WriteResults(map[string]any{"conclusions": []string{"x"}})
	require.NoError(t, err)
	raw, err = os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"conclusions"`)
}

func TestHTMLVisualizer(t *testing.T) {
	dir := t.TempDir()
	s := sampleStore(t)
	v := NewHTMLVisualizer(dir, "Languages <test>")

	p, err := v.RenderGraph(NewDocument(s.Snapshot()))
	require.NoError(t, err)
	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	page := string(raw)
	assert.Contains(t, page, "Languages &lt;test&gt;")
	assert.Contains(t, page, `"label":"JavaScript"`)
	assert.Contains(t, page, "Entities: 3, Relationships: 2")

	pages, err := v.RenderDistributions(stats.Compute(s))
	require.NoError(t, err)
	require.Len(t, pages, 2)
	weights, err := os.ReadFile(filepath.Join(dir, WeightHTMLFile))
	require.NoError(t, err)
	assert.Contains(t, string(weights), `{"label":"0.8-0.9","count":1}`)
	degrees, err := os.ReadFile(filepath.Join(dir, DegreeHTMLFile))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(degrees), `{"label":"1","count":2}`))
}
