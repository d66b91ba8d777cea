package graphstore

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRelationship_VisibleFromBothEnds(t *testing.T) {
	s := New()
	_, err := s.AddRelationship("Python", "JavaScript", 0.8, "related_language", "both are languages")
	require.NoError(t, err)

	fromA := s.Neighbors("Python")
	require.Len(t, fromA, 1)
	assert.Equal(t, apptype.Neighbor{Name: "JavaScript", Weight: 0.8, RelationType: "related_language"}, fromA[0])

	fromB := s.Neighbors("javascript")
	require.Len(t, fromB, 1)
	assert.Equal(t, "Python", fromB[0].Name)
	assert.Equal(t, 0.8, fromB[0].Weight)

	assert.Equal(t, 2, s.Order())
	assert.Equal(t, 1, s.Size())
}

func TestAddEntity_Idempotent(t *testing.T) {
	s := New()
	first, err := s.AddEntity("Machine  Learning")
	require.NoError(t, err)
	second, err := s.AddEntity("machine learning")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Order())
	assert.Equal(t, "Machine Learning", second.Name)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Seq, second.Seq)
}

func TestAddRelationship_Overwrites(t *testing.T) {
	s := New()
	_, err := s.AddRelationship("a", "b", 0.4, "x", "")
	require.NoError(t, err)
	_, err = s.AddRelationship("B", "A", 0.9, "y", "later")
	require.NoError(t, err)

	assert.Equal(t, 1, s.Size())
	rel, ok := s.Relationship("a", "b")
	require.True(t, ok)
	assert.Equal(t, 0.9, rel.Weight)
	assert.Equal(t, "y", rel.RelationType)
	assert.Equal(t, "later", rel.Description)
	assert.Equal(t, "a", rel.A)
	assert.Equal(t, "b", rel.B)
}

func TestAddRelationship_Rejects(t *testing.T) {
	s := New()
	tests := []struct {
		name   string
		a, b   string
		weight float64
		want   error
	}{
		{"negative weight", "a", "b", -0.1, ErrInvalidWeight},
		{"weight above one", "a", "b", 1.5, ErrInvalidWeight},
		{"nan weight", "a", "b", math.NaN(), ErrInvalidWeight},
		{"self loop", "Rust", "rust ", 0.5, ErrSelfLoop},
		{"empty endpoint", "", "b", 0.5, ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddRelationship(tt.a, tt.b, tt.weight, "", "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 0, s.Size())
	assert.Equal(t, 0, s.Order())
}

func TestAddRelationship_DefaultType(t *testing.T) {
	s := New()
	rel, err := s.AddRelationship("a", "b", 0, "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultRelationType, rel.RelationType)
}

func TestNeighbors_UnknownAndIsolated(t *testing.T) {
	s := New()
	_, err := s.AddEntity("lonely")
	require.NoError(t, err)

	assert.Empty(t, s.Neighbors("lonely"))
	assert.NotNil(t, s.Neighbors("ghost"))
	assert.Empty(t, s.Neighbors("ghost"))
}

func TestNeighbors_SortedByKey(t *testing.T) {
	s := New()
	for _, n := range []string{"zeta", "Alpha", "mu"} {
		_, err := s.AddRelationship("hub", n, 0.5, "", "")
		require.NoError(t, err)
	}
	got := s.Neighbors("hub")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Alpha", "mu", "zeta"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestAddEntityAtLevel_KeepsOriginalLevel(t *testing.T) {
	s := New()
	_, created, err := s.AddEntityAtLevel("seed", 0)
	require.NoError(t, err)
	assert.True(t, created)
	e, created, err := s.AddEntityAtLevel("SEED", 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 0, e.Level)
}

func TestConcurrentWrites(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.AddRelationship("hub", string(rune('a'+i%26)), 0.5, "", "")
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, s.Size())
	assert.Equal(t, 27, s.Order())
}

func TestSnapshot_ConsistentUnderWrites(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, _ = s.AddRelationship(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1), 0.5, "", "")
		}
	}()

	for i := 0; i < 50; i++ {
		snap := s.Snapshot()
		keys := make(map[string]bool, len(snap.Entities))
		for _, e := range snap.Entities {
			keys[NormalizeName(e.Name)] = true
		}
		for _, r := range snap.Relationships {
			assert.True(t, keys[NormalizeName(r.A)], r.A)
			assert.True(t, keys[NormalizeName(r.B)], r.B)
		}
	}
	wg.Wait()
	assert.Equal(t, 200, s.Size())
}

func TestSnapshotLoad(t *testing.T) {
	s := New()
	_, err := s.AddRelationship("a", "b", 0.7, "t", "d")
	require.NoError(t, err)
	_, _, err = s.AddEntityAtLevel("c", 1)
	require.NoError(t, err)
	s.SetImportance("a", 0.42)

	loaded, err := Load(s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), loaded.Snapshot())
}
