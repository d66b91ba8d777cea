package database

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

const testProject = "test-project"

func setupTestDB(t *testing.T) (*DBManager, func()) {
	config := NewConfig()
	// Use an in-memory database for testing.
	// The `cache=shared` is crucial for sharing the connection across different
	// calls to `sql.Open` within the same process.
	config.URL = "file:testdb?mode=memory&cache=shared"
	config.MultiProjectMode = false
	db, err := NewDBManager(config)
	require.NoError(t, err)

	cleanup := func() {
		err := db.Close()
		assert.NoError(t, err)
	}

	return db, cleanup
}

func sampleSnapshot(t *testing.T) apptype.GraphSnapshot {
	t.Helper()
	s := graphstore.New()
	_, err := s.AddRelationship("Python", "JavaScript", 0.8, "alternative_to", "scripting languages")
	require.NoError(t, err)
	_, _, err = s.AddEntityAtLevel("Django", 1)
	require.NoError(t, err)
	_, err = s.AddRelationship("Django", "Python", 0.9, "framework_of", "")
	require.NoError(t, err)
	require.True(t, s.SetImportance("Python", 0.75))
	return s.Snapshot()
}

func TestSaveAndReadGraph(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	snap := sampleSnapshot(t)
	require.NoError(t, db.SaveSnapshot(ctx, testProject, snap, "run-1"))

	back, err := db.ReadGraph(ctx, testProject)
	require.NoError(t, err)
	assert.Equal(t, snap, back)

	e, ok, err := db.GetEntity(ctx, testProject, "PYTHON")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Python", e.Name)
	assert.Equal(t, 0.75, e.Importance)

	_, ok, err = db.GetEntity(ctx, testProject, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveSnapshot_UpsertsInPlace(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, testProject, sampleSnapshot(t), "run-1"))

	s := graphstore.New()
	_, err := s.AddRelationship("javascript", "python", 0.4, "competes_with", "")
	require.NoError(t, err)
	require.NoError(t, db.SaveSnapshot(ctx, testProject, s.Snapshot(), "run-2"))

	back, err := db.ReadGraph(ctx, testProject)
	require.NoError(t, err)
	assert.Len(t, back.Entities, 3)
	require.Len(t, back.Relationships, 2)
	for _, r := range back.Relationships {
		if r.RelationType == "competes_with" {
			assert.Equal(t, 0.4, r.Weight)
			return
		}
	}
	t.Fatal("python-javascript relation was not updated")
}

func TestMultiProject(t *testing.T) {
	dir, err := os.MkdirTemp("", "deepsearch-db-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := NewDBManager(&Config{ProjectsDir: dir, MultiProjectMode: true})
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.SaveSnapshot(ctx, "alpha", sampleSnapshot(t), ""))

	alpha, err := db.ReadGraph(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, alpha.Entities, 3)
	beta, err := db.ReadGraph(ctx, "beta")
	require.NoError(t, err)
	assert.Empty(t, beta.Entities)

	_, err = db.ReadGraph(ctx, "")
	assert.Error(t, err)
}

func TestWithAuthToken(t *testing.T) {
	assert.Equal(t, "file:./x.db", withAuthToken("file:./x.db", "tok"))
	assert.Equal(t, "libsql://db.example.io?authToken=tok", withAuthToken("libsql://db.example.io", "tok"))
	assert.Equal(t, "libsql://db.example.io", withAuthToken("libsql://db.example.io", ""))
}
