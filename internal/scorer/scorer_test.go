package scorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat serves OpenAI-style chat completions with a fixed reply.
func fakeChat(t *testing.T, reply string, status int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestLiveScorer_ScorePair(t *testing.T) {
	srv, _ := fakeChat(t, "```json\n{\"relationship_type\":\"related_language\",\"weight\":0.8,\"description\":\"languages\"}\n```", http.StatusOK)
	s := NewLiveScorer(Config{APIKey: "test", BaseURL: srv.URL, Model: "test-model"})

	got, err := s.ScorePair(context.Background(), "Python", "JavaScript", "programming languages")
	require.NoError(t, err)
	assert.Equal(t, PairScore{Weight: 0.8, RelationType: "related_language", Description: "languages"}, got)
}

func TestLiveScorer_FindRelatedTruncates(t *testing.T) {
	srv, _ := fakeChat(t, `[{"name":"Django","weight":0.9},{"name":"Flask","weight":0.7},{"name":"NumPy","weight":0.6}]`, http.StatusOK)
	s := NewLiveScorer(Config{APIKey: "test", BaseURL: srv.URL})

	got, err := s.FindRelated(context.Background(), "Python", "", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Django", got[0].Name)
	assert.Equal(t, "Flask", got[1].Name)
}

func TestLiveScorer_Malformed(t *testing.T) {
	srv, _ := fakeChat(t, "I cannot answer that.", http.StatusOK)
	s := NewLiveScorer(Config{APIKey: "test", BaseURL: srv.URL})

	_, err := s.ScorePair(context.Background(), "a", "b", "")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestLiveScorer_BreakerOpensOnServerErrors(t *testing.T) {
	srv, calls := fakeChat(t, "", http.StatusInternalServerError)
	s := NewLiveScorer(Config{APIKey: "test", BaseURL: srv.URL, BreakerFailures: 2, BreakerCooldown: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := s.ScorePair(context.Background(), "a", "b", "")
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	before := atomic.LoadInt32(calls)
	_, err := s.ScorePair(context.Background(), "a", "b", "")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, before, atomic.LoadInt32(calls), "open breaker must not reach the endpoint")
}

func TestLiveScorer_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	s := NewLiveScorer(Config{APIKey: "test", BaseURL: srv.URL})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := s.ScorePair(ctx, "a", "b", "")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestDefaultScorer(t *testing.T) {
	d := NewDefaultScorer()
	got, err := d.ScorePair(context.Background(), "a", "b", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultWeight, got.Weight)
	assert.Equal(t, DefaultRelationType, got.RelationType)

	cands, err := d.FindRelated(context.Background(), "a", "", 5)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestNew_DefaultScorerUsesConfiguredWeight(t *testing.T) {
	for _, w := range []float64{0, 0.5} {
		s, err := New(Config{DefaultWeight: &w})
		require.NoError(t, err)
		got, err := s.ScorePair(context.Background(), "a", "b", "")
		require.NoError(t, err)
		assert.Equal(t, w, got.Weight)
	}
}

func TestNew_SelectsVariant(t *testing.T) {
	s, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, "default", s.Name())

	s, err = New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", s.Name())

	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"pairs": [{"a": "Python", "b": "JavaScript", "weight": 0.8, "relationType": "related_language"}],
		"related": {"python": [{"name": "Django", "weight": 0.9}]},
		"miss": {"weight": 0.05, "relationType": "unrelated"}
	}`), 0o644))
	s, err = New(Config{FixturePath: path, APIKey: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "static", s.Name())

	got, err := s.ScorePair(context.Background(), "javascript", "PYTHON", "")
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.Weight)
	miss, err := s.ScorePair(context.Background(), "x", "y", "")
	require.NoError(t, err)
	assert.Equal(t, 0.05, miss.Weight)
	cands, err := s.FindRelated(context.Background(), "Python", "", 3)
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{Name: "Django", Weight: 0.9}}, cands)
}

func TestStaticScorer_RecordsCalls(t *testing.T) {
	s := NewStaticScorer()
	s.FailRelated("b", ErrTimeout)
	_, _ = s.FindRelated(context.Background(), "A", "", 1)
	_, err := s.FindRelated(context.Background(), "b", "", 1)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, s.RelatedCalls("a"))
	assert.Equal(t, []string{"a", "b"}, s.RelatedQueries())
}
