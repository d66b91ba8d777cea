package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

// StaticScorer answers from a fixed table. It backs offline runs driven by a
// fixture file and records every call it receives.
type StaticScorer struct {
	mu           sync.Mutex
	pairs        map[[2]string]PairScore
	related      map[string][]Candidate
	pairErrs     map[[2]string]error
	relatedErrs  map[string]error
	miss         PairScore
	pairCalls    int
	relatedCalls map[string]int
	queryOrder   []string
}

// Fixture is the on-disk format read by LoadStaticScorer.
type Fixture struct {
	Pairs []struct {
		A string `json:"a"`
		B string `json:"b"`
		PairScore
	} `json:"pairs"`
	Related map[string][]Candidate `json:"related"`
	Miss    *PairScore             `json:"miss,omitempty"`
}

// NewStaticScorer returns an empty table. Unknown pairs score 0 as "unrelated".
func NewStaticScorer() *StaticScorer {
	return &StaticScorer{
		pairs:        make(map[[2]string]PairScore),
		related:      make(map[string][]Candidate),
		pairErrs:     make(map[[2]string]error),
		relatedErrs:  make(map[string]error),
		miss:         PairScore{Weight: 0, RelationType: "unrelated"},
		relatedCalls: make(map[string]int),
	}
}

// LoadStaticScorer reads a fixture file.
func LoadStaticScorer(path string) (*StaticScorer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scorer fixture: %w", err)
	}
	var fx Fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse scorer fixture %s: %w", path, err)
	}
	s := NewStaticScorer()
	for _, p := range fx.Pairs {
		s.SetPair(p.A, p.B, p.PairScore)
	}
	for entity, cands := range fx.Related {
		s.SetRelated(entity, cands...)
	}
	if fx.Miss != nil {
		s.miss = *fx.Miss
	}
	return s, nil
}

func staticKey(a, b string) [2]string {
	ka, kb := graphstore.NormalizeName(a), graphstore.NormalizeName(b)
	if kb < ka {
		ka, kb = kb, ka
	}
	return [2]string{ka, kb}
}

func (s *StaticScorer) Name() string { return "static" }

// SetPair registers the score for an unordered pair.
func (s *StaticScorer) SetPair(a, b string, score PairScore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[staticKey(a, b)] = score
}

// SetRelated registers expansion candidates for entity.
func (s *StaticScorer) SetRelated(entity string, cands ...Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.related[graphstore.NormalizeName(entity)] = append([]Candidate(nil), cands...)
}

// FailPair makes ScorePair return err for the pair.
func (s *StaticScorer) FailPair(a, b string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairErrs[staticKey(a, b)] = err
}

// FailRelated makes FindRelated return err for entity.
func (s *StaticScorer) FailRelated(entity string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relatedErrs[graphstore.NormalizeName(entity)] = err
}

func (s *StaticScorer) ScorePair(ctx context.Context, a, b, _ string) (PairScore, error) {
	if err := ctx.Err(); err != nil {
		return PairScore{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairCalls++
	k := staticKey(a, b)
	if err, ok := s.pairErrs[k]; ok {
		return PairScore{}, err
	}
	if sc, ok := s.pairs[k]; ok {
		return sc, nil
	}
	return s.miss, nil
}

func (s *StaticScorer) FindRelated(ctx context.Context, entity, _ string, maxCount int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := graphstore.NormalizeName(entity)
	s.relatedCalls[k]++
	s.queryOrder = append(s.queryOrder, k)
	if err, ok := s.relatedErrs[k]; ok {
		return nil, err
	}
	return Truncate(append([]Candidate(nil), s.related[k]...), maxCount), nil
}

// PairCalls reports how many ScorePair calls were made.
func (s *StaticScorer) PairCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairCalls
}

// RelatedCalls reports how many times entity was expanded.
func (s *StaticScorer) RelatedCalls(entity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.relatedCalls[graphstore.NormalizeName(entity)]
}

// RelatedQueries lists expanded entity keys in call order.
func (s *StaticScorer) RelatedQueries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queryOrder...)
}
