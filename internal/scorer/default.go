package scorer

import "context"

// DefaultScorer is the no-API variant. Every pair gets the neutral estimate
// and expansion never proposes candidates.
type DefaultScorer struct {
	weight float64
}

// NewDefaultScorer returns the no-API scorer with the DefaultWeight estimate.
func NewDefaultScorer() *DefaultScorer { return &DefaultScorer{weight: DefaultWeight} }

// NewDefaultScorerWithWeight returns the no-API scorer estimating every pair at weight.
func NewDefaultScorerWithWeight(weight float64) *DefaultScorer {
	return &DefaultScorer{weight: weight}
}

func (d *DefaultScorer) Name() string { return "default" }

func (d *DefaultScorer) ScorePair(_ context.Context, a, b, _ string) (PairScore, error) {
	ps := Fallback(a, b)
	ps.Weight = d.weight
	return ps, nil
}

func (d *DefaultScorer) FindRelated(context.Context, string, string, int) ([]Candidate, error) {
	return []Candidate{}, nil
}
