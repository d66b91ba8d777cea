package analyzer

import (
	"context"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

// Weight buckets used by Summarize.
const (
	BucketWeak       = "weak"
	BucketModerate   = "moderate"
	BucketStrong     = "strong"
	BucketVeryStrong = "very_strong"
)

// StrongestConnections returns up to n neighbors of entity, heaviest first.
// n <= 0 returns all of them.
func StrongestConnections(g graphstore.Reader, entity string, n int) []apptype.Neighbor {
	nbrs := g.Neighbors(entity)
	sort.SliceStable(nbrs, func(i, j int) bool { return nbrs[i].Weight > nbrs[j].Weight })
	if n > 0 && len(nbrs) > n {
		nbrs = nbrs[:n]
	}
	return nbrs
}

// InfluenceScore combines the mean weight of an entity's relationships with
// its degree: avg * (1 + ln(deg+1)/10), capped at 1.
func InfluenceScore(g graphstore.Reader, entity string) float64 {
	nbrs := g.Neighbors(entity)
	if len(nbrs) == 0 {
		return 0
	}
	var sum float64
	for _, n := range nbrs {
		sum += n.Weight
	}
	avg := sum / float64(len(nbrs))
	return math.Min(1, avg*(1+math.Log(float64(len(nbrs)+1))/10))
}

// RankedEntity pairs an entity with its influence score.
type RankedEntity struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// RankByInfluence scores every entity, caches the score on the entity and
// returns the top n (all when n <= 0).
func (a *Analyzer) RankByInfluence(n int) []RankedEntity {
	ents := a.store.Entities()
	out := make([]RankedEntity, 0, len(ents))
	for _, e := range ents {
		score := InfluenceScore(a.store, e.Name)
		a.store.SetImportance(e.Name, score)
		out = append(out, RankedEntity{Name: e.Name, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RelationshipSummary aggregates relationship weights and types.
type RelationshipSummary struct {
	Total         int            `json:"total"`
	AverageWeight float64        `json:"averageWeight"`
	MinWeight     float64        `json:"minWeight"`
	MaxWeight     float64        `json:"maxWeight"`
	Buckets       map[string]int `json:"buckets"`
	Types         map[string]int `json:"types"`
}

// Bucket classifies a weight: weak <= 0.3 < moderate <= 0.6 < strong <= 0.8 < very_strong.
func Bucket(w float64) string {
	switch {
	case w <= 0.3:
		return BucketWeak
	case w <= 0.6:
		return BucketModerate
	case w <= 0.8:
		return BucketStrong
	default:
		return BucketVeryStrong
	}
}

// Summarize builds a RelationshipSummary for g.
func Summarize(g graphstore.Reader) RelationshipSummary {
	sum := RelationshipSummary{
		Buckets: map[string]int{BucketWeak: 0, BucketModerate: 0, BucketStrong: 0, BucketVeryStrong: 0},
		Types:   map[string]int{},
	}
	rels := g.Relationships()
	if len(rels) == 0 {
		return sum
	}
	sum.Total = len(rels)
	sum.MinWeight = math.Inf(1)
	var total float64
	for _, r := range rels {
		total += r.Weight
		sum.MinWeight = math.Min(sum.MinWeight, r.Weight)
		sum.MaxWeight = math.Max(sum.MaxWeight, r.Weight)
		sum.Buckets[Bucket(r.Weight)]++
		sum.Types[r.RelationType]++
	}
	sum.AverageWeight = total / float64(len(rels))
	return sum
}

// DescribeEntities attaches a short description to every entity that lacks
// one, when the scorer can describe entities. Failures are logged and skipped.
func (a *Analyzer) DescribeEntities(ctx context.Context, topic string) int {
	d, ok := a.scorer.(scorer.Describer)
	if !ok {
		return 0
	}
	var pending []string
	for _, e := range a.store.Entities() {
		if e.Description == "" {
			pending = append(pending, e.Name)
		}
	}
	descs := make([]string, len(pending))
	g := new(errgroup.Group)
	g.SetLimit(a.cfg.Workers)
	for i, name := range pending {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.ScorerTimeout)
			defer cancel()
			desc, err := d.Describe(callCtx, name, topic)
			if err != nil {
				a.log.WithError(err).WithFields(logrus.Fields{"entity": name}).Debug("describe failed")
				return nil
			}
			descs[i] = desc
			return nil
		})
	}
	_ = g.Wait()

	described := 0
	for i, name := range pending {
		if descs[i] != "" && a.store.SetDescription(name, descs[i]) {
			described++
		}
	}
	return described
}
