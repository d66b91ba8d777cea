package paths

import (
	"math"
	"sort"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

const (
	// DefaultMaxPathLength is used when a caller passes a non-positive bound.
	DefaultMaxPathLength = 4
	// MaxPathLength is the hard ceiling on enumerated path hops.
	MaxPathLength = 6
	// MaxEnumeratedPaths stops enumeration on pathologically dense graphs.
	MaxEnumeratedPaths = 50000
	// LengthPenalty is the per-extra-hop decay applied by Strength.
	LengthPenalty = 0.2
)

// ClampPathLength maps a requested bound onto [1, MaxPathLength].
func ClampPathLength(n int) int {
	switch {
	case n <= 0:
		return DefaultMaxPathLength
	case n > MaxPathLength:
		return MaxPathLength
	}
	return n
}

// Strength scores a path: avg / (1 + LengthPenalty*(hops-1)).
func Strength(avg float64, hops int) float64 {
	if hops <= 0 {
		return 0
	}
	return avg / (1 + LengthPenalty*float64(hops-1))
}

type adjacency struct {
	g     graphstore.Reader
	cache map[string][]apptype.Neighbor
}

func (a *adjacency) of(name string) []apptype.Neighbor {
	k := graphstore.NormalizeName(name)
	if n, ok := a.cache[k]; ok {
		return n
	}
	n := a.g.Neighbors(name)
	a.cache[k] = n
	return n
}

// ConnectingPaths enumerates every simple path from source to target with at
// most maxLength hops, ranked by strength, then hop count, then node
// sequence. Unknown endpoints or no connection yield an empty slice.
// At most MaxEnumeratedPaths paths are collected.
func ConnectingPaths(g graphstore.Reader, source, target string, maxLength int) []apptype.PathRecord {
	out, _ := EnumeratePaths(g, source, target, maxLength, MaxEnumeratedPaths)
	return out
}

// EnumeratePaths is ConnectingPaths with an explicit cap on collected paths.
// truncated reports that the walk stopped at limit; the ranking then covers
// only the paths found in traversal order, not necessarily the strongest.
func EnumeratePaths(g graphstore.Reader, source, target string, maxLength, limit int) (out []apptype.PathRecord, truncated bool) {
	out = []apptype.PathRecord{}
	src, ok := g.Entity(source)
	if !ok {
		return out, false
	}
	dst, ok := g.Entity(target)
	if !ok || src.Key == dst.Key {
		return out, false
	}
	maxLength = ClampPathLength(maxLength)
	if limit <= 0 {
		limit = MaxEnumeratedPaths
	}

	adj := &adjacency{g: g, cache: make(map[string][]apptype.Neighbor)}
	onPath := map[string]bool{src.Key: true}
	nodes := []string{src.Name}
	var weights []float64
	var types []string

	var walk func(current string)
	walk = func(current string) {
		for _, n := range adj.of(current) {
			if truncated {
				return
			}
			k := graphstore.NormalizeName(n.Name)
			if onPath[k] {
				continue
			}
			nodes = append(nodes, n.Name)
			weights = append(weights, n.Weight)
			types = append(types, n.RelationType)
			if k == dst.Key {
				if len(out) >= limit {
					truncated = true
				} else {
					out = append(out, newRecord(nodes, weights, types))
				}
			} else if len(weights) < maxLength {
				onPath[k] = true
				walk(n.Name)
				delete(onPath, k)
			}
			nodes = nodes[:len(nodes)-1]
			weights = weights[:len(weights)-1]
			types = types[:len(types)-1]
		}
	}
	walk(src.Name)

	SortPaths(out)
	return out, truncated
}

func newRecord(nodes []string, weights []float64, types []string) apptype.PathRecord {
	rec := apptype.PathRecord{
		Nodes:         append([]string(nil), nodes...),
		Weights:       append([]float64(nil), weights...),
		RelationTypes: append([]string(nil), types...),
		Length:        len(weights),
		MinWeight:     math.Inf(1),
	}
	var sum float64
	for _, w := range weights {
		sum += w
		rec.MinWeight = math.Min(rec.MinWeight, w)
		rec.MaxWeight = math.Max(rec.MaxWeight, w)
	}
	rec.AverageWeight = sum / float64(len(weights))
	rec.Strength = Strength(rec.AverageWeight, rec.Length)
	return rec
}

// SortPaths orders records by strength desc, length asc, then node sequence.
func SortPaths(ps []apptype.PathRecord) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if a.Length != b.Length {
			return a.Length < b.Length
		}
		return lessNodes(a.Nodes, b.Nodes)
	})
}

func lessNodes(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		ka, kb := graphstore.NormalizeName(a[i]), graphstore.NormalizeName(b[i])
		if ka != kb {
			return ka < kb
		}
	}
	return len(a) < len(b)
}

// MultiHopPaths groups connecting paths of minHops..maxHops hops by exact
// length. Each group is ordered by average weight, heaviest first.
func MultiHopPaths(g graphstore.Reader, source, target string, minHops, maxHops int) map[int][]apptype.PathRecord {
	if minHops < 1 {
		minHops = 1
	}
	groups := make(map[int][]apptype.PathRecord)
	if maxHops < minHops {
		return groups
	}
	for _, p := range ConnectingPaths(g, source, target, maxHops) {
		if p.Length >= minHops {
			groups[p.Length] = append(groups[p.Length], p)
		}
	}
	for _, ps := range groups {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].AverageWeight > ps[j].AverageWeight })
	}
	return groups
}
