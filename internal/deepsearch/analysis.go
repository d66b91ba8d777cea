package deepsearch

import (
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/paths"
)

// PairKey names a seed pair in path analysis output.
func PairKey(a, b string) string { return a + " <-> " + b }

// AnalyzeNeighborhoods returns the neighborhood layers of every seed present
// in the graph, keyed by its display name.
func AnalyzeNeighborhoods(g graphstore.Reader, seeds []string, maxOrder int) map[string][]apptype.NeighborhoodLayer {
	out := make(map[string][]apptype.NeighborhoodLayer, len(seeds))
	for _, s := range seeds {
		e, ok := g.Entity(s)
		if !ok {
			continue
		}
		out[e.Name] = paths.NeighborhoodOrders(g, e.Name, maxOrder)
	}
	return out
}

// AnalyzePaths summarizes every connected seed pair i<j.
func AnalyzePaths(g graphstore.Reader, seeds []string, maxLength int) map[string]paths.PathSummary {
	out := make(map[string]paths.PathSummary)
	for i := 0; i < len(seeds); i++ {
		for j := i + 1; j < len(seeds); j++ {
			sum := paths.Summary(g, seeds[i], seeds[j], maxLength)
			if sum.Connected {
				out[PairKey(seeds[i], seeds[j])] = sum
			}
		}
	}
	return out
}

// SeedDistances collects the shortest hop counts from path summaries.
func SeedDistances(summaries map[string]paths.PathSummary) []int {
	out := make([]int, 0, len(summaries))
	for _, s := range summaries {
		if s.ShortestLength > 0 {
			out = append(out, s.ShortestLength)
		}
	}
	return out
}
