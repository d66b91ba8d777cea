package stats

import (
	"fmt"
	"strings"
)

// StrengthLabel names an average relationship weight.
func StrengthLabel(avg float64) string {
	switch {
	case avg >= 0.7:
		return "very strong"
	case avg >= 0.5:
		return "strong"
	case avg >= 0.3:
		return "moderate"
	}
	return "weak"
}

// Conclusions renders human-readable findings from a report. seedDistances
// holds the shortest hop counts between connected seed pairs; it may be empty.
func Conclusions(r Report, seedDistances []int) []string {
	out := []string{
		fmt.Sprintf("Analyzed a network of %d entities with %d relationships", r.Basic.Nodes, r.Basic.Edges),
	}
	if r.Connectivity.Connected {
		out = append(out, fmt.Sprintf("The network is fully connected with an average path length of %.2f", r.Connectivity.AveragePathLength))
	} else {
		out = append(out, fmt.Sprintf("The network has %d disconnected components", r.Connectivity.Components))
	}

	out = append(out, fmt.Sprintf("Overall relationship strength is %s (average weight: %.2f)", StrengthLabel(r.Weights.Mean), r.Weights.Mean))

	if top := r.Centrality.PageRank; len(top) > 0 {
		if len(top) > 3 {
			top = top[:3]
		}
		parts := make([]string, 0, len(top))
		for _, s := range top {
			parts = append(parts, fmt.Sprintf("%s (%.3f)", s.Name, s.Score))
		}
		out = append(out, "Most influential entities: "+strings.Join(parts, ", "))
	}

	var hops, n int
	for _, d := range seedDistances {
		if d > 0 {
			hops += d
			n++
		}
	}
	if n > 0 {
		out = append(out, fmt.Sprintf("Query entities are connected with an average distance of %.1f hops", float64(hops)/float64(n)))
	}

	if c := len(r.Clustering.Communities); c > 1 {
		out = append(out, fmt.Sprintf("Detected %d distinct communities in the network", c))
	}
	if cc := r.Clustering.AverageCoefficient; cc > 0.5 {
		out = append(out, fmt.Sprintf("High clustering coefficient (%.2f) indicates strong local connections", cc))
	}
	return out
}
