package paths

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

// SummaryPathLimit caps how many ranked paths Summary returns.
const SummaryPathLimit = 10

// ShortestPath returns the display names along a fewest-hops path from a to
// b, or an empty slice when none exists.
func ShortestPath(g graphstore.Reader, a, b string) []string {
	src, ok := g.Entity(a)
	if !ok {
		return []string{}
	}
	dst, ok := g.Entity(b)
	if !ok {
		return []string{}
	}
	if src.Key == dst.Key {
		return []string{src.Name}
	}
	prev := map[string]string{src.Key: ""}
	names := map[string]string{src.Key: src.Name}
	queue := []string{src.Key}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(names[cur]) {
			k := graphstore.NormalizeName(n.Name)
			if _, seen := prev[k]; seen {
				continue
			}
			prev[k] = cur
			names[k] = n.Name
			if k == dst.Key {
				var rev []string
				for at := k; at != ""; at = prev[at] {
					rev = append(rev, names[at])
				}
				out := make([]string, len(rev))
				for i := range rev {
					out[i] = rev[len(rev)-1-i]
				}
				return out
			}
			queue = append(queue, k)
		}
	}
	return []string{}
}

// CommonNeighbors returns the entities found at exactly order hops from both
// a and b, sorted by name.
func CommonNeighbors(g graphstore.Reader, a, b string, order int) []string {
	left := mapset.NewThreadUnsafeSet[string](EntitiesAtOrder(g, a, order)...)
	right := mapset.NewThreadUnsafeSet[string](EntitiesAtOrder(g, b, order)...)
	out := left.Intersect(right).ToSlice()
	sort.Strings(out)
	return out
}

// ConnectivityReport describes how well an entity is tied into the graph.
type ConnectivityReport struct {
	Entity            string                      `json:"entity"`
	Exists            bool                        `json:"exists"`
	DirectConnections int                         `json:"directConnections"`
	Neighborhoods     []apptype.NeighborhoodLayer `json:"neighborhoods,omitempty"`
	TotalReachable    int                         `json:"totalReachable"`
	Reachable         []string                    `json:"reachable,omitempty"`
}

// Connectivity reports degree and reachability of entity up to maxOrder hops.
func Connectivity(g graphstore.Reader, entity string, maxOrder int) ConnectivityReport {
	ent, ok := g.Entity(entity)
	if !ok {
		return ConnectivityReport{Entity: entity}
	}
	layers := NeighborhoodOrders(g, ent.Name, maxOrder)
	reach := []string{}
	for _, l := range layers {
		for _, e := range l.Entities {
			reach = append(reach, e.Name)
		}
	}
	return ConnectivityReport{
		Entity:            ent.Name,
		Exists:            true,
		DirectConnections: len(g.Neighbors(ent.Name)),
		Neighborhoods:     layers,
		TotalReachable:    len(reach),
		Reachable:         reach,
	}
}

// Bridges returns every edge whose removal disconnects its endpoints, as
// name pairs ordered by key.
func Bridges(g graphstore.Reader) [][2]string {
	ents := g.Entities()
	disc := make(map[string]int, len(ents))
	low := make(map[string]int, len(ents))
	names := make(map[string]string, len(ents))
	for _, e := range ents {
		names[e.Key] = e.Name
	}
	out := [][2]string{}
	timer := 0

	var visit func(k, parent string)
	visit = func(k, parent string) {
		timer++
		disc[k], low[k] = timer, timer
		for _, n := range g.Neighbors(names[k]) {
			nk := graphstore.NormalizeName(n.Name)
			if nk == parent {
				continue
			}
			if _, seen := disc[nk]; seen {
				low[k] = min(low[k], disc[nk])
				continue
			}
			visit(nk, k)
			low[k] = min(low[k], low[nk])
			if low[nk] > disc[k] {
				a, b := k, nk
				if b < a {
					a, b = b, a
				}
				out = append(out, [2]string{names[a], names[b]})
			}
		}
	}
	for _, e := range ents {
		if _, seen := disc[e.Key]; !seen {
			visit(e.Key, "")
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := graphstore.NormalizeName(out[i][0]), graphstore.NormalizeName(out[j][0])
		if ai != aj {
			return ai < aj
		}
		return graphstore.NormalizeName(out[i][1]) < graphstore.NormalizeName(out[j][1])
	})
	return out
}

// Critical is an entity whose removal splits the graph.
type Critical struct {
	Name string `json:"name"`
	// Components is the component count after removing the entity.
	Components int `json:"components"`
}

// countComponents counts connected components, ignoring the entity keyed skip.
func countComponents(g graphstore.Reader, ents []apptype.Entity, skip string) int {
	seen := map[string]bool{skip: true}
	count := 0
	for _, e := range ents {
		if seen[e.Key] {
			continue
		}
		count++
		seen[e.Key] = true
		stack := []string{e.Name}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, n := range g.Neighbors(cur) {
				k := graphstore.NormalizeName(n.Name)
				if !seen[k] {
					seen[k] = true
					stack = append(stack, n.Name)
				}
			}
		}
	}
	return count
}

// CriticalEntities lists entities whose removal increases the number of
// connected components, most disruptive first.
func CriticalEntities(g graphstore.Reader) []Critical {
	ents := g.Entities()
	base := countComponents(g, ents, "")
	out := []Critical{}
	for _, e := range ents {
		if len(g.Neighbors(e.Name)) < 2 {
			continue
		}
		if c := countComponents(g, ents, e.Key); c > base {
			out = append(out, Critical{Name: e.Name, Components: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Components != out[j].Components {
			return out[i].Components > out[j].Components
		}
		return graphstore.NormalizeName(out[i].Name) < graphstore.NormalizeName(out[j].Name)
	})
	return out
}

// PathSummary condenses how two entities are connected.
type PathSummary struct {
	Source         string               `json:"source"`
	Target         string               `json:"target"`
	Connected      bool                 `json:"connected"`
	ShortestPath   []string             `json:"shortestPath,omitempty"`
	ShortestLength int                  `json:"shortestLength,omitempty"`
	PathCount      int                  `json:"pathCount"`
	// Truncated is set when enumeration stopped at MaxEnumeratedPaths.
	Truncated      bool                 `json:"truncated,omitempty"`
	Strongest      *apptype.PathRecord  `json:"strongest,omitempty"`
	Paths          []apptype.PathRecord `json:"paths,omitempty"`
}

// Summary reports the shortest path and the top ranked connecting paths
// between a and b within maxLength hops.
func Summary(g graphstore.Reader, a, b string, maxLength int) PathSummary {
	sum := PathSummary{Source: a, Target: b}
	shortest := ShortestPath(g, a, b)
	all, truncated := EnumeratePaths(g, a, b, maxLength, MaxEnumeratedPaths)
	if len(shortest) < 2 && len(all) == 0 {
		return sum
	}
	sum.Connected = true
	sum.Truncated = truncated
	if len(shortest) >= 2 {
		sum.ShortestPath = shortest
		sum.ShortestLength = len(shortest) - 1
	}
	sum.PathCount = len(all)
	if len(all) > 0 {
		strongest := all[0]
		sum.Strongest = &strongest
		if len(all) > SummaryPathLimit {
			all = all[:SummaryPathLimit]
		}
		sum.Paths = all
	}
	return sum
}
