// Package paths answers multi-hop questions over a relationship graph:
// neighborhood layers, connecting paths and structural weak points.
// Every query is read-only and keeps its traversal state local to the call.
package paths

import (
	"sort"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

// distances runs a BFS from root up to maxDepth hops (unbounded when
// maxDepth < 0) and returns hop distance by entity key plus display names.
func distances(g graphstore.Reader, root string, maxDepth int) (map[string]int, map[string]string) {
	start, ok := g.Entity(root)
	if !ok {
		return map[string]int{}, map[string]string{}
	}
	dist := map[string]int{start.Key: 0}
	names := map[string]string{start.Key: start.Name}
	frontier := []string{start.Name}
	for depth := 1; len(frontier) > 0 && (maxDepth < 0 || depth <= maxDepth); depth++ {
		var next []string
		for _, name := range frontier {
			for _, n := range g.Neighbors(name) {
				k := graphstore.NormalizeName(n.Name)
				if _, seen := dist[k]; seen {
					continue
				}
				dist[k] = depth
				names[k] = n.Name
				next = append(next, n.Name)
			}
		}
		frontier = next
	}
	return dist, names
}

// NeighborhoodOrders returns the BFS layers around root for orders
// 1..maxOrder. Layer k holds the entities at exactly k hops, each with every
// edge that reaches it from layer k-1. The result stops at the first empty
// order; an unknown root yields an empty slice.
func NeighborhoodOrders(g graphstore.Reader, root string, maxOrder int) []apptype.NeighborhoodLayer {
	layers := []apptype.NeighborhoodLayer{}
	if maxOrder <= 0 {
		return layers
	}
	dist, names := distances(g, root, maxOrder)
	if len(dist) == 0 {
		return layers
	}

	byOrder := make(map[int][]string)
	for k, d := range dist {
		if d > 0 {
			byOrder[d] = append(byOrder[d], k)
		}
	}
	for order := 1; order <= maxOrder; order++ {
		keys := byOrder[order]
		if len(keys) == 0 {
			break
		}
		sort.Strings(keys)
		layer := apptype.NeighborhoodLayer{Order: order, Entities: make([]apptype.LayerEntry, 0, len(keys))}
		var sum float64
		var edges int
		for _, k := range keys {
			entry := apptype.LayerEntry{Name: names[k], Via: []apptype.LayerEdge{}}
			for _, n := range g.Neighbors(names[k]) {
				if d, ok := dist[graphstore.NormalizeName(n.Name)]; ok && d == order-1 {
					entry.Via = append(entry.Via, apptype.LayerEdge{From: n.Name, Weight: n.Weight, RelationType: n.RelationType})
					sum += n.Weight
					edges++
				}
			}
			layer.Entities = append(layer.Entities, entry)
		}
		layer.Count = len(layer.Entities)
		if edges > 0 {
			layer.AverageWeight = sum / float64(edges)
		}
		layers = append(layers, layer)
	}
	return layers
}

// Reachable returns the display names of every entity within maxOrder hops
// of root, excluding root, sorted by name.
func Reachable(g graphstore.Reader, root string, maxOrder int) []string {
	out := []string{}
	for _, layer := range NeighborhoodOrders(g, root, maxOrder) {
		for _, e := range layer.Entities {
			out = append(out, e.Name)
		}
	}
	sort.Strings(out)
	return out
}

// EntitiesAtOrder returns the entities at exactly order hops from root.
func EntitiesAtOrder(g graphstore.Reader, root string, order int) []string {
	layers := NeighborhoodOrders(g, root, order)
	if len(layers) < order || order <= 0 {
		return []string{}
	}
	out := make([]string, 0, layers[order-1].Count)
	for _, e := range layers[order-1].Entities {
		out = append(out, e.Name)
	}
	return out
}
