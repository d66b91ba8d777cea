// Package stats computes network-level metrics over a relationship graph
// using gonum's graph algorithms.
package stats

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/graphstore"
)

const (
	// TopN is the length of each ranked centrality list.
	TopN = 5
	// Damping is the PageRank damping factor.
	Damping = 0.85
	// pageRankTol is the PageRank convergence tolerance.
	pageRankTol = 1e-8
	// WeightBins is the number of equal-width histogram bins over [0,1].
	WeightBins = 10
	// communitySeed keeps Louvain community detection reproducible.
	communitySeed = 42
)

type Basic struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	AverageDegree float64 `json:"averageDegree"`
	Density       float64 `json:"density"`
}

type Connectivity struct {
	Connected        bool `json:"connected"`
	Components       int  `json:"components"`
	LargestComponent int  `json:"largestComponent"`
	// Diameter is -1 when the graph is not connected.
	Diameter int `json:"diameter"`
	// AveragePathLength covers the largest component when disconnected.
	AveragePathLength float64 `json:"averagePathLength"`
}

// Score is one entity's value under a metric.
type Score struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type Centrality struct {
	PageRank    []Score `json:"pageRank"`
	Betweenness []Score `json:"betweenness"`
	Closeness   []Score `json:"closeness"`
	Degree      []Score `json:"degree"`
}

type Clustering struct {
	AverageCoefficient float64    `json:"averageCoefficient"`
	Communities        [][]string `json:"communities"`
	CommunitySizes     []int      `json:"communitySizes"`
	Modularity         float64    `json:"modularity"`
}

// WeightStats summarizes edge weights. Histogram[i] counts weights in
// [i/WeightBins, (i+1)/WeightBins), with 1.0 counted in the last bin.
type WeightStats struct {
	Mean      float64 `json:"mean"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	StdDev    float64 `json:"stdDev"`
	Histogram []int   `json:"histogram"`
}

// Report is the full statistics summary of a graph.
type Report struct {
	Basic              Basic        `json:"basic"`
	Connectivity       Connectivity `json:"connectivity"`
	Centrality         Centrality   `json:"centrality"`
	Clustering         Clustering   `json:"clustering"`
	DegreeDistribution map[int]int  `json:"degreeDistribution"`
	Weights            WeightStats  `json:"weights"`
}

// Metrics holds every per-entity metric keyed by display name.
type Metrics struct {
	PageRank    map[string]float64 `json:"pageRank"`
	Betweenness map[string]float64 `json:"betweenness"`
	Closeness   map[string]float64 `json:"closeness"`
	Degree      map[string]float64 `json:"degree"`
	Clustering  map[string]float64 `json:"clustering"`
}

// view is a gonum rendering of one snapshot. Node ids are positions in names.
type view struct {
	names    []string
	weighted *simple.WeightedUndirectedGraph
	plain    *simple.UndirectedGraph
	directed *simple.WeightedDirectedGraph
	rels     []apptype.Relationship
}

func newView(snap apptype.GraphSnapshot) *view {
	v := &view{
		names:    make([]string, len(snap.Entities)),
		weighted: simple.NewWeightedUndirectedGraph(0, 0),
		plain:    simple.NewUndirectedGraph(),
		directed: simple.NewWeightedDirectedGraph(0, 0),
		rels:     snap.Relationships,
	}
	ids := make(map[string]int64, len(snap.Entities))
	for i, e := range snap.Entities {
		v.names[i] = e.Name
		ids[e.Key] = int64(i)
		n := simple.Node(i)
		v.weighted.AddNode(n)
		v.plain.AddNode(n)
		v.directed.AddNode(n)
	}
	for _, r := range snap.Relationships {
		a, okA := ids[graphstore.NormalizeName(r.A)]
		b, okB := ids[graphstore.NormalizeName(r.B)]
		if !okA || !okB {
			continue
		}
		na, nb := simple.Node(a), simple.Node(b)
		v.weighted.SetWeightedEdge(v.weighted.NewWeightedEdge(na, nb, r.Weight))
		v.plain.SetEdge(v.plain.NewEdge(na, nb))
		v.directed.SetWeightedEdge(v.directed.NewWeightedEdge(na, nb, r.Weight))
		v.directed.SetWeightedEdge(v.directed.NewWeightedEdge(nb, na, r.Weight))
	}
	return v
}

func (v *view) byName(m map[int64]float64) map[string]float64 {
	out := make(map[string]float64, len(v.names))
	for i, name := range v.names {
		out[name] = m[int64(i)]
	}
	return out
}

// Compute builds the full statistics report for g.
func Compute(g graphstore.Reader) Report {
	v := newView(g.Snapshot())
	m := v.metrics()
	return Report{
		Basic:        v.basic(),
		Connectivity: v.connectivity(),
		Centrality: Centrality{
			PageRank:    Top(m.PageRank, TopN),
			Betweenness: Top(m.Betweenness, TopN),
			Closeness:   Top(m.Closeness, TopN),
			Degree:      Top(m.Degree, TopN),
		},
		Clustering:         v.clustering(m.Clustering),
		DegreeDistribution: v.degreeDistribution(),
		Weights:            weightStats(v.rels),
	}
}

// ComputeMetrics returns every per-entity metric for g.
func ComputeMetrics(g graphstore.Reader) Metrics {
	return newView(g.Snapshot()).metrics()
}

func (v *view) metrics() Metrics {
	n := len(v.names)
	m := Metrics{
		PageRank:    map[string]float64{},
		Betweenness: map[string]float64{},
		Closeness:   map[string]float64{},
		Degree:      map[string]float64{},
		Clustering:  map[string]float64{},
	}
	if n == 0 {
		return m
	}

	if v.directed.Edges().Len() > 0 {
		m.PageRank = v.byName(network.PageRank(v.directed, Damping, pageRankTol))
	} else {
		for _, name := range v.names {
			m.PageRank[name] = 1 / float64(n)
		}
	}

	// gonum counts each unordered pair from both ends on undirected graphs.
	between := network.Betweenness(v.plain)
	if n > 2 {
		scale := 1 / float64((n-1)*(n-2))
		for id := range between {
			between[id] *= scale
		}
	}
	m.Betweenness = v.byName(between)

	shortest := path.DijkstraAllPaths(v.plain)
	raw := network.Closeness(v.plain, shortest)
	closeness := make(map[int64]float64, n)
	for i := range v.names {
		id := int64(i)
		reach := 0
		for j := range v.names {
			if !math.IsInf(shortest.Weight(int64(j), id), 1) {
				reach++
			}
		}
		c := raw[id]
		if reach <= 1 || math.IsInf(c, 0) || math.IsNaN(c) || n < 2 {
			continue
		}
		// Wasserman-Faust scaling so small components do not dominate.
		closeness[id] = c * float64((reach-1)*(reach-1)) / float64(n-1)
	}
	m.Closeness = v.byName(closeness)

	for i, name := range v.names {
		deg := v.plain.From(int64(i)).Len()
		if n > 1 {
			m.Degree[name] = float64(deg) / float64(n-1)
		} else {
			m.Degree[name] = 0
		}
		m.Clustering[name] = v.localClustering(int64(i))
	}
	return m
}

// localClustering is the unweighted local clustering coefficient.
func (v *view) localClustering(id int64) float64 {
	nbrs := graph.NodesOf(v.plain.From(id))
	k := len(nbrs)
	if k < 2 {
		return 0
	}
	links := 0
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			if v.plain.HasEdgeBetween(nbrs[i].ID(), nbrs[j].ID()) {
				links++
			}
		}
	}
	return 2 * float64(links) / float64(k*(k-1))
}

func (v *view) basic() Basic {
	n := len(v.names)
	b := Basic{Nodes: n, Edges: v.plain.Edges().Len()}
	if n > 0 {
		b.AverageDegree = 2 * float64(b.Edges) / float64(n)
	}
	if n > 1 {
		b.Density = 2 * float64(b.Edges) / float64(n*(n-1))
	}
	return b
}

func (v *view) connectivity() Connectivity {
	c := Connectivity{Diameter: -1}
	if len(v.names) == 0 {
		return c
	}
	comps := topo.ConnectedComponents(v.plain)
	c.Components = len(comps)
	c.Connected = len(comps) == 1
	var largest []graph.Node
	for _, comp := range comps {
		if len(comp) > len(largest) {
			largest = comp
		}
	}
	c.LargestComponent = len(largest)

	sub := simple.NewUndirectedGraph()
	for _, n := range largest {
		sub.AddNode(n)
	}
	for _, n := range largest {
		for _, to := range graph.NodesOf(v.plain.From(n.ID())) {
			if n.ID() < to.ID() {
				sub.SetEdge(sub.NewEdge(n, to))
			}
		}
	}
	shortest := path.DijkstraAllPaths(sub)
	var sum float64
	var pairs, diameter int
	for i, a := range largest {
		for _, b := range largest[i+1:] {
			d := shortest.Weight(a.ID(), b.ID())
			sum += d
			pairs++
			diameter = max(diameter, int(d))
		}
	}
	if pairs > 0 {
		c.AveragePathLength = sum / float64(pairs)
	}
	if c.Connected {
		c.Diameter = diameter
	}
	return c
}

func (v *view) clustering(local map[string]float64) Clustering {
	cl := Clustering{Communities: [][]string{}, CommunitySizes: []int{}}
	if len(v.names) == 0 {
		return cl
	}
	var sum float64
	for _, c := range local {
		sum += c
	}
	cl.AverageCoefficient = sum / float64(len(v.names))

	var total float64
	for _, r := range v.rels {
		total += r.Weight
	}
	var groups [][]graph.Node
	if total > 0 {
		reduced := community.Modularize(v.weighted, 1, rand.NewPCG(communitySeed, communitySeed))
		groups = reduced.Communities()
		cl.Modularity = community.Q(v.weighted, groups, 1)
	} else {
		// Louvain needs positive edge mass; fall back to components.
		groups = topo.ConnectedComponents(v.plain)
	}

	for _, grp := range groups {
		names := make([]string, 0, len(grp))
		for _, n := range grp {
			names = append(names, v.names[n.ID()])
		}
		sort.Slice(names, func(i, j int) bool {
			return graphstore.NormalizeName(names[i]) < graphstore.NormalizeName(names[j])
		})
		cl.Communities = append(cl.Communities, names)
	}
	sort.SliceStable(cl.Communities, func(i, j int) bool {
		a, b := cl.Communities[i], cl.Communities[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return graphstore.NormalizeName(a[0]) < graphstore.NormalizeName(b[0])
	})
	for _, c := range cl.Communities {
		cl.CommunitySizes = append(cl.CommunitySizes, len(c))
	}
	return cl
}

func (v *view) degreeDistribution() map[int]int {
	out := make(map[int]int)
	for i := range v.names {
		out[v.plain.From(int64(i)).Len()]++
	}
	return out
}

func weightStats(rels []apptype.Relationship) WeightStats {
	ws := WeightStats{Histogram: make([]int, WeightBins)}
	if len(rels) == 0 {
		return ws
	}
	ws.Min = math.Inf(1)
	var sum float64
	for _, r := range rels {
		sum += r.Weight
		ws.Min = math.Min(ws.Min, r.Weight)
		ws.Max = math.Max(ws.Max, r.Weight)
		bin := int(r.Weight * WeightBins)
		if bin >= WeightBins {
			bin = WeightBins - 1
		}
		ws.Histogram[bin]++
	}
	ws.Mean = sum / float64(len(rels))
	var sq float64
	for _, r := range rels {
		sq += (r.Weight - ws.Mean) * (r.Weight - ws.Mean)
	}
	ws.StdDev = math.Sqrt(sq / float64(len(rels)))
	return ws
}

// Top returns the n highest scores, ties broken by name.
func Top(m map[string]float64, n int) []Score {
	out := make([]Score, 0, len(m))
	for name, s := range m {
		out = append(out, Score{Name: name, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return graphstore.NormalizeName(out[i].Name) < graphstore.NormalizeName(out[j].Name)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Importance is the per-metric profile of one entity.
type Importance struct {
	Degree      float64 `json:"degree"`
	Betweenness float64 `json:"betweenness"`
	Closeness   float64 `json:"closeness"`
	PageRank    float64 `json:"pageRank"`
	Clustering  float64 `json:"clustering"`
}

// CompareImportance profiles the named entities; unknown names are skipped.
func CompareImportance(g graphstore.Reader, names []string) map[string]Importance {
	m := ComputeMetrics(g)
	out := make(map[string]Importance, len(names))
	for _, name := range names {
		e, ok := g.Entity(name)
		if !ok {
			continue
		}
		out[e.Name] = Importance{
			Degree:      m.Degree[e.Name],
			Betweenness: m.Betweenness[e.Name],
			Closeness:   m.Closeness[e.Name],
			PageRank:    m.PageRank[e.Name],
			Clustering:  m.Clustering[e.Name],
		}
	}
	return out
}

// InfluentialEntities returns entities whose mean of degree, betweenness and
// PageRank reaches threshold, in insertion order.
func InfluentialEntities(g graphstore.Reader, threshold float64) []string {
	m := ComputeMetrics(g)
	out := []string{}
	for _, e := range g.Entities() {
		avg := (m.Degree[e.Name] + m.Betweenness[e.Name] + m.PageRank[e.Name]) / 3
		if avg >= threshold {
			out = append(out, e.Name)
		}
	}
	return out
}
