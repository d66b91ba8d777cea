package server

import (
	"strconv"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/paths"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/stats"
)

// PathSummaryResult is the structured result of the path_summary tool.
type PathSummaryResult = paths.PathSummary

// GraphStatsResult is stats.Report with string keys for the degree
// distribution, as required by JSON schema objects.
type GraphStatsResult struct {
	Basic              stats.Basic        `json:"basic"`
	Connectivity       stats.Connectivity `json:"connectivity"`
	Centrality         stats.Centrality   `json:"centrality"`
	Clustering         stats.Clustering   `json:"clustering"`
	DegreeDistribution map[string]int     `json:"degreeDistribution"`
	Weights            stats.WeightStats  `json:"weights"`
	Conclusions        []string           `json:"conclusions"`
}

func newGraphStatsResult(r stats.Report) GraphStatsResult {
	dist := make(map[string]int, len(r.DegreeDistribution))
	for deg, n := range r.DegreeDistribution {
		dist[strconv.Itoa(deg)] = n
	}
	return GraphStatsResult{
		Basic:              r.Basic,
		Connectivity:       r.Connectivity,
		Centrality:         r.Centrality,
		Clustering:         r.Clustering,
		DegreeDistribution: dist,
		Weights:            r.Weights,
		Conclusions:        stats.Conclusions(r, nil),
	}
}

// DeepSearchResult is the structured result of the deep_search tool.
type DeepSearchResult struct {
	RunID         string                       `json:"runId"`
	Project       string                       `json:"project"`
	Entities      []string                     `json:"entities"`
	Nodes         int                          `json:"nodes"`
	Relationships int                          `json:"relationships"`
	Conclusions   []string                     `json:"conclusions"`
	Paths         map[string]paths.PathSummary `json:"pathAnalysis"`
	Influence     []analyzer.RankedEntity      `json:"influence"`
	Artifacts     []string                     `json:"artifacts,omitempty"`
	SinkErrors    map[string]string            `json:"sinkErrors,omitempty"`
}

func newDeepSearchResult(project string, res *deepsearch.Result) DeepSearchResult {
	influence := res.Influence
	if len(influence) > 10 {
		influence = influence[:10]
	}
	return DeepSearchResult{
		RunID:         res.RunID,
		Project:       project,
		Entities:      res.Entities,
		Nodes:         res.Statistics.Basic.Nodes,
		Relationships: res.Statistics.Basic.Edges,
		Conclusions:   res.Conclusions,
		Paths:         res.Paths,
		Influence:     influence,
		Artifacts:     res.Artifacts,
		SinkErrors:    res.SinkErrors,
	}
}
