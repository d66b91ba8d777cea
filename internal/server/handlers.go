package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/paths"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/stats"
)

func thresholdOr(t *float64) float64 {
	if t == nil {
		return deepsearch.DefaultThreshold
	}
	return *t
}

func textResult[T any](text string, structured T) *mcp.CallToolResultFor[T] {
	return &mcp.CallToolResultFor[T]{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: structured,
	}
}

// handleBuildGraph handles the build_graph tool call
func (s *MCPServer) handleBuildGraph(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.BuildGraphArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("build_graph")
	var success bool
	defer func() { done(success) }()
	projectName := s.getProjectName(params.Arguments.ProjectArgs.ProjectName)
	if len(params.Arguments.Entities) == 0 {
		return nil, deepsearch.ErrNoEntities
	}

	an := s.project(ctx, projectName)
	report, err := an.BuildGraphFromEntities(ctx, params.Arguments.Entities, params.Arguments.Context, thresholdOr(params.Arguments.Threshold))
	if err != nil {
		return nil, fmt.Errorf("build graph failed: %w", err)
	}
	store := an.Store()
	metrics.Default().SetGraphSize(projectName, store.Order(), store.Size())
	success = true

	text := fmt.Sprintf("Scored %d pairs in project %s: kept %d, below threshold %d, degraded %d. Graph has %d entities and %d relationships.",
		report.PairsScored, projectName, report.Kept, report.BelowThreshold, report.Degraded, store.Order(), store.Size())
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
}

// handleExpandNetwork handles the expand_network tool call
func (s *MCPServer) handleExpandNetwork(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ExpandNetworkArgs],
) (*mcp.CallToolResultFor[any], error) {
	done := metrics.TimeTool("expand_network")
	var success bool
	defer func() { done(success) }()
	args := params.Arguments
	projectName := s.getProjectName(args.ProjectArgs.ProjectName)
	order, maxPer := args.Order, args.MaxPerEntity
	if order <= 0 {
		order = deepsearch.DefaultOrder
	}
	if maxPer <= 0 {
		maxPer = deepsearch.DefaultMaxPerEntity
	}

	an := s.project(ctx, projectName)
	if an.Store().Order() == 0 {
		return nil, fmt.Errorf("project %s has no entities; run build_graph first", projectName)
	}
	report, err := an.ExpandNetwork(ctx, args.Context, analyzer.ExpandOptions{
		Order:        order,
		MaxPerEntity: maxPer,
		Threshold:    thresholdOr(args.Threshold),
		CrossLink:    args.CrossLink,
	})
	if err != nil {
		return nil, fmt.Errorf("expand network failed: %w", err)
	}
	store := an.Store()
	metrics.Default().SetGraphSize(projectName, store.Order(), store.Size())
	success = true

	var b strings.Builder
	fmt.Fprintf(&b, "Discovered %d entities over %d levels in project %s.", report.Discovered, len(report.Levels), projectName)
	for _, lr := range report.Levels {
		fmt.Fprintf(&b, "\nLevel %d: queried %d, discovered %d", lr.Level, len(lr.Queried), len(lr.Discovered))
	}
	if report.Capped {
		b.WriteString("\nExpansion stopped at the entity limit.")
	}
	fmt.Fprintf(&b, "\nGraph has %d entities and %d relationships.", store.Order(), store.Size())
	return &mcp.CallToolResultFor[any]{Content: []mcp.Content{&mcp.TextContent{Text: b.String()}}}, nil
}

// handleNeighbors returns the direct neighbors of an entity
func (s *MCPServer) handleNeighbors(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.EntityArgs],
) (*mcp.CallToolResultFor[apptype.NeighborsResult], error) {
	done := metrics.TimeTool("neighbors")
	defer func() { done(true) }()
	projectName := s.getProjectName(params.Arguments.ProjectArgs.ProjectName)
	store := s.project(ctx, projectName).Store()

	res := apptype.NeighborsResult{Entity: params.Arguments.Name, Neighbors: []apptype.Neighbor{}}
	if e, ok := store.Entity(params.Arguments.Name); ok {
		res.Entity = e.Name
		res.Found = true
		res.Neighbors = analyzer.StrongestConnections(store, e.Name, params.Arguments.Limit)
	}
	return textResult(fmt.Sprintf("%d neighbors", len(res.Neighbors)), res), nil
}

// handleNeighborhoodOrders groups entities by hop distance from a root
func (s *MCPServer) handleNeighborhoodOrders(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.NeighborhoodArgs],
) (*mcp.CallToolResultFor[apptype.NeighborhoodResult], error) {
	done := metrics.TimeTool("neighborhood_orders")
	defer func() { done(true) }()
	projectName := s.getProjectName(params.Arguments.ProjectArgs.ProjectName)
	maxOrder := params.Arguments.MaxOrder
	if maxOrder <= 0 {
		maxOrder = deepsearch.DefaultNeighborhoodOrder
	}
	store := s.project(ctx, projectName).Store()
	layers := paths.NeighborhoodOrders(store, params.Arguments.Name, maxOrder)
	return textResult(fmt.Sprintf("%d neighborhood layers", len(layers)),
		apptype.NeighborhoodResult{Entity: params.Arguments.Name, Layers: layers}), nil
}

func (s *MCPServer) handleConnectingPaths(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.PathArgs],
) (*mcp.CallToolResultFor[apptype.PathsResult], error) {
	done := metrics.TimeTool("connecting_paths")
	defer func() { done(true) }()
	args := params.Arguments
	store := s.project(ctx, s.getProjectName(args.ProjectArgs.ProjectName)).Store()
	found, truncated := paths.EnumeratePaths(store, args.Source, args.Target, args.MaxLength, paths.MaxEnumeratedPaths)
	text := fmt.Sprintf("Found %d paths", len(found))
	if truncated {
		text += " (enumeration stopped at the path limit)"
	}
	return textResult(text, apptype.PathsResult{
		Source:    args.Source,
		Target:    args.Target,
		Paths:     found,
		Truncated: truncated,
	}), nil
}

func (s *MCPServer) handlePathSummary(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.PathArgs],
) (*mcp.CallToolResultFor[PathSummaryResult], error) {
	done := metrics.TimeTool("path_summary")
	defer func() { done(true) }()
	args := params.Arguments
	store := s.project(ctx, s.getProjectName(args.ProjectArgs.ProjectName)).Store()
	sum := paths.Summary(store, args.Source, args.Target, args.MaxLength)
	text := fmt.Sprintf("%s and %s are not connected", args.Source, args.Target)
	if sum.Connected {
		text = fmt.Sprintf("Shortest path: %s (%d hops), %d paths found",
			strings.Join(sum.ShortestPath, " -> "), sum.ShortestLength, sum.PathCount)
	}
	return textResult(text, sum), nil
}

func (s *MCPServer) handleGraphStats(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ReadGraphArgs],
) (*mcp.CallToolResultFor[GraphStatsResult], error) {
	done := metrics.TimeTool("graph_stats")
	defer func() { done(true) }()
	store := s.project(ctx, s.getProjectName(params.Arguments.ProjectArgs.ProjectName)).Store()
	res := newGraphStatsResult(stats.Compute(store))
	return textResult(strings.Join(res.Conclusions, "\n"), res), nil
}

// handleReadGraph handles the read_graph tool call
func (s *MCPServer) handleReadGraph(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ReadGraphArgs],
) (*mcp.CallToolResultFor[apptype.GraphSnapshot], error) {
	done := metrics.TimeTool("read_graph")
	defer func() { done(true) }()
	store := s.project(ctx, s.getProjectName(params.Arguments.ProjectArgs.ProjectName)).Store()
	snap := store.Snapshot()
	return textResult(fmt.Sprintf("Graph has %d entities and %d relationships", len(snap.Entities), len(snap.Relationships)), snap), nil
}

// handleDeepSearch runs the full pipeline and installs its graph as the project graph
func (s *MCPServer) handleDeepSearch(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DeepSearchArgs],
) (*mcp.CallToolResultFor[DeepSearchResult], error) {
	done := metrics.TimeTool("deep_search")
	var success bool
	defer func() { done(success) }()
	args := params.Arguments
	projectName := s.getProjectName(args.ProjectArgs.ProjectName)

	res, err := s.pipeline.Run(ctx, deepsearch.Request{
		Entities:     args.Entities,
		Context:      args.Context,
		Expand:       args.Expand,
		Order:        args.Order,
		MaxPerEntity: args.MaxPerEntity,
		Threshold:    thresholdOr(args.Threshold),
		CrossLink:    args.CrossLink,
		OutputDir:    args.OutputDir,
		Project:      projectName,
	})
	if err != nil {
		return nil, fmt.Errorf("deep search failed: %w", err)
	}
	s.replace(projectName, res.Store)
	success = true
	return textResult(strings.Join(res.Conclusions, "\n"), newDeepSearchResult(projectName, res)), nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()
	res := apptype.HealthResult{
		Name:        serverName,
		Version:     buildinfo.Version,
		Revision:    buildinfo.Revision,
		BuildDate:   buildinfo.BuildDate,
		Scorer:      s.scorer.Name(),
		Persistence: s.db != nil,
		Projects:    s.projects.names(),
	}
	if s.db != nil {
		res.MultiProject = s.db.Config().MultiProjectMode
	}
	return textResult("ok", res), nil
}
