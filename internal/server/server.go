package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/analyzer"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/database"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/export"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/scorer"
)

// TODO: Add prompts

const (
	defaultProject = "default"
	serverName     = "deepsearch-kg-go"
)

// Options configures an MCPServer.
type Options struct {
	Scorer   scorer.Scorer
	Analyzer analyzer.Config
	// DB, when set, reloads projects on first use. Pass it in Sinks as well
	// to persist deep_search graphs.
	DB *database.DBManager
	// Sinks receive every deep_search graph.
	Sinks []export.Sink
	Log   logrus.FieldLogger
}

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server   *mcp.Server
	scorer   scorer.Scorer
	cfg      analyzer.Config
	db       *database.DBManager
	pipeline *deepsearch.Pipeline
	projects *projects
	log      logrus.FieldLogger
}

// NewMCPServer creates a new MCP server
func NewMCPServer(opts Options) *MCPServer {
	if opts.Scorer == nil {
		opts.Scorer = scorer.NewDefaultScorer()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: buildinfo.Version,
	}, nil)

	s := &MCPServer{
		server:   server,
		scorer:   opts.Scorer,
		cfg:      opts.Analyzer,
		db:       opts.DB,
		pipeline: deepsearch.New(opts.Scorer, opts.Analyzer, opts.Log, opts.Sinks...),
		projects: newProjects(),
		log:      opts.Log,
	}
	s.setupToolHandlers()
	return s
}

func schemaFor[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T]()
	if err != nil {
		var zero T
		panic(fmt.Sprintf("failed to create schema for %T: %v", zero, err))
	}
	return schema
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	// Tools that return plain text do not need an output schema. Only
	// tools returning structured content should declare OutputSchema.
	mcp.AddTool(s.server, &mcp.Tool{
		Annotations: &mcp.ToolAnnotations{Title: "Build Graph"},
		Name:        "build_graph",
		Title:       "Build Graph",
		Description: "Score every pair of seed entities and keep relationships at or above the threshold.",
		InputSchema: schemaFor[apptype.BuildGraphArgs](),
	}, s.handleBuildGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations: &mcp.ToolAnnotations{Title: "Expand Network"},
		Name:        "expand_network",
		Title:       "Expand Network",
		Description: "Discover related entities level by level from the current graph.",
		InputSchema: schemaFor[apptype.ExpandNetworkArgs](),
	}, s.handleExpandNetwork)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "neighbors",
		Title:        "Neighbors",
		Description:  "Fetch the direct neighbors of an entity, strongest first.",
		InputSchema:  schemaFor[apptype.EntityArgs](),
		OutputSchema: schemaFor[apptype.NeighborsResult](),
	}, s.handleNeighbors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "neighborhood_orders",
		Title:        "Neighborhood Orders",
		Description:  "Group the entities around a root by exact hop distance.",
		InputSchema:  schemaFor[apptype.NeighborhoodArgs](),
		OutputSchema: schemaFor[apptype.NeighborhoodResult](),
	}, s.handleNeighborhoodOrders)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "connecting_paths",
		Title:        "Connecting Paths",
		Description:  "Enumerate simple paths between two entities, strongest first.",
		InputSchema:  schemaFor[apptype.PathArgs](),
		OutputSchema: schemaFor[apptype.PathsResult](),
	}, s.handleConnectingPaths)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "path_summary",
		Title:        "Path Summary",
		Description:  "Shortest path plus the top ranked connecting paths between two entities.",
		InputSchema:  schemaFor[apptype.PathArgs](),
		OutputSchema: schemaFor[PathSummaryResult](),
	}, s.handlePathSummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "graph_stats",
		Title:        "Graph Statistics",
		Description:  "Connectivity, centrality, clustering and weight statistics of a project graph.",
		InputSchema:  schemaFor[apptype.ReadGraphArgs](),
		OutputSchema: schemaFor[GraphStatsResult](),
	}, s.handleGraphStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "read_graph",
		Title:        "Read Graph",
		Description:  "Get every entity and relationship of a project graph.",
		InputSchema:  schemaFor[apptype.ReadGraphArgs](),
		OutputSchema: schemaFor[apptype.GraphSnapshot](),
	}, s.handleReadGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Deep Search"},
		Name:         "deep_search",
		Title:        "Deep Search",
		Description:  "Build or expand a graph from seed entities, then analyze neighborhoods, paths and statistics. Replaces the project graph.",
		InputSchema:  schemaFor[apptype.DeepSearchArgs](),
		OutputSchema: schemaFor[DeepSearchResult](),
	}, s.handleDeepSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Returns server and configuration information.",
		InputSchema:  schemaFor[apptype.HealthArgs](),
		OutputSchema: schemaFor[apptype.HealthResult](),
	}, s.handleHealth)
}

func (s *MCPServer) getProjectName(providedName string) string {
	if providedName != "" {
		return providedName
	}
	return defaultProject
}

// Close releases the export sinks.
func (s *MCPServer) Close() error {
	return s.pipeline.Close()
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.WithFields(logrus.Fields{"addr": addr, "endpoint": endpoint}).Info("SSE MCP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
