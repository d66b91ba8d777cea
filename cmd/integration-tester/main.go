package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/apptype"
)

type StepResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Summary   string `json:"summary,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	SSEURL     string       `json:"sse_url"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

func main() {
	sseURL := flag.String("sse-url", "http://localhost:8080/sse", "SSE endpoint URL")
	project := flag.String("project", "integration", "Project name to use")
	entities := flag.String("entities", "Python,JavaScript,Rust", "Comma separated seed entities")
	topic := flag.String("context", "programming languages", "Analysis context")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-tester", Version: "dev"}, nil)
	transport := mcp.NewSSEClientTransport(*sseURL, nil)

	start := time.Now()
	report := Report{SSEURL: *sseURL, StartedAt: start}
	steps := make([]StepResult, 0, 16)

	// Connect
	tConn := time.Now()
	connRes := StepResult{Name: "connect"}
	session, err := client.Connect(ctx, transport)
	if err != nil {
		connRes.Error = err.Error()
		connRes.ElapsedMs = elapsedMsSince(tConn)
		report.Steps = append(steps, connRes)
		report.DurationMs = elapsedMsSince(start)
		writeReport(report)
		os.Exit(1)
	}
	defer session.Close()
	connRes.Success = true
	connRes.ElapsedMs = elapsedMsSince(tConn)
	steps = append(steps, connRes)

	seeds := splitEntities(*entities)
	pa := apptype.ProjectArgs{ProjectName: *project}
	steps = append(steps, runListTools(ctx, session))
	steps = append(steps, callTool(ctx, session, "health_check", apptype.HealthArgs{}))
	steps = append(steps, callTool(ctx, session, "build_graph", apptype.BuildGraphArgs{ProjectArgs: pa, Entities: seeds, Context: *topic}))
	steps = append(steps, callTool(ctx, session, "expand_network", apptype.ExpandNetworkArgs{ProjectArgs: pa, Context: *topic, Order: 1, MaxPerEntity: 2}))
	steps = append(steps, callTool(ctx, session, "read_graph", apptype.ReadGraphArgs{ProjectArgs: pa}))
	steps = append(steps, callTool(ctx, session, "graph_stats", apptype.ReadGraphArgs{ProjectArgs: pa}))
	if len(seeds) > 0 {
		steps = append(steps, callTool(ctx, session, "neighbors", apptype.EntityArgs{ProjectArgs: pa, Name: seeds[0]}))
		steps = append(steps, callTool(ctx, session, "neighborhood_orders", apptype.NeighborhoodArgs{ProjectArgs: pa, Name: seeds[0], MaxOrder: 3}))
	}
	if len(seeds) > 1 {
		last := seeds[len(seeds)-1]
		steps = append(steps, callTool(ctx, session, "connecting_paths", apptype.PathArgs{ProjectArgs: pa, Source: seeds[0], Target: last}))
		steps = append(steps, callTool(ctx, session, "path_summary", apptype.PathArgs{ProjectArgs: pa, Source: seeds[0], Target: last}))
	}
	// deep_search replaces a project graph, so it gets its own project.
	deep := apptype.ProjectArgs{ProjectName: *project + "-deep"}
	steps = append(steps, callTool(ctx, session, "deep_search", apptype.DeepSearchArgs{ProjectArgs: deep, Entities: seeds, Context: *topic}))

	// finalize report
	report.Steps = steps
	report.DurationMs = elapsedMsSince(start)
	report.Passed = true
	for _, s := range steps {
		if !s.Success {
			report.Passed = false
			break
		}
	}
	writeReport(report)

	if !report.Passed {
		os.Exit(1)
	}
}

func splitEntities(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeReport(r Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(r)
}

func runListTools(ctx context.Context, session *mcp.ClientSession) StepResult {
	t0 := time.Now()
	res := StepResult{Name: "list_tools"}
	tools, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
		res.Summary = fmt.Sprintf("%d tools", len(tools.Tools))
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

// callTool invokes one tool and records the first line of its text content.
func callTool(ctx context.Context, session *mcp.ClientSession, name string, args any) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name}
	raw, _ := json.Marshal(args)
	out, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(raw)})
	switch {
	case err != nil:
		res.Error = err.Error()
	case out.IsError:
		res.Error = firstText(out)
	default:
		res.Success = true
		res.Summary = firstText(out)
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func firstText(r *mcp.CallToolResult) string {
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			line, _, _ := strings.Cut(tc.Text, "\n")
			return line
		}
	}
	return ""
}

// elapsedMsSince returns max(1ms, elapsed) to avoid zero durations on fast steps
func elapsedMsSince(t0 time.Time) int64 {
	d := time.Since(t0) / time.Millisecond
	if d <= 0 {
		return 1
	}
	return int64(d)
}
