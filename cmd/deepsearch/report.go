package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/deepsearch"
)

const rule = "======================================================================"

// report prints the console view of a run.
type report struct {
	w                               io.Writer
	cyan, yellow, green, red, white *color.Color
}

func newReport(w io.Writer) *report {
	return &report{
		w:      w,
		cyan:   color.New(color.FgCyan),
		yellow: color.New(color.FgYellow),
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		white:  color.New(color.FgWhite),
	}
}

func (r *report) section(title string) {
	r.cyan.Fprintf(r.w, "\n%s\n%s\n%s\n\n", rule, title, rule)
}

func (r *report) warn(msg string) {
	r.yellow.Fprintf(r.w, "Warning: %s\n", msg)
}

func (r *report) header(entities []string, topic string) {
	r.section("DEEP SEARCH - Knowledge Graph Analysis")
	if topic == "" {
		topic = "General analysis"
	}
	r.yellow.Fprint(r.w, "Entities to analyze: ")
	r.white.Fprintln(r.w, strings.Join(entities, ", "))
	r.yellow.Fprint(r.w, "Context: ")
	r.white.Fprintf(r.w, "%s\n\n", topic)
}

// step matches the pipeline progress callback.
func (r *report) step(n int, msg string) {
	r.green.Fprintf(r.w, "[%d/%d] %s...\n", n, deepsearch.TotalSteps, msg)
}

func (r *report) item(label string, value any) {
	r.yellow.Fprintf(r.w, "  - %s: ", label)
	r.white.Fprintln(r.w, value)
}

func (r *report) results(res *deepsearch.Result, outputDir string) {
	r.white.Fprintf(r.w, "   Graph contains %d entities and %d relationships\n",
		res.Statistics.Basic.Nodes, res.Statistics.Basic.Edges)

	r.section("CONCLUSIONS")
	for i, c := range res.Conclusions {
		r.green.Fprintf(r.w, "%d. ", i+1)
		r.white.Fprintln(r.w, c)
	}

	s := res.Statistics
	r.section("KEY STATISTICS")
	r.yellow.Fprintln(r.w, "Network Structure:")
	r.item("Entities", s.Basic.Nodes)
	r.item("Relationships", s.Basic.Edges)
	r.item("Density", fmt.Sprintf("%.3f", s.Basic.Density))
	r.item("Avg Degree", fmt.Sprintf("%.2f", s.Basic.AverageDegree))

	r.yellow.Fprintln(r.w, "\nConnectivity:")
	r.item("Connected", s.Connectivity.Connected)
	if s.Connectivity.Connected {
		r.item("Avg Path Length", fmt.Sprintf("%.2f", s.Connectivity.AveragePathLength))
		r.item("Diameter", s.Connectivity.Diameter)
	} else {
		r.item("Components", s.Connectivity.Components)
	}

	r.yellow.Fprintln(r.w, "\nTop Entities (PageRank):")
	for _, sc := range s.Centrality.PageRank {
		r.item(sc.Name, fmt.Sprintf("%.4f", sc.Score))
	}

	r.yellow.Fprintln(r.w, "\nClustering:")
	r.item("Avg Coefficient", fmt.Sprintf("%.3f", s.Clustering.AverageCoefficient))
	r.item("Communities", len(s.Clustering.Communities))

	for name, msg := range res.SinkErrors {
		r.red.Fprintf(r.w, "\nExport to %s failed: %s\n", name, msg)
	}
	if outputDir != "" {
		r.green.Fprintf(r.w, "\nAnalysis complete! Results and visualizations are in %s/\n", outputDir)
	}
}
