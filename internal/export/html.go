package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/metrics"
	"github.com/ZanzyTHEbar/deepsearch-kg-go/internal/stats"
)

const (
	GraphHTMLFile  = "graph_interactive.html"
	WeightHTMLFile = "weight_distribution.html"
	DegreeHTMLFile = "degree_distribution.html"
)

const graphTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body { margin: 0; font-family: Arial, sans-serif; }
        #graph { width: 100%; height: 100vh; background-color: #f5f5f5; }
        .link { stroke: #999; stroke-opacity: 0.6; }
        .node { stroke: #fff; stroke-width: 1.5px; }
        .node.seed { stroke: #222; stroke-width: 2.5px; }
        .node-label { font-size: 10px; pointer-events: none; }
        .controls {
            position: absolute; top: 10px; left: 10px;
            background-color: rgba(255,255,255,0.85);
            padding: 10px; border-radius: 5px;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
    </style>
</head>
<body>
    <div id="graph"></div>
    <div class="controls">
        <h3>{{.Title}}</h3>
        <p>Entities: {{.NodeCount}}, Relationships: {{.EdgeCount}}</p>
        <label for="min-weight">Minimum weight: <span id="min-weight-value">0.00</span></label>
        <input id="min-weight" type="range" min="0" max="1" step="0.05" value="0">
    </div>
    <script>
        const graphData = {{.GraphData}};

        const simulation = d3.forceSimulation(graphData.nodes)
            .force("link", d3.forceLink(graphData.edges).id(d => d.id).distance(d => 160 * (1.1 - d.weight)))
            .force("charge", d3.forceManyBody().strength(-300))
            .force("center", d3.forceCenter(window.innerWidth / 2, window.innerHeight / 2));

        const svg = d3.select("#graph").append("svg")
            .attr("width", "100%").attr("height", "100%")
            .call(d3.zoom().on("zoom", (event) => g.attr("transform", event.transform)));
        const g = svg.append("g");

        const levels = [...new Set(graphData.nodes.map(n => n.level))];
        const color = d3.scaleOrdinal(d3.schemeCategory10).domain(levels);

        const link = g.append("g").selectAll("line")
            .data(graphData.edges).enter().append("line")
            .attr("class", "link")
            .attr("stroke-width", d => 1 + d.weight * 4);
        link.append("title").text(d => d.type + " (" + d.weight.toFixed(2) + ")");

        const node = g.append("g").selectAll("circle")
            .data(graphData.nodes).enter().append("circle")
            .attr("class", d => d.seed ? "node seed" : "node")
            .attr("r", d => 6 + Math.sqrt(d.degree) * 2)
            .attr("fill", d => color(d.level))
            .call(d3.drag().on("start", dragstarted).on("drag", dragged).on("end", dragended));
        node.append("title").text(d => d.label + " (level " + d.level + ", degree " + d.degree + ")" + (d.description ? "\n" + d.description : ""));

        const label = g.append("g").selectAll("text")
            .data(graphData.nodes).enter().append("text")
            .attr("class", "node-label").attr("dx", 12).attr("dy", ".35em")
            .text(d => d.label);

        simulation.on("tick", () => {
            link.attr("x1", d => d.source.x).attr("y1", d => d.source.y)
                .attr("x2", d => d.target.x).attr("y2", d => d.target.y);
            node.attr("cx", d => d.x).attr("cy", d => d.y);
            label.attr("x", d => d.x).attr("y", d => d.y);
        });

        d3.select("#min-weight").on("input", function() {
            const min = +this.value;
            d3.select("#min-weight-value").text(min.toFixed(2));
            link.style("visibility", d => d.weight >= min ? "visible" : "hidden");
        });

        function dragstarted(event, d) {
            if (!event.active) simulation.alphaTarget(0.3).restart();
            d.fx = d.x; d.fy = d.y;
        }
        function dragged(event, d) { d.fx = event.x; d.fy = event.y; }
        function dragended(event, d) {
            if (!event.active) simulation.alphaTarget(0);
            d.fx = null; d.fy = null;
        }
    </script>
</body>
</html>
`

const barTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .bar { fill: #4682b4; }
        .bar:hover { fill: #2c5d8a; }
    </style>
</head>
<body>
    <h3>{{.Title}}</h3>
    <div id="chart"></div>
    <script>
        const bars = {{.Bars}};
        const margin = {top: 20, right: 20, bottom: 50, left: 50};
        const width = 800 - margin.left - margin.right;
        const height = 400 - margin.top - margin.bottom;

        const svg = d3.select("#chart").append("svg")
            .attr("width", width + margin.left + margin.right)
            .attr("height", height + margin.top + margin.bottom)
            .append("g").attr("transform", "translate(" + margin.left + "," + margin.top + ")");

        const x = d3.scaleBand().domain(bars.map(b => b.label)).range([0, width]).padding(0.1);
        const y = d3.scaleLinear().domain([0, d3.max(bars, b => b.count) || 1]).nice().range([height, 0]);

        svg.append("g").attr("transform", "translate(0," + height + ")").call(d3.axisBottom(x))
            .append("text").attr("x", width / 2).attr("y", 40).attr("fill", "#000").text({{.XLabel}});
        svg.append("g").call(d3.axisLeft(y));

        svg.selectAll(".bar").data(bars).enter().append("rect")
            .attr("class", "bar")
            .attr("x", b => x(b.label)).attr("width", x.bandwidth())
            .attr("y", b => y(b.count)).attr("height", b => height - y(b.count))
            .append("title").text(b => b.label + ": " + b.count);
    </script>
</body>
</html>
`

var (
	graphTmpl = template.Must(template.New("graph").Parse(graphTemplate))
	barTmpl   = template.Must(template.New("bars").Parse(barTemplate))
)

// Bar is one column of a distribution chart.
type Bar struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// HTMLVisualizer renders D3 pages into a directory.
type HTMLVisualizer struct {
	dir   string
	title string
}

func NewHTMLVisualizer(dir, title string) *HTMLVisualizer {
	if title == "" {
		title = "Knowledge Graph"
	}
	return &HTMLVisualizer{dir: dir, title: title}
}

// RenderGraph writes the interactive force-directed graph page.
func (v *HTMLVisualizer) RenderGraph(doc GraphDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	return v.render(GraphHTMLFile, graphTmpl, struct {
		Title     string
		NodeCount int
		EdgeCount int
		GraphData template.JS
	}{v.title, len(doc.Nodes), len(doc.Edges), template.JS(data)})
}

// RenderDistributions writes the weight and degree histogram pages.
func (v *HTMLVisualizer) RenderDistributions(r stats.Report) ([]string, error) {
	weights := make([]Bar, 0, len(r.Weights.Histogram))
	for i, c := range r.Weights.Histogram {
		lo := float64(i) / float64(len(r.Weights.Histogram))
		hi := float64(i+1) / float64(len(r.Weights.Histogram))
		weights = append(weights, Bar{Label: fmt.Sprintf("%.1f-%.1f", lo, hi), Count: c})
	}
	degrees := make([]int, 0, len(r.DegreeDistribution))
	for d := range r.DegreeDistribution {
		degrees = append(degrees, d)
	}
	sort.Ints(degrees)
	degreeBars := make([]Bar, 0, len(degrees))
	for _, d := range degrees {
		degreeBars = append(degreeBars, Bar{Label: fmt.Sprint(d), Count: r.DegreeDistribution[d]})
	}

	var paths []string
	for _, page := range []struct {
		file, title, xLabel string
		bars                []Bar
	}{
		{WeightHTMLFile, "Relationship Weight Distribution", "Weight", weights},
		{DegreeHTMLFile, "Degree Distribution", "Degree", degreeBars},
	} {
		data, err := json.Marshal(page.bars)
		if err != nil {
			return paths, fmt.Errorf("encode %s: %w", page.file, err)
		}
		p, err := v.render(page.file, barTmpl, struct {
			Title  string
			XLabel string
			Bars   template.JS
		}{page.title, page.xLabel, template.JS(data)})
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (v *HTMLVisualizer) render(name string, tmpl *template.Template, data any) (path string, err error) {
	done := metrics.TimeOp("export_html")
	defer func() { done(err == nil) }()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	if err := os.MkdirAll(v.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path = filepath.Join(v.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}
