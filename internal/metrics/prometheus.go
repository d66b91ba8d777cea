//go:build !noprom

package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	dbTotal       *prom.CounterVec
	dbSeconds     *prom.HistogramVec
	toolTotal     *prom.CounterVec
	toolSeconds   *prom.HistogramVec
	scorerTotal   *prom.CounterVec
	scorerSeconds *prom.HistogramVec
	graphEntities *prom.GaugeVec
	graphRels     *prom.GaugeVec
	expansion     *prom.CounterVec
}

func (p *promRecorder) IncDBOpTotal(op string, success bool) {
	p.dbTotal.WithLabelValues(op, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveDBOpSeconds(op string, success bool, seconds float64) {
	p.dbSeconds.WithLabelValues(op, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, fmt.Sprintf("%t", success)).Observe(seconds)
}

func (p *promRecorder) IncScorerCallTotal(op, outcome string) {
	p.scorerTotal.WithLabelValues(op, outcome).Inc()
}

func (p *promRecorder) ObserveScorerSeconds(op, outcome string, seconds float64) {
	p.scorerSeconds.WithLabelValues(op, outcome).Observe(seconds)
}

func (p *promRecorder) SetGraphSize(project string, entities, relationships int) {
	p.graphEntities.WithLabelValues(project).Set(float64(entities))
	p.graphRels.WithLabelValues(project).Set(float64(relationships))
}

func (p *promRecorder) IncExpansionEntities(level int, n int) {
	p.expansion.WithLabelValues(strconv.Itoa(level)).Add(float64(n))
}

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	p := &promRecorder{
		dbTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "db_ops_total",
			Help: "Total number of export sink operations",
		}, []string{"op", "success"}),
		dbSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "db_op_seconds",
			Help:    "Export sink operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "tool_calls_total",
			Help: "Total number of tool handler calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "tool_call_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
		scorerTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "scorer_calls_total",
			Help: "Total number of relationship scorer calls by outcome",
		}, []string{"op", "outcome"}),
		scorerSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "scorer_call_seconds",
			Help:    "Relationship scorer call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"op", "outcome"}),
		graphEntities: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "graph_entities",
			Help: "Number of entities in the graph",
		}, []string{"project"}),
		graphRels: prom.NewGaugeVec(prom.GaugeOpts{
			Name: "graph_relationships",
			Help: "Number of relationships in the graph",
		}, []string{"project"}),
		expansion: prom.NewCounterVec(prom.CounterOpts{
			Name: "expansion_entities_total",
			Help: "Entities discovered by network expansion per level",
		}, []string{"level"}),
	}

	registry.MustRegister(p.dbTotal, p.dbSeconds, p.toolTotal, p.toolSeconds,
		p.scorerTotal, p.scorerSeconds, p.graphEntities, p.graphRels, p.expansion)
	SetRecorder(p)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}
