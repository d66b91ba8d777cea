package metrics

import (
	"os"
	"sync"
	"time"
)

// Package metrics provides a minimal instrumentation interface with a no-op
// default and optional Prometheus-backed implementation enabled via env.

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncDBOpTotal(op string, success bool)
	ObserveDBOpSeconds(op string, success bool, seconds float64)
	IncToolTotal(tool string, success bool)
	ObserveToolSeconds(tool string, success bool, seconds float64)
	IncScorerCallTotal(op, outcome string)
	ObserveScorerSeconds(op, outcome string, seconds float64)
	SetGraphSize(project string, entities, relationships int)
	IncExpansionEntities(level int, n int)
}

// Scorer call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeCanceled = "canceled"
)

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncDBOpTotal(string, bool)                    {}
func (n *noopRecorder) ObserveDBOpSeconds(string, bool, float64)     {}
func (n *noopRecorder) IncToolTotal(string, bool)                    {}
func (n *noopRecorder) ObserveToolSeconds(string, bool, float64)     {}
func (n *noopRecorder) IncScorerCallTotal(string, string)            {}
func (n *noopRecorder) ObserveScorerSeconds(string, string, float64) {}
func (n *noopRecorder) SetGraphSize(string, int, int)                {}
func (n *noopRecorder) IncExpansionEntities(int, int)                {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// TimeOp is a helper to time export sink operations.
func TimeOp(op string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncDBOpTotal(op, success)
		Default().ObserveDBOpSeconds(op, success, dur)
	}
}

// TimeTool is a helper to time tool handler operations.
func TimeTool(tool string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncToolTotal(tool, success)
		Default().ObserveToolSeconds(tool, success, dur)
	}
}

// TimeScorer times a single scorer call; the returned func takes the outcome.
func TimeScorer(op string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		dur := time.Since(start).Seconds()
		Default().IncScorerCallTotal(op, outcome)
		Default().ObserveScorerSeconds(op, outcome, dur)
	}
}

// InitFromEnv enables Prometheus exporter if METRICS_PROMETHEUS=true.
// It also starts a small HTTP server on METRICS_ADDR (default :9090)
// with endpoints: /metrics (prom) and /healthz (200 ok).
func InitFromEnv() {
	if os.Getenv("METRICS_PROMETHEUS") == "" {
		return
	}
	Init(os.Getenv("METRICS_ADDR"))
}

// Init installs the Prometheus recorder listening on addr (default :9090).
func Init(addr string) {
	if addr == "" {
		addr = ":9090"
	}
	// Try to install prometheus recorder; if it fails, keep noop.
	_ = enablePrometheus(addr)
}

// enablePrometheus is provided by build-tagged files.
