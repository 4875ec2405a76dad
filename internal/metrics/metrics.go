// Package metrics counts patch outcomes and writes them in the Prometheus
// text format for node_exporter's textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sokinpui/srcpatch/internal/patcher"
)

// Recorder owns a private registry so runs and tests never share counters.
type Recorder struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	changes    *prometheus.CounterVec
	commits    *prometheus.CounterVec
	dropped    prometheus.Counter
}

// New registers the srcpatch collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "srcpatch_operations_total",
			Help: "Patch operations by kind and outcome",
		}, []string{"kind", "outcome"}),
		changes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "srcpatch_changes_total",
			Help: "Change records by change kind",
		}, []string{"kind"}),
		commits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "srcpatch_commits_total",
			Help: "Commit attempts by result (written, unchanged, dry_run, error)",
		}, []string{"result"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "srcpatch_candidates_dropped_total",
			Help: "Ranking candidates dropped for unusable coordinates",
		}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveResults counts every operation outcome and every change it produced.
func (r *Recorder) ObserveResults(results []patcher.Result) {
	for _, res := range results {
		r.operations.WithLabelValues(res.Kind, res.Outcome.String()).Inc()
		if res.Change != nil {
			r.changes.WithLabelValues(res.Change.Kind.String()).Inc()
		}
	}
}

// ObserveCommit counts a commit attempt.
func (r *Recorder) ObserveCommit(result string) {
	r.commits.WithLabelValues(result).Inc()
}

// ObserveDropped counts ranking candidates that were skipped.
func (r *Recorder) ObserveDropped(n int) {
	r.dropped.Add(float64(n))
}

// WriteFile writes every collected metric to path atomically.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
