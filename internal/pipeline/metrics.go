package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/kgrepair/internal/model"
)

const metricsNamespace = "kgrepair"

// Metrics counts loop activity on a private registry. Several orchestrators
// may share one Metrics, as the batch command does.
type Metrics struct {
	registry *prometheus.Registry

	// IterationsTotal counts completed iterations.
	IterationsTotal prometheus.Counter

	// IssuesTotal counts interpreted issues. Labels: issue
	IssuesTotal *prometheus.CounterVec

	// CheckDurationSeconds measures conformance check latency.
	CheckDurationSeconds prometheus.Histogram

	// RunsTotal counts finished runs. Labels: stop_reason, action
	RunsTotal *prometheus.CounterVec
}

// NewMetrics registers the loop metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		IterationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "iterations_total",
			Help:      "Repair loop iterations completed.",
		}),
		IssuesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "issues_total",
			Help:      "Issues produced by interpretation, by issue tag.",
		}, []string{"issue"}),
		CheckDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "check_duration_seconds",
			Help:      "Duration of conformance checks.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Finished repair runs, by stop reason and final action.",
		}, []string{"stop_reason", "action"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordIteration(rec model.IterationRecord) {
	m.IterationsTotal.Inc()
	m.CheckDurationSeconds.Observe(rec.CheckDuration.Seconds())
	for _, issue := range rec.Interpretation.Issues.Slice() {
		m.IssuesTotal.WithLabelValues(issue.String()).Inc()
	}
}

func (m *Metrics) recordRun(res *model.RunResult) {
	m.RunsTotal.WithLabelValues(string(res.StopReason), res.FinalAction.String()).Inc()
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
