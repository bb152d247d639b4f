// Package metrics holds the Prometheus instruments for the evaluation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for evaluations, ring detection and dispatch.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Evaluation outcomes by decision status
	Outcomes *prometheus.CounterVec

	// Full evaluation latency including storage reads and the upsert
	EvaluateLatency prometheus.Histogram

	// Evaluations that ended in the degraded manual-audit verdict, by cause
	Degraded *prometheus.CounterVec

	// Applicants flagged as part of a proxy network, by source ("inline", "sweep")
	RingFlags *prometheus.CounterVec

	// Advisory scores from the optional scorer
	AdvisoryScore prometheus.Histogram

	// Task redeliveries after data-access failures
	TaskRetries prometheus.Counter

	// Broker depth by state ("queued", "in_flight")
	QueueDepth *prometheus.GaugeVec
}

// New creates a Metrics instance registered against reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "welfareguard_evaluation_outcomes_total",
			Help: "Total evaluation outcomes by decision status",
		}, []string{"status"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "welfareguard_evaluation_duration_seconds",
			Help:    "Duration of a full evaluation including storage access",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Degraded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "welfareguard_evaluation_degraded_total",
			Help: "Evaluations persisted as engine-error manual audits",
		}, []string{"cause"}), // cause: "evaluation", "retries_exhausted"

		RingFlags: f.NewCounterVec(prometheus.CounterOpts{
			Name: "welfareguard_ring_flags_total",
			Help: "Applicants newly flagged as members of a proxy network",
		}, []string{"source"}),

		AdvisoryScore: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "welfareguard_advisory_score",
			Help:    "Distribution of advisory scores from the optional scorer",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),

		TaskRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "welfareguard_task_retries_total",
			Help: "Evaluation tasks re-queued after a data-access failure",
		}),

		QueueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "welfareguard_queue_depth",
			Help: "Evaluation tasks waiting in or held by the broker",
		}, []string{"state"}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(status string) {
	if m != nil {
		m.Outcomes.WithLabelValues(status).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncrementDegraded records a degraded verdict.
func (m *Metrics) IncrementDegraded(cause string) {
	if m != nil {
		m.Degraded.WithLabelValues(cause).Inc()
	}
}

// AddRingFlags records newly flagged ring members.
func (m *Metrics) AddRingFlags(source string, n int) {
	if m != nil && n > 0 {
		m.RingFlags.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveAdvisoryScore records an advisory score.
func (m *Metrics) ObserveAdvisoryScore(score float64) {
	if m != nil {
		m.AdvisoryScore.Observe(score)
	}
}

// IncrementTaskRetries records a task redelivery.
func (m *Metrics) IncrementTaskRetries() {
	if m != nil {
		m.TaskRetries.Inc()
	}
}

// SetQueueDepth records the broker depth.
func (m *Metrics) SetQueueDepth(queued, inFlight int64) {
	if m != nil {
		m.QueueDepth.WithLabelValues("queued").Set(float64(queued))
		m.QueueDepth.WithLabelValues("in_flight").Set(float64(inFlight))
	}
}
