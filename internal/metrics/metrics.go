// Package metrics provides Prometheus metrics for query execution.
//
// All recording methods accept a nil *Collector and do nothing, so callers
// that run without metrics need no guards.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leaptable"

// Query outcomes used as the "outcome" label.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeFault  = "fault"
)

// Collector holds all Prometheus metrics of an engine.
type Collector struct {
	// Query metrics
	QueriesTotal  *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Async metrics
	AsyncSubmitted prometheus.Counter
	AsyncCompleted *prometheus.CounterVec
	AsyncInFlight  prometheus.Gauge
	AsyncRetained  prometheus.Gauge

	// Schema metrics
	SchemaReloads      prometheus.Counter
	SchemaReloadErrors prometheus.Counter
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Total number of executed queries by outcome",
			},
			[]string{"query", "outcome"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Query execution duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"query"},
		),

		AsyncSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "async_submitted_total",
				Help:      "Total number of submitted async operations",
			},
		),
		AsyncCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "async_completed_total",
				Help:      "Total number of finished async operations by outcome",
			},
			[]string{"outcome"},
		),
		AsyncInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "async_in_flight",
				Help:      "Number of async operations submitted but not finished",
			},
		),
		AsyncRetained: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "async_retained_results",
				Help:      "Number of finished results waiting to be fetched",
			},
		),

		SchemaReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reloads_total",
				Help:      "Total number of successful schema reloads",
			},
		),
		SchemaReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_reload_errors_total",
				Help:      "Total number of rejected schema reloads",
			},
		),
	}
}

// ObserveQuery records one query execution.
func (c *Collector) ObserveQuery(query, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.QueriesTotal.WithLabelValues(query, outcome).Inc()
	c.QueryDuration.WithLabelValues(query).Observe(d.Seconds())
}

// AsyncStarted records a submitted async operation.
func (c *Collector) AsyncStarted() {
	if c == nil {
		return
	}
	c.AsyncSubmitted.Inc()
	c.AsyncInFlight.Inc()
}

// AsyncFinished records a finished async operation.
func (c *Collector) AsyncFinished(outcome string) {
	if c == nil {
		return
	}
	c.AsyncInFlight.Dec()
	c.AsyncCompleted.WithLabelValues(outcome).Inc()
}

// SetRetained sets the number of results held by the result store.
func (c *Collector) SetRetained(n int) {
	if c == nil {
		return
	}
	c.AsyncRetained.Set(float64(n))
}

// Reloaded records a schema reload attempt.
func (c *Collector) Reloaded(err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.SchemaReloadErrors.Inc()
		return
	}
	c.SchemaReloads.Inc()
}
