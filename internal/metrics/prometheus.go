// Package metrics records valuation activity with Prometheus collectors.
//
// The CLI is short-lived, so metrics are not scraped; they are written to a
// file for the node_exporter textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the collectors on a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	valuations  *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		valuations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondval_valuations_total",
				Help: "Total number of bond valuations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondval_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bondval_last_dirty_price",
				Help: "Dirty price of the last valuation per kind",
			},
			[]string{"kind"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bondval_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.00001, .0001, .001, .01, .1, 1},
			},
			[]string{"operation"},
		),
	}
}

// RecordValuation records a valuation outcome ("ok" or "error").
func (r *Recorder) RecordValuation(kind, outcome string) {
	r.valuations.WithLabelValues(kind, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the dirty price of the latest valuation of a kind.
func (r *Recorder) RecordLastPrice(kind string, price float64) {
	r.lastPrice.WithLabelValues(kind).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// WriteTextfile writes every collected metric to path in the text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
