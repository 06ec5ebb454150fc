// Package prometheus implements tempstore.Metrics with Prometheus collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leonardcser/tempstore"
	"github.com/leonardcser/tempstore/metrics"
)

// timer wraps a Prometheus observer to implement metrics.Timer.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for operation latency (in seconds). The file
// provider rewrites the whole database on Set, so the tail reaches past 1s.
var defaultBuckets = []float64{
	.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5,
}

type storeMetrics struct {
	opDuration *prometheus.HistogramVec
	lookups    *prometheus.CounterVec
}

// NewStoreMetrics creates the store collectors and registers them with reg.
func NewStoreMetrics(reg prometheus.Registerer) tempstore.Metrics {
	m := &storeMetrics{
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tempstore_op_duration_seconds",
			Help:    "Store operation latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"op"}),

		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tempstore_get_total",
			Help: "Total number of Get calls by result (hit, miss, expired)",
		}, []string{"result"}),
	}
	reg.MustRegister(m.opDuration, m.lookups)
	return m
}

func (m *storeMetrics) OpDuration(op string) metrics.Timer {
	return newTimer(m.opDuration.WithLabelValues(op))
}

func (m *storeMetrics) Lookup(result string) metrics.Counter {
	return m.lookups.WithLabelValues(result)
}
