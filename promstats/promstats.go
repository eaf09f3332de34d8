// Package promstats exports scalebloom operation metrics to Prometheus.
//
//	c, err := promstats.New(prometheus.DefaultRegisterer, "myapp")
//	f, err := scalebloom.New(n, p, path, scalebloom.WithMetricsCollector(c))
package promstats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/scalebloom"
)

// Collector implements scalebloom.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	ops        *prometheus.CounterVec
	checkHits  prometheus.Counter
	removed    prometheus.Counter
	subFilters prometheus.Gauge
	scales     prometheus.Counter
}

var _ scalebloom.MetricsCollector = (*Collector)(nil)

// New creates a Collector and registers its metrics with reg. An empty
// namespace defaults to "scalebloom".
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = "scalebloom"
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of filter operations",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 12),
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total filter operations",
		}, []string{"op", "status"}),
		checkHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_hits_total",
			Help:      "Checks that reported a possible member",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delete_removed_total",
			Help:      "Deletes that decremented a sub-filter",
		}),
		subFilters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sub_filters",
			Help:      "Current number of sub-filters",
		}),
		scales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scales_total",
			Help:      "Total sub-filters appended by scaling",
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.ops, c.checkHits, c.removed, c.subFilters, c.scales} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordAdd implements scalebloom.MetricsCollector.
func (c *Collector) RecordAdd(d time.Duration, err error) {
	c.observe("add", d, err)
}

// RecordDelete implements scalebloom.MetricsCollector.
func (c *Collector) RecordDelete(removed bool, d time.Duration, err error) {
	c.observe("delete", d, err)
	if removed {
		c.removed.Inc()
	}
}

// RecordCheck implements scalebloom.MetricsCollector.
func (c *Collector) RecordCheck(hit bool, d time.Duration) {
	c.observe("check", d, nil)
	if hit {
		c.checkHits.Inc()
	}
}

// RecordFlush implements scalebloom.MetricsCollector.
func (c *Collector) RecordFlush(d time.Duration, err error) {
	c.observe("flush", d, err)
}

// RecordScale implements scalebloom.MetricsCollector.
func (c *Collector) RecordScale(subFilters int) {
	c.scales.Inc()
	c.subFilters.Set(float64(subFilters))
}
