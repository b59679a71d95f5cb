/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) cache is used.
type MetricsCollector interface {
	// SetAmount sets the total number of entries in the cache.
	SetAmount(int)

	// IncHits increments the total number of successfully found keys in the cache.
	IncHits()

	// IncMisses increments the total number of not found keys in the cache.
	IncMisses()

	// AddEvictions increments the total number of evicted entries.
	AddEvictions(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	// It is the way to distinguish several caches registered in the same registry.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents a Prometheus metrics for the cache.
type PrometheusMetrics struct {
	EntriesAmount  prometheus.Gauge
	HitsTotal      prometheus.Counter
	MissesTotal    prometheus.Counter
	EvictionsTotal prometheus.Counter
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "lru_cache_entries_amount",
			Help:        "Total number of entries in the cache.",
			ConstLabels: opts.ConstLabels,
		}),
		HitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "lru_cache_hits_total",
			Help:        "Number of successfully found keys in the cache.",
			ConstLabels: opts.ConstLabels,
		}),
		MissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "lru_cache_misses_total",
			Help:        "Number of not found keys in cache.",
			ConstLabels: opts.ConstLabels,
		}),
		EvictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "lru_cache_evictions_total",
			Help:        "Number of entries evicted to make room for new keys.",
			ConstLabels: opts.ConstLabels,
		}),
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{pm.EntriesAmount, pm.HitsTotal, pm.MissesTotal, pm.EvictionsTotal}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	pm.MustRegisterIn(prometheus.DefaultRegisterer)
}

// MustRegisterIn registers metrics in the given registerer and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegisterIn(reg prometheus.Registerer) {
	reg.MustRegister(pm.collectors()...)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range pm.collectors() {
		prometheus.Unregister(c)
	}
}

// SetAmount sets the total number of entries in the cache.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.Set(float64(amount))
}

// IncHits increments the total number of successfully found keys in the cache.
func (pm *PrometheusMetrics) IncHits() {
	pm.HitsTotal.Inc()
}

// IncMisses increments the total number of not found keys in the cache.
func (pm *PrometheusMetrics) IncMisses() {
	pm.MissesTotal.Inc()
}

// AddEvictions increments the total number of evicted entries.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)    {}
func (disabledMetrics) IncHits()         {}
func (disabledMetrics) IncMisses()       {}
func (disabledMetrics) AddEvictions(int) {}
