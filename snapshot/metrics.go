/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics about snapshot saving and loading.
type MetricsCollector interface {
	// IncSaves increments the total number of successful saves and adds the number of written records.
	IncSaves(records int)

	// IncSaveErrors increments the total number of failed saves.
	IncSaveErrors()

	// IncLoads increments the total number of loaded snapshots and adds the numbers of applied and skipped records.
	IncLoads(applied, skipped int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents a Prometheus metrics for snapshots.
type PrometheusMetrics struct {
	SavesTotal          prometheus.Counter
	SaveErrorsTotal     prometheus.Counter
	SavedRecordsTotal   prometheus.Counter
	LoadsTotal          prometheus.Counter
	LoadedRecordsTotal  prometheus.Counter
	SkippedRecordsTotal prometheus.Counter
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	makeCounter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		})
	}
	return &PrometheusMetrics{
		SavesTotal:          makeCounter("lru_snapshot_saves_total", "Number of successfully saved snapshots."),
		SaveErrorsTotal:     makeCounter("lru_snapshot_save_errors_total", "Number of failed snapshot saves."),
		SavedRecordsTotal:   makeCounter("lru_snapshot_saved_records_total", "Number of records written to snapshots."),
		LoadsTotal:          makeCounter("lru_snapshot_loads_total", "Number of loaded snapshots."),
		LoadedRecordsTotal:  makeCounter("lru_snapshot_loaded_records_total", "Number of records replayed from snapshots."),
		SkippedRecordsTotal: makeCounter("lru_snapshot_skipped_records_total", "Number of unparsable snapshot records."),
	}
}

func (pm *PrometheusMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		pm.SavesTotal, pm.SaveErrorsTotal, pm.SavedRecordsTotal,
		pm.LoadsTotal, pm.LoadedRecordsTotal, pm.SkippedRecordsTotal,
	}
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

// IncSaves increments the total number of successful saves and adds the number of written records.
func (pm *PrometheusMetrics) IncSaves(records int) {
	pm.SavesTotal.Inc()
	pm.SavedRecordsTotal.Add(float64(records))
}

// IncSaveErrors increments the total number of failed saves.
func (pm *PrometheusMetrics) IncSaveErrors() {
	pm.SaveErrorsTotal.Inc()
}

// IncLoads increments the total number of loaded snapshots and adds the numbers of applied and skipped records.
func (pm *PrometheusMetrics) IncLoads(applied, skipped int) {
	pm.LoadsTotal.Inc()
	pm.LoadedRecordsTotal.Add(float64(applied))
	pm.SkippedRecordsTotal.Add(float64(skipped))
}

type disabledMetrics struct{}

func (disabledMetrics) IncSaves(int)      {}
func (disabledMetrics) IncSaveErrors()    {}
func (disabledMetrics) IncLoads(int, int) {}
