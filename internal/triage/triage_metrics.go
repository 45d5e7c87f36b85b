package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      *prometheus.HistogramVec
	BatchesTotal     prometheus.Counter
	BatchDuration    prometheus.Histogram
	BatchAlerts      prometheus.Histogram
	BatchClusters    prometheus.Histogram
	FailedClusters   prometheus.Counter
	StoreErrorsTotal prometheus.Counter
	SubmitsTotal     prometheus.Counter
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "remedy_pipeline_runs_total",
			Help: "Total pipeline runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remedy_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s .. ~512s
		}, []string{"status"}),
		BatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_batches_total",
			Help: "Total batch runs.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_batch_duration_seconds",
			Help:    "Duration of batch runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~2048s
		}),
		BatchAlerts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_batch_alerts",
			Help:    "Alerts per batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 .. ~2048
		}),
		BatchClusters: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "remedy_batch_clusters",
			Help:    "Distinct clusters per batch.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 .. ~512
		}),
		FailedClusters: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_failed_clusters_total",
			Help: "Total cluster tasks that failed.",
		}),
		StoreErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_store_errors_total",
			Help: "Total alert upserts that failed.",
		}),
		SubmitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "remedy_submits_total",
			Help: "Total single-alert submissions.",
		}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.BatchesTotal,
		m.BatchDuration,
		m.BatchAlerts,
		m.BatchClusters,
		m.FailedClusters,
		m.StoreErrorsTotal,
		m.SubmitsTotal,
	)

	return m
}

// ObserveRun records one single-alert pipeline run.
func (m *Metrics) ObserveRun(status string, seconds float64) {
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(seconds)
}

// ObserveBatch records one batch run.
func (m *Metrics) ObserveBatch(res *BatchResult, seconds float64) {
	m.BatchesTotal.Inc()
	m.BatchDuration.Observe(seconds)
	m.BatchAlerts.Observe(float64(res.Alerts))
	m.BatchClusters.Observe(float64(res.Clusters))
	m.FailedClusters.Add(float64(len(res.FailedClusters)))
	m.StoreErrorsTotal.Add(float64(res.StoreErrors))
}
