package testrunner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sdguide"

// Metrics records test run activity.
type Metrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	running     prometheus.Gauge
	logRecords  prometheus.Counter
	testsTotal  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "test_runs_total",
			Help:      "Count of finished test runs",
		}, []string{"suite", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "test_run_duration_seconds",
			Help:      "Duration of test runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"suite"}),
		running: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "test_run_in_progress",
			Help:      "1 while a test run is in progress",
		}),
		logRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "test_log_records_total",
			Help:      "Count of test log records appended",
		}),
		testsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tests_total",
			Help:      "Count of individual test results",
		}, []string{"suite", "result"}),
	}
}

func (m *Metrics) recordStart() {
	if m == nil {
		return
	}
	m.running.Set(1)
}

func (m *Metrics) recordEnd(suite Suite, status Status, took time.Duration, report *Report) {
	if m == nil {
		return
	}
	m.running.Set(0)
	m.runsTotal.WithLabelValues(suite.Path(), status.String()).Inc()
	m.runDuration.WithLabelValues(suite.Path()).Observe(took.Seconds())
	m.testsTotal.WithLabelValues(suite.Path(), "pass").Add(float64(report.Passed))
	m.testsTotal.WithLabelValues(suite.Path(), "fail").Add(float64(report.Failed))
	m.testsTotal.WithLabelValues(suite.Path(), "skip").Add(float64(report.Skipped))
}

func (m *Metrics) recordLog() {
	if m == nil {
		return
	}
	m.logRecords.Inc()
}
