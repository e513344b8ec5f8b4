package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeBusinessRule     = "business_rule"
	SchedulerErrorTypeDB               = "db"
	SchedulerErrorTypeUnknown          = "unknown"
)

// SchedulerMetrics captures recurring job health signals.
type SchedulerMetrics struct {
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	jobErrors    *prometheus.CounterVec
	jobGenerated *prometheus.CounterVec
	runLoopLag   prometheus.Observer
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton scheduler metrics registry using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the scheduler metrics singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "factura"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "scheduler_job_runs_total",
		Help:        "Total scheduled job runs by job and result.",
		ConstLabels: constLabels,
	}, []string{"job", "result"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "scheduler_job_duration_seconds",
		Help:        "Scheduled job run duration.",
		ConstLabels: constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "scheduler_job_errors_total",
		Help:        "Scheduled job errors by job and error type.",
		ConstLabels: constLabels,
	}, []string{"job", "error_type"})
	jobGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "scheduler_invoices_generated_total",
		Help:        "Invoices generated by the recurring job.",
		ConstLabels: constLabels,
	}, []string{"job"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "scheduler_run_loop_lag_seconds",
		Help:        "Delay between the scheduled tick and job start.",
		ConstLabels: constLabels,
		Buckets:     prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	registerer.MustRegister(jobRuns, jobDuration, jobErrors, jobGenerated, runLoopLag)

	return &SchedulerMetrics{
		jobRuns:      jobRuns,
		jobDuration:  jobDuration,
		jobErrors:    jobErrors,
		jobGenerated: jobGenerated,
		runLoopLag:   runLoopLag,
	}
}

// ObserveJobRun records a completed run with its duration and result.
func (m *SchedulerMetrics) ObserveJobRun(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		m.jobErrors.WithLabelValues(job, classifyJobError(err)).Inc()
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

// ObserveGenerated adds generated invoice counts for a run.
func (m *SchedulerMetrics) ObserveGenerated(job string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.jobGenerated.WithLabelValues(job).Add(float64(n))
}

// ObserveRunLoopLag records tick-to-start delay.
func (m *SchedulerMetrics) ObserveRunLoopLag(d time.Duration) {
	if m == nil {
		return
	}
	m.runLoopLag.Observe(d.Seconds())
}

func classifyJobError(err error) string {
	if err == nil {
		return SchedulerErrorTypeUnknown
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context deadline exceeded"):
		return SchedulerErrorTypeDeadlineExceeded
	case strings.Contains(msg, "sqlstate"), strings.Contains(msg, "database"), strings.Contains(msg, "sql"):
		return SchedulerErrorTypeDB
	default:
		return SchedulerErrorTypeUnknown
	}
}
