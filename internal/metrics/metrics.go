package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ternarybob/contextlog/internal/models"
)

// Job outcomes recorded by the processor
const (
	OutcomeComplete = "complete"
	OutcomeCached   = "cached"
	OutcomeRetry    = "retry"
	OutcomeFailed   = "failed"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	JobsProcessed       *prometheus.CounterVec
	AIInvocations       *prometheus.CounterVec
	AIDuration          *prometheus.HistogramVec
	QueueJobs           *prometheus.GaugeVec
	Drains              prometheus.Counter
	TicksDropped        prometheus.Counter
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the metrics on a private registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contextlog_jobs_processed_total",
			Help: "Job attempts by outcome.",
		}, []string{"outcome"}),
		AIInvocations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contextlog_ai_invocations_total",
			Help: "AI service calls by task and status.",
		}, []string{"task", "status"}),
		AIDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contextlog_ai_invocation_duration_seconds",
			Help:    "Duration of AI service calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"task"}),
		QueueJobs: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contextlog_queue_jobs",
			Help: "Jobs in the queue by status.",
		}, []string{"status"}),
		Drains: factory.NewCounter(prometheus.CounterOpts{
			Name: "contextlog_queue_drains_total",
			Help: "Completed queue drains.",
		}),
		TicksDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "contextlog_queue_ticks_dropped_total",
			Help: "Worker ticks skipped because a drain was already running.",
		}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contextlog_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contextlog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobOutcome counts one finished job attempt
func (m *Metrics) JobOutcome(outcome string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(outcome).Inc()
}

// AICall records one AI invocation for task
func (m *Metrics) AICall(task string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AIInvocations.WithLabelValues(task, status).Inc()
	m.AIDuration.WithLabelValues(task).Observe(duration.Seconds())
}

// SetQueueStats publishes a queue snapshot
func (m *Metrics) SetQueueStats(stats *models.QueueStats) {
	if m == nil || stats == nil {
		return
	}
	m.QueueJobs.WithLabelValues(string(models.JobStatusPending)).Set(float64(stats.Pending))
	m.QueueJobs.WithLabelValues(string(models.JobStatusProcessing)).Set(float64(stats.Processing))
	m.QueueJobs.WithLabelValues(string(models.JobStatusComplete)).Set(float64(stats.Complete))
	m.QueueJobs.WithLabelValues(string(models.JobStatusFailed)).Set(float64(stats.Failed))
}

// DrainFinished counts a completed drain
func (m *Metrics) DrainFinished() {
	if m == nil {
		return
	}
	m.Drains.Inc()
}

// TickDropped counts a skipped worker tick
func (m *Metrics) TickDropped() {
	if m == nil {
		return
	}
	m.TicksDropped.Inc()
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
