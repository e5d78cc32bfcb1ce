package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the participation domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	decisionsTotal        *prometheus.CounterVec
	creditsApplied        prometheus.Counter
	creditsReversed       prometheus.Counter
	bulkBatchSize         prometheus.Histogram
	notificationsEnqueued prometheus.Counter
	notificationsFailed   prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "participation_decisions_total",
		Help: "Participation decisions processed, labelled by outcome",
	}, []string{"outcome"})

	creditsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credits_applied_total",
		Help: "Credit points applied to student ledgers",
	})

	creditsReversed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credits_reversed_total",
		Help: "Credit points reversed from student ledgers",
	})

	bulkBatchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bulk_decision_batch_size",
		Help:    "Number of records per bulk decision batch",
		Buckets: []float64{1, 5, 10, 25, 50, 100},
	})

	notificationsEnqueued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_enqueued_total",
		Help: "Notifications pushed to the delivery queue",
	})

	notificationsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notification enqueue or delivery failures",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, decisionsTotal, creditsApplied, creditsReversed, bulkBatchSize, notificationsEnqueued, notificationsFailed, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:              registry,
		handler:               handler,
		requestDuration:       requestDuration,
		requestTotal:          requestTotal,
		decisionsTotal:        decisionsTotal,
		creditsApplied:        creditsApplied,
		creditsReversed:       creditsReversed,
		bulkBatchSize:         bulkBatchSize,
		notificationsEnqueued: notificationsEnqueued,
		notificationsFailed:   notificationsFailed,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveDecision counts a processed decision by outcome and its ledger delta.
func (m *MetricsService) ObserveDecision(outcome string, delta int) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(outcome).Inc()
	switch {
	case delta > 0:
		m.creditsApplied.Add(float64(delta))
	case delta < 0:
		m.creditsReversed.Add(float64(-delta))
	}
}

// ObserveBulkBatch records the size of a bulk decision batch.
func (m *MetricsService) ObserveBulkBatch(size int) {
	if m == nil {
		return
	}
	m.bulkBatchSize.Observe(float64(size))
}

// IncNotificationEnqueued counts a successfully enqueued notification.
func (m *MetricsService) IncNotificationEnqueued() {
	if m == nil {
		return
	}
	m.notificationsEnqueued.Inc()
}

// IncNotificationFailed counts an enqueue or delivery failure.
func (m *MetricsService) IncNotificationFailed() {
	if m == nil {
		return
	}
	m.notificationsFailed.Inc()
}
