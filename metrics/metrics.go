// Package metrics defines Prometheus instrumentation for the transcript service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcript service.
type Metrics struct {
	// Inbound HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec

	// Transcript fetch metrics
	FetchRequests    prometheus.Counter
	FetchRetries     prometheus.Counter
	FetchDuration    prometheus.Histogram
	SegmentsReturned prometheus.Histogram

	// Track listing metrics
	ListRequests prometheus.Counter

	// Classified provider failures, labeled by error code
	ClassifiedErrors *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// prometheus.NewRegistry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriptd_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transcriptd_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriptd_http_errors_total",
			Help: "Total number of HTTP error responses",
		}, []string{"method", "endpoint", "error_type"}),

		FetchRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptd_fetch_requests_total",
			Help: "Total number of transcript fetch operations",
		}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptd_fetch_retries_total",
			Help: "Total number of transcript fetch retry attempts",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriptd_fetch_duration_seconds",
			Help:    "Duration of transcript fetch operations including retries",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),
		SegmentsReturned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "transcriptd_segments_returned",
			Help:    "Number of segments in successfully fetched transcripts",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k segments
		}),

		ListRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "transcriptd_list_requests_total",
			Help: "Total number of track listing operations",
		}),

		ClassifiedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transcriptd_classified_errors_total",
			Help: "Total number of provider failures by classified error code",
		}, []string{"code"}),
	}
}

// RecordHTTPRequest records an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an inbound HTTP error response.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}

// RecordFetch records a completed fetch operation.
func (m *Metrics) RecordFetch(durationSeconds float64, segments int) {
	if m == nil {
		return
	}
	m.FetchRequests.Inc()
	m.FetchDuration.Observe(durationSeconds)
	if segments >= 0 {
		m.SegmentsReturned.Observe(float64(segments))
	}
}

// RecordFetchRetry increments the retry counter.
func (m *Metrics) RecordFetchRetry() {
	if m == nil {
		return
	}
	m.FetchRetries.Inc()
}

// RecordList records a track listing operation.
func (m *Metrics) RecordList() {
	if m == nil {
		return
	}
	m.ListRequests.Inc()
}

// RecordClassifiedError records a provider failure by error code.
func (m *Metrics) RecordClassifiedError(code string) {
	if m == nil {
		return
	}
	m.ClassifiedErrors.WithLabelValues(code).Inc()
}
