package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	requestsTotal         *prometheus.CounterVec
	latencySeconds        *prometheus.HistogramVec
	errorsTotal           *prometheus.CounterVec
	submissionTransitions *prometheus.CounterVec
	uploadRequests        *prometheus.CounterVec
	uploadRejected        *prometheus.CounterVec
	uploadLatency         prometheus.Histogram
	eventsPublished       *prometheus.CounterVec
	eventSubscribers      prometheus.Gauge
	draftsReaped          prometheus.Counter
	cacheLookups          *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "classroom_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "classroom_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		submissionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_transitions_total",
			Help: "Submission lifecycle transitions persisted, by event.",
		}, []string{"event"})

		uploadRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Stored uploads by detected MIME type.",
		}, []string{"type"})

		uploadRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Rejected uploads by reason.",
		}, []string{"reason"})

		uploadLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submission_events_published_total",
			Help: "Submission events delivered to local subscribers, by type.",
		}, []string{"type"})

		eventSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "submission_event_subscribers",
			Help: "Active submission event stream subscribers.",
		})

		draftsReaped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "submission_drafts_reaped_total",
			Help: "Orphaned drafts removed by the cleanup job.",
		})

		cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by cache name and result.",
		}, []string{"cache", "result"})

		prometheus.MustRegister(
			requestsTotal,
			latencySeconds,
			errorsTotal,
			submissionTransitions,
			uploadRequests,
			uploadRejected,
			uploadLatency,
			eventsPublished,
			eventSubscribers,
			draftsReaped,
			cacheLookups,
		)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the request latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// SubmissionTransitions counts persisted lifecycle transitions.
func SubmissionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionTransitions
}

// UploadRequests counts stored uploads.
func UploadRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRequests
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejected
}

// UploadLatency observes upload processing time.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatency
}

// EventsPublished counts submission events fanned out to subscribers.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublished
}

// EventSubscribers tracks open event streams.
func EventSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return eventSubscribers
}

// DraftsReaped counts drafts deleted by the cleanup job.
func DraftsReaped() prometheus.Counter {
	RegisterMetrics()
	return draftsReaped
}

// CacheLookups counts cache hits and misses.
func CacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return cacheLookups
}
