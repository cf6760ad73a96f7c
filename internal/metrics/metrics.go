package metrics

import (
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lm_comments"

var uuidPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Sibling service calls
	ExternalRequestsTotal   *prometheus.CounterVec
	ExternalRequestDuration *prometheus.HistogramVec

	// Business metrics
	CommentsCreated      prometheus.Counter
	CommentsDeleted      prometheus.Counter
	ResponsesCreated     prometheus.Counter
	ResponsesDeleted     prometheus.Counter
	AttachmentsStored    prometheus.Counter
	FileDeleteFailures   prometheus.Counter
	OrphanFilesRemoved   prometheus.Counter
	AccessChecksRejected *prometheus.CounterVec
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
		ExternalRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_requests_total",
				Help:      "Total number of calls to sibling services",
			},
			[]string{"service", "endpoint", "outcome"},
		),
		ExternalRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_request_duration_seconds",
				Help:      "Sibling service call duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"service", "endpoint"},
		),
		CommentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_created_total",
			Help:      "Total number of comments created",
		}),
		CommentsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_deleted_total",
			Help:      "Total number of comments deleted",
		}),
		ResponsesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_created_total",
			Help:      "Total number of responses created",
		}),
		ResponsesDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_deleted_total",
			Help:      "Total number of responses deleted",
		}),
		AttachmentsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_stored_total",
			Help:      "Total number of attachment files written",
		}),
		FileDeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_file_delete_failures_total",
			Help:      "Attachment files that could not be removed from disk",
		}),
		OrphanFilesRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphan_files_removed_total",
			Help:      "Unreferenced upload files removed by the janitor",
		}),
		AccessChecksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "issue_checks_rejected_total",
				Help:      "Issue existence/access checks that did not pass, by verdict",
			},
			[]string{"check", "verdict"},
		),
	}
}

// NewNop returns metrics bound to a throwaway registry, for tests and tools
func NewNop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, categorizeStatus(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordExternalCall records one call to a sibling service
func (m *Metrics) RecordExternalCall(service, endpoint string, statusCode int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	endpoint = NormalizeEndpoint(endpoint)
	outcome := strconv.Itoa(statusCode)
	if err != nil {
		outcome = "error"
	}
	m.ExternalRequestsTotal.WithLabelValues(service, endpoint, outcome).Inc()
	m.ExternalRequestDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
}

// RecordCheckRejected counts an issue check that did not allow the request
func (m *Metrics) RecordCheckRejected(check, verdict string) {
	if m == nil {
		return
	}
	m.AccessChecksRejected.WithLabelValues(check, verdict).Inc()
}

// CommentCreated counts a committed comment and its stored attachments
func (m *Metrics) CommentCreated(attachments int) {
	if m == nil {
		return
	}
	m.CommentsCreated.Inc()
	m.AttachmentsStored.Add(float64(attachments))
}

// CommentDeleted counts a removed comment
func (m *Metrics) CommentDeleted() {
	if m == nil {
		return
	}
	m.CommentsDeleted.Inc()
}

// ResponseCreated counts a committed response
func (m *Metrics) ResponseCreated() {
	if m == nil {
		return
	}
	m.ResponsesCreated.Inc()
}

// ResponseDeleted counts a removed response
func (m *Metrics) ResponseDeleted() {
	if m == nil {
		return
	}
	m.ResponsesDeleted.Inc()
}

// FileDeleteFailed counts an attachment file left behind on disk
func (m *Metrics) FileDeleteFailed() {
	if m == nil {
		return
	}
	m.FileDeleteFailures.Inc()
}

// OrphansRemoved counts files removed by the janitor
func (m *Metrics) OrphansRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OrphanFilesRemoved.Add(float64(n))
}

// NormalizeEndpoint replaces ids in a path so label cardinality stays bounded
func NormalizeEndpoint(endpoint string) string {
	return uuidPattern.ReplaceAllString(endpoint, "{id}")
}

// ShouldSkipEndpoint checks if endpoint should be excluded from metrics
func ShouldSkipEndpoint(path string) bool {
	return path == "/metrics" || path == "/health"
}

// categorizeStatus converts status code to category (2xx, 3xx, 4xx, 5xx)
func categorizeStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
