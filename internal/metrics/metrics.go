// Package metrics provides Prometheus metrics for the workspace server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudia_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claudia_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// File transfer metrics
	fileBytesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claudia_file_bytes_read_total",
			Help: "Total bytes served by file read endpoints",
		},
	)

	fileBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claudia_file_bytes_written_total",
			Help: "Total bytes accepted by file write endpoints",
		},
	)

	fileReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudia_file_reads_total",
			Help: "Total number of file reads",
		},
		[]string{"status"},
	)

	fileWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudia_file_writes_total",
			Help: "Total number of file writes",
		},
		[]string{"status"},
	)

	// Directory listing metrics
	listingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudia_listings_total",
			Help: "Total directory listings served",
		},
		[]string{"source"},
	)

	listingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claudia_listing_duration_seconds",
			Help:    "Directory listing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Command execution metrics
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudia_commands_total",
			Help: "Total shell commands executed",
		},
		[]string{"status"},
	)

	commandDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claudia_command_duration_seconds",
			Help:    "Shell command duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "claudia_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claudia_sse_events_total",
			Help: "Total SSE events published",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordFileRead records a file read.
func RecordFileRead(bytes int64, success bool) {
	fileBytesRead.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	fileReadsTotal.WithLabelValues(status).Inc()
}

// RecordFileWrite records a file write.
func RecordFileWrite(bytes int64, success bool) {
	fileBytesWritten.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	fileWritesTotal.WithLabelValues(status).Inc()
}

// RecordListing records a served directory listing. Source is "project"
// for project-scoped listings and "workspace" for the legacy endpoint.
func RecordListing(source string, duration time.Duration) {
	listingsTotal.WithLabelValues(source).Inc()
	listingDuration.Observe(duration.Seconds())
}

// RecordCommand records a shell command execution.
func RecordCommand(status string, duration time.Duration) {
	commandsTotal.WithLabelValues(status).Inc()
	commandDuration.Observe(duration.Seconds())
}

// SetSSEConnectionsActive sets the number of active SSE connections.
func SetSSEConnectionsActive(count int64) {
	sseConnectionsActive.Set(float64(count))
}

// RecordSSEEvent records an SSE event publication.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
