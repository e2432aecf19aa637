package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "geoassist"

// HTTPServerMetrics owns the API server's Prometheus registry. Request
// series are fed by Middleware; retrieval and agent series are fed through
// the Record* methods.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal           *prometheus.CounterVec
	searchCitations       *prometheus.HistogramVec
	searchDuration        *prometheus.HistogramVec
	searchDegradedTotal   *prometheus.CounterVec
	storeUnavailableTotal *prometheus.CounterVec
	embedCacheTotal       *prometheus.CounterVec
	agentRunsTotal        *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests served.",
		}, []string{"service", "method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Observed latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),
		requestInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Requests currently being served.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Retrieval runs by selected mode.",
		}, []string{"service", "endpoint", "mode"}),
		searchCitations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "citations",
			Help:      "Citations returned per retrieval run.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 7, 10},
		}, []string{"service", "endpoint"}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "endpoint"}),
		searchDegradedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "degraded_total",
			Help:      "Retrieval runs that fell back or skipped a branch.",
		}, []string{"service", "endpoint"}),
		storeUnavailableTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "store_unavailable_total",
			Help:      "Requests rejected because a retrieval store stayed down.",
		}, []string{"service", "endpoint", "store"}),
		embedCacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "embed_cache_total",
			Help:      "Query embedding cache lookups by result.",
		}, []string{"service", "result"}),
		agentRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "runs_total",
			Help:      "Completed agent runs by planned action and status.",
		}, []string{"service", "action", "status"}),
	}

	m.registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.requestInFlight,
		m.searchTotal,
		m.searchCitations,
		m.searchDuration,
		m.searchDegradedTotal,
		m.storeUnavailableTotal,
		m.embedCacheTotal,
		m.agentRunsTotal,
	)
	return m
}

// Handler exposes the registry for the /metrics scrape endpoint.
func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		route := routeLabel(r.URL.Path)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(sw, r)

		m.requestTotal.WithLabelValues(service, r.Method, route, strconv.Itoa(sw.status)).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, route).Observe(time.Since(began).Seconds())
	})
}

// routeLabel keeps label cardinality bounded: only the served routes get
// their own series.
func routeLabel(path string) string {
	switch path {
	case "/healthz", "/metrics", "/v1/ask", "/v1/search":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordSearch(service, endpoint, mode string, citations int, degraded bool, duration time.Duration) {
	m.searchTotal.WithLabelValues(service, endpoint, labelOrUnknown(mode)).Inc()
	m.searchCitations.WithLabelValues(service, endpoint).Observe(float64(citations))
	m.searchDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	if degraded {
		m.searchDegradedTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordStoreUnavailable(service, endpoint, store string) {
	m.storeUnavailableTotal.WithLabelValues(service, endpoint, labelOrUnknown(store)).Inc()
}

func (m *HTTPServerMetrics) RecordEmbedCacheLookup(service string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.embedCacheTotal.WithLabelValues(service, result).Inc()
}

func (m *HTTPServerMetrics) RecordAgentRun(service, action, status string) {
	m.agentRunsTotal.WithLabelValues(service, labelOrUnknown(action), labelOrUnknown(status)).Inc()
}

func labelOrUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// statusWriter captures the response status for request series while
// forwarding the optional writer interfaces.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying writer is not an http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusWriter) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := w.ResponseWriter.(http.Pusher); ok {
		return pusher.Push(target, opts)
	}
	return http.ErrNotSupported
}
