package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatTurnsTotal      *prometheus.CounterVec
	chatContextFiles    *prometheus.HistogramVec
	imageRequestsTotal  *prometheus.CounterVec
	breakerOpen         *prometheus.GaugeVec
	rateLimitedTotal    prometheus.Counter
	backpressureRejects prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lac",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lac",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lac",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatTurnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lac",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by outcome and whether file context was attached.",
		},
		[]string{"service", "endpoint", "outcome", "file_context"},
	)
	chatContextFiles := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lac",
			Subsystem: "chat",
			Name:      "context_files",
			Help:      "Ready files included in the prompt per chat turn.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service", "endpoint"},
	)
	imageRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lac",
			Subsystem: "image",
			Name:      "requests_total",
			Help:      "Image generation requests by provider and status.",
		},
		[]string{"service", "provider", "status"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lac",
			Subsystem: "resilience",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker for an operation is open.",
		},
		[]string{"service", "operation"},
	)
	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "lac",
			Subsystem:   "http",
			Name:        "rate_limited_total",
			Help:        "Requests rejected by the rate limiter.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	backpressureRejects := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "lac",
			Subsystem:   "http",
			Name:        "backpressure_rejected_total",
			Help:        "Requests rejected because the in-flight limit stayed saturated.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatTurnsTotal,
		chatContextFiles,
		imageRequestsTotal,
		breakerOpen,
		rateLimitedTotal,
		backpressureRejects,
	)

	return &HTTPServerMetrics{
		service:             service,
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		chatTurnsTotal:      chatTurnsTotal,
		chatContextFiles:    chatContextFiles,
		imageRequestsTotal:  imageRequestsTotal,
		breakerOpen:         breakerOpen,
		rateLimitedTotal:    rateLimitedTotal,
		backpressureRejects: backpressureRejects,
	}
}

// Registerer lets other collectors share the /metrics endpoint.
// Service is the service label the metrics were created for.
func (m *HTTPServerMetrics) Service() string { return m.service }

func (m *HTTPServerMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routeLabel(r)
		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the matched mux pattern so ids never become labels.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		if _, path, ok := strings.Cut(r.Pattern, " "); ok {
			return path
		}
		return r.Pattern
	}
	return normalizePath(r.URL.Path)
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/conversations/"):
		return "/v1/conversations/{id}"
	case strings.HasPrefix(path, "/api/"), strings.HasPrefix(path, "/v1/"), path == "/healthz", path == "/metrics":
		return path
	default:
		return "other"
	}
}

func (m *HTTPServerMetrics) RecordChatTurn(service, endpoint, outcome string, contextFiles int) {
	if outcome == "" {
		outcome = "unknown"
	}
	withFiles := "false"
	if contextFiles > 0 {
		withFiles = "true"
	}
	m.chatTurnsTotal.WithLabelValues(service, endpoint, outcome, withFiles).Inc()
	if outcome == "ok" {
		m.chatContextFiles.WithLabelValues(service, endpoint).Observe(float64(contextFiles))
	}
}

func (m *HTTPServerMetrics) RecordImageRequest(service, provider, status string) {
	if provider == "" {
		provider = "default"
	}
	m.imageRequestsTotal.WithLabelValues(service, provider, status).Inc()
}

// BreakerObserver returns a callback for resilience.WithStateObserver.
func (m *HTTPServerMetrics) BreakerObserver(service string) func(operation string, open bool) {
	return func(operation string, open bool) {
		value := 0.0
		if open {
			value = 1
		}
		m.breakerOpen.WithLabelValues(service, operation).Set(value)
	}
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimitedTotal.Inc()
}

func (m *HTTPServerMetrics) RecordBackpressureReject() {
	m.backpressureRejects.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
