package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

// UploadMetrics implements ports.UploadObserver.
type UploadMetrics struct {
	service string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
}

func NewUploadMetrics(service string, registerer prometheus.Registerer) *UploadMetrics {
	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lac",
			Subsystem: "upload",
			Name:      "file_process_total",
			Help:      "Total processed uploaded files by format and terminal status.",
		},
		[]string{"service", "format", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lac",
			Subsystem: "upload",
			Name:      "file_process_duration_seconds",
			Help:      "Uploaded file processing duration in seconds by format.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "format"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lac",
			Subsystem: "upload",
			Name:      "file_process_in_flight",
			Help:      "Number of uploaded files still processing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registerer.MustRegister(processTotal, processDuration, processInFlight)

	return &UploadMetrics{
		service:         service,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
	}
}

func (m *UploadMetrics) StartFile() {
	m.processInFlight.Inc()
}

func (m *UploadMetrics) FinishFile(format string, status domain.FileStatus, seconds float64) {
	m.processInFlight.Dec()
	if format == "" {
		format = "unknown"
	}
	m.processTotal.WithLabelValues(m.service, format, string(status)).Inc()
	m.processDuration.WithLabelValues(m.service, format).Observe(seconds)
}
