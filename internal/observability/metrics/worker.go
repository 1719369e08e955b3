package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	chunksIndexed   *prometheus.HistogramVec
	cleanupRemoved  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "document_process_total",
			Help:      "Total processed queue items by outcome.",
		},
		[]string{"service", "outcome"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "document_process_duration_seconds",
			Help:      "Classification attempt duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight classification attempts.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between enqueue and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	tokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "classification_tokens_total",
			Help:      "Total model tokens spent on classification.",
		},
		[]string{"service", "model"},
	)
	chunksIndexed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "chunks_indexed",
			Help:      "Distribution of chunks written per indexed document.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128},
		},
		[]string{"service"},
	)
	cleanupRemoved := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docintel",
			Subsystem: "pipeline",
			Name:      "cleanup_removed_total",
			Help:      "Total terminal queue items removed by retention cleanup.",
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, tokensTotal, chunksIndexed, cleanupRemoved)

	return &WorkerMetrics{
		registry:        registry,
		processTotal:    processTotal,
		processDuration: processDuration,
		processInFlight: processInFlight,
		queueLag:        queueLag,
		tokensTotal:     tokensTotal,
		chunksIndexed:   chunksIndexed,
		cleanupRemoved:  cleanupRemoved,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

// SkipDocument unwinds StartDocument when the queue turned out to be empty.
func (m *WorkerMetrics) SkipDocument() {
	m.processInFlight.Dec()
}

// FinishDocument records one attempt. Outcome is completed, retrying,
// failed, or error (the attempt itself broke, not the document).
func (m *WorkerMetrics) FinishDocument(service, outcome string, duration time.Duration) {
	m.processInFlight.Dec()
	if outcome == "" {
		outcome = "unknown"
	}
	m.processTotal.WithLabelValues(service, outcome).Inc()
	m.processDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordTokens(service, model string, tokens int) {
	if tokens <= 0 {
		return
	}
	if model == "" {
		model = "unknown"
	}
	m.tokensTotal.WithLabelValues(service, model).Add(float64(tokens))
}

func (m *WorkerMetrics) RecordIndexedChunks(service string, count int) {
	m.chunksIndexed.WithLabelValues(service).Observe(float64(count))
}

func (m *WorkerMetrics) RecordCleanup(service string, removed int64) {
	if removed <= 0 {
		return
	}
	m.cleanupRemoved.WithLabelValues(service).Add(float64(removed))
}
