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
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	retrievalRequestsTotal  *prometheus.CounterVec
	retrievalExpansionsTotal *prometheus.CounterVec
	retrievalNoContextTotal *prometheus.CounterVec
	retrievalCandidates     *prometheus.HistogramVec
	retrievalDedupDropped   *prometheus.HistogramVec
	retrievalSnippets       *prometheus.HistogramVec
	retrievalDuration       *prometheus.HistogramVec
	scoringFailuresTotal    *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draft",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draft",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "draft",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	retrievalRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "requests_total",
			Help:      "Total completed retrieval requests by selection strategy.",
		},
		[]string{"service", "strategy"},
	)
	retrievalExpansionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "expansions_total",
			Help:      "Total retrieval requests that triggered the one-time pool expansion.",
		},
		[]string{"service"},
	)
	retrievalNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "no_context_total",
			Help:      "Total retrieval requests that produced no snippets.",
		},
		[]string{"service"},
	)
	retrievalCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of raw candidates per request by source.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "source"},
	)
	retrievalDedupDropped := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "dedup_dropped",
			Help:      "Distribution of near-duplicate candidates dropped per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	retrievalSnippets := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "snippets",
			Help:      "Distribution of assembled context snippets per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Retrieval pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	scoringFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "draft",
			Subsystem: "retrieval",
			Name:      "scoring_failures_total",
			Help:      "Total rerank requests failed because the cross-encoder was unavailable.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		retrievalRequestsTotal,
		retrievalExpansionsTotal,
		retrievalNoContextTotal,
		retrievalCandidates,
		retrievalDedupDropped,
		retrievalSnippets,
		retrievalDuration,
		scoringFailuresTotal,
	)

	return &HTTPServerMetrics{
		registry:                 registry,
		requestTotal:             requestTotal,
		requestDuration:          requestDuration,
		requestInFlight:          requestInFlight,
		retrievalRequestsTotal:   retrievalRequestsTotal,
		retrievalExpansionsTotal: retrievalExpansionsTotal,
		retrievalNoContextTotal:  retrievalNoContextTotal,
		retrievalCandidates:      retrievalCandidates,
		retrievalDedupDropped:    retrievalDedupDropped,
		retrievalSnippets:        retrievalSnippets,
		retrievalDuration:        retrievalDuration,
		scoringFailuresTotal:     scoringFailuresTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RetrievalObservation is the per-request pipeline summary recorded after a
// completed Retrieve call.
type RetrievalObservation struct {
	Strategy          string
	DenseCandidates   int
	LexicalCandidates int
	Expanded          bool
	DedupDropped      int
	Snippets          int
	Duration          time.Duration
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, obs RetrievalObservation) {
	strategy := obs.Strategy
	if strategy == "" {
		strategy = "unknown"
	}
	m.retrievalRequestsTotal.WithLabelValues(service, strategy).Inc()
	m.retrievalCandidates.WithLabelValues(service, "dense").Observe(float64(obs.DenseCandidates))
	m.retrievalCandidates.WithLabelValues(service, "lexical").Observe(float64(obs.LexicalCandidates))
	m.retrievalDedupDropped.WithLabelValues(service).Observe(float64(obs.DedupDropped))
	m.retrievalSnippets.WithLabelValues(service).Observe(float64(obs.Snippets))
	m.retrievalDuration.WithLabelValues(service).Observe(obs.Duration.Seconds())

	if obs.Expanded {
		m.retrievalExpansionsTotal.WithLabelValues(service).Inc()
	}
	if obs.Snippets == 0 {
		m.retrievalNoContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordScoringFailure(service string) {
	m.scoringFailuresTotal.WithLabelValues(service).Inc()
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
