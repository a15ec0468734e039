// Package metrics exposes Prometheus collectors for the API, external services, and RAG sessions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vidlens"

// Metrics holds collectors registered on a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	llmRequests     *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	videodbRequests *prometheus.CounterVec
	ragBuilds       *prometheus.CounterVec
	ragSessions     prometheus.Gauge
	cleanupFailures prometheus.Counter
	quizzes         *prometheus.CounterVec
	socialPosts     *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.llmRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_requests_total",
		Help:      "LLM completion and embedding calls by provider, kind and outcome",
	}, []string{"provider", "kind", "outcome"})
	m.llmDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "llm_request_duration_seconds",
		Help:      "LLM call latency in seconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "kind"})
	m.videodbRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "videodb_requests_total",
		Help:      "Video indexing service requests by operation and outcome",
	}, []string{"operation", "outcome"})
	m.ragBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rag_index_builds_total",
		Help:      "RAG index builds by outcome",
	}, []string{"outcome"})
	m.ragSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rag_sessions_active",
		Help:      "Number of RAG sessions holding an index",
	})
	m.cleanupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rag_cleanup_failures_total",
		Help:      "Workspace removals abandoned after the retry budget",
	})
	m.quizzes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quizzes_generated_total",
		Help:      "Generated quizzes by source (structured, text, fallback)",
	}, []string{"source"})
	m.socialPosts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "social_posts_generated_total",
		Help:      "Generated social posts by platform and outcome",
	}, []string{"platform", "outcome"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.llmRequests, m.llmDuration,
		m.videodbRequests,
		m.ragBuilds, m.ragSessions, m.cleanupFailures,
		m.quizzes, m.socialPosts,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLLM records one LLM call. kind is "completion" or "embedding".
func (m *Metrics) ObserveLLM(provider, kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(provider, kind, outcome(err)).Inc()
	m.llmDuration.WithLabelValues(provider, kind).Observe(d.Seconds())
}

// ObserveVideoDB records one indexing service call.
func (m *Metrics) ObserveVideoDB(operation string, err error) {
	if m == nil {
		return
	}
	m.videodbRequests.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveRAGBuild records an index build.
func (m *Metrics) ObserveRAGBuild(err error) {
	if m == nil {
		return
	}
	m.ragBuilds.WithLabelValues(outcome(err)).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.ragSessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.ragSessions.Dec()
}

// CleanupFailed counts a workspace that could not be removed.
func (m *Metrics) CleanupFailed() {
	if m == nil {
		return
	}
	m.cleanupFailures.Inc()
}

// ObserveQuiz records the source of a generated quiz.
func (m *Metrics) ObserveQuiz(source string) {
	if m == nil {
		return
	}
	m.quizzes.WithLabelValues(source).Inc()
}

// ObserveSocialPost records one generated post.
func (m *Metrics) ObserveSocialPost(platform string, err error) {
	if m == nil {
		return
	}
	m.socialPosts.WithLabelValues(platform, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
