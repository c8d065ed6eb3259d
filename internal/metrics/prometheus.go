package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/xpnc/internal/model"
)

// Scoring outcomes. Failure outcomes reuse model.FailureKind values.
const (
	OutcomeSuccess        = "success"
	OutcomeMalformedReply = "malformed_reply"
)

// Manager owns the scoring metrics on a private registry
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       *prometheus.Registry

	scored         *prometheus.CounterVec
	tokensAwarded  prometheus.Counter
	scoringLatency prometheus.Histogram
	finalScore     prometheus.Histogram

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a manager. Without WithRegistry it gets a fresh registry,
// so managers never collide on the global default.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "xpnc",
		subsystem:      "scoring",
		latencyBuckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 90},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_total",
		Help:      "Scored submissions by outcome (success or failure kind)",
	}, []string{"outcome"})

	m.tokensAwarded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tokens_awarded_total",
		Help:      "Sum of token airdrop amounts across scored submissions",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "latency_seconds",
		Help:      "Wall time of one scoring call including fallback",
		Buckets:   m.latencyBuckets,
	})

	m.finalScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "final_score",
		Help:      "Distribution of final scores",
		Buckets:   prometheus.LinearBuckets(50, 50, 10),
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Batch submissions answered from the result cache",
	})

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Batch submissions that required a scoring call",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
}

// ObserveScore records one scoring call
func (m *Manager) ObserveScore(outcome string, result model.ScoreResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.scored.WithLabelValues(outcome).Inc()
	m.tokensAwarded.Add(float64(result.TokenAirdropAmount))
	m.scoringLatency.Observe(elapsed.Seconds())
	m.finalScore.Observe(float64(result.FinalScore))
}

// RecordCacheHit counts a batch result served from cache
func (m *Manager) RecordCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

// RecordCacheMiss counts a batch result that needed scoring
func (m *Manager) RecordCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

// ObserveHTTP records one served request
func (m *Manager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Registry returns the manager's registry
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node_exporter textfile collector
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
