// Package telemetry exposes Prometheus metrics for the retrieval pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument behind a private registry so tests can
// create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	searchTotal    *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec
	searchResults  *prometheus.HistogramVec

	rerankTimeouts  *prometheus.CounterVec
	keywordFallback prometheus.Counter
	expansionCalls  *prometheus.CounterVec
}

// New creates a Metrics set.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baheth",
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total search requests by mode, refine flag and status.",
		},
		[]string{"mode", "refined", "status"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "baheth",
			Subsystem: "search",
			Name:      "duration_seconds",
			Help:      "End-to-end search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode", "refined"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "baheth",
			Subsystem: "search",
			Name:      "results",
			Help:      "Distribution of returned results per content type.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
		[]string{"type"},
	)
	rerankTimeouts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baheth",
			Subsystem: "rerank",
			Name:      "timeouts_total",
			Help:      "Rerank calls that fell back to fusion order on deadline.",
		},
		[]string{"reranker"},
	)
	keywordFallback := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "baheth",
			Subsystem: "search",
			Name:      "keyword_fuzzy_fallback_total",
			Help:      "Keyword searches that needed the fuzzy second pass.",
		},
	)
	expansionCalls := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baheth",
			Subsystem: "expansion",
			Name:      "calls_total",
			Help:      "Query expansion attempts by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(
		searchTotal,
		searchDuration,
		searchResults,
		rerankTimeouts,
		keywordFallback,
		expansionCalls,
	)

	return &Metrics{
		registry:        registry,
		searchTotal:     searchTotal,
		searchDuration:  searchDuration,
		searchResults:   searchResults,
		rerankTimeouts:  rerankTimeouts,
		keywordFallback: keywordFallback,
		expansionCalls:  expansionCalls,
	}
}

// Handler serves the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSearch records one served or failed search request.
func (m *Metrics) RecordSearch(mode string, refined bool, status string, elapsed time.Duration) {
	refinedLabel := "false"
	if refined {
		refinedLabel = "true"
	}
	m.searchTotal.WithLabelValues(mode, refinedLabel, status).Inc()
	if status == "ok" {
		m.searchDuration.WithLabelValues(mode, refinedLabel).Observe(elapsed.Seconds())
	}
}

// RecordResults records per-type result counts for one request.
func (m *Metrics) RecordResults(books, ayahs, hadiths int) {
	m.searchResults.WithLabelValues("book").Observe(float64(books))
	m.searchResults.WithLabelValues("ayah").Observe(float64(ayahs))
	m.searchResults.WithLabelValues("hadith").Observe(float64(hadiths))
}

// RecordRerankTimeout counts a rerank deadline fallback.
func (m *Metrics) RecordRerankTimeout(reranker string) {
	m.rerankTimeouts.WithLabelValues(reranker).Inc()
}

// RecordKeywordFallback counts a fuzzy second-pass keyword search.
func (m *Metrics) RecordKeywordFallback() {
	m.keywordFallback.Inc()
}

// RecordExpansion counts one refined request by expansion outcome:
// "expanded" when alternate phrasings were available (fresh or cached),
// "degraded" when the request ran on the original query alone.
func (m *Metrics) RecordExpansion(outcome string) {
	m.expansionCalls.WithLabelValues(outcome).Inc()
}
