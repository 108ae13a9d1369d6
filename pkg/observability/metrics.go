package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for minutes processing.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Run metrics
	RunsTotal        *prometheus.CounterVec
	StageSeconds     *prometheus.HistogramVec
	ChunksTotal      prometheus.Counter
	ChunkWords       prometheus.Histogram
	ActionItemsTotal *prometheus.CounterVec

	// Oracle metrics
	OracleCallsTotal     *prometheus.CounterVec
	OracleLatencySeconds *prometheus.HistogramVec
	OracleTokensTotal    *prometheus.CounterVec
	OracleFallbacksTotal prometheus.Counter
	CacheLookupsTotal    *prometheus.CounterVec
}

// DefaultMetrics registers metrics with the default Prometheus registerer.
func DefaultMetrics() *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer)
}

// NewMetrics creates a new set of metrics registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_runs_total",
				Help: "Total transcripts processed",
			},
			[]string{"status"},
		),
		StageSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minutes_stage_seconds",
				Help:    "Time spent in each pipeline stage",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage", "status"},
		),
		ChunksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "minutes_chunks_total",
				Help: "Total chunks produced by the chunker",
			},
		),
		ChunkWords: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "minutes_chunk_words",
				Help:    "Word count per chunk",
				Buckets: []float64{50, 100, 200, 400, 600, 800, 1000, 1500, 2000},
			},
		),
		ActionItemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_action_items_total",
				Help: "Action items emitted per source",
			},
			[]string{"source", "priority"},
		),
		OracleCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_oracle_calls_total",
				Help: "Summarization oracle calls",
			},
			[]string{"provider", "model", "status"},
		),
		OracleLatencySeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minutes_oracle_latency_seconds",
				Help:    "Summarization oracle latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),
		OracleTokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_oracle_tokens_total",
				Help: "Tokens consumed by the summarization oracle",
			},
			[]string{"direction", "provider"},
		),
		OracleFallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "minutes_oracle_fallbacks_total",
				Help: "Chunks summarized by the heuristic fallback",
			},
		),
		CacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minutes_cache_lookups_total",
				Help: "Summary cache lookups",
			},
			[]string{"result"},
		),
	}
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(status string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(status).Inc()
}

// RecordStage records the latency of a pipeline stage.
func (m *Metrics) RecordStage(stage, status string, seconds float64) {
	if m == nil {
		return
	}
	m.StageSeconds.WithLabelValues(stage, status).Observe(seconds)
}

// RecordChunk records one emitted chunk.
func (m *Metrics) RecordChunk(words int) {
	if m == nil {
		return
	}
	m.ChunksTotal.Inc()
	m.ChunkWords.Observe(float64(words))
}

// RecordActionItem records one action item from source ("pattern", "oracle", "merged").
func (m *Metrics) RecordActionItem(source, priority string) {
	if m == nil {
		return
	}
	m.ActionItemsTotal.WithLabelValues(source, priority).Inc()
}

// RecordOracleCall records a provider call and its latency.
func (m *Metrics) RecordOracleCall(provider, model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.OracleCallsTotal.WithLabelValues(provider, model, status).Inc()
	m.OracleLatencySeconds.WithLabelValues(provider, model).Observe(seconds)
}

// RecordOracleTokens records token usage.
func (m *Metrics) RecordOracleTokens(provider string, input, output int) {
	if m == nil {
		return
	}
	m.OracleTokensTotal.WithLabelValues("input", provider).Add(float64(input))
	m.OracleTokensTotal.WithLabelValues("output", provider).Add(float64(output))
}

// RecordFallback records a chunk summarized without the oracle.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.OracleFallbacksTotal.Inc()
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}
