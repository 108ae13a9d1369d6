package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name for minutes spans.
const TracerName = "minutes"

// Span attribute keys
const (
	AttrRunID        = "run_id"
	AttrTitle        = "meeting_title"
	AttrStage        = "stage"
	AttrChunkID      = "chunk_id"
	AttrWordCount    = "word_count"
	AttrChunkCount   = "chunk_count"
	AttrProvider     = "provider"
	AttrModel        = "model"
	AttrInputTokens  = "input_tokens"
	AttrOutputTokens = "output_tokens"
	AttrDurationMs   = "duration_ms"
	AttrErrorCode    = "error_code"
	AttrRetryable    = "retryable"
	AttrCacheHit     = "cache_hit"
)

// Span names
const (
	SpanProcess    = "minutes.process"
	SpanSummarize  = "minutes.summarize_chunk"
	SpanOracleCall = "minutes.oracle_call"
)

// Tracer starts spans for minutes operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer returns a tracer backed by the global OTel provider.
func NewTracer() *Tracer {
	return &Tracer{tracer: otel.Tracer(TracerName)}
}

// StartRunSpan starts the root span for processing one transcript.
func (t *Tracer) StartRunSpan(ctx context.Context, runID, title string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanProcess,
		trace.WithAttributes(
			attribute.String(AttrRunID, runID),
			attribute.String(AttrTitle, title),
		),
	)
}

// StartStageSpan starts a span for a pipeline stage.
func (t *Tracer) StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "minutes.stage."+stage,
		trace.WithAttributes(attribute.String(AttrStage, stage)),
	)
}

// StartChunkSpan starts a span for summarizing one chunk.
func (t *Tracer) StartChunkSpan(ctx context.Context, chunkID, words int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanSummarize,
		trace.WithAttributes(
			attribute.Int(AttrChunkID, chunkID),
			attribute.Int(AttrWordCount, words),
		),
	)
}

// StartOracleSpan starts a span for a provider call.
func (t *Tracer) StartOracleSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanOracleCall,
		trace.WithAttributes(
			attribute.String(AttrProvider, provider),
			attribute.String(AttrModel, model),
		),
	)
}

// SpanHelper provides convenient methods for working with a span.
type SpanHelper struct {
	span trace.Span
}

// NewSpanHelper wraps span.
func NewSpanHelper(span trace.Span) *SpanHelper {
	return &SpanHelper{span: span}
}

// SetDuration sets the duration attribute.
func (h *SpanHelper) SetDuration(durationMs int64) {
	h.span.SetAttributes(attribute.Int64(AttrDurationMs, durationMs))
}

// SetOracleResult sets token usage and latency attributes.
func (h *SpanHelper) SetOracleResult(inputTokens, outputTokens int, latencyMs int64) {
	h.span.SetAttributes(
		attribute.Int(AttrInputTokens, inputTokens),
		attribute.Int(AttrOutputTokens, outputTokens),
		attribute.Int64(AttrDurationMs, latencyMs),
	)
}

// SetCacheHit records whether a summary came from the cache.
func (h *SpanHelper) SetCacheHit(hit bool) {
	h.span.SetAttributes(attribute.Bool(AttrCacheHit, hit))
}

// SetCounts sets word and chunk counts.
func (h *SpanHelper) SetCounts(words, chunks int) {
	h.span.SetAttributes(
		attribute.Int(AttrWordCount, words),
		attribute.Int(AttrChunkCount, chunks),
	)
}

// SetError records an error on the span.
func (h *SpanHelper) SetError(err error, errorCode string, retryable bool) {
	h.span.SetStatus(codes.Error, err.Error())
	h.span.SetAttributes(
		attribute.String(AttrErrorCode, errorCode),
		attribute.Bool(AttrRetryable, retryable),
	)
	h.span.RecordError(err)
}

// SetSuccess marks the span as successful.
func (h *SpanHelper) SetSuccess() {
	h.span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span.
func (h *SpanHelper) AddEvent(name string, attrs ...attribute.KeyValue) {
	h.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the context, or "".
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
