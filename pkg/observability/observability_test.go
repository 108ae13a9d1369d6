package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordRun("success")
	m.RecordRun("success")
	m.RecordStage("chunk", "success", 0.2)
	m.RecordChunk(800)
	m.RecordChunk(120)
	m.RecordActionItem("pattern", "high")
	m.RecordOracleCall("anthropic", "claude-3-haiku-20240307", "success", 1.5)
	m.RecordOracleTokens("anthropic", 900, 300)
	m.RecordFallback()
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordCacheLookup(false)

	if got := testutil.ToFloat64(m.RunsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ChunksTotal); got != 2 {
		t.Errorf("chunks = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ActionItemsTotal.WithLabelValues("pattern", "high")); got != 1 {
		t.Errorf("action items = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.OracleTokensTotal.WithLabelValues("input", "anthropic")); got != 900 {
		t.Errorf("input tokens = %v, want 900", got)
	}
	if got := testutil.ToFloat64(m.OracleFallbacksTotal); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")); got != 2 {
		t.Errorf("cache misses = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.StageSeconds); got != 1 {
		t.Errorf("stage series = %d, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRun("success")
	m.RecordStage("parse", "success", 1)
	m.RecordChunk(10)
	m.RecordActionItem("oracle", "low")
	m.RecordOracleCall("openai", "gpt-3.5-turbo", "error", 0.1)
	m.RecordOracleTokens("openai", 1, 1)
	m.RecordFallback()
	m.RecordCacheLookup(true)
}

func TestMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry should panic")
		}
	}()
	NewMetrics(reg)
}

func TestSpanHelper_NoopSpan(t *testing.T) {
	_, span := noop.NewTracerProvider().Tracer("test").Start(context.Background(), "op")
	h := NewSpanHelper(span)

	h.SetDuration(12)
	h.SetOracleResult(10, 20, 30)
	h.SetCacheHit(true)
	h.SetCounts(1000, 2)
	h.SetError(errors.New("boom"), "RATE_LIMIT", true)
	h.SetSuccess()
	h.AddEvent("retry")
	span.End()
}

func TestTracer_StartsSpans(t *testing.T) {
	tr := NewTracer()
	ctx := context.Background()

	ctx, run := tr.StartRunSpan(ctx, "run-1", "Weekly Sync")
	_, stage := tr.StartStageSpan(ctx, "chunk")
	_, chunk := tr.StartChunkSpan(ctx, 0, 800)
	_, call := tr.StartOracleSpan(ctx, "anthropic", "claude-3-haiku-20240307")
	call.End()
	chunk.End()
	stage.End()
	run.End()

	// The global provider is a no-op unless one is installed.
	if id := GetTraceID(ctx); id != "" {
		t.Errorf("GetTraceID() = %q, want empty with the default provider", id)
	}
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("GetTraceID(background) = %q, want empty", id)
	}
}
