package summarizer

import (
	"context"
	"fmt"
	"time"

	"github.com/otherjamesbrown/minutes-cli/pkg/chunker"
	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/observability"
)

// Config controls how the provider chain is walked.
type Config struct {
	// MaxRetries is the number of extra attempts per provider for
	// retryable failures (timeouts, rate limits, unavailable models).
	MaxRetries int

	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration

	// CacheTTL is passed to Cache.Set; zero uses DefaultCacheTTL.
	CacheTTL time.Duration

	// DisableAI skips every provider and uses BasicSummary.
	DisableAI bool
}

// DefaultConfig returns the default chain settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		RetryBackoff: time.Second,
		CacheTTL:     DefaultCacheTTL,
	}
}

// Summarizer summarizes chunks through a provider chain with a heuristic fallback.
type Summarizer struct {
	registry *Registry
	cfg      Config
	cache    Cache
	logger   logging.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithCache enables summary caching.
func WithCache(c Cache) Option {
	return func(s *Summarizer) { s.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Summarizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records provider calls, fallbacks and cache lookups.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Summarizer) { s.metrics = m }
}

// WithTracer sets the tracer used for chunk and provider spans.
func WithTracer(t *observability.Tracer) Option {
	return func(s *Summarizer) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New creates a Summarizer. A nil or empty registry always falls back to BasicSummary.
func New(registry *Registry, cfg Config, opts ...Option) *Summarizer {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	s := &Summarizer{
		registry: registry,
		cfg:      cfg,
		logger:   logging.NewNopLogger(),
		tracer:   observability.NewTracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logging.F("component", "summarizer"))
	return s
}

// Providers returns the provider names tried, in order.
func (s *Summarizer) Providers() []string {
	if s.cfg.DisableAI {
		return nil
	}
	return s.registry.Names()
}

// SummarizeChunk summarizes chunk, giving providers previousContext for
// continuity. Provider failures fall through the chain and finally to
// BasicSummary; the only error returned is the context's.
func (s *Summarizer) SummarizeChunk(ctx context.Context, chunk chunker.TextChunk, previousContext string) (ChunkSummary, error) {
	ctx, span := s.tracer.StartChunkSpan(ctx, chunk.ChunkID, chunk.WordCount)
	defer span.End()
	helper := observability.NewSpanHelper(span)
	log := s.logger.WithContext(ctx).With(logging.F("chunk_id", chunk.ChunkID))

	providers := s.chain()
	if len(providers) == 0 {
		s.metrics.RecordFallback()
		helper.SetSuccess()
		return BasicSummary(chunk.ChunkID, chunk.Content), nil
	}

	key := CacheKey(s.Providers(), previousContext, chunk.Content)
	if cached, ok := s.lookup(ctx, key, log); ok {
		cached.ChunkID = chunk.ChunkID
		cached.Cached = true
		helper.SetCacheHit(true)
		helper.SetSuccess()
		return cached, nil
	}

	prompt := BuildPrompt(chunk.Content, previousContext)
	for _, p := range providers {
		summary, err := s.tryProvider(ctx, p, prompt, chunk)
		if err == nil {
			s.store(ctx, key, summary, log)
			helper.SetSuccess()
			return summary, nil
		}
		if ctx.Err() != nil {
			helper.SetError(ctx.Err(), string(merrors.ErrContextCancelled), false)
			return ChunkSummary{}, ctx.Err()
		}

		pe := merrors.ClassifyError(err, merrors.StageSummarize)
		log.Warn("Provider failed, trying next",
			logging.F("provider", p.Name()),
			logging.F("error_code", string(pe.Code)),
			logging.Err(err))
	}

	log.Warn("No provider produced a summary, using basic summary",
		logging.Err(merrors.ErrOracleUnavailable))
	s.metrics.RecordFallback()
	helper.AddEvent("fallback")
	helper.SetSuccess()
	return BasicSummary(chunk.ChunkID, chunk.Content), nil
}

func (s *Summarizer) chain() []Provider {
	if s.cfg.DisableAI {
		return nil
	}
	return s.registry.Chain()
}

// tryProvider calls p, retrying retryable failures, and parses the answer.
// An answer that only the basic heuristic could read counts as a failure.
func (s *Summarizer) tryProvider(ctx context.Context, p Provider, prompt string, chunk chunker.TextChunk) (ChunkSummary, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, s.cfg.RetryBackoff*time.Duration(attempt)); err != nil {
				return ChunkSummary{}, err
			}
		}

		resp, err := s.call(ctx, p, prompt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || !merrors.IsErrorRetryable(merrors.ClassifyError(err, merrors.StageSummarize)) {
				return ChunkSummary{}, err
			}
			s.logger.Debug("Retrying provider",
				logging.F("provider", p.Name()),
				logging.F("attempt", attempt+1),
				logging.Err(err))
			continue
		}

		if resp.FinishReason == "length" {
			s.logger.Warn("Provider response truncated at max tokens",
				logging.F("provider", p.Name()),
				logging.F("completion_tokens", resp.TokensUsed.Completion))
		}

		summary, strategy := ParseResponse(resp.Content, chunk.ChunkID, chunk.Content)
		if strategy == ParsedBasic {
			return ChunkSummary{}, fmt.Errorf("%s: could not parse response", p.Name())
		}
		summary.Source = p.Name()
		return summary, nil
	}
	return ChunkSummary{}, lastErr
}

func (s *Summarizer) call(ctx context.Context, p Provider, prompt string) (*CompletionResponse, error) {
	ctx, span := s.tracer.StartOracleSpan(ctx, p.Name(), "")
	defer span.End()
	helper := observability.NewSpanHelper(span)

	start := time.Now()
	resp, err := p.Complete(ctx, CompletionRequest{Prompt: prompt})
	elapsed := time.Since(start)

	if err != nil {
		pe := merrors.ClassifyError(err, merrors.StageSummarize)
		helper.SetError(err, string(pe.Code), merrors.IsRetryable(pe.Code))
		s.metrics.RecordOracleCall(p.Name(), "", "error", elapsed.Seconds())
		return nil, err
	}

	helper.SetOracleResult(resp.TokensUsed.Prompt, resp.TokensUsed.Completion, elapsed.Milliseconds())
	helper.SetSuccess()
	s.metrics.RecordOracleCall(p.Name(), resp.Model, "success", elapsed.Seconds())
	s.metrics.RecordOracleTokens(p.Name(), resp.TokensUsed.Prompt, resp.TokensUsed.Completion)
	return resp, nil
}

func (s *Summarizer) lookup(ctx context.Context, key string, log logging.Logger) (ChunkSummary, bool) {
	if s.cache == nil {
		return ChunkSummary{}, false
	}
	summary, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("Cache lookup failed", logging.Err(err))
		return ChunkSummary{}, false
	}
	s.metrics.RecordCacheLookup(ok)
	return summary, ok
}

func (s *Summarizer) store(ctx context.Context, key string, summary ChunkSummary, log logging.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, summary, s.cfg.CacheTTL); err != nil {
		log.Warn("Cache store failed", logging.Err(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
