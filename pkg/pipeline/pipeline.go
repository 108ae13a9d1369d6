// Package pipeline runs a transcript through parsing, chunking,
// summarization, action item extraction and merging.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
	"github.com/otherjamesbrown/minutes-cli/pkg/chunker"
	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/observability"
	"github.com/otherjamesbrown/minutes-cli/pkg/store"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
	"github.com/otherjamesbrown/minutes-cli/pkg/transcript"
)

// Defaults.
const (
	DefaultMinActionConfidence = 0.6
	DefaultConcurrency         = 4
	DefaultContextWords        = 60
)

// ChunkSummarizer summarizes one chunk. *summarizer.Summarizer implements it.
type ChunkSummarizer interface {
	SummarizeChunk(ctx context.Context, chunk chunker.TextChunk, previousContext string) (summarizer.ChunkSummary, error)
	Providers() []string
}

// Archiver persists finished runs. *store.Archive implements it.
type Archiver interface {
	Save(ctx context.Context, run *store.Run) error
}

// Config controls a Processor.
type Config struct {
	Chunker   chunker.Config
	Extractor actions.Config
	// MinActionConfidence is applied to extracted items before merging;
	// items at exactly this confidence are kept.
	MinActionConfidence float64
	// Concurrency bounds how many chunks are summarized at once.
	Concurrency int
	// ContextWords is how many trailing words of the previous chunk are
	// passed as context when summarizing a chunk.
	ContextWords int
}

// DefaultConfig returns the default processing configuration.
func DefaultConfig() Config {
	return Config{
		Chunker:             chunker.DefaultConfig(),
		Extractor:           actions.DefaultConfig(),
		MinActionConfidence: DefaultMinActionConfidence,
		Concurrency:         DefaultConcurrency,
		ContextWords:        DefaultContextWords,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Chunker.Validate(); err != nil {
		return err
	}
	if err := c.Extractor.Validate(); err != nil {
		return err
	}
	if c.MinActionConfidence < 0 || c.MinActionConfidence > 1 {
		return fmt.Errorf("%w: min_action_confidence must be in [0,1], got %g", merrors.ErrInvalidConfig, c.MinActionConfidence)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", merrors.ErrInvalidConfig)
	}
	if c.ContextWords < 0 {
		return fmt.Errorf("%w: context_words must not be negative", merrors.ErrInvalidConfig)
	}
	return nil
}

// Result is the outcome of processing one transcript.
type Result struct {
	RunID           uuid.UUID                 `json:"run_id" yaml:"run_id"`
	Title           string                    `json:"title" yaml:"title"`
	SourcePath      string                    `json:"source_path,omitempty" yaml:"source_path,omitempty"`
	Transcript      *transcript.Transcript    `json:"-" yaml:"-"`
	Summary         summarizer.MeetingSummary `json:"summary" yaml:"summary"`
	Chunks          []chunker.TextChunk       `json:"chunks" yaml:"chunks"`
	ChunkingSummary chunker.Summary           `json:"chunking_summary" yaml:"chunking_summary"`
	// Actions are the pattern-extracted items that passed the confidence
	// filter, before merging.
	Actions  []actions.ActionItem `json:"actions" yaml:"actions"`
	Duration time.Duration        `json:"duration_ns" yaml:"duration"`
	Archived bool                 `json:"archived" yaml:"archived"`
}

// Processor runs the pipeline.
type Processor struct {
	cfg        Config
	chunker    *chunker.Chunker
	extractor  *actions.Extractor
	summarizer ChunkSummarizer
	archive    Archiver
	logger     logging.Logger
	metrics    *observability.Metrics
	tracer     *observability.Tracer
}

// Option configures the processor.
type Option func(*Processor)

// WithLogger sets a custom logger.
func WithLogger(logger logging.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithMetrics records stage and run metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Processor) {
		p.metrics = m
	}
}

// WithTracer sets the tracer used for run and stage spans.
func WithTracer(t *observability.Tracer) Option {
	return func(p *Processor) {
		p.tracer = t
	}
}

// WithArchive saves every successful result.
func WithArchive(a Archiver) Option {
	return func(p *Processor) {
		p.archive = a
	}
}

// New creates a Processor.
func New(s ChunkSummarizer, cfg Config, opts ...Option) (*Processor, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: summarizer is required", merrors.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:        cfg,
		summarizer: s,
		logger:     logging.NewNopLogger(),
		tracer:     observability.NewTracer(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logging.F("component", "pipeline"))

	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	ex, err := actions.NewExtractor(cfg.Extractor, p.logger)
	if err != nil {
		return nil, err
	}
	p.chunker = ch
	p.extractor = ex
	return p, nil
}

// ProcessFile loads a transcript file and processes it. The title is
// derived from the file name.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	t, err := transcript.Load(path)
	p.metrics.RecordStage(merrors.StageLoad, status(err), time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordRun("error")
		return nil, merrors.ClassifyError(err, merrors.StageLoad)
	}

	result, err := p.run(ctx, transcript.TitleFromPath(path), path, t)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	result.Summary.Stats.Duration = result.Duration
	return result, nil
}

// Process parses raw transcript text and processes it.
func (p *Processor) Process(ctx context.Context, title, raw string) (*Result, error) {
	start := time.Now()
	t, err := transcript.Parse(raw)
	p.metrics.RecordStage(merrors.StageParse, status(err), time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordRun("error")
		return nil, merrors.ClassifyError(err, merrors.StageParse)
	}

	result, err := p.run(ctx, title, "", t)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)
	result.Summary.Stats.Duration = result.Duration
	return result, nil
}

// run executes the stages after parsing.
func (p *Processor) run(ctx context.Context, title, source string, t *transcript.Transcript) (*Result, error) {
	start := time.Now()
	runID := uuid.New()
	ctx = logging.ContextWithRunID(ctx, runID.String())
	ctx, span := p.tracer.StartRunSpan(ctx, runID.String(), title)
	defer span.End()
	helper := observability.NewSpanHelper(span)
	log := p.logger.WithContext(ctx)

	log.Info("Processing transcript",
		logging.F("title", title),
		logging.F("words", t.WordCount),
		logging.F("speakers", len(t.Speakers)),
		logging.F("format", t.Format))

	result := &Result{
		RunID:      runID,
		Title:      title,
		SourcePath: source,
		Transcript: t,
	}

	fail := func(stage string, err error) (*Result, error) {
		pe := merrors.ClassifyError(err, stage)
		helper.SetError(err, string(pe.Code), merrors.IsErrorRetryable(pe))
		p.metrics.RecordRun("error")
		log.Error("Pipeline stage failed",
			logging.F("stage", stage),
			logging.F("error_code", string(pe.Code)),
			logging.Err(err))
		return nil, pe
	}

	// Chunk
	err := p.stage(ctx, merrors.StageChunk, func(context.Context) error {
		result.Chunks = p.chunker.Chunk(t.Cleaned, t.Speakers)
		result.ChunkingSummary = chunker.Summarize(result.Chunks)
		for _, c := range result.Chunks {
			p.metrics.RecordChunk(c.WordCount)
		}
		return nil
	})
	if err != nil {
		return fail(merrors.StageChunk, err)
	}
	helper.SetCounts(t.WordCount, len(result.Chunks))

	// Summarize
	var summaries []summarizer.ChunkSummary
	err = p.stage(ctx, merrors.StageSummarize, func(ctx context.Context) error {
		var serr error
		summaries, serr = p.summarizeChunks(ctx, result.Chunks)
		return serr
	})
	if err != nil {
		return fail(merrors.StageSummarize, err)
	}

	// Extract
	err = p.stage(ctx, merrors.StageExtract, func(context.Context) error {
		extracted := p.extractor.Extract(t.Cleaned, t.Speakers)
		result.Actions = actions.FilterByConfidence(extracted, p.cfg.MinActionConfidence)
		log.Debug("Extracted action items",
			logging.F("extracted", len(extracted)),
			logging.F("kept", len(result.Actions)))
		return nil
	})
	if err != nil {
		return fail(merrors.StageExtract, err)
	}

	// Combine and merge
	err = p.stage(ctx, merrors.StageMerge, func(context.Context) error {
		summary := summarizer.Combine(title, summaries, t.WordCount)
		for _, e := range summary.ActionItems {
			p.metrics.RecordActionItem("oracle", string(e.Priority))
		}
		for _, a := range result.Actions {
			p.metrics.RecordActionItem("pattern", string(a.Priority))
		}
		summary.ActionItems = actions.Merge(summary.ActionItems, result.Actions)
		summary.Stats.PatternActions = len(result.Actions)
		summary.Stats.MergedActions = len(summary.ActionItems)
		summary.Stats.ProvidersTried = p.summarizer.Providers()
		summary.Stats.Duration = time.Since(start)
		result.Summary = summary
		return nil
	})
	if err != nil {
		return fail(merrors.StageMerge, err)
	}

	if p.archive != nil {
		p.save(ctx, result, log)
	}

	result.Duration = time.Since(start)
	p.metrics.RecordRun("success")
	helper.SetDuration(result.Duration.Milliseconds())
	helper.SetSuccess()

	log.Info("Transcript processed",
		logging.F("chunks", len(result.Chunks)),
		logging.F("action_items", len(result.Summary.ActionItems)),
		logging.F("fallback_chunks", result.Summary.Stats.FallbackChunks),
		logging.F("duration", result.Duration))
	return result, nil
}

// stage runs fn inside a span and records its latency.
func (p *Processor) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.StartStageSpan(ctx, name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.RecordStage(name, status(err), time.Since(start).Seconds())

	helper := observability.NewSpanHelper(span)
	if err != nil {
		pe := merrors.ClassifyError(err, name)
		helper.SetError(err, string(pe.Code), merrors.IsErrorRetryable(pe))
		return err
	}
	helper.SetSuccess()
	return nil
}

// summarizeChunks summarizes chunks with bounded concurrency. Results keep
// chunk order and each chunk's context is the tail of the previous chunk,
// so output does not depend on scheduling.
func (p *Processor) summarizeChunks(ctx context.Context, chunks []chunker.TextChunk) ([]summarizer.ChunkSummary, error) {
	summaries := make([]summarizer.ChunkSummary, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i := range chunks {
		previous := ""
		if i > 0 {
			previous = summarizer.ContextTail(chunks[i-1].Content, p.cfg.ContextWords)
		}
		g.Go(func() error {
			s, err := p.summarizer.SummarizeChunk(gctx, chunks[i], previous)
			if err != nil {
				return fmt.Errorf("summarize chunk %d: %w", chunks[i].ChunkID, err)
			}
			summaries[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (p *Processor) save(ctx context.Context, result *Result, log logging.Logger) {
	summary := result.Summary
	run := &store.Run{
		ID:          result.RunID,
		Title:       result.Title,
		SourcePath:  result.SourcePath,
		WordCount:   result.Transcript.WordCount,
		ChunkCount:  len(result.Chunks),
		ActionCount: len(summary.ActionItems),
		Duration:    summary.Stats.Duration,
		Summary:     &summary,
	}

	err := p.stage(ctx, merrors.StageArchive, func(ctx context.Context) error {
		return p.archive.Save(ctx, run)
	})
	if err != nil {
		log.Warn("Failed to archive result", logging.Err(err))
		return
	}
	result.Archived = true
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
