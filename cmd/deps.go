// Package cmd provides CLI commands for the minutes tool.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/minutes-cli/config"
	"github.com/otherjamesbrown/minutes-cli/credentials"
	"github.com/otherjamesbrown/minutes-cli/pkg/actions"
	"github.com/otherjamesbrown/minutes-cli/pkg/chunker"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/observability"
	"github.com/otherjamesbrown/minutes-cli/pkg/pipeline"
	"github.com/otherjamesbrown/minutes-cli/pkg/store"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
	"github.com/otherjamesbrown/minutes-cli/runlog"
)

// SummarizerFactory builds the chunk summarizer for a run. The returned
// cleanup func releases providers and caches.
type SummarizerFactory func(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, metrics *observability.Metrics) (pipeline.ChunkSummarizer, func(), error)

// ArchiveOpener connects to the run archive.
type ArchiveOpener func(ctx context.Context, dsn string) (ArchiveStore, error)

// ArchiveStore is the subset of *store.Archive the commands use.
type ArchiveStore interface {
	pipeline.Archiver
	List(ctx context.Context, limit int) ([]store.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*store.Run, error)
	Close()
}

// RunLogReader reads the command log.
type RunLogReader interface {
	History(ctx context.Context, limit int) ([]runlog.Entry, error)
	Close() error
}

// CommandDeps holds the dependencies shared by the minutes commands.
type CommandDeps struct {
	Config        *config.CLIConfig
	LoadConfig    func() (*config.CLIConfig, error)
	Logger        logging.Logger
	Metrics       *observability.Metrics
	NewSummarizer SummarizerFactory
	OpenArchive   ArchiveOpener
	OpenRunLog    func(ctx context.Context, dsn string) (RunLogReader, error)
}

// DefaultDeps returns the default dependencies for production use.
func DefaultDeps() *CommandDeps {
	return &CommandDeps{
		LoadConfig:    config.LoadConfig,
		NewSummarizer: BuildSummarizer,
		OpenArchive:   OpenArchive,
		OpenRunLog: func(ctx context.Context, dsn string) (RunLogReader, error) {
			return runlog.NewClient(ctx, dsn)
		},
	}
}

func (d *CommandDeps) config() (*config.CLIConfig, error) {
	if d.Config != nil {
		return d.Config, nil
	}
	if d.LoadConfig == nil {
		return config.DefaultConfig(), nil
	}
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

func (d *CommandDeps) logger() logging.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return logging.NewNopLogger()
}

func (d *CommandDeps) summarizer(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, metrics *observability.Metrics) (pipeline.ChunkSummarizer, func(), error) {
	build := d.NewSummarizer
	if build == nil {
		build = BuildSummarizer
	}
	return build(ctx, cfg, logger, metrics)
}

func (d *CommandDeps) archive(ctx context.Context, cfg *config.CLIConfig) (ArchiveStore, error) {
	if cfg.Archive.DSN == "" {
		return nil, errors.New("archive not configured: set archive.dsn or MINUTES_DATABASE_URL")
	}
	open := d.OpenArchive
	if open == nil {
		open = OpenArchive
	}
	return open(ctx, cfg.Archive.DSN)
}

// pipelineConfig maps the processing section onto pipeline settings.
func pipelineConfig(cfg *config.CLIConfig) pipeline.Config {
	pc := pipeline.DefaultConfig()
	pc.Chunker = chunker.Config{
		MaxWordsPerChunk: cfg.Processing.MaxWordsPerChunk,
		OverlapWords:     cfg.Processing.OverlapWords,
		LookbackWords:    chunker.DefaultLookbackWords,
		LookaheadWords:   chunker.DefaultLookaheadWords,
	}
	pc.Extractor = actions.Config{MinConfidence: cfg.Processing.ExtractorMinConfidence}
	pc.MinActionConfidence = cfg.Processing.MinActionConfidence
	if cfg.Processing.Concurrency > 0 {
		pc.Concurrency = cfg.Processing.Concurrency
	}
	return pc
}

// BuildSummarizer wires the configured provider chain, the optional Redis
// cache and the basic fallback into a Summarizer. Providers without an API
// key are skipped.
func BuildSummarizer(ctx context.Context, cfg *config.CLIConfig, logger logging.Logger, metrics *observability.Metrics) (pipeline.ChunkSummarizer, func(), error) {
	registry := summarizer.NewRegistry()
	closers := []func(){func() { _ = registry.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []summarizer.Option{
		summarizer.WithLogger(logger),
		summarizer.WithMetrics(metrics),
	}

	if !cfg.AI.Disabled {
		keys, err := config.LoadProviderKeys()
		if err != nil {
			return nil, nil, err
		}
		stored := storedKeys(logger)

		for _, kind := range cfg.AI.Providers {
			apiKeys := keys.For(kind)
			if k := stored[kind]; k != "" && len(apiKeys) == 0 {
				apiKeys = []string{k}
			}
			pc := providerConfig(cfg, kind, apiKeys)
			if len(pc.APIKeys) == 0 && pc.BaseURL == "" {
				logger.Debug("Skipping provider without API key", logging.F("provider", kind))
				continue
			}
			p, err := summarizer.NewProvider(ctx, pc)
			if err != nil {
				logger.Warn("Provider unavailable", logging.F("provider", kind), logging.Err(err))
				continue
			}
			registry.Register(kind, p)
		}

		if len(registry.Names()) == 0 {
			logger.Warn("No summarization providers configured, using basic summaries")
		}

		if cfg.Cache.Enabled {
			cache, err := summarizer.NewRedisCache(ctx, summarizer.RedisConfig{
				Addr:     cfg.Cache.RedisAddr,
				Password: os.Getenv("MINUTES_REDIS_PASSWORD"),
				DB:       cfg.Cache.RedisDB,
			})
			if err != nil {
				logger.Warn("Summary cache unavailable", logging.F("addr", cfg.Cache.RedisAddr), logging.Err(err))
			} else {
				opts = append(opts, summarizer.WithCache(cache))
				closers = append(closers, func() { _ = cache.Close() })
			}
		}
	}

	s := summarizer.New(registry, summarizer.Config{
		MaxRetries:   cfg.AI.MaxRetries,
		RetryBackoff: cfg.AI.RetryBackoff,
		CacheTTL:     cfg.Cache.TTL,
		DisableAI:    cfg.AI.Disabled,
	}, opts...)
	return s, cleanup, nil
}

func providerConfig(cfg *config.CLIConfig, kind string, apiKeys []string) summarizer.ProviderConfig {
	pc := summarizer.ProviderConfig{
		Kind:        kind,
		APIKeys:     apiKeys,
		Timeout:     cfg.AI.Timeout,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
	}
	switch kind {
	case summarizer.KindAnthropic:
		pc.Model = cfg.AI.AnthropicModel
		pc.BaseURL = cfg.AI.AnthropicBaseURL
	case summarizer.KindOpenAI:
		pc.Model = cfg.AI.OpenAIModel
		pc.BaseURL = cfg.AI.OpenAIBaseURL
	case summarizer.KindGemini:
		pc.Model = cfg.AI.GeminiModel
	}
	// Only a local OpenAI-compatible endpoint may run without a key.
	if kind != summarizer.KindOpenAI && len(apiKeys) == 0 {
		pc.BaseURL = ""
	}
	return pc
}

// storedKeys returns keys saved with 'minutes auth set'. The credential
// store is only opened when a credentials file exists, so a missing
// keyring never blocks processing.
func storedKeys(logger logging.Logger) map[string]string {
	path, err := credentials.CredentialsPath()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	st, err := credentials.NewStore()
	if err != nil {
		logger.Warn("Cannot open credential store", logging.Err(err))
		return nil
	}
	statuses, err := st.List()
	if err != nil {
		logger.Warn("Cannot read credential store", logging.Err(err))
		return nil
	}

	keys := make(map[string]string, len(statuses))
	for _, s := range statuses {
		if k, err := st.Get(s.Provider); err == nil {
			keys[s.Provider] = k
		}
	}
	return keys
}

// OpenArchive connects to Postgres, applies migrations and returns the archive.
func OpenArchive(ctx context.Context, dsn string) (ArchiveStore, error) {
	cfg := store.DefaultConfig()
	cfg.DSN = dsn
	a, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}
