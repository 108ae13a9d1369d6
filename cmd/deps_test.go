package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/minutes-cli/config"
	"github.com/otherjamesbrown/minutes-cli/credentials"
	"github.com/otherjamesbrown/minutes-cli/pkg/chunker"
	"github.com/otherjamesbrown/minutes-cli/pkg/logging"
	"github.com/otherjamesbrown/minutes-cli/pkg/summarizer"
)

func TestPipelineConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Processing.MaxWordsPerChunk = 500
	cfg.Processing.OverlapWords = 25
	cfg.Processing.MinActionConfidence = 0.7
	cfg.Processing.Concurrency = 8

	pc := pipelineConfig(cfg)
	assert.Equal(t, 500, pc.Chunker.MaxWordsPerChunk)
	assert.Equal(t, 25, pc.Chunker.OverlapWords)
	assert.Equal(t, chunker.DefaultLookbackWords, pc.Chunker.LookbackWords)
	assert.Equal(t, chunker.DefaultLookaheadWords, pc.Chunker.LookaheadWords)
	assert.Equal(t, 0.7, pc.MinActionConfidence)
	assert.Equal(t, config.DefaultExtractorMinConfidence, pc.Extractor.MinConfidence)
	assert.Equal(t, 8, pc.Concurrency)
	assert.NoError(t, pc.Validate())
}

func TestBuildSummarizer_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AI.Disabled = true

	s, cleanup, err := BuildSummarizer(context.Background(), cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Empty(t, s.Providers())
}

func TestBuildSummarizer_ProviderChain(t *testing.T) {
	setupAuthEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key-123456")

	store, err := credentials.NewStore()
	require.NoError(t, err)
	require.NoError(t, store.Set("openai", "sk-openai-stored-123456"))

	cfg := config.DefaultConfig()
	cfg.AI.Providers = []string{"openai", "anthropic"}

	s, cleanup, err := BuildSummarizer(context.Background(), cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, []string{"openai", "anthropic"}, s.Providers())
}

func TestBuildSummarizer_SkipsProvidersWithoutKeys(t *testing.T) {
	setupAuthEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key-123456")

	cfg := config.DefaultConfig()
	cfg.AI.Providers = []string{"gemini", "anthropic", "openai"}

	s, cleanup, err := BuildSummarizer(context.Background(), cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, []string{"anthropic"}, s.Providers())
}

func TestBuildSummarizer_LocalOpenAIEndpoint(t *testing.T) {
	setupAuthEnv(t)

	cfg := config.DefaultConfig()
	cfg.AI.Providers = []string{"openai"}
	cfg.AI.OpenAIBaseURL = "http://localhost:11434/v1"

	s, cleanup, err := BuildSummarizer(context.Background(), cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	defer cleanup()
	assert.Equal(t, []string{"openai"}, s.Providers())
}

func TestProviderConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AI.AnthropicModel = "claude-test"
	cfg.AI.AnthropicBaseURL = "https://proxy.example.com"
	cfg.AI.OpenAIBaseURL = "http://localhost:8080/v1"

	pc := providerConfig(cfg, summarizer.KindAnthropic, []string{"k1"})
	assert.Equal(t, "claude-test", pc.Model)
	assert.Equal(t, "https://proxy.example.com", pc.BaseURL)
	assert.Equal(t, cfg.AI.MaxTokens, pc.MaxTokens)

	pc = providerConfig(cfg, summarizer.KindAnthropic, nil)
	assert.Empty(t, pc.BaseURL, "a keyless anthropic provider must not look usable")

	pc = providerConfig(cfg, summarizer.KindOpenAI, nil)
	assert.Equal(t, "http://localhost:8080/v1", pc.BaseURL)
}

func TestArchive_NotConfigured(t *testing.T) {
	deps := testDeps(testConfig())
	_, err := deps.archive(context.Background(), testConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive not configured")
}

func TestDepsConfig_Fallbacks(t *testing.T) {
	loaded := testConfig()
	deps := &CommandDeps{LoadConfig: func() (*config.CLIConfig, error) { return loaded, nil }}
	cfg, err := deps.config()
	require.NoError(t, err)
	assert.Same(t, loaded, cfg)

	cfg, err = (&CommandDeps{}).config()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxWordsPerChunk, cfg.Processing.MaxWordsPerChunk)
	assert.NotNil(t, (&CommandDeps{}).logger())
}
