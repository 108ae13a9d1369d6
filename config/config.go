// Package config provides CLI configuration management for the minutes command-line tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultTimeout      = 10 * time.Minute
	DefaultOutputFormat = OutputFormatText
	DefaultConfigDir    = ".minutes"
	DefaultConfigFile   = "config.yaml"

	DefaultMaxWordsPerChunk       = 800
	DefaultOverlapWords           = 50
	DefaultReportFormat           = "markdown"
	DefaultMinActionConfidence    = 0.6
	DefaultExtractorMinConfidence = 0.5
	DefaultConcurrency            = 4

	DefaultAITimeout    = 60 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = time.Second
	DefaultMaxTokens    = 2000
	DefaultTemperature  = 0.3

	DefaultRedisAddr = "localhost:6379"
	DefaultCacheTTL  = 7 * 24 * time.Hour
)

var reportFormats = []string{"markdown", "md", "text", "txt", "html", "docx", "json"}

var providerKinds = []string{"anthropic", "openai", "gemini"}

// ProcessingConfig controls chunking, extraction and report layout.
type ProcessingConfig struct {
	MaxWordsPerChunk        int     `yaml:"max_words_per_chunk"`
	OverlapWords            int     `yaml:"overlap_words"`
	OutputFormat            string  `yaml:"output_format"`
	IncludeConfidenceScores bool    `yaml:"include_confidence_scores"`
	GroupActionsByOwner     bool    `yaml:"group_actions_by_owner"`
	MinActionConfidence     float64 `yaml:"min_action_confidence"`
	ExtractorMinConfidence  float64 `yaml:"extractor_min_confidence"`
	Concurrency             int     `yaml:"concurrency"`
}

// AIConfig controls the summarization provider chain.
type AIConfig struct {
	// Providers is the fallback chain, primary first.
	Providers        []string      `yaml:"providers"`
	AnthropicModel   string        `yaml:"anthropic_model,omitempty"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url,omitempty"`
	OpenAIModel      string        `yaml:"openai_model,omitempty"`
	OpenAIBaseURL    string        `yaml:"openai_base_url,omitempty"`
	GeminiModel      string        `yaml:"gemini_model,omitempty"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	MaxTokens        int           `yaml:"max_tokens"`
	Temperature      float32       `yaml:"temperature"`
	Disabled         bool          `yaml:"disabled,omitempty"`
}

// CacheConfig holds the Redis summary cache settings.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db,omitempty"`
	TTL       time.Duration `yaml:"ttl"`
}

// ArchiveConfig holds the Postgres archive settings. The archive is used
// only when DSN is set.
type ArchiveConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// RunLogConfig holds the command log settings. Commands are logged only when
// DSN is set.
type RunLogConfig struct {
	DSN string `yaml:"dsn,omitempty"`
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// Timeout bounds a whole command.
	Timeout time.Duration `yaml:"timeout"`

	// OutputFormat specifies the default output format for command results.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	Processing ProcessingConfig `yaml:"processing"`
	AI         AIConfig         `yaml:"ai"`
	Cache      CacheConfig      `yaml:"cache"`
	Archive    ArchiveConfig    `yaml:"archive"`
	RunLog     RunLogConfig     `yaml:"run_log"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		Timeout:      DefaultTimeout,
		OutputFormat: DefaultOutputFormat,
		Processing: ProcessingConfig{
			MaxWordsPerChunk:       DefaultMaxWordsPerChunk,
			OverlapWords:           DefaultOverlapWords,
			OutputFormat:           DefaultReportFormat,
			GroupActionsByOwner:    true,
			MinActionConfidence:    DefaultMinActionConfidence,
			ExtractorMinConfidence: DefaultExtractorMinConfidence,
			Concurrency:            DefaultConcurrency,
		},
		AI: AIConfig{
			Providers:    []string{"anthropic", "openai"},
			Timeout:      DefaultAITimeout,
			MaxRetries:   DefaultMaxRetries,
			RetryBackoff: DefaultRetryBackoff,
			MaxTokens:    DefaultMaxTokens,
			Temperature:  DefaultTemperature,
		},
		Cache: CacheConfig{
			RedisAddr: DefaultRedisAddr,
			TTL:       DefaultCacheTTL,
		},
	}
}

// ConfigDir returns the configuration directory path.
// Uses $MINUTES_CONFIG_DIR if set, otherwise ~/.minutes
func ConfigDir() (string, error) {
	if dir := os.Getenv("MINUTES_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from the default path.
func LoadConfig() (*CLIConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom loads configuration in this order (later sources override earlier):
// 1. Default values
// 2. Config file at path, if it exists
// 3. MINUTES_* environment variables
func LoadConfigFrom(path string) (*CLIConfig, error) {
	cfg, err := loadFileOrDefaults(path)
	if err != nil {
		return nil, err
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFileConfig loads defaults and the file at path without the
// environment overlay, for commands that rewrite the file.
func LoadFileConfig(path string) (*CLIConfig, error) {
	cfg, err := loadFileOrDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func loadFileOrDefaults(path string) (*CLIConfig, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}
	return cfg, nil
}

// configFile mirrors CLIConfig with durations as strings and optional
// fields as pointers so a file can override a true default with false.
type configFile struct {
	Timeout      string       `yaml:"timeout,omitempty"`
	OutputFormat OutputFormat `yaml:"output_format,omitempty"`
	Debug        bool         `yaml:"debug,omitempty"`
	Processing   struct {
		MaxWordsPerChunk        int      `yaml:"max_words_per_chunk,omitempty"`
		OverlapWords            *int     `yaml:"overlap_words,omitempty"`
		OutputFormat            string   `yaml:"output_format,omitempty"`
		IncludeConfidenceScores *bool    `yaml:"include_confidence_scores,omitempty"`
		GroupActionsByOwner     *bool    `yaml:"group_actions_by_owner,omitempty"`
		MinActionConfidence     *float64 `yaml:"min_action_confidence,omitempty"`
		ExtractorMinConfidence  *float64 `yaml:"extractor_min_confidence,omitempty"`
		Concurrency             int      `yaml:"concurrency,omitempty"`
	} `yaml:"processing"`
	AI struct {
		Providers        []string `yaml:"providers,omitempty"`
		AnthropicModel   string   `yaml:"anthropic_model,omitempty"`
		AnthropicBaseURL string   `yaml:"anthropic_base_url,omitempty"`
		OpenAIModel      string   `yaml:"openai_model,omitempty"`
		OpenAIBaseURL    string   `yaml:"openai_base_url,omitempty"`
		GeminiModel      string   `yaml:"gemini_model,omitempty"`
		Timeout          string   `yaml:"timeout,omitempty"`
		MaxRetries       *int     `yaml:"max_retries,omitempty"`
		RetryBackoff     string   `yaml:"retry_backoff,omitempty"`
		MaxTokens        int      `yaml:"max_tokens,omitempty"`
		Temperature      *float32 `yaml:"temperature,omitempty"`
		Disabled         bool     `yaml:"disabled,omitempty"`
	} `yaml:"ai"`
	Cache struct {
		Enabled   bool   `yaml:"enabled,omitempty"`
		RedisAddr string `yaml:"redis_addr,omitempty"`
		RedisDB   int    `yaml:"redis_db,omitempty"`
		TTL       string `yaml:"ttl,omitempty"`
	} `yaml:"cache"`
	Archive ArchiveConfig `yaml:"archive,omitempty"`
	RunLog  RunLogConfig  `yaml:"run_log,omitempty"`
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDuration(f.Timeout, "timeout", &cfg.Timeout); err != nil {
		return err
	}
	if f.OutputFormat != "" {
		cfg.OutputFormat = f.OutputFormat
	}
	cfg.Debug = f.Debug

	p := &cfg.Processing
	if f.Processing.MaxWordsPerChunk != 0 {
		p.MaxWordsPerChunk = f.Processing.MaxWordsPerChunk
	}
	if f.Processing.OverlapWords != nil {
		p.OverlapWords = *f.Processing.OverlapWords
	}
	if f.Processing.OutputFormat != "" {
		p.OutputFormat = f.Processing.OutputFormat
	}
	if f.Processing.IncludeConfidenceScores != nil {
		p.IncludeConfidenceScores = *f.Processing.IncludeConfidenceScores
	}
	if f.Processing.GroupActionsByOwner != nil {
		p.GroupActionsByOwner = *f.Processing.GroupActionsByOwner
	}
	if f.Processing.MinActionConfidence != nil {
		p.MinActionConfidence = *f.Processing.MinActionConfidence
	}
	if f.Processing.ExtractorMinConfidence != nil {
		p.ExtractorMinConfidence = *f.Processing.ExtractorMinConfidence
	}
	if f.Processing.Concurrency != 0 {
		p.Concurrency = f.Processing.Concurrency
	}

	ai := &cfg.AI
	if f.AI.Providers != nil {
		ai.Providers = f.AI.Providers
	}
	setString(&ai.AnthropicModel, f.AI.AnthropicModel)
	setString(&ai.AnthropicBaseURL, f.AI.AnthropicBaseURL)
	setString(&ai.OpenAIModel, f.AI.OpenAIModel)
	setString(&ai.OpenAIBaseURL, f.AI.OpenAIBaseURL)
	setString(&ai.GeminiModel, f.AI.GeminiModel)
	if err := parseDuration(f.AI.Timeout, "ai.timeout", &ai.Timeout); err != nil {
		return err
	}
	if f.AI.MaxRetries != nil {
		ai.MaxRetries = *f.AI.MaxRetries
	}
	if err := parseDuration(f.AI.RetryBackoff, "ai.retry_backoff", &ai.RetryBackoff); err != nil {
		return err
	}
	if f.AI.MaxTokens != 0 {
		ai.MaxTokens = f.AI.MaxTokens
	}
	if f.AI.Temperature != nil {
		ai.Temperature = *f.AI.Temperature
	}
	ai.Disabled = f.AI.Disabled

	cfg.Cache.Enabled = f.Cache.Enabled
	setString(&cfg.Cache.RedisAddr, f.Cache.RedisAddr)
	if f.Cache.RedisDB != 0 {
		cfg.Cache.RedisDB = f.Cache.RedisDB
	}
	if err := parseDuration(f.Cache.TTL, "cache.ttl", &cfg.Cache.TTL); err != nil {
		return err
	}

	cfg.Archive = f.Archive
	cfg.RunLog = f.RunLog
	return nil
}

func parseDuration(s, name string, dst *time.Duration) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	*dst = d
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// loadFromEnv overlays MINUTES_* environment variables onto the
// configuration. Unparseable values are ignored.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("MINUTES_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("MINUTES_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if isTrue(os.Getenv("MINUTES_DEBUG")) {
		cfg.Debug = true
	}

	if v, err := strconv.Atoi(os.Getenv("MINUTES_MAX_WORDS_PER_CHUNK")); err == nil {
		cfg.Processing.MaxWordsPerChunk = v
	}
	if v, err := strconv.Atoi(os.Getenv("MINUTES_OVERLAP_WORDS")); err == nil {
		cfg.Processing.OverlapWords = v
	}
	if v := os.Getenv("MINUTES_REPORT_FORMAT"); v != "" {
		cfg.Processing.OutputFormat = v
	}
	if v, err := strconv.ParseFloat(os.Getenv("MINUTES_MIN_ACTION_CONFIDENCE"), 64); err == nil {
		cfg.Processing.MinActionConfidence = v
	}
	if v, err := strconv.Atoi(os.Getenv("MINUTES_CONCURRENCY")); err == nil {
		cfg.Processing.Concurrency = v
	}

	if v := os.Getenv("MINUTES_AI_PROVIDERS"); v != "" {
		cfg.AI.Providers = splitList(v)
	}
	if v := os.Getenv("MINUTES_OPENAI_BASE_URL"); v != "" {
		cfg.AI.OpenAIBaseURL = v
	}
	if isTrue(os.Getenv("MINUTES_NO_AI")) {
		cfg.AI.Disabled = true
	}

	if v := os.Getenv("MINUTES_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("MINUTES_DATABASE_URL"); v != "" {
		cfg.Archive.DSN = v
	}
	if v := os.Getenv("MINUTES_RUNLOG_DSN"); v != "" {
		cfg.RunLog.DSN = v
	}
}

func isTrue(v string) bool {
	return v == "true" || v == "1"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if c.Timeout <= 0 {
		return invalid("timeout must be positive")
	}
	if !c.OutputFormat.IsValid() {
		return invalid("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	p := c.Processing
	if p.MaxWordsPerChunk <= 0 {
		return invalid("processing.max_words_per_chunk must be positive")
	}
	if p.OverlapWords < 0 || p.OverlapWords >= p.MaxWordsPerChunk {
		return invalid("processing.overlap_words must be between 0 and max_words_per_chunk-1, got %d", p.OverlapWords)
	}
	if !contains(reportFormats, strings.ToLower(p.OutputFormat)) {
		return invalid("invalid processing.output_format: %q", p.OutputFormat)
	}
	if p.MinActionConfidence < 0 || p.MinActionConfidence > 1 {
		return invalid("processing.min_action_confidence must be within [0, 1]")
	}
	if p.ExtractorMinConfidence < 0 || p.ExtractorMinConfidence > 1 {
		return invalid("processing.extractor_min_confidence must be within [0, 1]")
	}
	if p.Concurrency < 1 {
		return invalid("processing.concurrency must be at least 1")
	}

	for _, name := range c.AI.Providers {
		if !contains(providerKinds, strings.ToLower(name)) {
			return invalid("unknown ai provider %q (must be one of %s)", name, strings.Join(providerKinds, ", "))
		}
	}
	if c.AI.Timeout <= 0 {
		return invalid("ai.timeout must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return invalid("ai.max_retries must not be negative")
	}
	if c.Cache.Enabled && c.Cache.RedisAddr == "" {
		return invalid("cache.redis_addr is required when the cache is enabled")
	}

	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", merrors.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the default config file.
func SaveConfig(cfg *CLIConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return fmt.Errorf("getting config path: %w", err)
	}
	return SaveConfigTo(cfg, path)
}

// SaveConfigTo writes cfg to path with durations as strings.
func SaveConfigTo(cfg *CLIConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg.toFile())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// MarshalYAML renders the config in the file layout, with durations as
// strings.
func (c CLIConfig) MarshalYAML() (interface{}, error) {
	return c.toFile(), nil
}

func (c *CLIConfig) toFile() *configFile {
	var f configFile
	f.Timeout = c.Timeout.String()
	f.OutputFormat = c.OutputFormat
	f.Debug = c.Debug

	p := c.Processing
	f.Processing.MaxWordsPerChunk = p.MaxWordsPerChunk
	f.Processing.OverlapWords = &p.OverlapWords
	f.Processing.OutputFormat = p.OutputFormat
	f.Processing.IncludeConfidenceScores = &p.IncludeConfidenceScores
	f.Processing.GroupActionsByOwner = &p.GroupActionsByOwner
	f.Processing.MinActionConfidence = &p.MinActionConfidence
	f.Processing.ExtractorMinConfidence = &p.ExtractorMinConfidence
	f.Processing.Concurrency = p.Concurrency

	ai := c.AI
	f.AI.Providers = ai.Providers
	f.AI.AnthropicModel = ai.AnthropicModel
	f.AI.AnthropicBaseURL = ai.AnthropicBaseURL
	f.AI.OpenAIModel = ai.OpenAIModel
	f.AI.OpenAIBaseURL = ai.OpenAIBaseURL
	f.AI.GeminiModel = ai.GeminiModel
	f.AI.Timeout = ai.Timeout.String()
	f.AI.MaxRetries = &ai.MaxRetries
	f.AI.RetryBackoff = ai.RetryBackoff.String()
	f.AI.MaxTokens = ai.MaxTokens
	f.AI.Temperature = &ai.Temperature
	f.AI.Disabled = ai.Disabled

	f.Cache.Enabled = c.Cache.Enabled
	f.Cache.RedisAddr = c.Cache.RedisAddr
	f.Cache.RedisDB = c.Cache.RedisDB
	f.Cache.TTL = c.Cache.TTL.String()
	f.Archive = c.Archive
	f.RunLog = c.RunLog

	return &f
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadDotEnv loads .env files into the process environment. Variables
// already set are not overridden and missing files are skipped. With no
// paths it loads ./.env and the .env in the config directory.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
		if dir, err := ConfigDir(); err == nil {
			paths = append(paths, filepath.Join(dir, ".env"))
		}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ProviderKeys holds API keys read from the environment.
type ProviderKeys struct {
	Anthropic  string   `env:"ANTHROPIC_API_KEY"`
	Claude     string   `env:"CLAUDE_API_KEY"`
	OpenAI     string   `env:"OPENAI_API_KEY"`
	Gemini     string   `env:"GEMINI_API_KEY"`
	GeminiKeys []string `env:"GEMINI_API_KEYS" envSeparator:","`
	Google     string   `env:"GOOGLE_API_KEY"`
}

// LoadProviderKeys parses provider API keys from the environment.
func LoadProviderKeys() (*ProviderKeys, error) {
	keys := &ProviderKeys{}
	if err := env.Parse(keys); err != nil {
		return nil, fmt.Errorf("parsing provider keys: %w", err)
	}
	return keys, nil
}

// For returns the keys for a provider kind, in preference order. Gemini may
// have several keys for rotation.
func (k *ProviderKeys) For(kind string) []string {
	if k == nil {
		return nil
	}

	var keys []string
	add := func(vs ...string) {
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" && !contains(keys, v) {
				keys = append(keys, v)
			}
		}
	}

	switch strings.ToLower(kind) {
	case "anthropic":
		add(k.Anthropic, k.Claude)
	case "openai":
		add(k.OpenAI)
	case "gemini":
		add(k.GeminiKeys...)
		add(k.Gemini, k.Google)
	}
	return keys
}
