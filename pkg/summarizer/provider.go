package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

// Provider kinds.
const (
	KindAnthropic = "anthropic"
	KindOpenAI    = "openai"
	KindGemini    = "gemini"
)

// Defaults shared by all providers.
const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.3
	DefaultTimeout     = 60 * time.Second
)

// Provider is a summarization oracle.
type Provider interface {
	// Name returns the provider identifier (e.g., "anthropic-claude-3-haiku-20240307").
	Name() string

	// Complete sends a completion request and returns the raw response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider can currently be reached.
	IsAvailable(ctx context.Context) bool

	// Close releases provider resources.
	Close() error
}

// CompletionRequest represents a request to a provider.
type CompletionRequest struct {
	// Prompt is the full prompt text.
	Prompt string `json:"prompt"`

	// SystemPrompt is an optional system-level instruction.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// MaxTokens limits response length (0 = provider default).
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0 = provider default).
	Temperature float32 `json:"temperature,omitempty"`
}

// CompletionResponse represents a response from a provider.
type CompletionResponse struct {
	// Content is the raw text response.
	Content string `json:"content"`

	// TokensUsed tracks token consumption.
	TokensUsed TokenUsage `json:"tokens_used"`

	// LatencyMs is the response time in milliseconds.
	LatencyMs int `json:"latency_ms"`

	// Model is the model that answered.
	Model string `json:"model"`

	// FinishReason is "stop" for a natural end, "length" when max tokens was hit.
	FinishReason string `json:"finish_reason,omitempty"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// ProviderConfig configures a single provider.
type ProviderConfig struct {
	Kind        string
	Model       string
	BaseURL     string
	APIKeys     []string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

func (c ProviderConfig) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return DefaultMaxTokens
}

func (c ProviderConfig) temperature(req CompletionRequest) float32 {
	if req.Temperature > 0 {
		return req.Temperature
	}
	if c.Temperature > 0 {
		return c.Temperature
	}
	return DefaultTemperature
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// NewProvider builds a provider of cfg.Kind. A provider without an API key
// is a configuration error; callers usually skip those kinds instead.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	kind := strings.ToLower(cfg.Kind)
	if len(cfg.APIKeys) == 0 && kind != KindOpenAI {
		return nil, fmt.Errorf("%w: %s: api key not set", merrors.ErrInvalidConfig, kind)
	}

	switch kind {
	case KindAnthropic:
		return NewAnthropicProvider(cfg), nil
	case KindOpenAI:
		if len(cfg.APIKeys) == 0 && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: openai: api key or base url required", merrors.ErrInvalidConfig)
		}
		return NewOpenAIProvider(cfg), nil
	case KindGemini:
		return NewGeminiProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", merrors.ErrInvalidConfig, cfg.Kind)
	}
}

// Registry manages registered providers and the order they are tried in.
type Registry struct {
	providers map[string]Provider
	chain     []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider under name and appends it to the chain.
func (r *Registry) Register(name string, provider Provider) {
	if _, exists := r.providers[name]; !exists {
		r.chain = append(r.chain, name)
	}
	r.providers[name] = provider
}

// SetChain replaces the order providers are tried in. Every name must be registered.
func (r *Registry) SetChain(names ...string) error {
	for _, name := range names {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("%w: provider %q not registered", merrors.ErrInvalidConfig, name)
		}
	}
	r.chain = append([]string(nil), names...)
	return nil
}

// Get returns a provider by name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Chain returns the providers in the order they are tried.
func (r *Registry) Chain() []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, 0, len(r.chain))
	for _, name := range r.chain {
		out = append(out, r.providers[name])
	}
	return out
}

// Names returns the provider names in chain order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.chain...)
}

// Close closes all registered providers.
func (r *Registry) Close() error {
	var lastErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
