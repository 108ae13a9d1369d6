package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultAnthropicModel is used when no model is configured.
	DefaultAnthropicModel = "claude-3-haiku-20240307"
	// DefaultAnthropicURL is the public API endpoint.
	DefaultAnthropicURL = "https://api.anthropic.com"
)

// AnthropicProvider implements Provider against the Anthropic Messages API.
type AnthropicProvider struct {
	config     ProviderConfig
	client     anthropic.Client
	httpClient *http.Client
	name       string
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(config ProviderConfig) *AnthropicProvider {
	if config.Model == "" {
		config.Model = DefaultAnthropicModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultAnthropicURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/") + "/"

	httpClient := &http.Client{Timeout: config.timeout()}
	opts := []option.RequestOption{
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if len(config.APIKeys) > 0 {
		opts = append(opts, option.WithAPIKey(config.APIKeys[0]))
	}

	return &AnthropicProvider{
		config:     config,
		client:     anthropic.NewClient(opts...),
		httpClient: httpClient,
		name:       fmt.Sprintf("anthropic-%s", config.Model),
	}
}

// Name returns the provider identifier.
func (p *AnthropicProvider) Name() string {
	return p.name
}

// Complete sends a completion request and returns the raw response.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		MaxTokens: int64(p.config.maxTokens(req)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(float64(p.config.temperature(req))),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, anthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("anthropic: no content in response")
	}

	finish := "stop"
	if string(msg.StopReason) == "max_tokens" {
		finish = "length"
	}

	return &CompletionResponse{
		Content:      text.String(),
		FinishReason: finish,
		LatencyMs:    int(time.Since(start).Milliseconds()),
		Model:        string(msg.Model),
		TokensUsed: TokenUsage{
			Prompt:     int(msg.Usage.InputTokens),
			Completion: int(msg.Usage.OutputTokens),
			Total:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("anthropic: HTTP %d: %s", apiErr.StatusCode, apiErr.RawJSON())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("anthropic: request failed: %w", err)
}

// IsAvailable reports whether an API key is configured. The Messages API
// has no unauthenticated health endpoint.
func (p *AnthropicProvider) IsAvailable(ctx context.Context) bool {
	return len(p.config.APIKeys) > 0
}

// Close releases provider resources.
func (p *AnthropicProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
