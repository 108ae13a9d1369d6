package summarizer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-3.5-turbo"
	// DefaultOpenAIURL is the public API endpoint. vLLM and Ollama expose the
	// same routes under their own base URL.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	openAISystemPrompt = "You are an expert meeting minutes assistant. Extract structured information from meeting transcripts."
)

// OpenAIProvider implements Provider for OpenAI-compatible chat completion servers.
type OpenAIProvider struct {
	config     ProviderConfig
	client     openai.Client
	httpClient *http.Client
	name       string
}

// NewOpenAIProvider creates a new OpenAI-compatible provider. BaseURL may be
// given with or without the trailing /v1.
func NewOpenAIProvider(config ProviderConfig) *OpenAIProvider {
	if config.Model == "" {
		config.Model = DefaultOpenAIModel
	}
	config.BaseURL = openAIBaseURL(config.BaseURL)

	httpClient := &http.Client{Timeout: config.timeout()}
	opts := []option.RequestOption{
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if len(config.APIKeys) > 0 {
		opts = append(opts, option.WithAPIKey(config.APIKeys[0]))
	}

	return &OpenAIProvider{
		config:     config,
		client:     openai.NewClient(opts...),
		httpClient: httpClient,
		name:       fmt.Sprintf("openai-%s", config.Model),
	}
}

func openAIBaseURL(base string) string {
	base = strings.TrimRight(base, "/")
	if base == "" {
		return DefaultOpenAIURL + "/"
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/"
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Complete sends a chat completion request and returns the raw response.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	system := req.SystemPrompt
	if system == "" {
		system = openAISystemPrompt
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(req.Prompt),
		},
		// max_tokens rather than max_completion_tokens: local servers only
		// understand the older field.
		MaxTokens:   openai.Int(int64(p.config.maxTokens(req))),
		Temperature: openai.Float(float64(p.config.temperature(req))),
	})
	if err != nil {
		return nil, openAIError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai: no content in response")
	}

	return &CompletionResponse{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: resp.Choices[0].FinishReason,
		LatencyMs:    int(time.Since(start).Milliseconds()),
		Model:        resp.Model,
		TokensUsed: TokenUsage{
			Prompt:     int(resp.Usage.PromptTokens),
			Completion: int(resp.Usage.CompletionTokens),
			Total:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// openAIError reports API failures by status code only; the SDK message
// embeds the request URL.
func openAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai: HTTP %d %s: %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode), apiErr.RawJSON())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("openai: request failed: %w", err)
}

// IsAvailable checks the models endpoint.
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	_, err := p.client.Models.List(ctx)
	return err == nil
}

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
