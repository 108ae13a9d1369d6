package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// contentGenerator is the slice of the genai Models service used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type generatorFactory func(ctx context.Context, apiKey string) (contentGenerator, error)

func newGenAIGenerator(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return client.Models, nil
}

// GeminiProvider implements Provider with the Gemini API. Several API keys
// may be configured; a rate-limited key rotates to the next one.
type GeminiProvider struct {
	config  ProviderConfig
	name    string
	factory generatorFactory

	mu         sync.Mutex
	currentKey int
	clients    map[int]contentGenerator
}

// NewGeminiProvider creates a new Gemini provider. Clients are created
// lazily, one per key.
func NewGeminiProvider(ctx context.Context, config ProviderConfig) (*GeminiProvider, error) {
	return newGeminiProvider(config, newGenAIGenerator), nil
}

func newGeminiProvider(config ProviderConfig, factory generatorFactory) *GeminiProvider {
	if config.Model == "" {
		config.Model = DefaultGeminiModel
	}
	return &GeminiProvider{
		config:  config,
		name:    fmt.Sprintf("gemini-%s", config.Model),
		factory: factory,
		clients: make(map[int]contentGenerator),
	}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return p.name
}

// Complete sends a completion request and returns the raw response.
// Rotates API keys on 429 / quota errors.
func (p *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if len(p.config.APIKeys) == 0 {
		return nil, fmt.Errorf("gemini: api key not set")
	}

	start := time.Now()
	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.config.temperature(req)),
		MaxOutputTokens: int32(p.config.maxTokens(req)),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}

	var lastErr error
	for range len(p.config.APIKeys) {
		keyIdx, gen, err := p.generator(ctx)
		if err != nil {
			lastErr = fmt.Errorf("gemini: create client: %w", err)
			p.rotateKey(keyIdx)
			continue
		}

		result, err := gen.GenerateContent(ctx, p.config.Model, genai.Text(req.Prompt), genConfig)
		if err != nil {
			if isQuotaError(err) {
				p.rotateKey(keyIdx)
				lastErr = fmt.Errorf("gemini: %w", err)
				continue
			}
			return nil, fmt.Errorf("gemini: generate content: %w", err)
		}

		return geminiResponse(result, p.config.Model, start)
	}

	return nil, fmt.Errorf("gemini: all API keys exhausted: %w", lastErr)
}

func geminiResponse(result *genai.GenerateContentResponse, model string, start time.Time) (*CompletionResponse, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: no content in response")
	}

	candidate := result.Candidates[0]
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("gemini: no content in response")
	}

	resp := &CompletionResponse{
		Content:      text.String(),
		FinishReason: "stop",
		LatencyMs:    int(time.Since(start).Milliseconds()),
		Model:        model,
	}
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		resp.FinishReason = "length"
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if u := result.UsageMetadata; u != nil {
		resp.TokensUsed = TokenUsage{
			Prompt:     int(u.PromptTokenCount),
			Completion: int(u.CandidatesTokenCount),
			Total:      int(u.TotalTokenCount),
		}
	}
	return resp, nil
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func (p *GeminiProvider) generator(ctx context.Context) (int, contentGenerator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.currentKey
	if gen, ok := p.clients[idx]; ok {
		return idx, gen, nil
	}
	gen, err := p.factory(ctx, p.config.APIKeys[idx])
	if err != nil {
		return idx, nil, err
	}
	p.clients[idx] = gen
	return idx, gen, nil
}

// rotateKey advances past from. Concurrent callers that saw the same key
// only rotate once.
func (p *GeminiProvider) rotateKey(from int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentKey == from {
		p.currentKey = (p.currentKey + 1) % len(p.config.APIKeys)
	}
}

// IsAvailable reports whether an API key is configured.
func (p *GeminiProvider) IsAvailable(ctx context.Context) bool {
	return len(p.config.APIKeys) > 0
}

// Close drops cached clients.
func (p *GeminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients = make(map[int]contentGenerator)
	return nil
}
