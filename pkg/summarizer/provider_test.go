package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
)

func TestRegistry(t *testing.T) {
	a := newMockProvider("a")
	b := newMockProvider("b")
	a.On("Close").Return(nil)
	b.On("Close").Return(errors.New("close b"))

	reg := NewRegistry()
	reg.Register("a", a)
	reg.Register("b", b)
	reg.Register("a", a)

	assert.Equal(t, []string{"a", "b"}, reg.Names())

	require.NoError(t, reg.SetChain("b", "a"))
	chain := reg.Chain()
	require.Len(t, chain, 2)
	assert.Equal(t, "b", chain[0].Name())

	err := reg.SetChain("missing")
	assert.True(t, merrors.IsInvalidConfig(err))

	got, ok := reg.Get("a")
	assert.True(t, ok)
	assert.Equal(t, a, got)

	assert.EqualError(t, reg.Close(), "close b")

	var nilReg *Registry
	assert.Empty(t, nilReg.Chain())
	assert.Empty(t, nilReg.Names())
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvider(ctx, ProviderConfig{Kind: KindAnthropic})
	assert.True(t, merrors.IsInvalidConfig(err))

	_, err = NewProvider(ctx, ProviderConfig{Kind: KindOpenAI})
	assert.True(t, merrors.IsInvalidConfig(err))

	_, err = NewProvider(ctx, ProviderConfig{Kind: "cohere", APIKeys: []string{"k"}})
	assert.True(t, merrors.IsInvalidConfig(err))

	p, err := NewProvider(ctx, ProviderConfig{Kind: "Anthropic", APIKeys: []string{"k"}})
	require.NoError(t, err)
	assert.Equal(t, "anthropic-claude-3-haiku-20240307", p.Name())

	p, err = NewProvider(ctx, ProviderConfig{Kind: KindOpenAI, BaseURL: "http://localhost:11434", Model: "llama3"})
	require.NoError(t, err)
	assert.Equal(t, "openai-llama3", p.Name())

	p, err = NewProvider(ctx, ProviderConfig{Kind: KindGemini, APIKeys: []string{"k"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini-"+DefaultGeminiModel, p.Name())
}

// messagesBody and chatBody capture the fields the providers send.
type messagesBody struct {
	Model  string `json:"model"`
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type chatBody struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestAnthropicProvider_Complete(t *testing.T) {
	var got messagesBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		writeJSON(w, http.StatusOK, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku-20240307","stop_reason":"max_tokens",
			"content":[{"type":"text","text":"{\"summary\":"},{"type":"text","text":"\"ok\"}"}],
			"usage":{"input_tokens":120,"output_tokens":30}}`)
	}))
	defer server.Close()

	p := NewAnthropicProvider(ProviderConfig{BaseURL: server.URL + "/", APIKeys: []string{"secret"}})
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hello", SystemPrompt: "sys"})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"ok"}`, resp.Content)
	assert.Equal(t, "length", resp.FinishReason)
	assert.Equal(t, "claude-3-haiku-20240307", resp.Model)
	assert.Equal(t, TokenUsage{Prompt: 120, Completion: 30, Total: 150}, resp.TokensUsed)

	assert.Equal(t, DefaultAnthropicModel, got.Model)
	require.Len(t, got.System, 1)
	assert.Equal(t, "sys", got.System[0].Text)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	require.Len(t, got.Messages[0].Content, 1)
	assert.Equal(t, "hello", got.Messages[0].Content[0].Text)

	assert.True(t, p.IsAvailable(context.Background()))
	assert.NoError(t, p.Close())
}

func TestAnthropicProvider_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   merrors.ErrorCode
	}{
		{"rate limited", http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, merrors.ErrRateLimit},
		{"overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, merrors.ErrRateLimit},
		{"auth", http.StatusUnauthorized, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, merrors.ErrAuthFailed},
		{"empty content", http.StatusOK, `{"id":"msg_2","type":"message","role":"assistant","content":[]}`, merrors.ErrEmptyContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			p := NewAnthropicProvider(ProviderConfig{BaseURL: server.URL, APIKeys: []string{"k"}})
			_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			require.Error(t, err)
			assert.NotContains(t, err.Error(), server.URL)
			assert.Equal(t, tt.code, merrors.ClassifyError(err, merrors.StageSummarize).Code)
			assert.Equal(t, 1, calls, "retries belong to the summarizer, not the client")
		})
	}
}

func TestAnthropicProvider_NoKey(t *testing.T) {
	p := NewAnthropicProvider(ProviderConfig{})
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestOpenAIBaseURL(t *testing.T) {
	assert.Equal(t, "https://api.openai.com/v1/", openAIBaseURL(""))
	assert.Equal(t, "http://localhost:11434/v1/", openAIBaseURL("http://localhost:11434"))
	assert.Equal(t, "http://localhost:11434/v1/", openAIBaseURL("http://localhost:11434/v1"))
	assert.Equal(t, "http://localhost:8000/v1/", openAIBaseURL("http://localhost:8000/v1/"))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got chatBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			writeJSON(w, http.StatusOK, `{"object":"list","data":[]}`)
			return
		case "/v1/chat/completions":
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(w, http.StatusOK, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo-0125",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"done"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(ProviderConfig{BaseURL: server.URL, APIKeys: []string{"sk-test"}, MaxTokens: 500})
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "gpt-3.5-turbo-0125", resp.Model)
	assert.Equal(t, TokenUsage{Prompt: 10, Completion: 2, Total: 12}, resp.TokensUsed)

	assert.Equal(t, DefaultOpenAIModel, got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, openAISystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "hi", got.Messages[1].Content)

	assert.True(t, p.IsAvailable(context.Background()))
	assert.NoError(t, p.Close())
}

func TestOpenAIProvider_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			writeJSON(w, http.StatusServiceUnavailable, `{"error":{"message":"loading"}}`)
		case "/v1/chat/completions":
			writeJSON(w, http.StatusOK, `{"id":"c","object":"chat.completion","model":"m","choices":[]}`)
		}
	}))
	defer server.Close()

	p := NewOpenAIProvider(ProviderConfig{BaseURL: server.URL + "/v1"})
	_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Equal(t, merrors.ErrEmptyContent, merrors.ClassifyError(err, merrors.StageSummarize).Code)
	assert.False(t, p.IsAvailable(context.Background()))

	server.Close()
	_, err = p.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: request failed")
}

func TestOpenAIProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(ProviderConfig{BaseURL: server.URL, APIKeys: []string{"sk-test"}})
	_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), server.URL)
	assert.Equal(t, merrors.ErrRateLimit, merrors.ClassifyError(err, merrors.StageSummarize).Code)
}

type fakeGenerator struct {
	err    error
	resp   *genai.GenerateContentResponse
	calls  int
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.config = config
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     40,
			CandidatesTokenCount: 8,
			TotalTokenCount:      48,
		},
	}
}

func TestGeminiProvider_RotatesKeysOnQuota(t *testing.T) {
	generators := map[string]*fakeGenerator{
		"k1": {err: errors.New("Error 429, RESOURCE_EXHAUSTED")},
		"k2": {resp: textResponse("summary text")},
	}
	factory := func(ctx context.Context, key string) (contentGenerator, error) {
		return generators[key], nil
	}

	p := newGeminiProvider(ProviderConfig{APIKeys: []string{"k1", "k2"}, Temperature: 0.5}, factory)
	resp, err := p.Complete(context.Background(), CompletionRequest{Prompt: "p", SystemPrompt: "sys"})
	require.NoError(t, err)

	assert.Equal(t, "summary text", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, TokenUsage{Prompt: 40, Completion: 8, Total: 48}, resp.TokensUsed)
	assert.Equal(t, 1, generators["k1"].calls)

	cfg := generators["k2"].config
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 0.0001)
	assert.Equal(t, int32(DefaultMaxTokens), cfg.MaxOutputTokens)
	assert.Equal(t, "sys", cfg.SystemInstruction.Parts[0].Text)

	// The rotated key sticks for the next call.
	_, err = p.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, 1, generators["k1"].calls)
	assert.Equal(t, 2, generators["k2"].calls)
}

func TestGeminiProvider_Errors(t *testing.T) {
	quota := &fakeGenerator{err: errors.New("quota exceeded")}
	p := newGeminiProvider(ProviderConfig{APIKeys: []string{"k1"}}, func(ctx context.Context, key string) (contentGenerator, error) {
		return quota, nil
	})
	_, err := p.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all API keys exhausted")
	assert.Equal(t, merrors.ErrRateLimit, merrors.ClassifyError(err, merrors.StageSummarize).Code)

	bad := &fakeGenerator{err: errors.New("invalid argument")}
	p = newGeminiProvider(ProviderConfig{APIKeys: []string{"k1", "k2"}}, func(ctx context.Context, key string) (contentGenerator, error) {
		return bad, nil
	})
	_, err = p.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, 1, bad.calls)

	empty := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
	p = newGeminiProvider(ProviderConfig{APIKeys: []string{"k1"}}, func(ctx context.Context, key string) (contentGenerator, error) {
		return empty, nil
	})
	_, err = p.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	assert.Equal(t, merrors.ErrEmptyContent, merrors.ClassifyError(err, merrors.StageSummarize).Code)

	p = newGeminiProvider(ProviderConfig{}, nil)
	_, err = p.Complete(context.Background(), CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestGeminiResponse_MaxTokens(t *testing.T) {
	r := textResponse("partial")
	r.Candidates[0].FinishReason = genai.FinishReasonMaxTokens
	r.ModelVersion = "gemini-2.0-flash-001"

	resp, err := geminiResponse(r, DefaultGeminiModel, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "length", resp.FinishReason)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)
}
