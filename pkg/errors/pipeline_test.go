package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestClassifyError_Nil(t *testing.T) {
	if result := ClassifyError(nil, StageSummarize); result != nil {
		t.Errorf("Expected nil for nil error, got %v", result)
	}
}

func TestClassifyError_DeadlineExceeded(t *testing.T) {
	err := fmt.Errorf("anthropic: %w", context.DeadlineExceeded)
	result := ClassifyError(err, StageSummarize)

	if result == nil {
		t.Fatal("Expected non-nil PipelineError")
	}
	if result.Code != ErrTimeout {
		t.Errorf("Expected ErrTimeout, got %s", result.Code)
	}
	if result.Stage != StageSummarize {
		t.Errorf("Expected stage %q, got %s", StageSummarize, result.Stage)
	}
	if result.Message != "operation timed out" {
		t.Errorf("Expected 'operation timed out', got %s", result.Message)
	}
	if !errors.Is(result, context.DeadlineExceeded) {
		t.Error("Expected cause chain to include context.DeadlineExceeded")
	}
}

func TestClassifyError_Canceled(t *testing.T) {
	result := ClassifyError(context.Canceled, StageSummarize)
	if result.Code != ErrContextCancelled {
		t.Errorf("Expected ErrContextCancelled, got %s", result.Code)
	}
}

func TestClassifyError_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"empty transcript", fmt.Errorf("parse: %w", ErrEmptyTranscript), ErrEmptyContent},
		{"invalid config", fmt.Errorf("%w: bad overlap", ErrInvalidConfig), ErrBadConfig},
		{"unsupported format", fmt.Errorf("%w: pptx", ErrUnsupportedFormat), ErrBadConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err, StageParse).Code; got != tt.want {
				t.Errorf("ClassifyError() code = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyError_MessagePatterns(t *testing.T) {
	tests := []struct {
		name     string
		errorMsg string
		want     ErrorCode
	}{
		{"rate limit exact", "rate limit exceeded", ErrRateLimit},
		{"429 status", "HTTP 429: slow down", ErrRateLimit},
		{"too many requests", "too many requests", ErrRateLimit},
		{"resource exhausted", "RESOURCE_EXHAUSTED: quota", ErrRateLimit},
		{"overloaded", "overloaded_error", ErrRateLimit},
		{"unauthorized", "HTTP 401: unauthorized", ErrAuthFailed},
		{"invalid key", "invalid api key provided", ErrAuthFailed},
		{"connection refused", "dial tcp: connection refused", ErrModelUnavailable},
		{"service unavailable", "HTTP 503 Service Unavailable", ErrModelUnavailable},
		{"request timeout", "request timeout", ErrTimeout},
		{"too long", "prompt is too long", ErrContentTooLarge},
		{"parse failure", "parse response: invalid character 'x'", ErrParseError},
		{"no content", "no content in response", ErrEmptyContent},
		{"unknown", "something strange happened", ErrProcessingError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(errors.New(tt.errorMsg), StageSummarize)
			if result.Code != tt.want {
				t.Errorf("ClassifyError(%q) code = %s, want %s", tt.errorMsg, result.Code, tt.want)
			}
			if result.Message != tt.errorMsg {
				t.Errorf("Expected message %q, got %q", tt.errorMsg, result.Message)
			}
		})
	}
}

func TestClassifyError_KeepsExistingPipelineError(t *testing.T) {
	orig := &PipelineError{Code: ErrRateLimit, Stage: StageSummarize, Message: "slow down"}
	wrapped := fmt.Errorf("chunk 3: %w", orig)

	if got := ClassifyError(wrapped, StageMerge); got != orig {
		t.Errorf("Expected the original PipelineError to be returned, got %v", got)
	}
}

func TestPipelineError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		want string
	}{
		{
			name: "with stage",
			err:  &PipelineError{Code: ErrParseError, Stage: StageParse, Message: "bad vtt"},
			want: "parse_error: parse: bad vtt",
		},
		{
			name: "without stage",
			err:  &PipelineError{Code: ErrProcessingError, Message: "boom"},
			want: "processing_error: boom",
		},
		{
			name: "timeout with limits",
			err: &PipelineError{
				Code:     ErrTimeout,
				Stage:    StageSummarize,
				Duration: 95 * time.Second,
				Timeout:  90 * time.Second,
			},
			want: "timeout: summarize timed out after 1m35s (limit: 1m30s)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTimeoutAndRetryable(t *testing.T) {
	timeout := ClassifyError(context.DeadlineExceeded, StageSummarize)
	if !IsTimeout(timeout) {
		t.Error("Expected IsTimeout to be true")
	}
	if !IsErrorRetryable(fmt.Errorf("wrapped: %w", timeout)) {
		t.Error("Expected timeout to be retryable")
	}

	parse := ClassifyError(errors.New("unmarshal failed"), StageSummarize)
	if IsErrorRetryable(parse) {
		t.Error("Expected parse error not to be retryable")
	}
	if IsErrorRetryable(errors.New("plain")) {
		t.Error("Expected plain error not to be retryable")
	}
}
