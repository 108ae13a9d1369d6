package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode classifies a failure inside the minutes pipeline.
type ErrorCode string

const (
	ErrTimeout          ErrorCode = "timeout"
	ErrRateLimit        ErrorCode = "rate_limit"
	ErrModelUnavailable ErrorCode = "model_unavailable"
	ErrAuthFailed       ErrorCode = "auth_failed"
	ErrContextCancelled ErrorCode = "context_cancelled"
	ErrParseError       ErrorCode = "parse_error"
	ErrEmptyContent     ErrorCode = "empty_content"
	ErrContentTooLarge  ErrorCode = "content_too_large"
	ErrBadConfig        ErrorCode = "bad_config"
	ErrProcessingError  ErrorCode = "processing_error"
)

// Pipeline stage names.
const (
	StageLoad      = "load"
	StageParse     = "parse"
	StageChunk     = "chunk"
	StageSummarize = "summarize"
	StageExtract   = "extract"
	StageMerge     = "merge"
	StageReport    = "report"
	StageArchive   = "archive"
)

// PipelineError is a structured error for a failed pipeline stage.
type PipelineError struct {
	Code     ErrorCode
	Stage    string
	Message  string
	Duration time.Duration
	Timeout  time.Duration
	Cause    error
}

func (e *PipelineError) Error() string {
	if e.Timeout > 0 && e.Duration > 0 {
		return fmt.Sprintf("%s: %s timed out after %s (limit: %s)", e.Code, e.Stage, e.Duration.Truncate(time.Second), e.Timeout.Truncate(time.Second))
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// ClassifyError inspects err and returns a *PipelineError with the matching
// code. Unknown errors get ErrProcessingError.
func ClassifyError(err error, stage string) *PipelineError {
	if err == nil {
		return nil
	}

	var existing *PipelineError
	if errors.As(err, &existing) {
		return existing
	}

	pe := &PipelineError{
		Stage:   stage,
		Cause:   err,
		Message: err.Error(),
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		pe.Code = ErrTimeout
		pe.Message = "operation timed out"
		return pe
	case errors.Is(err, context.Canceled):
		pe.Code = ErrContextCancelled
		pe.Message = "operation cancelled"
		return pe
	case errors.Is(err, ErrEmptyTranscript):
		pe.Code = ErrEmptyContent
		return pe
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedFormat):
		pe.Code = ErrBadConfig
		return pe
	}

	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		pe.Code = ErrTimeout
	case strings.Contains(lower, "empty content") || strings.Contains(lower, "content is empty") || strings.Contains(lower, "no content"):
		pe.Code = ErrEmptyContent
	case strings.Contains(lower, "too large") || strings.Contains(lower, "too long") ||
		strings.Contains(lower, "context length") || strings.Contains(lower, "max_tokens"):
		pe.Code = ErrContentTooLarge
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") ||
		strings.Contains(lower, "too many requests") || strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted") || strings.Contains(lower, "overloaded"):
		pe.Code = ErrRateLimit
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "api key not"):
		pe.Code = ErrAuthFailed
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "unavailable") ||
		strings.Contains(lower, "503") || strings.Contains(lower, "no such host"):
		pe.Code = ErrModelUnavailable
	case strings.Contains(lower, "parse") || strings.Contains(lower, "unmarshal") || strings.Contains(lower, "invalid character"):
		pe.Code = ErrParseError
	default:
		pe.Code = ErrProcessingError
	}

	return pe
}

// IsTimeout returns true if the error is a timeout error.
func IsTimeout(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == ErrTimeout
	}
	return false
}

// IsErrorRetryable returns true if the error is likely transient.
func IsErrorRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return IsRetryable(pe.Code)
	}
	return false
}
