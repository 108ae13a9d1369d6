package errors

// ErrorCodeInfo contains metadata about an error code.
type ErrorCodeInfo struct {
	Code            ErrorCode
	Retryable       bool
	Description     string
	SuggestedAction string
}

// ErrorCodeRegistry maps error codes to their metadata.
var ErrorCodeRegistry = map[ErrorCode]ErrorCodeInfo{
	ErrTimeout: {
		Code:            ErrTimeout,
		Retryable:       true,
		Description:     "Operation exceeded time limit",
		SuggestedAction: "Raise the limit: minutes process --timeout 5m, or minutes config set ai.timeout 2m",
	},
	ErrRateLimit: {
		Code:            ErrRateLimit,
		Retryable:       true,
		Description:     "Summarization provider rate limit exceeded",
		SuggestedAction: "Wait and retry, lower --concurrency, or add a fallback provider to ai.providers",
	},
	ErrModelUnavailable: {
		Code:            ErrModelUnavailable,
		Retryable:       true,
		Description:     "Summarization provider unreachable",
		SuggestedAction: "Check ai.base_url and network access, or run with --no-ai",
	},
	ErrAuthFailed: {
		Code:            ErrAuthFailed,
		Retryable:       false,
		Description:     "Provider rejected the API key",
		SuggestedAction: "Store a valid key: minutes auth set <provider>",
	},
	ErrContextCancelled: {
		Code:            ErrContextCancelled,
		Retryable:       false,
		Description:     "Operation cancelled by user or system",
		SuggestedAction: "Re-run the command; partial results are not saved",
	},
	ErrParseError: {
		Code:            ErrParseError,
		Retryable:       false,
		Description:     "Provider response or input file could not be parsed",
		SuggestedAction: "Run with --debug to see the raw response; the heuristic summary is used instead",
	},
	ErrEmptyContent: {
		Code:            ErrEmptyContent,
		Retryable:       false,
		Description:     "Transcript is empty or contains only noise",
		SuggestedAction: "Check the input: minutes validate <file>",
	},
	ErrContentTooLarge: {
		Code:            ErrContentTooLarge,
		Retryable:       false,
		Description:     "Chunk exceeds the provider's context window",
		SuggestedAction: "Lower --max-words so each chunk fits the model",
	},
	ErrBadConfig: {
		Code:            ErrBadConfig,
		Retryable:       false,
		Description:     "Invalid configuration or unsupported option",
		SuggestedAction: "Inspect settings: minutes config show",
	},
	ErrProcessingError: {
		Code:            ErrProcessingError,
		Retryable:       false,
		Description:     "Unclassified processing error",
		SuggestedAction: "Re-run with --debug for detailed logs",
	},
}

// IsRetryable returns true if the given error code represents a transient, retryable error.
func IsRetryable(code ErrorCode) bool {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Retryable
	}
	return false
}

// GetSuggestedAction returns the suggested action for the given error code.
func GetSuggestedAction(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.SuggestedAction
	}
	return "Re-run with --debug for detailed logs"
}

// GetDescription returns the human-readable description for the given error code.
func GetDescription(code ErrorCode) string {
	if info, ok := ErrorCodeRegistry[code]; ok {
		return info.Description
	}
	return "Unknown error"
}
