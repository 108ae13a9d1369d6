// Package errors provides the shared error vocabulary for minutes.
//
// Sentinel errors describe domain conditions (bad configuration, empty
// transcripts, unsupported report formats) and are checked with errors.Is.
// Stage failures inside the processing pipeline are wrapped in *PipelineError,
// see pipeline.go.
//
// Usage:
//
//	import merrors "github.com/otherjamesbrown/minutes-cli/pkg/errors"
//
//	return fmt.Errorf("%w: overlap too large", merrors.ErrInvalidConfig)
//
//	if merrors.IsUnsupportedFormat(err) {
//	    // offer the list of formats
//	}
package errors

import "errors"

// Domain errors.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation error")

	// ErrInvalidConfig indicates a configuration value that cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyTranscript indicates a transcript with no usable text.
	ErrEmptyTranscript = errors.New("empty transcript")

	// ErrUnsupportedFormat indicates an unknown report or input format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrOracleUnavailable indicates that no summarization provider could answer.
	ErrOracleUnavailable = errors.New("summarization provider unavailable")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidConfig reports whether any error in err's chain is ErrInvalidConfig.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsEmptyTranscript reports whether any error in err's chain is ErrEmptyTranscript.
func IsEmptyTranscript(err error) bool {
	return errors.Is(err, ErrEmptyTranscript)
}

// IsUnsupportedFormat reports whether any error in err's chain is ErrUnsupportedFormat.
func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}

// IsOracleUnavailable reports whether any error in err's chain is ErrOracleUnavailable.
func IsOracleUnavailable(err error) bool {
	return errors.Is(err, ErrOracleUnavailable)
}
