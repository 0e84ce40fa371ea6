// Package errs defines the error kinds surfaced by the Clearpath engine.
//
// Every failure that crosses a component boundary is wrapped into one of
// the kinds below so that callers (the pipeline, the HTTP layer, the CLI)
// can classify it with errors.Is without inspecting message text.
package errs

import (
	"errors"
	"fmt"
)

// Kind sentinels. Compare with errors.Is.
var (
	// ErrValidation covers caller mistakes: empty queries, oversized
	// uploads, PDFs rejected before processing.
	ErrValidation = errors.New("validation error")

	// ErrNoExtractableText is a validation failure specific to scanned
	// image-only PDFs. It also matches ErrValidation.
	ErrNoExtractableText = fmt.Errorf("%w: no extractable text", ErrValidation)

	// ErrDimensionMismatch means the vector index dimension differs from
	// the configured embedding dimension. Fatal at startup; aborts an add.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUpstreamUnavailable means the generation API stayed unreachable
	// after all retries. Recoverable: the caller may retry later.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrInternal covers everything unexpected: PDF reader crashes, disk
	// I/O failures, malformed index files.
	ErrInternal = errors.New("internal error")
)

// Validation builds a validation error with a user-visible message
// formatted from format and args.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// DimensionMismatch reports an expected/actual dimension pair.
func DimensionMismatch(expected, actual int) error {
	return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, expected, actual)
}

// Upstream wraps the last underlying cause after retries are exhausted.
func Upstream(cause error) error {
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, cause)
}

// Internal wraps an unexpected failure.
func Internal(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, cause)
}
