package ai

import (
	"errors"
	"fmt"
)

// ErrParseFailure marks model output that could not be parsed as the
// expected structured shape. Non-retryable; the generator moves on to
// the next backend instead.
var ErrParseFailure = errors.New("model output is not a well-formed variant array")

// GenerationError means every backend was exhausted. The primary
// backend's error is preserved as the cause.
type GenerationError struct {
	Cause    error
	Backends []string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("caption generation failed across %d backends: %v", len(e.Backends), e.Cause)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
