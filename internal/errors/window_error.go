// Package errors provides standardized error types for window evaluation.
// This package defines WindowError for consistent error handling across
// all public APIs, with operation context and error wrapping support.
package errors

import (
	"fmt"
)

// WindowError represents standardized errors across all window-evaluation operations
type WindowError struct {
	Op      string // Operation name (e.g., "Classify", "BoundOrdering", "Evaluate")
	Detail  string // Offending expression or frame rendering, if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *WindowError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed for %q: %s", e.Op, e.Detail, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
}

// Unwrap returns the underlying cause for error wrapping support
func (e *WindowError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is()
func (e *WindowError) Is(target error) bool {
	if we, ok := target.(*WindowError); ok {
		return e.Op == we.Op && e.Detail == we.Detail && e.Message == we.Message
	}
	return false
}

// Common error constructors for consistent error creation

// NewUnsupportedBoundError creates an error for frame bounds this evaluator cannot build
func NewUnsupportedBoundError(op, bound string) *WindowError {
	return &WindowError{
		Op:      op,
		Detail:  bound,
		Message: "unsupported frame bound",
	}
}

// NewUnsupportedFrameError creates an error for frame shapes with no matching evaluator
func NewUnsupportedFrameError(op, frame string) *WindowError {
	return &WindowError{
		Op:      op,
		Detail:  frame,
		Message: "no frame evaluator for this frame shape",
	}
}

// NewConfigurationError creates an error for invalid operator configuration
func NewConfigurationError(op, message string) *WindowError {
	return &WindowError{
		Op:      op,
		Message: message,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types
func NewUnsupportedTypeError(op, typeName string) *WindowError {
	return &WindowError{
		Op:      op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
	}
}

// NewColumnNotFoundError creates an error for references to non-existent columns
func NewColumnNotFoundError(op, column string) *WindowError {
	return &WindowError{
		Op:      op,
		Detail:  column,
		Message: "column does not exist",
	}
}

// NewInternalError creates an error for internal operation failures
func NewInternalError(op string, cause error) *WindowError {
	return &WindowError{
		Op:      op,
		Message: "internal error occurred",
		Cause:   cause,
	}
}

// Predefined error variables for common cases
var (
	// ErrNoMoreRows indicates Next was called with no buffered row and no lookahead
	ErrNoMoreRows = &WindowError{
		Op:      "Next",
		Message: "no more rows: caller must check HasNext before Next",
	}

	// ErrMultiKeyRangeOffset indicates a RANGE offset bound over multiple ORDER BY keys
	ErrMultiKeyRangeOffset = &WindowError{
		Op:      "BoundOrdering",
		Message: "RANGE offset frames require exactly one ORDER BY expression",
	}

	// ErrMismatchedWindowSpec indicates window expressions with conflicting
	// partitioning or ordering handed to one operator
	ErrMismatchedWindowSpec = &WindowError{
		Op:      "Classify",
		Message: "all window expressions of one operator must share PARTITION BY and ORDER BY",
	}
)
