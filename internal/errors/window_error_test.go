package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gtk96/windmill/internal/errors"
)

func TestWindowErrorFormatting(t *testing.T) {
	err := errors.NewUnsupportedBoundError("BoundOrdering", "lit(x) PRECEDING")
	assert.Equal(t, `BoundOrdering failed for "lit(x) PRECEDING": unsupported frame bound`, err.Error())

	err = errors.NewConfigurationError("Operator", "no window expressions")
	assert.Equal(t, "Operator failed: no window expressions", err.Error())
}

func TestWindowErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := errors.NewInternalError("Spill", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestWindowErrorIs(t *testing.T) {
	err := fmt.Errorf("evaluating: %w", errors.ErrMultiKeyRangeOffset)
	assert.ErrorIs(t, err, errors.ErrMultiKeyRangeOffset)
	assert.NotErrorIs(t, err, errors.ErrNoMoreRows)

	// equality is structural, not pointer-based
	dup := errors.NewColumnNotFoundError("Projection", "salary")
	assert.ErrorIs(t, errors.NewColumnNotFoundError("Projection", "salary"), dup)
	assert.NotErrorIs(t, errors.NewColumnNotFoundError("Projection", "age"), dup)
}
