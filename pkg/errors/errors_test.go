package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrDuplicateEnrollment, "already enrolled in CS101")
	assert.True(t, errors.Is(err, ErrDuplicateEnrollment))
	assert.False(t, errors.Is(err, ErrInvalidMarks))
	assert.Equal(t, "already enrolled in CS101", err.Error())
	assert.Equal(t, "student already enrolled in course", ErrDuplicateEnrollment.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, ErrInternal.Code, "failed to export")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, "failed to export: disk full", err.Error())
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)

	wrapped := fmt.Errorf("context: %w", Clone(ErrNotFound, "student not found"))
	assert.Equal(t, ErrNotFound.Code, FromError(wrapped).Code)
}
