package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := NotFound("job not found")
		assert.Equal(t, "job not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("no rows in result set")
		err := Wrap(cause, ErrCodeNotFound, "job not found")
		assert.Equal(t, "job not found: no rows in result set", err.Error())
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "query failed")
	require.ErrorIs(t, err, cause)
}

func TestWrap_NilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", NotFound("x"), IsNotFound},
		{"validation", Validation("x"), IsValidation},
		{"unauthorized", Unauthorized("x"), IsUnauthorized},
		{"invalid transition", InvalidTransition("x"), IsInvalidTransition},
		{"conflict", Conflict("x"), IsConflict},
		{"internal", Internal("x"), IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.False(t, tt.check(stderrors.New("plain")))
		})
	}
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	inner := InvalidTransition("job already completed")
	outer := fmt.Errorf("report completion: %w", inner)

	assert.True(t, IsInvalidTransition(outer))
	assert.False(t, IsNotFound(outer))
	assert.Equal(t, ErrCodeInvalidTransition, GetCode(outer))
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
}

func TestValidationField(t *testing.T) {
	err := ValidationField("requested_model", "unrecognized model")
	assert.Equal(t, "requested_model", GetField(err))
	assert.Equal(t, "", GetField(stderrors.New("plain")))
}
