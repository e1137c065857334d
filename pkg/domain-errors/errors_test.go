package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeInsufficientCredits, "not enough credits")
		assert.True(t, HasCode(err, CodeInsufficientCredits))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("wrapped by fmt.Errorf keeps code", func(t *testing.T) {
		err := fmt.Errorf("draw: %w", New(CodeNoCasesAvailable, "pool exhausted"))
		assert.True(t, HasCode(err, CodeNoCasesAvailable))
		assert.Equal(t, CodeNoCasesAvailable, CodeOf(err))
	})

	t.Run("plain error maps to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, Is(errors.New("boom"), CodeNotFound))
	})
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "profile store unavailable")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "profile store unavailable: connection refused", err.Error())
}
