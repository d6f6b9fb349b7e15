package dErrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeNotFound, "policy missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches wrapped error", func(t *testing.T) {
		inner := New(CodeUnavailable, "store down")
		err := Wrap(inner, CodeInternal, "evaluation failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeUnavailable))
	})

	t.Run("matches through fmt.Errorf wrapping", func(t *testing.T) {
		err := fmt.Errorf("load policies: %w", New(CodeUnavailable, "store down"))
		assert.True(t, HasCode(err, CodeUnavailable))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("preserves cause for errors.Is", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeUnavailable, "policy store unreachable")
		require.Error(t, err)
		assert.True(t, errors.Is(err, cause))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad weight")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))
}
