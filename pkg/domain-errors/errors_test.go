package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct code", func(t *testing.T) {
		err := New(CodeNotFound, "no such parcel")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("matches wrapped code", func(t *testing.T) {
		inner := New(CodeDuplicateLandID, "land id taken")
		outer := Wrap(inner, CodeValidation, "request rejected")
		assert.True(t, HasCode(outer, CodeValidation))
		assert.True(t, HasCode(outer, CodeDuplicateLandID))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("command failed: %w", New(CodeSameOwner, "already the owner"))
		assert.True(t, HasCode(err, CodeSameOwner))
	})

	t.Run("uncoded error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	t.Run("returns outermost code", func(t *testing.T) {
		err := Wrap(New(CodeNotFound, "inner"), CodeInternal, "outer")
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	})
}

func TestErrorFormatting(t *testing.T) {
	err := Wrap(errors.New("pq: connection refused"), CodeInternal, "store unavailable")
	require.Contains(t, err.Error(), "internal_error")
	require.Contains(t, err.Error(), "connection refused")
	assert.ErrorContains(t, errors.Unwrap(err), "pq")
}
