package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeCapExceeded, "over the cap")
		assert.True(t, HasCode(err, CodeCapExceeded))
		assert.False(t, HasCode(err, CodeUnauthorized))
	})

	t.Run("wrapped code is visible through the chain", func(t *testing.T) {
		inner := New(CodeUnknownOrExpiredLock, "no such lock")
		outer := Wrap(inner, CodeInternal, "lock lookup failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeUnknownOrExpiredLock))
	})

	t.Run("fmt wrapping preserves the code", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodePastTimestamp, "too late"))
		assert.True(t, HasCode(err, CodePastTimestamp))
	})

	t.Run("nil and foreign errors", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	t.Run("nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("cause is unwrappable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "store unavailable")
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "store unavailable")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeConflict, CodeOf(New(CodeConflict, "dup")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
