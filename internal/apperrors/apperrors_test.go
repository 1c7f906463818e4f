package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("failed to load test: %w", New(KindNotFound, "fetch test", errors.New("status 404")))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestErrorMessage(t *testing.T) {
	err := Errorf(KindTimeout, "submit answers", "after %s", "10s")
	assert.Equal(t, "submit answers: timeout: after 10s", err.Error())
	assert.Equal(t, "permission denied", ErrPermissionDenied.Error())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(KindNetwork, "", nil)))
	assert.False(t, Retryable(New(KindNotFound, "", nil)))
	assert.False(t, Retryable(New(KindValidation, "", nil)))
	assert.True(t, Retryable(errors.New("plain")))
}
