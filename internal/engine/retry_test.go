package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, func(error) bool { return true })

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffFatalStopsImmediately(t *testing.T) {
	attempts := 0
	fatal := errors.New("fatal")
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return fatal
	}, func(error) bool { return false })

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoffExhaustionEscalates(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), fastPolicy(), func() error {
		attempts++
		return errors.New("still broken")
	}, func(error) bool { return true })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries (3) exceeded")
	assert.Equal(t, 4, attempts)
}

func TestRetryWithBackoffRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(2 * time.Millisecond)
		cancel()
	}()

	err := RetryWithBackoff(ctx, &RetryPolicy{MaxRetries: 100, BaseDelay: 50 * time.Millisecond, MaxDelay: time.Second}, func() error {
		attempts++
		return errors.New("transient")
	}, func(error) bool { return true })

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelayCapped(t *testing.T) {
	base, max := time.Second, 5*time.Second
	for attempt := 0; attempt < 20; attempt++ {
		d := backoffDelay(attempt, base, max)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}
