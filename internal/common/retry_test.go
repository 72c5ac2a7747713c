package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestWithRetry_SucceedsAfterPersistenceFailures(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: database is locked", ErrPersistence)
		}
		return nil
	}, fastRetry(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return fmt.Errorf("account: %w", ErrNotFound)
	}, fastRetry(5))

	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func() error {
		calls++
		return ErrPersistence
	}, fastRetry(2))

	require.ErrorIs(t, err, ErrMaxRetries)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, func() error {
		return ErrPersistence
	}, RetryOptions{MaxAttempts: 3, InitialDelay: time.Second})

	assert.True(t, errors.Is(err, context.Canceled))
}
