package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiterDisabled(t *testing.T) {
	assert.Nil(t, NewRateLimiter(0, 4))
	assert.Nil(t, NewRateLimiter(-1, 4))

	var rl *RateLimiter
	assert.NoError(t, rl.Wait(context.Background()))
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	require.NotNil(t, rl)

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiterContextDeadline(t *testing.T) {
	rl := NewRateLimiter(0.1, 0)
	require.NotNil(t, rl)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	require.Error(t, err)

	var limitErr *RateLimitError
	require.True(t, errors.As(err, &limitErr))
	assert.InDelta(t, 0.1, limitErr.Limit, 0.0001)
}

func TestRateLimiterCancelled(t *testing.T) {
	rl := NewRateLimiter(0.1, 1)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
