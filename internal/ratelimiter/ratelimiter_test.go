package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	t.Run("BurstThenThrottle", func(t *testing.T) {
		limiter := New(10, 5)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow(), "request %d should fit in the burst", i)
		}
		assert.False(t, limiter.Allow())
	})

	t.Run("TokensRefill", func(t *testing.T) {
		limiter := New(100, 1)

		require.True(t, limiter.Allow())
		require.False(t, limiter.Allow())

		time.Sleep(20 * time.Millisecond)
		assert.True(t, limiter.Allow())
	})

	t.Run("ZeroRateNeverThrottles", func(t *testing.T) {
		limiter := New(0, 0)

		for i := 0; i < 10_000; i++ {
			require.True(t, limiter.Allow())
		}
	})
}

func TestWait(t *testing.T) {
	t.Run("ReturnsWhenTokenAvailable", func(t *testing.T) {
		limiter := New(1000, 1)

		require.NoError(t, limiter.Wait(context.Background()))
	})

	t.Run("HonorsCancellation", func(t *testing.T) {
		limiter := New(1, 1)
		require.True(t, limiter.Allow()) // drain the bucket

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		assert.Error(t, limiter.Wait(ctx))
	})
}

func TestTokens(t *testing.T) {
	t.Run("DrainsWithUse", func(t *testing.T) {
		limiter := New(10, 10)

		before := limiter.Tokens()
		require.True(t, limiter.Allow())
		assert.Less(t, limiter.Tokens(), before)
	})
}
