package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter throttles inbound datagrams with a token bucket. Each
// request costs one token; tokens refill at the sustained rate and the
// burst size caps how far a quiet period can be banked.
//
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained with the
// given burst capacity. A rate of 0 disables limiting entirely.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		// rate.Inf has awkward interactions with burst, so use a
		// value no UDP socket will ever reach.
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether one more request fits under the limit,
// consuming a token if so. It never blocks; over-limit datagrams are
// dropped so the client's own retry logic takes over, which is the only
// backpressure UDP has.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the tokens currently in the bucket, for logging.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
