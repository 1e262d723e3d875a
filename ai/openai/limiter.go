package openai

import (
	"context"

	"golang.org/x/time/rate"
)

// newLimiter returns a limiter allowing rps requests per second, or nil
// when rps is zero.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// wait blocks until limiter admits one request. A nil limiter never blocks.
func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
