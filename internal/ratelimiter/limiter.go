package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// SendPacer enforces a steady-state outbound email rate with a token bucket.
// Burst is set equal to the rate so no extra burst capacity accumulates
// beyond the configured per-second maximum.
type SendPacer struct {
	limiter *rate.Limiter
}

// New creates a SendPacer allowing ratePerSec sends per second.
func New(ratePerSec int) *SendPacer {
	return &SendPacer{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token. Called immediately before
// each provider send. Returns a non-nil error only if ctx is cancelled
// while waiting.
func (p *SendPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
