package resilience

import (
	"context"
	"time"
)

// Caller runs a function through an optional breaker, retrying failures with
// exponential backoff.
type Caller struct {
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	// Timeout bounds each attempt when positive.
	Timeout time.Duration
}

// Do calls fn until it succeeds, the attempts run out, the breaker opens or
// ctx is done. It returns the last error seen.
func (c Caller) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(c.MaxAttempts, 1)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.Breaker != nil && !c.Breaker.Allow(ctx) {
			if lastErr == nil {
				lastErr = ErrOpenCircuit
			}
			return lastErr
		}
		lastErr = c.once(ctx, fn)
		if c.Breaker != nil {
			c.Breaker.Report(ctx, lastErr == nil)
		}
		if lastErr == nil || attempt == attempts {
			return lastErr
		}
		timer := time.NewTimer(Backoff(c.BaseBackoff, attempt, c.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (c Caller) once(ctx context.Context, fn func(context.Context) error) error {
	if c.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	return fn(callCtx)
}
