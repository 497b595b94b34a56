// Package retry runs fallible operations with a bounded number of attempts
// and linear backoff. Exhaustion is a normal outcome, not an error: callers
// get (zero, false) and decide what to skip.
package retry

import (
	"context"
	"time"

	"github.com/mesh-intelligence/pinagent/internal/logger"
)

// SleepFunc blocks for d or until ctx is done, returning ctx.Err() in the
// latter case.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy configures one retried operation.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt number to get the wait after a
	// failure: BaseDelay after the first, 2*BaseDelay after the second.
	BaseDelay time.Duration
	// Sleep overrides the wait; nil uses a real timer.
	Sleep SleepFunc
	// Logger receives one warning per failed attempt; nil disables logging.
	Logger logger.Logger
}

// Delay returns the wait after failed attempt i (zero-based).
func (p Policy) Delay(i int) time.Duration {
	return p.BaseDelay * time.Duration(i+1)
}

// Do calls op until it succeeds or MaxAttempts is reached. There is no wait
// after the final attempt. It never returns an error; ok is false when every
// attempt failed or ctx was cancelled.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error)) (result T, ok bool) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNop()
	}

	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return zero, false
		}
		v, err := op(ctx)
		if err == nil {
			return v, true
		}
		log.Warn("attempt failed",
			logger.String("operation", name),
			logger.Int("attempt", i+1),
			logger.Int("max_attempts", attempts),
			logger.Error(err),
		)
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(i)); err != nil {
			return zero, false
		}
	}

	log.Warn("operation failed after all retries",
		logger.String("operation", name),
		logger.Int("attempts", attempts),
	)
	return zero, false
}

// Sleep waits for d with context cancellation support.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
