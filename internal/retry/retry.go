// Package retry implements the bounded exponential backoff shared by the
// upload and commit phases of a transfer.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"albumsync/internal/logging"
	"albumsync/internal/services"
)

// Defaults used when a Policy field is left zero.
const (
	DefaultMaxAttempts = 5
	DefaultUnit        = time.Second
)

// ErrExhausted reports that every attempt failed with a retryable error.
// It also matches services.ErrTransient.
var ErrExhausted = fmt.Errorf("%w: retry budget exhausted", services.ErrTransient)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	// Unit scales the schedule: attempt k waits 2^k units plus up to one unit of jitter.
	Unit time.Duration
	// Jitter returns a value in [0,1). Defaults to math/rand.
	Jitter func() float64
	// Sleep waits for d or until ctx is done. Defaults to SleepWithContext.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// Default returns the standard five-attempt policy with a one second unit.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Unit: DefaultUnit}
}

// Delay returns the wait after the given 1-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	unit := p.Unit
	if unit <= 0 {
		unit = DefaultUnit
	}
	jitter := p.Jitter
	if jitter == nil {
		jitter = rand.Float64
	}
	base := unit * time.Duration(1<<uint(attempt))
	return base + time.Duration(jitter()*float64(unit))
}

// Do runs op until it succeeds, returns an error retryable rejects, or the
// attempt budget is spent. Every retryable failure is followed by Delay(k),
// including the last one, so callers never immediately hit a rate limit
// that just exhausted the budget.
func (p Policy) Do(ctx context.Context, name string, retryable func(error) bool, op func(context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || retryable == nil || !retryable(lastErr) {
			return lastErr
		}
		delay := p.Delay(attempt)
		logger.Warn("request failed, backing off",
			logging.String("operation", name),
			logging.Int(logging.FieldAttempt, attempt),
			logging.Int("max_attempts", maxAttempts),
			logging.Duration("backoff", delay),
			logging.Error(lastErr),
			logging.String(logging.FieldEventType, "retry_backoff"),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", name, ErrExhausted, maxAttempts, lastErr)
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
