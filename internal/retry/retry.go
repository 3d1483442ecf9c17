// Package retry implements the bounded backoff policy applied to
// transient metadata operations. The policy itself is stateless; callers
// evaluate it through Do.
package retry

import (
	"context"
	"fmt"
	"time"
)

// RetryableError marks a transient failure whose retry budget is exhausted.
// It carries the last attempt's failure message.
type RetryableError struct {
	Attempts int
	Last     error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryableError) Unwrap() error { return e.Last }

// Policy describes a bounded retry schedule. Delay before attempt n+1 is
// BaseDelay * n when Multiplier is 1 (linear backoff); a Multiplier above 1
// compounds geometrically instead.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// Default is the schedule used by the metadata pipeline.
var Default = Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 1}

// Delay returns the pause after the given 1-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if p.Multiplier > 1 {
		d := p.BaseDelay
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * p.Multiplier)
		}
		return d
	}
	return p.BaseDelay * time.Duration(attempt)
}

// Do runs op up to MaxAttempts times, sleeping the policy delay between
// attempts. The first success returns immediately. OnFailure, when set, is
// invoked with the 1-based attempt number after each failed attempt.
func (p Policy) Do(ctx context.Context, op func() error, onFailure func(attempt int, err error)) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if onFailure != nil {
			onFailure(attempt, lastErr)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt)):
		}
	}
	return &RetryableError{Attempts: attempts, Last: lastErr}
}
