// Package retry provides the bounded retry policy applied around pipeline
// stages and render submissions.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy bounds a retry loop: total attempt budget, base delay, and whether
// the delay grows linearly with the attempt number.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Backoff  bool
}

// Do invokes fn until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. The last error is wrapped with the attempt count.
func Do(ctx context.Context, p Policy, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			return fmt.Errorf("failed after %d attempts: %w", attempts, err)
		}

		delay := p.Delay
		if p.Backoff {
			delay = time.Duration(attempt) * p.Delay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil
}
