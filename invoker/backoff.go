package invoker

import (
	"context"
	"time"
)

// Backoff is the retry policy for transport failures. The delay before the
// next attempt grows linearly: Base * attempt.
type Backoff struct {
	MaxAttempts int
	Base        time.Duration
}

// DefaultBackoff makes three attempts, waiting 2s then 4s between them.
var DefaultBackoff = Backoff{MaxAttempts: 3, Base: 2 * time.Second}

// Delay returns the wait after the given (1-based) failed attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return b.Base * time.Duration(attempt)
}

// Attempts returns MaxAttempts, never less than one.
func (b Backoff) Attempts() int {
	if b.MaxAttempts < 1 {
		return 1
	}
	return b.MaxAttempts
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
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
