// Package utils holds small helpers with no better home.
package utils

import (
	"context"
	"time"
)

// WaitFor sleeps for d or until the context is canceled, whichever comes
// first. Returns the context error on cancellation so callers can stop a
// retry loop promptly.
func WaitFor(ctx context.Context, d time.Duration) error {
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
