package lib

import (
	"context"
	"fmt"
	"time"
)

// Retry calls f until it returns no error, attempts are exhausted or ctx is cancelled.
// f receives zero-based attempt number, interval is the delay between attempts
func Retry(ctx context.Context, attempts int, interval time.Duration, f func(attempt int) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = f(i)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
