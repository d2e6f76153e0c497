// Package retry provides a bounded retry mechanism with a fixed inter-attempt
// delay, used by the execution pipeline's extraction stage.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultDelay       = 10 * time.Second
)

// Config represents retry configuration.
type Config struct {
	MaxAttempts int           // Maximum number of attempts (default: 3)
	Delay       time.Duration // Fixed delay between attempts (default: 10s)
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Do returns it immediately without further
// attempts. Use for failures that retrying cannot fix, such as malformed
// input.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do executes fn up to cfg.MaxAttempts times, waiting cfg.Delay between
// attempts. fn receives the 1-based attempt number. A nil return stops the
// loop; an error wrapped with Permanent is returned unwrapped without
// retrying. Context cancellation is checked before each wait.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}

		lastErr = err

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-time.After(cfg.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
