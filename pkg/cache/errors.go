package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork is returned when the Redis server cannot be reached or a command
// against it fails. Callers treat it as a cache miss and solve again.
var ErrNetwork = errors.New("cache backend unreachable")

// RetryableError marks an error as transient.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. It returns nil for nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with [Retryable].
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff bounds the attempts made to reach a cache backend that is still
// coming up, such as a Redis container started next to "labeltower serve".
type Backoff struct {
	// Attempts is the total number of calls, the first one included.
	Attempts int
	// Delay is the wait before the second call. It doubles after each call.
	Delay time.Duration
}

// ConnectBackoff is used by [NewRedisCache] for its initial PING.
var ConnectBackoff = Backoff{Attempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, fails with an error not marked
// [Retryable], or the attempts run out, and returns the last error.
func (b Backoff) Retry(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
