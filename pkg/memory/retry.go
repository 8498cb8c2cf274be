package memory

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxAttempts = 3

// httpStatusError marks a provider response with a non-2xx status so the
// retry policy can distinguish transient 5xx from permanent 4xx.
type httpStatusError struct {
	status int
	msg    string
}

func (e *httpStatusError) Error() string { return e.msg }

// asStatus extracts an httpStatusError from an error chain.
func asStatus(err error, target **httpStatusError) bool {
	return errors.As(err, target)
}

// isTransient reports whether an error is worth retrying: timeouts,
// 5xx responses, and connection resets. Everything else is permanent.
func isTransient(err error) bool {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.DeadlineExceeded)
}

// retryTransient runs op with exponential backoff, up to maxAttempts, for
// transient errors only. Permanent errors and context cancellation stop
// immediately.
func retryTransient[T any](ctx context.Context, op func() (T, error)) (T, error) {
	wrapped := func() (T, error) {
		out, err := op()
		if err != nil && !isTransient(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}
	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
}
