package service

import (
	"context"
	"errors"
	"time"

	"bvpscraper/internal/scrapers/boatrace"

	"github.com/cenkalti/backoff/v4"
)

// retry runs op up to opts.RetryAttempts times with a fixed wait in between.
// Only transport errors are retried, anything else ends the retries at once.
// It returns how many attempts were made.
func retry[T any](
	ctx context.Context,
	opts Options,
	notify func(err error, wait time.Duration),
	op func(ctx context.Context) (T, error),
) (T, int, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(opts.RetryWait),
			uint64(opts.RetryAttempts-1),
		),
		ctx,
	)

	attempts := 0
	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempts++
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		var transportErr *boatrace.TransportError
		if !errors.As(err, &transportErr) {
			return value, backoff.Permanent(err)
		}
		return value, err
	}, policy, notify)

	return result, attempts, err
}
