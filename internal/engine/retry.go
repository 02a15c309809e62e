package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/karpella/ec2console/internal/aws/ec2"
)

// maxRetries bounds every provider call to four attempts total.
const maxRetries = 3

func newBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.RandomizationFactor = 0.1
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

func retryable(err error) bool {
	var apiErr *ec2.APIError
	return errors.As(err, &apiErr) && apiErr.Retryable
}

// withRetry runs fn under the engine retry policy. Failures the client
// classified as non-retryable abort on the first attempt.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	op := func() (T, error) {
		out, err := fn()
		if err != nil && !retryable(err) {
			var zero T
			return zero, backoff.Permanent(err)
		}
		return out, err
	}
	return backoff.RetryWithData(op, newBackOff(ctx))
}

// withRetryErr is withRetry for operations with no result.
func withRetryErr(ctx context.Context, fn func() error) error {
	_, err := withRetry(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
