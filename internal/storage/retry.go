package storage

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs a storage write up to three times with exponential backoff.
// Errors wrapped with backoff.Permanent, such as records without an ID or
// values that fail to encode, are returned after the first attempt.
func Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, 2), ctx))
}
