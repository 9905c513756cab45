// Package retry provides backoff and retry logic for transient checkpoint failures.
//
// Only errors typed as retryable by package errors are retried by default; decode
// failures and context cancellation stop immediately.
//
//	err := retry.Do(func() error {
//		return store.Save(id, rec)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Context:     ctx,
//		Logger:      log,
//	})
package retry
