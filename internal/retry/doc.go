// Package retry provides automatic retry logic with exponential backoff for
// the transient failures of a load's two network boundaries: connecting to
// the destination database and downloading the source file.
//
// Row writes are never retried; a failed append ends the run.
//
// # Example Usage
//
//	executor := retry.NewExecutor(
//	    retry.NewHTTPErrorClassifier(),
//	    retry.NewExponentialBackoff(3),
//	)
//	resp, err := retry.Do(ctx, executor, func(ctx context.Context) (*http.Response, error) {
//	    return get(ctx, url)
//	})
//
// # Error Classification
//
// PostgreSQLErrorClassifier recognizes transient PostgreSQL error classes
// (08, 53, 57 and friends). HTTPErrorClassifier treats 5xx and 429
// responses as transient. Both treat refused, reset and timed-out network
// operations as transient.
//
// # Thread Safety
//
// Executor instances are safe for concurrent use. Use WithOnRetry() to create
// independent configurations per goroutine.
package retry
