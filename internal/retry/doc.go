// Package retry repeats transient failures with exponential backoff.
//
// PostgreSQLErrorClassifier covers connection attempts and
// HTTPErrorClassifier covers sales API requests (429, 5xx, network errors).
// Errors implementing DelayHinter, such as a throttled API response with
// Retry-After, override the backoff delay.
//
//	executor := retry.NewExecutor(retry.NewHTTPErrorClassifier(), retry.NewExponentialBackoff(3))
//	records, err := retry.Do(ctx, executor, func(ctx context.Context) ([]ilsetl.Record, error) {
//	    return fetchPage(ctx)
//	})
package retry
