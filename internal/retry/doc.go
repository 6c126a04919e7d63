// Package retry wraps a single fallible operation with bounded retries and
// exponential backoff.
//
// A [Policy] is stateless per call and safe for concurrent use. Each retry
// waits min(InitialDelay * Factor^(attempt-1), MaxDelay) plus a random
// jitter of up to 25% of the computed delay, so many clients retrying the
// same recovering service do not synchronize into retry storms.
//
// # Usage
//
//	policy := retry.Policy{
//	    MaxAttempts:  3,
//	    InitialDelay: 500 * time.Millisecond,
//	    MaxDelay:     5 * time.Second,
//	}
//
//	err := policy.Do(ctx, func(ctx context.Context) error {
//	    return fetchTile(ctx)
//	}, isTransient)
//
// The retryable predicate decides which errors are worth another attempt;
// errors it rejects are returned immediately. After MaxAttempts the last
// error is returned wrapped in [*ExhaustedError].
package retry
