// Package fetch downloads map tiles over HTTP with failure isolation.
//
// [Client] is a thin wrapper around net/http tuned for many small
// concurrent requests: pooled connections, a short per-request timeout,
// and a strict split of failures into transient and permanent.
//
//   - Transient ([*TransientError]): timeouts, connection errors, 429 and
//     5xx responses. Worth retrying.
//   - Permanent ([*PermanentError]): other 4xx responses and empty bodies.
//     Retrying will not help.
//
// [Fetcher] composes the client with a circuit breaker and a retry policy
// for one tile service:
//
//	fetcher := fetch.NewFetcher(client, service, registry, retry.Default(), provider, logger)
//	rec, err := fetcher.Fetch(ctx, tile.Key{Z: 12, X: 654, Y: 1583})
//
// The breaker wraps the raw download and the retry policy wraps the breaker
// call, so retries only happen while the circuit admits requests; once the
// circuit opens, the remaining attempts for that call are skipped and the
// caller sees [*breaker.OpenError].
package fetch
