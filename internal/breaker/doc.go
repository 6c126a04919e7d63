// Package breaker implements the circuit breaker pattern for failing
// upstream tile services.
//
// A [Breaker] guards one service and stops issuing requests to it after a
// run of consecutive failures, so a dead or rate-limiting tile server does
// not soak up worker time and retry budgets. A [Registry] hands out one
// independent breaker per service name.
//
// # States
//
//   - Closed: normal operation, calls pass through. Consecutive failures
//     are counted; reaching the threshold opens the circuit.
//   - Open: calls fail immediately with [*OpenError], no request is made.
//     After the recovery timeout the breaker moves to HalfOpen.
//   - HalfOpen: exactly one trial call is admitted. Success closes the
//     circuit, failure reopens it.
//
// The breaker never blocks a caller: an open circuit is reported
// synchronously, and the internal lock is held only for state transitions,
// never across the guarded call.
package breaker
