package breaker

import (
	"fmt"
	"sync"
	"time"
)

// Defaults match the tile-server tuning of the seeding tool.
const (
	DefaultFailureThreshold = 10
	DefaultRecoveryTimeout  = 30 * time.Second
)

// State is the current circuit state of a breaker.
type State int

const (
	// StateClosed indicates normal operation.
	StateClosed State = iota
	// StateOpen indicates the breaker is rejecting calls.
	StateOpen
	// StateHalfOpen indicates a single trial call is permitted.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// OpenError is returned when a call is rejected because the circuit is
// open. No request has been made.
type OpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("breaker: circuit open for %s, retry in %s", e.Service, e.RetryAfter.Round(time.Second))
}

// Options configures a Breaker. Zero values are replaced with defaults.
type Options struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long an open circuit waits before admitting
	// a trial call.
	RecoveryTimeout time.Duration
}

func (o *Options) fillDefaults() {
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = DefaultFailureThreshold
	}
	if o.RecoveryTimeout <= 0 {
		o.RecoveryTimeout = DefaultRecoveryTimeout
	}
}

// Breaker is a circuit breaker for a single upstream service. It is safe
// for concurrent use.
type Breaker struct {
	service string
	opts    Options
	now     func() time.Time

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// New creates a closed breaker for the named service.
func New(service string, opts Options) *Breaker {
	opts.fillDefaults()
	return &Breaker{
		service: service,
		opts:    opts,
		now:     time.Now,
	}
}

// Execute runs fn under the breaker. If the circuit is open the call is
// rejected synchronously with [*OpenError] and fn is not invoked. The
// breaker lock is not held while fn runs.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn()
	b.record(err == nil)
	return err
}

// State returns the current circuit state, applying any pending
// open-to-half-open transition.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeRecover()
	return b.state
}

// allow decides whether a call may proceed, transitioning state as needed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeRecover()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return b.openError()
		}
		b.trialInFlight = true
		return nil
	default:
		return b.openError()
	}
}

// record updates state after a call finished.
func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.trialInFlight = false
		if success {
			b.state = StateClosed
			b.failures = 0
		} else {
			b.state = StateOpen
			b.openedAt = b.now()
		}
		return
	}

	if success {
		b.failures = 0
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.opts.FailureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// maybeRecover moves an open circuit to half-open once the recovery
// timeout has elapsed. Caller must hold b.mu.
func (b *Breaker) maybeRecover() {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.RecoveryTimeout {
		b.state = StateHalfOpen
		b.trialInFlight = false
	}
}

// openError builds the rejection error. Caller must hold b.mu.
func (b *Breaker) openError() error {
	retryAfter := b.opts.RecoveryTimeout - b.now().Sub(b.openedAt)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &OpenError{Service: b.service, RetryAfter: retryAfter}
}

// Registry hands out one breaker per service name. Breakers for different
// services are fully independent.
type Registry struct {
	opts Options

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry whose breakers share opts.
func NewRegistry(opts Options) *Registry {
	opts.fillDefaults()
	return &Registry{
		opts:     opts,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for service, creating it on first use.
func (r *Registry) Get(service string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[service]
	if !ok {
		b = New(service, r.opts)
		r.breakers[service] = b
	}
	return b
}
