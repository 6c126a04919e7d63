package breaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream failure")

// testBreaker returns a breaker with a controllable clock.
func testBreaker(threshold int, recovery time.Duration) (*Breaker, *time.Time) {
	now := time.Unix(1000, 0)
	b := New("test-service", Options{FailureThreshold: threshold, RecoveryTimeout: recovery})
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(b *Breaker) error {
	return b.Execute(func() error { return errUpstream })
}

func succeed(b *Breaker) error {
	return b.Execute(func() error { return nil })
}

func TestOpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(5, 30*time.Second)

	for i := 0; i < 5; i++ {
		if b.State() != StateClosed {
			t.Fatalf("state before failure %d = %v, want closed", i, b.State())
		}
		fail(b)
	}

	if b.State() != StateOpen {
		t.Fatalf("state after threshold = %v, want open", b.State())
	}
}

func TestOpenRejectsWithoutInvoking(t *testing.T) {
	b, _ := testBreaker(5, 30*time.Second)
	for i := 0; i < 5; i++ {
		fail(b)
	}

	calls := 0
	for i := 0; i < 20; i++ {
		err := b.Execute(func() error {
			calls++
			return nil
		})
		var open *OpenError
		if !errors.As(err, &open) {
			t.Fatalf("request %d: expected OpenError, got %v", i, err)
		}
		if open.Service != "test-service" {
			t.Errorf("OpenError.Service = %q, want %q", open.Service, "test-service")
		}
	}

	if calls != 0 {
		t.Errorf("wrapped operation invoked %d times during open state, want 0", calls)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := testBreaker(3, 30*time.Second)

	fail(b)
	fail(b)
	succeed(b)
	fail(b)
	fail(b)

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed (counter reset by success)", b.State())
	}
}

func TestHalfOpenAfterRecoveryTimeout(t *testing.T) {
	b, now := testBreaker(3, 30*time.Second)
	for i := 0; i < 3; i++ {
		fail(b)
	}

	*now = now.Add(29 * time.Second)
	if b.State() != StateOpen {
		t.Fatalf("state before timeout = %v, want open", b.State())
	}

	*now = now.Add(time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("state after timeout = %v, want half-open", b.State())
	}
}

func TestHalfOpenAdmitsSingleTrial(t *testing.T) {
	b, now := testBreaker(3, 30*time.Second)
	for i := 0; i < 3; i++ {
		fail(b)
	}
	*now = now.Add(30 * time.Second)

	// First trial holds the slot open; a concurrent second call must be
	// rejected while the trial is in flight.
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- b.Execute(func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started
	err := b.Execute(func() error { return nil })
	var open *OpenError
	if !errors.As(err, &open) {
		t.Errorf("second concurrent call: expected OpenError, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call: %v", err)
	}

	if b.State() != StateClosed {
		t.Errorf("state after successful trial = %v, want closed", b.State())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b, now := testBreaker(3, 30*time.Second)
	for i := 0; i < 3; i++ {
		fail(b)
	}

	*now = now.Add(30 * time.Second)
	fail(b) // trial fails

	if b.State() != StateOpen {
		t.Fatalf("state after failed trial = %v, want open", b.State())
	}

	// openedAt was reset: another full recovery timeout is required.
	*now = now.Add(29 * time.Second)
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open (recovery window restarted)", b.State())
	}
	*now = now.Add(time.Second)
	if b.State() != StateHalfOpen {
		t.Errorf("state = %v, want half-open", b.State())
	}
}

func TestRegistryIndependentServices(t *testing.T) {
	r := NewRegistry(Options{FailureThreshold: 2, RecoveryTimeout: time.Minute})

	a := r.Get("service-a")
	bb := r.Get("service-b")

	if a == bb {
		t.Fatal("expected distinct breakers per service")
	}
	if got := r.Get("service-a"); got != a {
		t.Error("expected same breaker instance on second Get")
	}

	fail(a)
	fail(a)

	if a.State() != StateOpen {
		t.Errorf("service-a state = %v, want open", a.State())
	}
	if bb.State() != StateClosed {
		t.Errorf("service-b state = %v, want closed", bb.State())
	}
}
