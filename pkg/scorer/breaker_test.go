package scorer

import (
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, 30*time.Second)
	for i := 0; i < 2; i++ {
		if !b.Allow() {
			t.Fatalf("expected closed breaker to allow call %d", i)
		}
		b.RecordFailure()
	}
	if !b.Allow() {
		t.Fatal("expected breaker to still be closed before third failure")
	}
	b.RecordFailure()
	if b.Allow() {
		t.Fatal("expected breaker to reject calls once the failure threshold is reached")
	}
}

func TestBreakerHalfOpenAfterRecoveryTimeout(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.Allow()
	b.RecordFailure() // opens

	if b.Allow() {
		t.Fatal("expected breaker to reject calls immediately after opening")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected breaker to allow a single probe call after the recovery timeout")
	}
}

func TestBreakerClosesOnProbeSuccess(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.Allow()
	b.RecordFailure() // opens

	time.Sleep(20 * time.Millisecond)
	if !b.Allow() {
		t.Fatal("expected probe to be allowed")
	}
	b.RecordSuccess()

	if !b.Allow() {
		t.Fatal("expected breaker to be closed and allow calls after a successful probe")
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)
	b.Allow()
	b.RecordFailure() // opens

	time.Sleep(20 * time.Millisecond)
	b.Allow() // half_open probe
	b.RecordFailure()

	if b.Allow() {
		t.Fatal("expected a failed probe to reopen the circuit immediately")
	}
}
