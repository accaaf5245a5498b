package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a circuit breaker with max 3 failures
	cb := NewCircuitBreaker("fsnotify", WithMaxFailures(3), WithResetTimeout(time.Second))

	// When: recording 3 failures
	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}

	// Then: circuit is open and requests are rejected
	assert.Equal(t, StateOpen, cb.State())
	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_RecordFailureReportsOpen(t *testing.T) {
	cb := NewCircuitBreaker("fsnotify", WithMaxFailures(2), WithResetTimeout(0))

	assert.False(t, cb.RecordFailure())
	assert.True(t, cb.RecordFailure())
	assert.Equal(t, 2, cb.Failures())

	// No reset timeout: stays open.
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb := NewCircuitBreaker("fsnotify", WithMaxFailures(3))

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	// Given: an open circuit breaker with a short reset timeout
	cb := NewCircuitBreaker("fsnotify", WithMaxFailures(1), WithResetTimeout(20*time.Millisecond))
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	// When: the reset timeout elapses
	time.Sleep(40 * time.Millisecond)

	// Then: the circuit is half-open and a success closes it
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ConcurrentFailures(t *testing.T) {
	cb := NewCircuitBreaker("fsnotify", WithMaxFailures(50))

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.RecordFailure()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, cb.Failures())
	assert.Equal(t, StateOpen, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
