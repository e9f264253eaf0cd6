package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := NewCircuitBreaker("backend")

	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that trips after 3 failures
	cb := NewCircuitBreaker("backend", WithMaxFailures(3))

	// When: recording 3 failures
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	// Then: the circuit is open and blocks requests
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("backend", WithMaxFailures(3))

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenAfterResetTimeout(t *testing.T) {
	// Given: an open circuit with a short reset timeout
	cb := NewCircuitBreaker("backend",
		WithMaxFailures(1),
		WithResetTimeout(10*time.Millisecond))
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())

	// When: the reset timeout elapses
	time.Sleep(15 * time.Millisecond)

	// Then: the circuit allows a probe request
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_Execute_BlocksWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("backend", WithMaxFailures(1))
	cb.RecordFailure()

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_Execute_RecordsOutcome(t *testing.T) {
	cb := NewCircuitBreaker("backend", WithMaxFailures(2))

	// First failure passes through unchanged
	boom := errors.New("boom")
	err := cb.Execute(func() error { return boom })
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, cb.Failures())

	// A success closes the loop again
	err = cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_RecoversViaHalfOpenProbe(t *testing.T) {
	// Given: a tripped breaker past its reset timeout
	cb := NewCircuitBreaker("backend",
		WithMaxFailures(1),
		WithResetTimeout(5*time.Millisecond))
	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	// When: the probe succeeds
	err := cb.Execute(func() error { return nil })

	// Then: the circuit closes
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker("backend",
		WithMaxFailures(1),
		WithResetTimeout(5*time.Millisecond))
	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	// Probe fails: the breaker re-opens for another full timeout
	_ = cb.Execute(func() error { return errors.New("still down") })

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestExecuteWithResult_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("backend")

	got, err := ExecuteWithResult(cb, func() ([]string, error) {
		return []string{"react hooks", "hooks tutorial"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"react hooks", "hooks tutorial"}, got)
}

func TestExecuteWithResult_ZeroValueWhenOpen(t *testing.T) {
	cb := NewCircuitBreaker("backend", WithMaxFailures(1))
	cb.RecordFailure()

	got, err := ExecuteWithResult(cb, func() (string, error) {
		return "never", nil
	})

	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Empty(t, got)
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
