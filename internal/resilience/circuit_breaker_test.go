package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capacitylab/fleet-advisor/internal/resilience"
)

var errProbe = errors.New("probe failed")

func newTestBreaker(timeout time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 3,
		Timeout:     timeout,
		HalfOpenMax: 2,
	})
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := newTestBreaker(time.Minute)
	fail := func() error { return errProbe }

	for i := 0; i < 3; i++ {
		err := cb.Execute(fail)
		assert.ErrorIs(t, err, errProbe)
	}

	assert.Equal(t, resilience.StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })
	require.NoError(t, cb.Execute(func() error { return nil }))

	// the streak was broken, so two more failures do not open the circuit
	cb.Execute(func() error { return errProbe })
	cb.Execute(func() error { return errProbe })
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errProbe })
	}
	require.Equal(t, resilience.StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// first probe after the timeout half-opens the circuit
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, resilience.StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errProbe })
	}
	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(func() error { return errProbe })
	assert.ErrorIs(t, err, errProbe)
	assert.Equal(t, resilience.StateOpen, cb.State())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := newTestBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errProbe })
	}
	require.Equal(t, resilience.StateOpen, cb.State())

	cb.Reset()

	assert.Equal(t, resilience.StateClosed, cb.State())
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "test",
		MaxFailures: 1,
		Timeout:     time.Minute,
		OnStateChange: func(name string, from, to resilience.State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	cb.Execute(func() error { return errProbe })

	require.Len(t, transitions, 1)
	assert.Equal(t, "closed->open", transitions[0])
}
