package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errVendorDown = errors.New("vendor unavailable")

func failingCall() (interface{}, error) { return nil, errVendorDown }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b, err := New(DefaultConfig("carestack.appointments"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := b.Execute(ctx, failingCall)
		assert.ErrorIs(t, err, errVendorDown)
		assert.False(t, IsOpenErr(err))
	}
	assert.Equal(t, StateOpen, b.GetState())

	// The sixth call is rejected without running the function.
	ran := false
	_, err = b.Execute(ctx, func() (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.Error(t, err)
	assert.True(t, IsOpenErr(err))
	assert.False(t, ran)
}

func TestBreakerStaysClosedOnIntermittentFailures(t *testing.T) {
	b, err := New(DefaultConfig("carestack.patients"), nil)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if i%3 == 0 {
			_, err := b.Execute(ctx, func() (interface{}, error) { return "ok", nil })
			require.NoError(t, err)
			continue
		}
		b.Execute(ctx, failingCall)
	}
	assert.Equal(t, StateClosed, b.GetState())
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	cfg := DefaultConfig("dentrix.appointments")
	cfg.FailureThreshold = 2
	cfg.Cooldown = 50 * time.Millisecond
	b, err := New(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	b.Execute(ctx, failingCall)
	b.Execute(ctx, failingCall)
	require.Equal(t, StateOpen, b.GetState())

	time.Sleep(60 * time.Millisecond)

	// The half-open probe runs and its success closes the circuit.
	result, err := b.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, StateClosed, b.GetState())
}

func TestManagerReturnsSameBreaker(t *testing.T) {
	m := NewManager(nil)

	a, err := m.GetOrCreate("carestack.slots", DefaultConfig("carestack.slots"))
	require.NoError(t, err)
	b, err := m.GetOrCreate("carestack.slots", DefaultConfig("carestack.slots"))
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := m.GetOrCreate("eaglesoft.slots", DefaultConfig("eaglesoft.slots"))
	require.NoError(t, err)
	assert.NotSame(t, a, other)
}

func TestManagerHealthStatus(t *testing.T) {
	m := NewManager(nil)
	cfg := DefaultConfig("dentrix.patients")
	cfg.FailureThreshold = 1
	b, err := m.GetOrCreate("dentrix.patients", cfg)
	require.NoError(t, err)

	b.Execute(context.Background(), failingCall)

	statuses := m.GetHealthStatus()
	require.Len(t, statuses, 1)
	assert.Equal(t, "dentrix.patients", statuses[0].Name)
	assert.Equal(t, StateOpen, statuses[0].State)
	assert.False(t, statuses[0].Healthy)
}
