package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

func TestObserveBreakers(t *testing.T) {
	m := New()

	m.ObserveBreakers([]circuitbreaker.HealthStatus{
		{Name: "dentrix.patients", State: circuitbreaker.StateOpen},
		{Name: "dentrix.locations", State: circuitbreaker.StateClosed},
		{Name: "eaglesoft.patients", State: circuitbreaker.StateHalfOpen},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("dentrix.patients")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("dentrix.locations")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("eaglesoft.patients")))

	// Recovery drives the gauge back down.
	m.ObserveBreakers([]circuitbreaker.HealthStatus{
		{Name: "dentrix.patients", State: circuitbreaker.StateClosed},
	})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("dentrix.patients")))
}
