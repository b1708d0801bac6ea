// Package metrics provides Prometheus metrics for the reception services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

// Metrics holds all application metrics.
type Metrics struct {
	SlotsGenerated      prometheus.Counter
	AppointmentsBooked  prometheus.Counter
	AppointmentsFailed  prometheus.Counter
	BookingDuration     prometheus.Histogram
	PMSSyncSucceeded    prometheus.Counter
	PMSSyncFailed       prometheus.Counter
	OutboxPending       prometheus.Gauge
	CircuitBreakerState *prometheus.GaugeVec
	VoiceSessionsMinted prometheus.Counter
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{
		SlotsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "slots_generated_total",
			Help: "Total slots created by the generator",
		}),
		AppointmentsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_booked_total",
			Help: "Total appointments booked locally",
		}),
		AppointmentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "appointments_failed_total",
			Help: "Total booking attempts that failed validation or conflicted",
		}),
		BookingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booking_duration_seconds",
			Help:    "Booking flow duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		PMSSyncSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_sync_succeeded_total",
			Help: "Bookings mirrored into the PMS",
		}),
		PMSSyncFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_sync_failed_total",
			Help: "Bookings the PMS rejected or that errored",
		}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		}, []string{"name"}),
		VoiceSessionsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voice_sessions_minted_total",
			Help: "OpenAI realtime sessions minted",
		}),
	}

	prometheus.MustRegister(
		m.SlotsGenerated,
		m.AppointmentsBooked,
		m.AppointmentsFailed,
		m.BookingDuration,
		m.PMSSyncSucceeded,
		m.PMSSyncFailed,
		m.OutboxPending,
		m.CircuitBreakerState,
		m.VoiceSessionsMinted,
	)

	return m
}

// ObserveBreakers refreshes the per-breaker state gauge from a manager
// snapshot.
func (m *Metrics) ObserveBreakers(statuses []circuitbreaker.HealthStatus) {
	for _, s := range statuses {
		var v float64
		switch s.State {
		case circuitbreaker.StateOpen:
			v = 1
		case circuitbreaker.StateHalfOpen:
			v = 2
		}
		m.CircuitBreakerState.WithLabelValues(s.Name).Set(v)
	}
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
