// Package circuitbreaker protects outbound PMS calls with sony/gobreaker.
// Policy is a fixed consecutive-failure threshold with a fixed cooldown: the
// breaker opens after N consecutive failures and allows a retry once the
// cooldown elapses.
package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies the breaker, usually a logical PMS endpoint.
	Name string
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
	// Cooldown is how long to wait before transitioning from open to half-open.
	Cooldown time.Duration
	// MaxHalfOpenRequests is the max requests allowed while half-open.
	MaxHalfOpenRequests uint32
}

// DefaultConfig returns the policy used for PMS endpoints: open after 5
// consecutive failures, retry after a 60 second cooldown.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		FailureThreshold:    5,
		Cooldown:            60 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// Breaker wraps gobreaker with logging, tracing and metrics.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *zap.Logger
	tracer trace.Tracer

	requestCounter  metric.Int64Counter
	failureCounter  metric.Int64Counter
	rejectedCounter metric.Int64Counter

	stateMu      sync.RWMutex
	currentState State
}

// New creates a circuit breaker.
func New(cfg Config, logger *zap.Logger) (*Breaker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if cfg.MaxHalfOpenRequests == 0 {
		cfg.MaxHalfOpenRequests = 1
	}

	b := &Breaker{
		name:         cfg.Name,
		logger:       logger,
		tracer:       otel.Tracer("circuit-breaker"),
		currentState: StateClosed,
	}

	meter := otel.Meter("circuit-breaker")
	var err error
	b.requestCounter, err = meter.Int64Counter("pms_breaker_requests_total",
		metric.WithDescription("Total requests through the breaker"))
	if err != nil {
		return nil, fmt.Errorf("create request counter: %w", err)
	}
	b.failureCounter, err = meter.Int64Counter("pms_breaker_failures_total",
		metric.WithDescription("Total failed requests"))
	if err != nil {
		return nil, fmt.Errorf("create failure counter: %w", err)
	}
	b.rejectedCounter, err = meter.Int64Counter("pms_breaker_rejected_total",
		metric.WithDescription("Requests rejected while the circuit was open"))
	if err != nil {
		return nil, fmt.Errorf("create rejected counter: %w", err)
	}

	threshold := cfg.FailureThreshold
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.onStateChange(from, to)
		},
	})

	return b, nil
}

// Execute runs fn through the breaker. While the circuit is open the call is
// rejected immediately without reaching the network.
func (b *Breaker) Execute(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	ctx, span := b.tracer.Start(ctx, "breaker_execute",
		trace.WithAttributes(
			attribute.String("breaker", b.name),
			attribute.String("state", string(b.GetState())),
		))
	defer span.End()

	b.requestCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))

	result, err := b.cb.Execute(fn)
	if err != nil {
		if IsOpenErr(err) {
			b.rejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))
			span.SetAttributes(attribute.Bool("circuit_open", true))
		} else {
			b.failureCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("name", b.name)))
		}
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// IsOpenErr reports whether err means the breaker rejected the call.
func IsOpenErr(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}

// GetState returns the current breaker state.
func (b *Breaker) GetState() State {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	return b.currentState
}

// Counts returns the underlying gobreaker counts.
func (b *Breaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

func (b *Breaker) onStateChange(from, to gobreaker.State) {
	b.stateMu.Lock()
	b.currentState = mapState(to)
	b.stateMu.Unlock()

	b.logger.Warn("circuit breaker state changed",
		zap.String("breaker", b.name),
		zap.String("from", string(mapState(from))),
		zap.String("to", string(mapState(to))))
}

func mapState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// Manager holds one breaker per logical PMS endpoint.
type Manager struct {
	breakers map[string]*Breaker
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewManager creates a breaker manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		breakers: make(map[string]*Breaker),
		logger:   logger,
	}
}

// GetOrCreate returns the breaker for name, creating it with cfg if absent.
func (m *Manager) GetOrCreate(name string, cfg Config) (*Breaker, error) {
	m.mu.RLock()
	if b, ok := m.breakers[name]; ok {
		m.mu.RUnlock()
		return b, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b, nil
	}

	cfg.Name = name
	b, err := New(cfg, m.logger)
	if err != nil {
		return nil, err
	}
	m.breakers[name] = b
	return b, nil
}

// HealthStatus describes one breaker for health endpoints.
type HealthStatus struct {
	Name     string
	State    State
	Requests uint32
	Failures uint32
	Healthy  bool
}

// GetHealthStatus returns health status for all breakers.
func (m *Manager) GetHealthStatus() []HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var statuses []HealthStatus
	for name, b := range m.breakers {
		counts := b.Counts()
		statuses = append(statuses, HealthStatus{
			Name:     name,
			State:    b.GetState(),
			Requests: counts.Requests,
			Failures: counts.TotalFailures,
			Healthy:  b.GetState() == StateClosed,
		})
	}
	return statuses
}
