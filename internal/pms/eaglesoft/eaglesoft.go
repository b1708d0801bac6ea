// Package eaglesoft is a placeholder Eaglesoft adapter. Every call fails with
// pms.ErrNotImplemented, routed through per-endpoint circuit breakers so the
// integration inherits fast-fail behavior the day it is implemented.
package eaglesoft

import (
	"context"

	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

const (
	endpointPatients     = "eaglesoft.patients"
	endpointAppointments = "eaglesoft.appointments"
	endpointLocations    = "eaglesoft.locations"
	endpointOperatories  = "eaglesoft.operatories"
)

// Client is the Eaglesoft adapter stub.
type Client struct {
	breakers *circuitbreaker.Manager
	logger   *zap.Logger
}

// New creates an Eaglesoft adapter.
func New(breakers *circuitbreaker.Manager, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{breakers: breakers, logger: logger}
}

// Name returns the vendor identifier.
func (c *Client) Name() pms.Vendor { return pms.VendorEaglesoft }

func (c *Client) call(ctx context.Context, endpoint string, fn func() (interface{}, error)) (interface{}, error) {
	b, err := c.breakers.GetOrCreate(endpoint, circuitbreaker.DefaultConfig(endpoint))
	if err != nil {
		return nil, err
	}
	return b.Execute(ctx, fn)
}

func (c *Client) SearchPatientByPhone(ctx context.Context, phone string) (*pms.Patient, error) {
	_, err := c.call(ctx, endpointPatients, func() (interface{}, error) {
		return nil, pms.ErrNotImplemented
	})
	return nil, err
}

func (c *Client) CreatePatient(ctx context.Context, p *pms.Patient) (*pms.Patient, error) {
	_, err := c.call(ctx, endpointPatients, func() (interface{}, error) {
		return nil, pms.ErrNotImplemented
	})
	return nil, err
}

func (c *Client) GetAvailableSlots(ctx context.Context, q pms.SlotQuery) ([]pms.Slot, error) {
	_, err := c.call(ctx, endpointOperatories, func() (interface{}, error) {
		return nil, pms.ErrNotImplemented
	})
	return nil, err
}

func (c *Client) BookAppointment(ctx context.Context, req pms.BookingRequest) (*pms.Appointment, error) {
	_, err := c.call(ctx, endpointAppointments, func() (interface{}, error) {
		return nil, pms.ErrNotImplemented
	})
	return nil, err
}

func (c *Client) ListProviders(ctx context.Context) ([]pms.Provider, error) {
	_, err := c.call(ctx, endpointPatients, func() (interface{}, error) {
		return nil, pms.ErrNotImplemented
	})
	return nil, err
}

func (c *Client) ListLocations(ctx context.Context) ([]pms.Location, error) {
	_, err := c.call(ctx, endpointLocations, func() (interface{}, error) {
		return nil, pms.ErrNotImplemented
	})
	return nil, err
}

func (c *Client) Ping(ctx context.Context) error {
	return pms.ErrNotImplemented
}
