// Package factory selects the PMS adapter for a tenant office.
package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/internal/pms/carestack"
	"github.com/brightsmile/reception/internal/pms/dentrix"
	"github.com/brightsmile/reception/internal/pms/eaglesoft"
	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

// AdapterConfig carries the per-office connection settings resolved from the
// offices table (credentials already unsealed).
type AdapterConfig struct {
	BaseURL     string
	TokenURL    string
	Credentials pms.Credentials
}

// Factory builds vendor adapters. Breakers are shared across adapters built by
// the same factory so repeated failures against one vendor endpoint trip a
// single circuit.
type Factory struct {
	breakers *circuitbreaker.Manager
	logger   *zap.Logger
}

// New creates a factory.
func New(breakers *circuitbreaker.Manager, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	if breakers == nil {
		breakers = circuitbreaker.NewManager(logger)
	}
	return &Factory{breakers: breakers, logger: logger}
}

// Adapter returns the adapter for the given vendor.
func (f *Factory) Adapter(vendor pms.Vendor, cfg AdapterConfig) (pms.Interface, error) {
	switch vendor {
	case pms.VendorCareStack:
		return carestack.New(carestack.Config{
			BaseURL:      cfg.BaseURL,
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.Credentials.ClientID,
			ClientSecret: cfg.Credentials.ClientSecret,
		}, f.logger)
	case pms.VendorDentrix:
		return dentrix.New(f.breakers, f.logger), nil
	case pms.VendorEaglesoft:
		return eaglesoft.New(f.breakers, f.logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", pms.ErrUnsupportedPMS, vendor)
	}
}

// Breakers exposes breaker health for the readiness endpoint.
func (f *Factory) Breakers() *circuitbreaker.Manager {
	return f.breakers
}
