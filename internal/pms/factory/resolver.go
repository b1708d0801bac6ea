package factory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

// OfficeGetter loads office rows.
type OfficeGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*office.Office, error)
}

// CredentialOpener decrypts sealed credential blobs.
type CredentialOpener interface {
	Open(sealed []byte) (pms.Credentials, error)
}

// Resolver turns an office ID into a live PMS adapter: load the office row,
// unseal its credentials, pick the vendor adapter.
type Resolver struct {
	offices OfficeGetter
	sealer  CredentialOpener
	factory *Factory
}

// NewResolver creates a resolver.
func NewResolver(offices OfficeGetter, sealer CredentialOpener, f *Factory) *Resolver {
	return &Resolver{offices: offices, sealer: sealer, factory: f}
}

// AdapterFor resolves the adapter for one office.
func (r *Resolver) AdapterFor(ctx context.Context, officeID uuid.UUID) (pms.Interface, *office.Office, error) {
	o, err := r.offices.Get(ctx, officeID)
	if err != nil {
		return nil, nil, err
	}

	creds, err := r.sealer.Open(o.SealedCredentials)
	if err != nil {
		return nil, nil, fmt.Errorf("office %s: %w", officeID, err)
	}

	adapter, err := r.factory.Adapter(o.PMSType, AdapterConfig{
		BaseURL:     o.PMSBaseURL,
		TokenURL:    o.PMSTokenURL,
		Credentials: creds,
	})
	if err != nil {
		return nil, nil, err
	}
	return adapter, o, nil
}

// Breakers exposes the underlying breaker manager.
func (r *Resolver) Breakers() *circuitbreaker.Manager {
	return r.factory.Breakers()
}
