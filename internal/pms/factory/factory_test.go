package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

func testConfig() AdapterConfig {
	return AdapterConfig{
		BaseURL:  "https://sandbox.carestack.test/api/v1",
		TokenURL: "https://sandbox.carestack.test/oauth/token",
		Credentials: pms.Credentials{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
		},
	}
}

func TestAdapterSelection(t *testing.T) {
	f := New(nil, nil)

	cs, err := f.Adapter(pms.VendorCareStack, testConfig())
	require.NoError(t, err)
	assert.Equal(t, pms.VendorCareStack, cs.Name())

	dx, err := f.Adapter(pms.VendorDentrix, testConfig())
	require.NoError(t, err)
	assert.Equal(t, pms.VendorDentrix, dx.Name())

	es, err := f.Adapter(pms.VendorEaglesoft, testConfig())
	require.NoError(t, err)
	assert.Equal(t, pms.VendorEaglesoft, es.Name())
}

func TestAdapterUnsupportedVendor(t *testing.T) {
	f := New(nil, nil)

	_, err := f.Adapter("opendental", testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, pms.ErrUnsupportedPMS)
	assert.Contains(t, err.Error(), "opendental")
}

func TestStubAdaptersFailWithNotImplemented(t *testing.T) {
	f := New(nil, nil)
	ctx := context.Background()

	for _, vendor := range []pms.Vendor{pms.VendorDentrix, pms.VendorEaglesoft} {
		adapter, err := f.Adapter(vendor, testConfig())
		require.NoError(t, err)

		_, err = adapter.SearchPatientByPhone(ctx, "+15550100")
		assert.ErrorIs(t, err, pms.ErrNotImplemented, string(vendor))

		_, err = adapter.BookAppointment(ctx, pms.BookingRequest{})
		assert.ErrorIs(t, err, pms.ErrNotImplemented, string(vendor))

		assert.ErrorIs(t, adapter.Ping(ctx), pms.ErrNotImplemented, string(vendor))
	}
}

func TestStubAdaptersSitBehindBreakers(t *testing.T) {
	ctx := context.Background()

	for _, vendor := range []pms.Vendor{pms.VendorDentrix, pms.VendorEaglesoft} {
		f := New(nil, nil)
		adapter, err := f.Adapter(vendor, testConfig())
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err = adapter.SearchPatientByPhone(ctx, "+15550100")
			assert.ErrorIs(t, err, pms.ErrNotImplemented, string(vendor))
		}

		// Five consecutive failures open the patients breaker; the sixth
		// call is rejected without running the stub.
		_, err = adapter.SearchPatientByPhone(ctx, "+15550100")
		require.Error(t, err, string(vendor))
		assert.True(t, circuitbreaker.IsOpenErr(err), string(vendor))

		// Other endpoints keep their own breakers and stay closed.
		_, err = adapter.ListLocations(ctx)
		assert.ErrorIs(t, err, pms.ErrNotImplemented, string(vendor))
	}
}

func TestCareStackRequiresCredentials(t *testing.T) {
	f := New(nil, nil)

	cfg := testConfig()
	cfg.Credentials = pms.Credentials{}
	_, err := f.Adapter(pms.VendorCareStack, cfg)
	require.Error(t, err)
}
