package office

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/reception/internal/pms"
)

const testKey = "3d7a9f1c5b2e8d4a6f0c3b7e9d1a5f2c4e8b0d6a2f9c1e7b3d5a8f0c2e4b6d9a"

func TestSealOpenRoundtrip(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	creds := pms.Credentials{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		APIKey:       "key-1",
	}

	sealed, err := s.Seal(creds)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "secret-1")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, creds, opened)
}

func TestSealProducesUniqueBlobs(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	creds := pms.Credentials{ClientID: "client-1", ClientSecret: "secret-1"}
	a, err := s.Seal(creds)
	require.NoError(t, err)
	b, err := s.Seal(creds)
	require.NoError(t, err)

	// Fresh nonce per seal.
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	sealed, err := s.Seal(pms.Credentials{ClientID: "client-1"})
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	require.Error(t, err)
}

func TestOpenRejectsShortBlob(t *testing.T) {
	s, err := NewSealer(testKey)
	require.NoError(t, err)

	_, err = s.Open([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestNewSealerKeyValidation(t *testing.T) {
	_, err := NewSealer("not-hex")
	require.Error(t, err)

	_, err = NewSealer(strings.Repeat("ab", 16)) // 16 bytes, too short
	require.Error(t, err)
}

func TestHours(t *testing.T) {
	h := DefaultHours()
	require.NoError(t, h.Validate())

	assert.True(t, h.IsOpen(1, 9*60, 17*60), "Monday inside hours")
	assert.False(t, h.IsOpen(1, 6*60, 9*60), "before opening")
	assert.False(t, h.IsOpen(0, 9*60, 17*60), "closed Sunday")
	assert.False(t, h.IsOpen(1, 9*60, 19*60), "past closing")

	bad := DefaultHours()
	bad.Open[2] = 19 * 60
	assert.ErrorIs(t, bad.Validate(), ErrInvalidHours)
}
