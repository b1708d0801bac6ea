package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintSession(t *testing.T) {
	expires := time.Now().Add(time.Minute).Unix()
	var gotInstructions string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/realtime/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotInstructions = req["instructions"]

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "sess_123",
			"model": req["model"],
			"client_secret": map[string]interface{}{
				"value":      "eph_secret",
				"expires_at": expires,
			},
		})
	}))
	defer srv.Close()

	m := NewMinter(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil, nil)
	s, err := m.Mint(context.Background(), "You are the receptionist for Lakeside Dental.")
	require.NoError(t, err)

	assert.Equal(t, "sess_123", s.ID)
	assert.Equal(t, "eph_secret", s.ClientSecret)
	assert.Equal(t, time.Unix(expires, 0).UTC(), s.ExpiresAt)
	assert.Contains(t, gotInstructions, "Lakeside Dental")
}

func TestMintNotConfigured(t *testing.T) {
	m := NewMinter(Config{}, nil, nil)
	_, err := m.Mint(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMintRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMinter(Config{APIKey: "sk-bad", BaseURL: srv.URL}, nil, nil)
	_, err := m.Mint(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}
