// Package voice mints short-lived OpenAI Realtime session tokens so the
// browser or telephony edge can open a voice connection without ever seeing
// the server API key.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/observability/metrics"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-realtime-preview"
	defaultVoice   = "alloy"
)

var ErrNotConfigured = errors.New("voice sessions are not configured")

// Config holds the OpenAI connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// Session is the ephemeral credential handed to the client.
type Session struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	ClientSecret string    `json:"clientSecret"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Minter creates realtime sessions against the OpenAI API.
type Minter struct {
	cfg     Config
	client  *http.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewMinter creates a session minter. An empty API key yields a minter that
// fails with ErrNotConfigured, so the rest of the service can run without
// voice enabled.
func NewMinter(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Minter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Minter{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		logger:  logger,
	}
}

type sessionRequest struct {
	Model        string `json:"model"`
	Voice        string `json:"voice"`
	Instructions string `json:"instructions,omitempty"`
}

type sessionResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Mint creates one ephemeral session. instructions carries the office-specific
// receptionist prompt.
func (m *Minter) Mint(ctx context.Context, instructions string) (*Session, error) {
	if m.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(sessionRequest{
		Model:        m.cfg.Model,
		Voice:        m.cfg.Voice,
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.cfg.BaseURL+"/realtime/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mint session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		m.logger.Error("session mint rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return nil, fmt.Errorf("mint session: unexpected status %s", resp.Status)
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}

	if m.metrics != nil {
		m.metrics.VoiceSessionsMinted.Inc()
	}
	return &Session{
		ID:           sr.ID,
		Model:        sr.Model,
		ClientSecret: sr.ClientSecret.Value,
		ExpiresAt:    time.Unix(sr.ClientSecret.ExpiresAt, 0).UTC(),
	}, nil
}
