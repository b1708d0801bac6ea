// Package carestack implements the CareStack PMS adapter. Authentication uses
// a client-credentials grant with the token cached per client instance; every
// request carries the bearer token and a 401 triggers one re-authentication.
package carestack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/pms"
)

// Config holds CareStack connection settings for one office.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPTimeout  time.Duration
}

// Client is the CareStack adapter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a CareStack client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("carestack: base URL is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("carestack: client credentials are required")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = strings.TrimRight(cfg.BaseURL, "/") + "/oauth/token"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Name returns the vendor identifier.
func (c *Client) Name() pms.Vendor { return pms.VendorCareStack }

// doJSON executes an authenticated request and decodes the response into out.
// No retry beyond the single 401 re-auth; resilience lives one level up.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		c.invalidateToken()
		resp, err = c.send(ctx, method, path, payload)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("carestack request failed: %s", resp.Status)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method,
		strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("carestack request: %w", err)
	}
	return resp, nil
}

// SearchPatientByPhone looks up a patient by phone number.
func (c *Client) SearchPatientByPhone(ctx context.Context, phone string) (*pms.Patient, error) {
	var result struct {
		Patients []csPatient `json:"patients"`
	}
	path := "/patients?phone=" + url.QueryEscape(phone)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	if len(result.Patients) == 0 {
		return nil, pms.ErrPatientNotFound
	}
	return toPatient(result.Patients[0]), nil
}

// CreatePatient creates a patient record.
func (c *Client) CreatePatient(ctx context.Context, p *pms.Patient) (*pms.Patient, error) {
	var created csPatient
	if err := c.doJSON(ctx, http.MethodPost, "/patients", fromPatient(p), &created); err != nil {
		return nil, err
	}
	return toPatient(created), nil
}

// GetAvailableSlots lists open slots matching the query.
func (c *Client) GetAvailableSlots(ctx context.Context, q pms.SlotQuery) ([]pms.Slot, error) {
	params := url.Values{}
	params.Set("start", q.From.Format(time.RFC3339))
	params.Set("end", q.To.Format(time.RFC3339))
	if q.ProviderID != "" {
		params.Set("provider_id", q.ProviderID)
	}
	if q.LocationID != "" {
		params.Set("operatory_id", q.LocationID)
	}

	var result struct {
		Slots []csSlot `json:"slots"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/appointments/available-slots?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}

	slots := make([]pms.Slot, 0, len(result.Slots))
	for _, s := range result.Slots {
		slots = append(slots, toSlot(s))
	}
	return slots, nil
}

// BookAppointment creates an appointment in CareStack.
func (c *Client) BookAppointment(ctx context.Context, req pms.BookingRequest) (*pms.Appointment, error) {
	var created csAppointment
	if err := c.doJSON(ctx, http.MethodPost, "/appointments", fromBooking(req), &created); err != nil {
		return nil, err
	}
	return toAppointment(created), nil
}

// ListProviders lists clinicians.
func (c *Client) ListProviders(ctx context.Context) ([]pms.Provider, error) {
	var result struct {
		Providers []csProvider `json:"providers"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/providers", nil, &result); err != nil {
		return nil, err
	}
	providers := make([]pms.Provider, 0, len(result.Providers))
	for _, p := range result.Providers {
		providers = append(providers, toProvider(p))
	}
	return providers, nil
}

// ListLocations lists practice locations.
func (c *Client) ListLocations(ctx context.Context) ([]pms.Location, error) {
	var result struct {
		Locations []csLocation `json:"locations"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/locations", nil, &result); err != nil {
		return nil, err
	}
	locations := make([]pms.Location, 0, len(result.Locations))
	for _, l := range result.Locations {
		locations = append(locations, toLocation(l))
	}
	return locations, nil
}

// Ping verifies credentials by acquiring a token.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ensureToken(ctx)
	return err
}
