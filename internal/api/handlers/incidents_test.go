package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightsmile/reception/internal/security"
)

type fakeIncidents struct {
	byID map[uuid.UUID]*security.Incident
}

func newFakeIncidents() *fakeIncidents {
	return &fakeIncidents{byID: map[uuid.UUID]*security.Incident{}}
}

func (f *fakeIncidents) Open(_ context.Context, officeID uuid.UUID, severity security.Severity, category, description string) (*security.Incident, error) {
	if !security.ValidSeverity(severity) {
		return nil, fmt.Errorf("%w: %q", security.ErrInvalidSeverity, severity)
	}
	inc := &security.Incident{
		ID:          uuid.New(),
		OfficeID:    officeID,
		Severity:    severity,
		Category:    category,
		Description: description,
		Status:      security.IncidentOpen,
	}
	f.byID[inc.ID] = inc
	return inc, nil
}

func (f *fakeIncidents) Investigate(_ context.Context, id uuid.UUID) (*security.Incident, error) {
	inc, ok := f.byID[id]
	if !ok || inc.Status != security.IncidentOpen {
		return nil, security.ErrIncidentNotFound
	}
	inc.Status = security.IncidentInvestigating
	return inc, nil
}

func (f *fakeIncidents) Resolve(_ context.Context, id uuid.UUID) (*security.Incident, error) {
	inc, ok := f.byID[id]
	if !ok || inc.Status == security.IncidentResolved {
		return nil, security.ErrIncidentNotFound
	}
	inc.Status = security.IncidentResolved
	return inc, nil
}

func (f *fakeIncidents) List(_ context.Context, officeID uuid.UUID, _ *security.IncidentStatus) ([]security.Incident, error) {
	var out []security.Incident
	for _, inc := range f.byID {
		if inc.OfficeID == officeID {
			out = append(out, *inc)
		}
	}
	return out, nil
}

func postIncident(t *testing.T, srv *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(srv.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestIncidentLifecycle(t *testing.T) {
	store := newFakeIncidents()
	srv := httptest.NewServer(NewIncidentHandler(store, nil, nil).Routes())
	defer srv.Close()

	resp := postIncident(t, srv, "/", map[string]interface{}{
		"officeId":    uuid.New(),
		"severity":    "high",
		"category":    "auth_failure",
		"description": "repeated API key rejections",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created security.Incident
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, security.IncidentOpen, created.Status)

	resp = postIncident(t, srv, "/"+created.ID.String()+"/investigate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var investigating security.Incident
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&investigating))
	assert.Equal(t, security.IncidentInvestigating, investigating.Status)

	resp = postIncident(t, srv, "/"+created.ID.String()+"/resolve", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var resolved security.Incident
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&resolved))
	assert.Equal(t, security.IncidentResolved, resolved.Status)

	// Resolving twice, or investigating a resolved incident, finds nothing.
	resp = postIncident(t, srv, "/"+created.ID.String()+"/resolve", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = postIncident(t, srv, "/"+created.ID.String()+"/investigate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenIncidentRejectsUnknownSeverity(t *testing.T) {
	srv := httptest.NewServer(NewIncidentHandler(newFakeIncidents(), nil, nil).Routes())
	defer srv.Close()

	resp := postIncident(t, srv, "/", map[string]interface{}{
		"officeId": uuid.New(),
		"severity": "catastrophic",
		"category": "auth_failure",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
