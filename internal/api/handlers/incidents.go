package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/security"
)

// IncidentService is the slice of the incident store the handler needs.
type IncidentService interface {
	Open(ctx context.Context, officeID uuid.UUID, severity security.Severity, category, description string) (*security.Incident, error)
	Investigate(ctx context.Context, id uuid.UUID) (*security.Incident, error)
	Resolve(ctx context.Context, id uuid.UUID) (*security.Incident, error)
	List(ctx context.Context, officeID uuid.UUID, status *security.IncidentStatus) ([]security.Incident, error)
}

// IncidentHandler exposes the security incident log.
type IncidentHandler struct {
	store  IncidentService
	audit  *security.AuditLog
	logger *zap.Logger
}

// NewIncidentHandler creates the handler.
func NewIncidentHandler(store IncidentService, audit *security.AuditLog, logger *zap.Logger) *IncidentHandler {
	return &IncidentHandler{store: store, audit: audit, logger: logger}
}

// Routes returns the incident routes.
func (h *IncidentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Open)
	r.Get("/", h.List)
	r.Post("/{id}/investigate", h.Investigate)
	r.Post("/{id}/resolve", h.Resolve)
	r.Get("/audit", h.AuditTrail)
	return r
}

type openIncidentRequest struct {
	OfficeID    uuid.UUID         `json:"officeId"`
	Severity    security.Severity `json:"severity"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
}

// Open handles POST /security/incidents.
func (h *IncidentHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req openIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "category is required")
		return
	}

	inc, err := h.store.Open(r.Context(), req.OfficeID, req.Severity, req.Category, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inc)
}

// List handles GET /security/incidents?officeId=&status=.
func (h *IncidentHandler) List(w http.ResponseWriter, r *http.Request) {
	officeID, err := uuid.Parse(r.URL.Query().Get("officeId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "officeId is required")
		return
	}

	var status *security.IncidentStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := security.IncidentStatus(s)
		status = &st
	}

	incidents, err := h.store.List(r.Context(), officeID, status)
	if err != nil {
		h.logger.Error("list incidents failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(incidents),
		"incidents": incidents,
	})
}

// Investigate handles POST /security/incidents/{id}/investigate.
func (h *IncidentHandler) Investigate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	inc, err := h.store.Investigate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// Resolve handles POST /security/incidents/{id}/resolve.
func (h *IncidentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid incident id")
		return
	}

	inc, err := h.store.Resolve(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

// AuditTrail handles GET /security/incidents/audit?officeId=&limit=.
func (h *IncidentHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	officeID, err := uuid.Parse(r.URL.Query().Get("officeId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "officeId is required")
		return
	}

	entries, err := h.audit.List(r.Context(), officeID, 0)
	if err != nil {
		h.logger.Error("list audit trail failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}
