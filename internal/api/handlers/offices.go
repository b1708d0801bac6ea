package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/api/middleware"
	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/internal/security"
)

// OfficeHandler manages tenant offices.
type OfficeHandler struct {
	repo   *office.Repository
	sealer *office.Sealer
	audit  *security.AuditLog
	logger *zap.Logger
}

// NewOfficeHandler creates the handler.
func NewOfficeHandler(repo *office.Repository, sealer *office.Sealer, audit *security.AuditLog, logger *zap.Logger) *OfficeHandler {
	return &OfficeHandler{repo: repo, sealer: sealer, audit: audit, logger: logger}
}

// Routes returns the office routes.
func (h *OfficeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/hours", h.UpdateHours)
	r.Put("/{id}/credentials", h.UpdateCredentials)
	return r
}

type hoursPayload struct {
	Open  [7]int `json:"open"`
	Close [7]int `json:"close"`
}

type createOfficeRequest struct {
	Name        string          `json:"name"`
	PMSType     string          `json:"pmsType"`
	PMSBaseURL  string          `json:"pmsBaseUrl"`
	PMSTokenURL string          `json:"pmsTokenUrl"`
	Credentials pms.Credentials `json:"credentials"`
	Timezone    string          `json:"timezone"`
	Hours       *hoursPayload   `json:"hours,omitempty"`
}

type officeResponse struct {
	ID        uuid.UUID    `json:"id"`
	Name      string       `json:"name"`
	PMSType   string       `json:"pmsType"`
	Timezone  string       `json:"timezone"`
	Hours     hoursPayload `json:"hours"`
	CreatedAt time.Time    `json:"createdAt"`
}

func toOfficeResponse(o *office.Office) officeResponse {
	return officeResponse{
		ID:        o.ID,
		Name:      o.Name,
		PMSType:   string(o.PMSType),
		Timezone:  o.Timezone,
		Hours:     hoursPayload{Open: o.Hours.Open, Close: o.Hours.Close},
		CreatedAt: o.CreatedAt,
	}
}

// Create handles POST /offices. Credentials are sealed before they reach the
// database and never appear in any response.
func (h *OfficeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOfficeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.PMSType == "" {
		writeError(w, http.StatusBadRequest, "name and pmsType are required")
		return
	}

	hours := office.DefaultHours()
	if req.Hours != nil {
		hours = office.Hours{Open: req.Hours.Open, Close: req.Hours.Close}
	}
	if err := hours.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	sealed, err := h.sealer.Seal(req.Credentials)
	if err != nil {
		h.logger.Error("seal credentials failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	o := &office.Office{
		ID:                uuid.New(),
		Name:              req.Name,
		PMSType:           pms.Vendor(req.PMSType),
		PMSBaseURL:        req.PMSBaseURL,
		PMSTokenURL:       req.PMSTokenURL,
		SealedCredentials: sealed,
		Timezone:          tz,
		Hours:             hours,
	}
	if err := h.repo.Create(r.Context(), o); err != nil {
		h.logger.Error("create office failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("office created",
		zap.String("office_id", o.ID.String()),
		zap.String("pms_type", string(o.PMSType)),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeJSON(w, http.StatusCreated, toOfficeResponse(o))
}

// Get handles GET /offices/{id}.
func (h *OfficeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	o, err := h.repo.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOfficeResponse(o))
}

// UpdateHours handles PUT /offices/{id}/hours.
func (h *OfficeHandler) UpdateHours(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	var req hoursPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.UpdateHours(r.Context(), id, office.Hours{Open: req.Open, Close: req.Close}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// UpdateCredentials handles PUT /offices/{id}/credentials.
func (h *OfficeHandler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	var creds pms.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sealed, err := h.sealer.Seal(creds)
	if err != nil {
		h.logger.Error("seal credentials failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.repo.UpdateCredentials(r.Context(), id, sealed); err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.Record(r.Context(), id, middleware.GetClientID(r.Context()), security.ActionPMSCredentialsSet, nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
