package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/api/middleware"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/security"
)

// SlotHandler manages slot generation and listing.
type SlotHandler struct {
	svc    *schedule.Service
	audit  *security.AuditLog
	logger *zap.Logger
}

// NewSlotHandler creates the handler.
func NewSlotHandler(svc *schedule.Service, audit *security.AuditLog, logger *zap.Logger) *SlotHandler {
	return &SlotHandler{svc: svc, audit: audit, logger: logger}
}

// Routes returns the slot routes.
func (h *SlotHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/generate", h.Generate)
	r.Get("/", h.List)
	return r
}

type generateSlotsRequest struct {
	OfficeID        uuid.UUID  `json:"officeId"`
	ProviderID      uuid.UUID  `json:"providerId"`
	LocationID      *uuid.UUID `json:"locationId,omitempty"`
	Date            string     `json:"date"`
	StartMinute     int        `json:"startMinute"`
	EndMinute       int        `json:"endMinute"`
	DurationMinutes int        `json:"durationMinutes"`
}

type slotResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"providerId"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Status     string    `json:"status"`
}

func toSlotResponses(slots []schedule.Slot) []slotResponse {
	out := make([]slotResponse, len(slots))
	for i, s := range slots {
		out[i] = slotResponse{
			ID:         s.ID,
			ProviderID: s.ProviderID,
			StartsAt:   s.StartsAt,
			EndsAt:     s.EndsAt,
			Status:     string(s.Status),
		}
	}
	return out
}

// Generate handles POST /slots/generate.
func (h *SlotHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "durationMinutes must be positive")
		return
	}

	slots, err := h.svc.GenerateSlots(r.Context(), schedule.GenerateSlotsInput{
		OfficeID:    req.OfficeID,
		ProviderID:  req.ProviderID,
		LocationID:  req.LocationID,
		Day:         day,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Duration:    time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.Record(r.Context(), req.OfficeID, middleware.GetClientID(r.Context()),
		security.ActionSlotGenerated, map[string]interface{}{
			"providerId": req.ProviderID,
			"date":       req.Date,
			"count":      len(slots),
		})
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"count": len(slots),
		"slots": toSlotResponses(slots),
	})
}

// List handles GET /slots?officeId=&providerId=&from=&to=.
func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request) {
	officeID, err := uuid.Parse(r.URL.Query().Get("officeId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "officeId is required")
		return
	}

	var providerID *uuid.UUID
	if s := r.URL.Query().Get("providerId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid providerId")
			return
		}
		providerID = &id
	}

	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := h.svc.ListSlots(r.Context(), officeID, providerID, from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(slots),
		"slots": toSlotResponses(slots),
	})
}

// parseWindow reads from/to query params, defaulting to the next 7 days.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now, now.AddDate(0, 0, 7)

	if s := r.URL.Query().Get("from"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = t
	}
	return from, to, nil
}
