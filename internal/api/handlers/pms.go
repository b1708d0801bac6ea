package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/internal/pms/factory"
)

// PMSHandler proxies read operations to the tenant's PMS adapter so the voice
// agent and front-desk UI can query vendor data without vendor awareness.
type PMSHandler struct {
	resolver *factory.Resolver
	logger   *zap.Logger
}

// NewPMSHandler creates the handler.
func NewPMSHandler(resolver *factory.Resolver, logger *zap.Logger) *PMSHandler {
	return &PMSHandler{resolver: resolver, logger: logger}
}

// Routes returns the PMS proxy routes.
func (h *PMSHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{officeId}/test", h.Test)
	r.Post("/{officeId}/{action}", h.Dispatch)
	return r
}

type pmsActionRequest struct {
	Phone      string       `json:"phone,omitempty"`
	PatientID  string       `json:"patientId,omitempty"`
	ProviderID string       `json:"providerId,omitempty"`
	LocationID string       `json:"locationId,omitempty"`
	Service    string       `json:"service,omitempty"`
	From       *time.Time   `json:"from,omitempty"`
	To         *time.Time   `json:"to,omitempty"`
	Patient    *pms.Patient `json:"patient,omitempty"`
}

// Dispatch handles POST /pms/{officeId}/{action}. Supported actions:
// search-patient, create-patient, available-slots, book, providers, locations.
// The book action writes straight to the vendor; appointments managed by this
// service go through POST /appointments instead so the local slot state and
// sync pipeline stay authoritative.
func (h *PMSHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	officeID, err := uuid.Parse(chi.URLParam(r, "officeId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	var req pmsActionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	adapter, _, err := h.resolver.AdapterFor(r.Context(), officeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	ctx := r.Context()
	action := chi.URLParam(r, "action")
	switch action {
	case "search-patient":
		if req.Phone == "" {
			writeError(w, http.StatusBadRequest, "phone is required")
			return
		}
		p, err := adapter.SearchPatientByPhone(ctx, req.Phone)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case "create-patient":
		if req.Patient == nil {
			writeError(w, http.StatusBadRequest, "patient is required")
			return
		}
		p, err := adapter.CreatePatient(ctx, req.Patient)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)

	case "available-slots":
		q := pms.SlotQuery{ProviderID: req.ProviderID, LocationID: req.LocationID}
		if req.From != nil {
			q.From = *req.From
		}
		if req.To != nil {
			q.To = *req.To
		}
		slots, err := adapter.GetAvailableSlots(ctx, q)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"count": len(slots), "slots": slots})

	case "book":
		if req.PatientID == "" || req.From == nil || req.To == nil {
			writeError(w, http.StatusBadRequest, "patientId, from and to are required")
			return
		}
		appt, err := adapter.BookAppointment(ctx, pms.BookingRequest{
			PatientID:  req.PatientID,
			ProviderID: req.ProviderID,
			LocationID: req.LocationID,
			Service:    req.Service,
			StartsAt:   *req.From,
			EndsAt:     *req.To,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)

	case "providers":
		providers, err := adapter.ListProviders(ctx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"providers": providers})

	case "locations":
		locations, err := adapter.ListLocations(ctx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"locations": locations})

	default:
		writeError(w, http.StatusBadRequest, "unknown action: "+action)
	}
}

// Test handles POST /pms/{officeId}/test: verifies connectivity and
// credentials against the vendor without mutating anything.
func (h *PMSHandler) Test(w http.ResponseWriter, r *http.Request) {
	officeID, err := uuid.Parse(chi.URLParam(r, "officeId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid office id")
		return
	}

	adapter, o, err := h.resolver.AdapterFor(r.Context(), officeID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	start := time.Now()
	if err := adapter.Ping(r.Context()); err != nil {
		h.logger.Warn("PMS connectivity test failed",
			zap.String("office_id", officeID.String()),
			zap.String("vendor", string(o.PMSType)),
			zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"vendor": o.PMSType,
			"ok":     false,
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"vendor":    o.PMSType,
		"ok":        true,
		"latencyMs": time.Since(start).Milliseconds(),
	})
}
