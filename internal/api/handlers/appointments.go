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

// AppointmentHandler manages bookings.
type AppointmentHandler struct {
	svc    *schedule.Service
	audit  *security.AuditLog
	logger *zap.Logger
}

// NewAppointmentHandler creates the handler.
func NewAppointmentHandler(svc *schedule.Service, audit *security.AuditLog, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, audit: audit, logger: logger}
}

// Routes returns the appointment routes.
func (h *AppointmentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Book)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Cancel)
	return r
}

type bookRequest struct {
	OfficeID  uuid.UUID `json:"officeId"`
	SlotID    uuid.UUID `json:"slotId"`
	Service   string    `json:"service"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email,omitempty"`
}

type appointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	OfficeID   uuid.UUID `json:"officeId"`
	SlotID     uuid.UUID `json:"slotId"`
	PatientID  uuid.UUID `json:"patientId"`
	ProviderID uuid.UUID `json:"providerId"`
	Service    string    `json:"service"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Status     string    `json:"status"`
	SyncStatus string    `json:"syncStatus"`
	PMSRef     *string   `json:"pmsRef,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toAppointmentResponse(a *schedule.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:         a.ID,
		OfficeID:   a.OfficeID,
		SlotID:     a.SlotID,
		PatientID:  a.PatientID,
		ProviderID: a.ProviderID,
		Service:    a.Service,
		StartsAt:   a.StartsAt,
		EndsAt:     a.EndsAt,
		Status:     string(a.Status),
		SyncStatus: string(a.SyncStatus),
		PMSRef:     a.PMSRef,
		CreatedAt:  a.CreatedAt,
	}
}

// Book handles POST /appointments. The response reports syncStatus pending;
// the PMS mirror completes asynchronously.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Phone == "" || req.FirstName == "" {
		writeError(w, http.StatusBadRequest, "firstName and phone are required")
		return
	}
	if req.Service == "" {
		req.Service = "general"
	}

	appt, err := h.svc.BookAppointment(r.Context(), schedule.BookInput{
		OfficeID:  req.OfficeID,
		SlotID:    req.SlotID,
		Service:   req.Service,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Email:     req.Email,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.Record(r.Context(), req.OfficeID, middleware.GetClientID(r.Context()),
		security.ActionAppointmentBooked, map[string]interface{}{
			"appointmentId": appt.ID,
			"slotId":        req.SlotID,
		})
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// Get handles GET /appointments/{id}.
func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Cancel handles DELETE /appointments/{id}.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.svc.CancelAppointment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.audit.Record(r.Context(), appt.OfficeID, middleware.GetClientID(r.Context()),
		security.ActionAppointmentCancel, map[string]interface{}{"appointmentId": id})
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}
