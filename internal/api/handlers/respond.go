// Package handlers provides HTTP handlers for the reception API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/internal/security"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// domainStatus maps domain sentinel errors onto HTTP status codes. Unmapped
// errors are internal.
func domainStatus(err error) int {
	switch {
	case errors.Is(err, schedule.ErrEndBeforeStart),
		errors.Is(err, schedule.ErrOutsideClinicHours),
		errors.Is(err, schedule.ErrNoSlotsGenerated),
		errors.Is(err, office.ErrInvalidHours),
		errors.Is(err, security.ErrInvalidSeverity):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrOverlappingSlots),
		errors.Is(err, schedule.ErrSlotNotOpen),
		errors.Is(err, schedule.ErrAlreadyCancelled),
		errors.Is(err, schedule.ErrSlotBeingBooked):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrSlotNotFound),
		errors.Is(err, schedule.ErrAppointmentNotFound),
		errors.Is(err, office.ErrNotFound),
		errors.Is(err, security.ErrIncidentNotFound),
		errors.Is(err, pms.ErrPatientNotFound):
		return http.StatusNotFound
	case errors.Is(err, pms.ErrUnsupportedPMS):
		return http.StatusBadRequest
	case errors.Is(err, pms.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := domainStatus(err)
	if code == http.StatusInternalServerError {
		writeError(w, code, "internal server error")
		return
	}
	writeError(w, code, err.Error())
}
