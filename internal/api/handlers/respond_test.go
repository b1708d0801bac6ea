package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/pms"
)

func TestDomainStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{schedule.ErrEndBeforeStart, http.StatusBadRequest},
		{schedule.ErrOutsideClinicHours, http.StatusBadRequest},
		{schedule.ErrNoSlotsGenerated, http.StatusBadRequest},
		{schedule.ErrOverlappingSlots, http.StatusConflict},
		{schedule.ErrSlotNotOpen, http.StatusConflict},
		{schedule.ErrSlotBeingBooked, http.StatusConflict},
		{schedule.ErrSlotNotFound, http.StatusNotFound},
		{schedule.ErrAppointmentNotFound, http.StatusNotFound},
		{office.ErrNotFound, http.StatusNotFound},
		{pms.ErrUnsupportedPMS, http.StatusBadRequest},
		{pms.ErrNotImplemented, http.StatusNotImplemented},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, domainStatus(tt.err), tt.err.Error())
	}
}

func TestWriteDomainErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	writeDomainError(rec, schedule.ErrSlotBeingBooked)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry")
}
