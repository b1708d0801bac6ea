// Package schedule implements the scheduling domain: slot generation against
// business-hours constraints, overlap validation, and the booking flow with
// best-effort PMS sync.
package schedule

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SlotStatus is the lifecycle state of a bookable slot.
type SlotStatus string

const (
	SlotOpen   SlotStatus = "open"
	SlotHeld   SlotStatus = "held"
	SlotBooked SlotStatus = "booked"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// SyncStatus tracks whether a booking reached the external PMS. Booking
// succeeds locally regardless; sync is eventual and best-effort.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncFailed  SyncStatus = "failed"
)

var (
	ErrEndBeforeStart      = errors.New("end time must be after start time")
	ErrOutsideClinicHours  = errors.New("requested window is outside clinic hours")
	ErrOverlappingSlots    = errors.New("overlapping slots already exist for this provider")
	ErrNoSlotsGenerated    = errors.New("no slots could be generated")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotNotOpen         = errors.New("slot is not open")
	ErrSlotBeingBooked     = errors.New("slot is currently being booked, please retry")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
)

// Slot is a discrete bookable interval for a provider. For any provider no
// two slots overlap in [StartsAt, EndsAt).
type Slot struct {
	ID         uuid.UUID
	OfficeID   uuid.UUID
	ProviderID uuid.UUID
	LocationID *uuid.UUID
	StartsAt   time.Time
	EndsAt     time.Time
	Status     SlotStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Patient is a local patient record, keyed by office + phone.
type Patient struct {
	ID          uuid.UUID
	OfficeID    uuid.UUID
	ExternalRef *string
	FirstName   string
	LastName    string
	Phone       string
	Email       *string
	CreatedAt   time.Time
}

// Appointment is a confirmed booking. Immutable once created except for
// cancellation and the sync fields.
type Appointment struct {
	ID         uuid.UUID
	OfficeID   uuid.UUID
	SlotID     uuid.UUID
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Service    string
	StartsAt   time.Time
	EndsAt     time.Time
	Status     AppointmentStatus
	SyncStatus SyncStatus
	PMSRef     *string
	CreatedAt  time.Time
}

// BookedEvent is the payload published on appointment.booked; the sync relay
// consumes it to mirror the booking into the tenant's PMS.
type BookedEvent struct {
	AppointmentID    uuid.UUID `json:"appointmentId"`
	OfficeID         uuid.UUID `json:"officeId"`
	SlotID           uuid.UUID `json:"slotId"`
	PatientID        uuid.UUID `json:"patientId"`
	ProviderID       uuid.UUID `json:"providerId"`
	Service          string    `json:"service"`
	StartsAt         time.Time `json:"startsAt"`
	EndsAt           time.Time `json:"endsAt"`
	PatientFirstName string    `json:"patientFirstName"`
	PatientLastName  string    `json:"patientLastName"`
	PatientPhone     string    `json:"patientPhone"`
}
