// Package pms defines the common contract for practice management system
// adapters. Each supported vendor (CareStack, Dentrix, Eaglesoft) implements
// Interface; callers obtain an adapter through the Factory and never depend on
// vendor specifics.
package pms

import (
	"context"
	"errors"
	"time"
)

// Vendor identifies a practice management system.
type Vendor string

const (
	VendorCareStack Vendor = "carestack"
	VendorDentrix   Vendor = "dentrix"
	VendorEaglesoft Vendor = "eaglesoft"
)

var (
	// ErrUnsupportedPMS is returned by the factory for unknown vendors.
	ErrUnsupportedPMS = errors.New("unsupported PMS")
	// ErrNotImplemented is returned by placeholder adapters for every call.
	ErrNotImplemented = errors.New("PMS adapter not implemented")
	// ErrPatientNotFound is returned when a patient lookup matches nothing.
	ErrPatientNotFound = errors.New("patient not found in PMS")
)

// Patient is the internal representation of a PMS patient record.
type Patient struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	BirthDate string    `json:"birthDate,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Slot is a bookable interval reported by the PMS.
type Slot struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"providerId"`
	LocationID string    `json:"locationId,omitempty"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
}

// Appointment is a confirmed booking in the PMS.
type Appointment struct {
	ID         string    `json:"id"`
	PatientID  string    `json:"patientId"`
	ProviderID string    `json:"providerId"`
	LocationID string    `json:"locationId,omitempty"`
	Service    string    `json:"service"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
	Status     string    `json:"status"`
}

// Provider is a clinician record in the PMS.
type Provider struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

// Location is a practice location record in the PMS.
type Location struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// SlotQuery selects available slots in the PMS.
type SlotQuery struct {
	ProviderID string
	LocationID string
	From       time.Time
	To         time.Time
}

// BookingRequest asks the PMS to create an appointment.
type BookingRequest struct {
	PatientID  string
	ProviderID string
	LocationID string
	Service    string
	StartsAt   time.Time
	EndsAt     time.Time
}

// Interface is the contract every vendor adapter implements.
type Interface interface {
	// Name returns the vendor identifier.
	Name() Vendor

	SearchPatientByPhone(ctx context.Context, phone string) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) (*Patient, error)
	GetAvailableSlots(ctx context.Context, q SlotQuery) ([]Slot, error)
	BookAppointment(ctx context.Context, req BookingRequest) (*Appointment, error)
	ListProviders(ctx context.Context) ([]Provider, error)
	ListLocations(ctx context.Context) ([]Location, error)

	// Ping verifies connectivity and credentials without mutating anything.
	Ping(ctx context.Context) error
}

// Credentials holds decrypted vendor credentials for one office.
type Credentials struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	APIKey       string `json:"apiKey,omitempty"`
}
