package carestack

import (
	"time"

	"github.com/brightsmile/reception/internal/pms"
)

// Vendor payloads are snake_case; these types exist only to decode them before
// translation into the internal camelCase shapes.

type csPatient struct {
	PatientID    string `json:"patient_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MobileNumber string `json:"mobile_number"`
	EmailAddress string `json:"email_address"`
	DateOfBirth  string `json:"date_of_birth"`
	CreatedOn    string `json:"created_on"`
}

type csSlot struct {
	SlotID      string `json:"slot_id"`
	ProviderID  string `json:"provider_id"`
	OperatoryID string `json:"operatory_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

type csAppointment struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	ProviderID    string `json:"provider_id"`
	OperatoryID   string `json:"operatory_id"`
	ProcedureCode string `json:"procedure_code"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

type csProvider struct {
	ProviderID string `json:"provider_id"`
	FullName   string `json:"full_name"`
	Speciality string `json:"speciality"`
}

type csLocation struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
}

func parseVendorTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// CareStack sometimes omits the zone on slot times.
	t, _ := time.Parse("2006-01-02T15:04:05", s)
	return t
}

func toPatient(p csPatient) *pms.Patient {
	return &pms.Patient{
		ID:        p.PatientID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.MobileNumber,
		Email:     p.EmailAddress,
		BirthDate: p.DateOfBirth,
		CreatedAt: parseVendorTime(p.CreatedOn),
	}
}

func fromPatient(p *pms.Patient) csPatient {
	return csPatient{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		MobileNumber: p.Phone,
		EmailAddress: p.Email,
		DateOfBirth:  p.BirthDate,
	}
}

func toSlot(s csSlot) pms.Slot {
	return pms.Slot{
		ID:         s.SlotID,
		ProviderID: s.ProviderID,
		LocationID: s.OperatoryID,
		StartsAt:   parseVendorTime(s.StartTime),
		EndsAt:     parseVendorTime(s.EndTime),
	}
}

func toAppointment(a csAppointment) *pms.Appointment {
	return &pms.Appointment{
		ID:         a.AppointmentID,
		PatientID:  a.PatientID,
		ProviderID: a.ProviderID,
		LocationID: a.OperatoryID,
		Service:    a.ProcedureCode,
		StartsAt:   parseVendorTime(a.StartTime),
		EndsAt:     parseVendorTime(a.EndTime),
		Status:     a.Status,
	}
}

func fromBooking(req pms.BookingRequest) csAppointment {
	return csAppointment{
		PatientID:     req.PatientID,
		ProviderID:    req.ProviderID,
		OperatoryID:   req.LocationID,
		ProcedureCode: req.Service,
		StartTime:     req.StartsAt.Format(time.RFC3339),
		EndTime:       req.EndsAt.Format(time.RFC3339),
	}
}

func toProvider(p csProvider) pms.Provider {
	return pms.Provider{
		ID:        p.ProviderID,
		Name:      p.FullName,
		Specialty: p.Speciality,
	}
}

func toLocation(l csLocation) pms.Location {
	return pms.Location{
		ID:      l.LocationID,
		Name:    l.Name,
		Address: l.Address,
	}
}
