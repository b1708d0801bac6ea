package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/infrastructure/redislock"
	"github.com/brightsmile/reception/internal/observability/metrics"
)

// OfficeStore is the slice of the office repository the scheduler needs.
type OfficeStore interface {
	Get(ctx context.Context, id uuid.UUID) (*office.Office, error)
}

// Service coordinates slot generation and booking.
type Service struct {
	repo    Repository
	offices OfficeStore
	locker  redislock.Locker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates the scheduling service.
func NewService(repo Repository, offices OfficeStore, locker redislock.Locker, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, offices: offices, locker: locker, metrics: m, logger: logger}
}

// GenerateSlotsInput describes one provider-day generation window. Minutes are
// offsets from midnight in the office's timezone.
type GenerateSlotsInput struct {
	OfficeID    uuid.UUID
	ProviderID  uuid.UUID
	LocationID  *uuid.UUID
	Day         time.Time
	StartMinute int
	EndMinute   int
	Duration    time.Duration
}

// GenerateSlots validates the window against the office's business hours and
// creates as many whole-duration slots as fit. Validation is ordered: a
// reversed window is reported before an after-hours one, which is reported
// before an overlap conflict.
func (s *Service) GenerateSlots(ctx context.Context, in GenerateSlotsInput) ([]Slot, error) {
	if in.StartMinute >= in.EndMinute {
		return nil, ErrEndBeforeStart
	}

	o, err := s.offices.Get(ctx, in.OfficeID)
	if err != nil {
		return nil, err
	}

	// Day names a calendar date. Rebuild it at midnight in the office's
	// timezone instead of converting the parsed instant, which would land on
	// the previous day for offices behind UTC.
	loc := time.UTC
	if l, err := time.LoadLocation(o.Timezone); err == nil {
		loc = l
	}
	day := time.Date(in.Day.Year(), in.Day.Month(), in.Day.Day(), 0, 0, 0, 0, loc)

	if !o.Hours.IsOpen(day.Weekday(), in.StartMinute, in.EndMinute) {
		return nil, ErrOutsideClinicHours
	}

	windowStart := day.Add(time.Duration(in.StartMinute) * time.Minute)
	windowEnd := day.Add(time.Duration(in.EndMinute) * time.Minute)

	overlapping, err := s.repo.CountOverlappingSlots(ctx, in.ProviderID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, ErrOverlappingSlots
	}

	grid := Grid(day, in.StartMinute, in.EndMinute, in.Duration)
	if len(grid) == 0 {
		return nil, ErrNoSlotsGenerated
	}

	slots := make([]*Slot, 0, len(grid))
	for _, iv := range grid {
		slots = append(slots, &Slot{
			ID:         uuid.New(),
			OfficeID:   in.OfficeID,
			ProviderID: in.ProviderID,
			LocationID: in.LocationID,
			StartsAt:   iv.Start,
			EndsAt:     iv.End,
			Status:     SlotOpen,
		})
	}

	if err := s.repo.InsertSlots(ctx, slots); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SlotsGenerated.Add(float64(len(slots)))
	}
	s.logger.Info("slots generated",
		zap.String("office_id", in.OfficeID.String()),
		zap.String("provider_id", in.ProviderID.String()),
		zap.Int("count", len(slots)),
	)

	out := make([]Slot, len(slots))
	for i, sl := range slots {
		out[i] = *sl
	}
	return out, nil
}

// BookInput is a booking request from a caller or the voice agent.
type BookInput struct {
	OfficeID  uuid.UUID
	SlotID    uuid.UUID
	Service   string
	FirstName string
	LastName  string
	Phone     string
	Email     *string
}

// BookAppointment books a slot for the patient, creating the patient record on
// first contact. The booking succeeds once the local transaction commits; the
// PMS mirror happens asynchronously off the outbox.
func (s *Service) BookAppointment(ctx context.Context, in BookInput) (*Appointment, error) {
	start := time.Now()

	patient, err := s.repo.FindPatientByPhone(ctx, in.OfficeID, in.Phone)
	if errors.Is(err, ErrPatientNotFound) {
		patient = &Patient{
			ID:        uuid.New(),
			OfficeID:  in.OfficeID,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			Phone:     in.Phone,
			Email:     in.Email,
		}
		err = s.repo.CreatePatient(ctx, patient)
	}
	if err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlot(ctx, in.SlotID)
	if err != nil {
		return nil, err
	}
	if slot.Status != SlotOpen {
		s.countFailure()
		return nil, ErrSlotNotOpen
	}

	appt := &Appointment{
		ID:         uuid.New(),
		OfficeID:   in.OfficeID,
		SlotID:     in.SlotID,
		PatientID:  patient.ID,
		ProviderID: slot.ProviderID,
		Service:    in.Service,
	}

	err = s.locker.WithSlotLock(ctx, in.SlotID, func(ctx context.Context) error {
		return s.repo.Book(ctx, appt, patient)
	})
	if errors.Is(err, redislock.ErrLockNotAcquired) {
		s.countFailure()
		return nil, ErrSlotBeingBooked
	}
	if err != nil {
		s.countFailure()
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
		s.metrics.BookingDuration.Observe(time.Since(start).Seconds())
	}
	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID.String()),
		zap.String("slot_id", in.SlotID.String()),
		zap.String("office_id", in.OfficeID.String()),
	)
	return appt, nil
}

// CancelAppointment cancels a confirmed appointment and reopens its slot.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("appointment cancelled", zap.String("appointment_id", id.String()))
	return appt, nil
}

// ListSlots returns slots for an office inside [from, to), optionally narrowed
// to one provider.
func (s *Service) ListSlots(ctx context.Context, officeID uuid.UUID, providerID *uuid.UUID, from, to time.Time) ([]Slot, error) {
	if !to.After(from) {
		return nil, ErrEndBeforeStart
	}
	return s.repo.ListSlots(ctx, officeID, providerID, from, to)
}

// GetAppointment loads one appointment.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

func (s *Service) countFailure() {
	if s.metrics != nil {
		s.metrics.AppointmentsFailed.Inc()
	}
}
