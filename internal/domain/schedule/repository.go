package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/infrastructure/postgres"
	"github.com/brightsmile/reception/internal/infrastructure/redpanda"
)

// Repository is the persistence contract for the scheduling domain.
type Repository interface {
	// InsertSlots inserts a batch of slots, re-checking the provider overlap
	// invariant inside the transaction.
	InsertSlots(ctx context.Context, slots []*Slot) error
	CountOverlappingSlots(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int, error)
	ListSlots(ctx context.Context, officeID uuid.UUID, providerID *uuid.UUID, from, to time.Time) ([]Slot, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)

	FindPatientByPhone(ctx context.Context, officeID uuid.UUID, phone string) (*Patient, error)
	CreatePatient(ctx context.Context, p *Patient) error

	// Book atomically flips the slot open->booked, inserts the appointment and
	// writes the appointment.booked outbox row. Returns ErrSlotNotOpen when
	// the conditional slot update matches no row.
	Book(ctx context.Context, appt *Appointment, patient *Patient) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// MarkSyncResult records the outcome of the best-effort PMS mirror. The
	// synced transition only applies while the row is still pending, so a
	// redelivered event is a no-op.
	MarkSyncResult(ctx context.Context, id uuid.UUID, status SyncStatus, pmsRef *string) error
}

var ErrPatientNotFound = errors.New("patient not found")

// PgRepository is the pgx implementation of Repository.
type PgRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgRepository creates a repository.
func NewPgRepository(pool *pgxpool.Pool, logger *zap.Logger) *PgRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PgRepository{pool: pool, logger: logger}
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	err := row.Scan(
		&s.ID, &s.OfficeID, &s.ProviderID, &s.LocationID,
		&s.StartsAt, &s.EndsAt, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.OfficeID, &a.SlotID, &a.PatientID, &a.ProviderID,
		&a.Service, &a.StartsAt, &a.EndsAt, &a.Status, &a.SyncStatus,
		&a.PMSRef, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

const slotColumns = `id, office_id, provider_id, location_id, starts_at, ends_at, status, created_at, updated_at`

const appointmentColumns = `id, office_id, slot_id, patient_id, provider_id, service, starts_at, ends_at, status, sync_status, pms_ref, created_at`

// InsertSlots inserts a slot batch. The overlap count runs inside the same
// transaction as the inserts so two concurrent generations for the same
// provider window cannot both pass validation.
func (r *PgRepository) InsertSlots(ctx context.Context, slots []*Slot) error {
	if len(slots) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	first, last := slots[0], slots[len(slots)-1]
	var overlapping int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM slots
		WHERE provider_id = $1 AND starts_at < $3 AND ends_at > $2
	`, first.ProviderID, first.StartsAt, last.EndsAt).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if overlapping > 0 {
		return ErrOverlappingSlots
	}

	for _, s := range slots {
		err := tx.QueryRow(ctx, `
			INSERT INTO slots (id, office_id, provider_id, location_id, starts_at, ends_at, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`, s.ID, s.OfficeID, s.ProviderID, s.LocationID, s.StartsAt, s.EndsAt, s.Status,
		).Scan(&s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"officeId":   first.OfficeID,
		"providerId": first.ProviderID,
		"from":       first.StartsAt,
		"to":         last.EndsAt,
		"count":      len(slots),
	})
	if err != nil {
		return fmt.Errorf("encode slot event: %w", err)
	}
	if err := postgres.WriteEntry(ctx, tx, &postgres.OutboxEntry{
		AggregateID:   first.ProviderID.String(),
		AggregateType: "slot_batch",
		EventType:     "slot.generated",
		Payload:       payload,
		Topic:         redpanda.TopicSlotGenerated,
		Key:           first.OfficeID.String(),
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PgRepository) CountOverlappingSlots(ctx context.Context, providerID uuid.UUID, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM slots
		WHERE provider_id = $1 AND starts_at < $3 AND ends_at > $2
	`, providerID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count overlapping slots: %w", err)
	}
	return n, nil
}

func (r *PgRepository) ListSlots(ctx context.Context, officeID uuid.UUID, providerID *uuid.UUID, from, to time.Time) ([]Slot, error) {
	query := `
		SELECT ` + slotColumns + ` FROM slots
		WHERE office_id = $1 AND starts_at >= $2 AND starts_at < $3
	`
	args := []interface{}{officeID, from, to}
	if providerID != nil {
		query += ` AND provider_id = $4`
		args = append(args, *providerID)
	}
	query += ` ORDER BY starts_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, *s)
	}
	return slots, rows.Err()
}

func (r *PgRepository) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return scanSlot(r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+` FROM slots WHERE id = $1
	`, id))
}

func (r *PgRepository) FindPatientByPhone(ctx context.Context, officeID uuid.UUID, phone string) (*Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id, office_id, external_ref, first_name, last_name, phone, email, created_at
		FROM patients
		WHERE office_id = $1 AND phone = $2
	`, officeID, phone).Scan(
		&p.ID, &p.OfficeID, &p.ExternalRef, &p.FirstName, &p.LastName,
		&p.Phone, &p.Email, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("find patient: %w", err)
	}
	return &p, nil
}

func (r *PgRepository) CreatePatient(ctx context.Context, p *Patient) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO patients (id, office_id, external_ref, first_name, last_name, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.OfficeID, p.ExternalRef, p.FirstName, p.LastName, p.Phone, p.Email,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

// Book runs the booking transaction. The conditional slot update is the
// concurrency backstop behind the Redis lock: if another booking won, zero
// rows match and the transaction rolls back.
func (r *PgRepository) Book(ctx context.Context, appt *Appointment, patient *Patient) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	slot, err := scanSlot(tx.QueryRow(ctx, `
		SELECT `+slotColumns+` FROM slots WHERE id = $1 FOR UPDATE
	`, appt.SlotID))
	if err != nil {
		return err
	}
	if slot.Status != SlotOpen {
		return ErrSlotNotOpen
	}

	tag, err := tx.Exec(ctx, `
		UPDATE slots SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, SlotBooked, appt.SlotID, SlotOpen)
	if err != nil {
		return fmt.Errorf("book slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotOpen
	}

	appt.StartsAt = slot.StartsAt
	appt.EndsAt = slot.EndsAt
	appt.Status = AppointmentConfirmed
	appt.SyncStatus = SyncPending

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments
		(id, office_id, slot_id, patient_id, provider_id, service, starts_at, ends_at, status, sync_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, appt.ID, appt.OfficeID, appt.SlotID, appt.PatientID, appt.ProviderID,
		appt.Service, appt.StartsAt, appt.EndsAt, appt.Status, appt.SyncStatus,
	).Scan(&appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	payload, err := json.Marshal(BookedEvent{
		AppointmentID:    appt.ID,
		OfficeID:         appt.OfficeID,
		SlotID:           appt.SlotID,
		PatientID:        appt.PatientID,
		ProviderID:       appt.ProviderID,
		Service:          appt.Service,
		StartsAt:         appt.StartsAt,
		EndsAt:           appt.EndsAt,
		PatientFirstName: patient.FirstName,
		PatientLastName:  patient.LastName,
		PatientPhone:     patient.Phone,
	})
	if err != nil {
		return fmt.Errorf("encode booked event: %w", err)
	}

	entry := &postgres.OutboxEntry{
		AggregateID:   appt.ID.String(),
		AggregateType: "appointment",
		EventType:     "appointment.booked",
		Payload:       payload,
		Topic:         redpanda.TopicAppointmentBooked,
		Key:           appt.OfficeID.String(),
	}
	if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1
	`, id))
}

// Cancel flips the appointment to cancelled and reopens its slot.
func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := scanAppointment(tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE
	`, id))
	if err != nil {
		return nil, err
	}
	if appt.Status == AppointmentCancelled {
		return nil, ErrAlreadyCancelled
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET status = $1 WHERE id = $2
	`, AppointmentCancelled, id); err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE slots SET status = $1, updated_at = NOW() WHERE id = $2
	`, SlotOpen, appt.SlotID); err != nil {
		return nil, fmt.Errorf("reopen slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	appt.Status = AppointmentCancelled
	return appt, nil
}

func (r *PgRepository) MarkSyncResult(ctx context.Context, id uuid.UUID, status SyncStatus, pmsRef *string) error {
	if status == SyncSynced {
		tag, err := r.pool.Exec(ctx, `
			UPDATE appointments SET sync_status = $1, pms_ref = $2
			WHERE id = $3 AND sync_status = $4
		`, status, pmsRef, id, SyncPending)
		if err != nil {
			return fmt.Errorf("mark sync result: %w", err)
		}
		if tag.RowsAffected() == 0 {
			r.logger.Debug("sync result already recorded", zap.String("appointment_id", id.String()))
		}
		return nil
	}
	if _, err := r.pool.Exec(ctx, `
		UPDATE appointments SET sync_status = $1 WHERE id = $2
	`, status, id); err != nil {
		return fmt.Errorf("mark sync result: %w", err)
	}
	return nil
}
