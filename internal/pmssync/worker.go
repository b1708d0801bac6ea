// Package pmssync mirrors locally confirmed bookings into each tenant's PMS.
// It consumes appointment.booked events and drives the vendor adapter; a PMS
// failure marks the appointment sync_status failed and never touches the
// local booking.
package pmssync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/infrastructure/redpanda"
	"github.com/brightsmile/reception/internal/observability/metrics"
	"github.com/brightsmile/reception/internal/pms"
	"github.com/brightsmile/reception/internal/pms/factory"
	"github.com/brightsmile/reception/internal/security"
	"github.com/brightsmile/reception/pkg/circuitbreaker"
	"github.com/brightsmile/reception/pkg/workerpool"
)

// SyncStore is the slice of the schedule repository the worker needs.
type SyncStore interface {
	MarkSyncResult(ctx context.Context, id uuid.UUID, status schedule.SyncStatus, pmsRef *string) error
}

// EventPublisher publishes relay events to the bus.
type EventPublisher interface {
	ProduceMessage(ctx context.Context, topic, key string, value []byte) error
}

// SyncedEvent is published on appointment.synced after a successful mirror.
type SyncedEvent struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	OfficeID      uuid.UUID `json:"officeId"`
	PMSRef        string    `json:"pmsRef"`
}

// Worker consumes booked events and syncs them through a bounded pool.
type Worker struct {
	resolver *factory.Resolver
	store    SyncStore
	producer EventPublisher
	audit    *security.AuditLog
	pool     *workerpool.Pool
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// Config sizes the sync pool.
type Config struct {
	Workers int
}

// NewWorker wires the sync worker.
func NewWorker(cfg Config, resolver *factory.Resolver, store SyncStore, producer EventPublisher, audit *security.AuditLog, m *metrics.Metrics, logger *zap.Logger) (*Worker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		resolver: resolver,
		store:    store,
		producer: producer,
		audit:    audit,
		metrics:  m,
		logger:   logger,
	}

	poolCfg := workerpool.DefaultConfig()
	if cfg.Workers > 0 {
		poolCfg.Workers = cfg.Workers
	}
	poolCfg.OnExhausted = w.onExhausted

	pool, err := workerpool.New(poolCfg, w.syncTask, logger)
	if err != nil {
		return nil, err
	}
	w.pool = pool
	return w, nil
}

// Start launches the pool.
func (w *Worker) Start() { w.pool.Start() }

// Stop drains the pool.
func (w *Worker) Stop() { w.pool.Stop() }

// Stats exposes pool counters for the relay's health endpoint.
func (w *Worker) Stats() workerpool.Stats { return w.pool.Stats() }

// HandleMessage is the consumer callback for appointment.booked. Decode
// failures are dropped (the payload will never become valid); everything else
// is queued for the pool.
func (w *Worker) HandleMessage(ctx context.Context, msg *redpanda.ConsumedMessage) error {
	var event schedule.BookedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Error("undecodable booked event dropped",
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return nil
	}
	return w.pool.Submit(ctx, &workerpool.Task{
		ID:      event.AppointmentID.String(),
		Payload: &event,
	})
}

// syncTask mirrors one booking. Permanent failures (unsupported vendor, stub
// adapter, bad credentials) are marked failed immediately; transient errors
// are returned so the pool retries.
func (w *Worker) syncTask(ctx context.Context, task *workerpool.Task) error {
	event := task.Payload.(*schedule.BookedEvent)

	adapter, o, err := w.resolver.AdapterFor(ctx, event.OfficeID)
	if err != nil {
		w.markFailed(ctx, event, err)
		return nil
	}

	patientID, err := w.ensurePMSPatient(ctx, adapter, event)
	if err != nil {
		return w.classify(ctx, event, err)
	}

	appt, err := adapter.BookAppointment(ctx, pms.BookingRequest{
		PatientID:  patientID,
		ProviderID: event.ProviderID.String(),
		Service:    event.Service,
		StartsAt:   event.StartsAt,
		EndsAt:     event.EndsAt,
	})
	if err != nil {
		return w.classify(ctx, event, err)
	}

	if err := w.store.MarkSyncResult(ctx, event.AppointmentID, schedule.SyncSynced, &appt.ID); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.PMSSyncSucceeded.Inc()
	}
	w.logger.Info("booking mirrored to PMS",
		zap.String("appointment_id", event.AppointmentID.String()),
		zap.String("vendor", string(o.PMSType)),
		zap.String("pms_ref", appt.ID))

	payload, err := json.Marshal(SyncedEvent{
		AppointmentID: event.AppointmentID,
		OfficeID:      event.OfficeID,
		PMSRef:        appt.ID,
	})
	if err != nil {
		return nil
	}
	if err := w.producer.ProduceMessage(ctx, redpanda.TopicAppointmentSynced, event.OfficeID.String(), payload); err != nil {
		// The mirror itself succeeded; losing the notification is acceptable.
		w.logger.Warn("synced event publish failed", zap.Error(err))
	}
	return nil
}

// ensurePMSPatient finds or creates the patient in the vendor system. The
// local patient record is authoritative for contact details.
func (w *Worker) ensurePMSPatient(ctx context.Context, adapter pms.Interface, event *schedule.BookedEvent) (string, error) {
	if event.PatientPhone == "" {
		return "", fmt.Errorf("booked event %s has no patient phone", event.AppointmentID)
	}

	p, err := adapter.SearchPatientByPhone(ctx, event.PatientPhone)
	if err == nil {
		return p.ID, nil
	}
	if !errors.Is(err, pms.ErrPatientNotFound) {
		return "", err
	}

	created, err := adapter.CreatePatient(ctx, &pms.Patient{
		FirstName: event.PatientFirstName,
		LastName:  event.PatientLastName,
		Phone:     event.PatientPhone,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// classify decides whether an adapter error is worth retrying.
func (w *Worker) classify(ctx context.Context, event *schedule.BookedEvent, err error) error {
	switch {
	case errors.Is(err, pms.ErrNotImplemented),
		errors.Is(err, pms.ErrUnsupportedPMS):
		w.markFailed(ctx, event, err)
		return nil
	case circuitbreaker.IsOpenErr(err):
		// The vendor endpoint is tripped; let the pool back off and retry.
		return err
	default:
		return err
	}
}

func (w *Worker) onExhausted(task *workerpool.Task, err error) {
	event, ok := task.Payload.(*schedule.BookedEvent)
	if !ok {
		return
	}
	w.markFailed(context.Background(), event, err)
}

func (w *Worker) markFailed(ctx context.Context, event *schedule.BookedEvent, cause error) {
	if err := w.store.MarkSyncResult(ctx, event.AppointmentID, schedule.SyncFailed, nil); err != nil {
		w.logger.Error("mark sync failed errored",
			zap.String("appointment_id", event.AppointmentID.String()),
			zap.Error(err))
	}
	if w.metrics != nil {
		w.metrics.PMSSyncFailed.Inc()
	}
	if w.audit != nil {
		w.audit.Record(ctx, event.OfficeID, "sync-relay", security.ActionPMSSyncFailed, map[string]string{
			"appointmentId": event.AppointmentID.String(),
			"error":         cause.Error(),
		})
	}
	w.logger.Warn("PMS sync failed, booking remains local",
		zap.String("appointment_id", event.AppointmentID.String()),
		zap.Error(cause))
}
