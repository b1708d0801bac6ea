// Package security records audit trail entries and tracks security incidents
// raised against tenant offices.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/infrastructure/postgres"
	"github.com/brightsmile/reception/internal/infrastructure/redpanda"
)

// Audit actions written by the services.
const (
	ActionSlotGenerated      = "slot.generated"
	ActionAppointmentBooked  = "appointment.booked"
	ActionAppointmentCancel  = "appointment.cancelled"
	ActionPMSSyncFailed      = "pms.sync_failed"
	ActionPMSCredentialsSet  = "pms.credentials_updated"
	ActionVoiceSessionMinted = "voice.session_minted"
)

// AuditEntry is one immutable audit trail row.
type AuditEntry struct {
	ID        uuid.UUID       `json:"id"`
	OfficeID  uuid.UUID       `json:"officeId"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AuditLog appends entries to security_audit_log. Writes are best-effort from
// the caller's perspective; a failed audit write never fails the operation.
type AuditLog struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewAuditLog creates the audit writer.
func NewAuditLog(pool *pgxpool.Pool, logger *zap.Logger) *AuditLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLog{pool: pool, logger: logger}
}

// Record appends one entry and queues it for the audit.trail topic in the
// same transaction, so the published trail matches the stored one. Errors are
// logged, not returned.
func (l *AuditLog) Record(ctx context.Context, officeID uuid.UUID, actor, action string, detail interface{}) {
	var raw json.RawMessage
	if detail != nil {
		b, err := json.Marshal(detail)
		if err != nil {
			l.logger.Warn("audit detail not serializable", zap.String("action", action), zap.Error(err))
		} else {
			raw = b
		}
	}

	entry := &AuditEntry{
		ID:       uuid.New(),
		OfficeID: officeID,
		Actor:    actor,
		Action:   action,
		Detail:   raw,
	}

	err := l.write(ctx, entry)
	if err != nil {
		l.logger.Error("audit write failed",
			zap.String("action", action),
			zap.String("office_id", officeID.String()),
			zap.Error(err),
		)
	}
}

func (l *AuditLog) write(ctx context.Context, entry *AuditEntry) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO security_audit_log (id, office_id, actor, action, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.ID, entry.OfficeID, entry.Actor, entry.Action, entry.Detail)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	ob, err := outboxEntryFor(entry)
	if err != nil {
		return err
	}
	if err := postgres.WriteEntry(ctx, tx, ob); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// outboxEntryFor builds the audit.trail event for one entry.
func outboxEntryFor(entry *AuditEntry) (*postgres.OutboxEntry, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode audit event: %w", err)
	}
	return &postgres.OutboxEntry{
		AggregateID:   entry.ID.String(),
		AggregateType: "audit_entry",
		EventType:     entry.Action,
		Payload:       payload,
		Topic:         redpanda.TopicAuditTrail,
		Key:           entry.OfficeID.String(),
	}, nil
}

// List returns the most recent entries for an office.
func (l *AuditLog) List(ctx context.Context, officeID uuid.UUID, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, office_id, actor, action, detail, created_at
		FROM security_audit_log
		WHERE office_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, officeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.OfficeID, &e.Actor, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
