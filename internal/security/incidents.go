package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Severity grades an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IncidentStatus is the incident lifecycle state.
type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrInvalidSeverity  = errors.New("invalid severity")
)

// Incident is a recorded security event requiring follow-up, such as repeated
// auth failures against an office's API key or a PMS credential rejection.
type Incident struct {
	ID          uuid.UUID      `json:"id"`
	OfficeID    uuid.UUID      `json:"officeId"`
	Severity    Severity       `json:"severity"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	ResolvedAt  *time.Time     `json:"resolvedAt,omitempty"`
}

// ValidSeverity reports whether s is a known severity grade.
func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// IncidentStore persists incidents in security_incidents.
type IncidentStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewIncidentStore creates the store.
func NewIncidentStore(pool *pgxpool.Pool, logger *zap.Logger) *IncidentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentStore{pool: pool, logger: logger}
}

// Open records a new incident.
func (s *IncidentStore) Open(ctx context.Context, officeID uuid.UUID, severity Severity, category, description string) (*Incident, error) {
	if !ValidSeverity(severity) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, severity)
	}

	inc := &Incident{
		ID:          uuid.New(),
		OfficeID:    officeID,
		Severity:    severity,
		Category:    category,
		Description: description,
		Status:      IncidentOpen,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO security_incidents (id, office_id, severity, category, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, inc.ID, inc.OfficeID, inc.Severity, inc.Category, inc.Description, inc.Status,
	).Scan(&inc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert incident: %w", err)
	}

	s.logger.Warn("security incident opened",
		zap.String("incident_id", inc.ID.String()),
		zap.String("office_id", officeID.String()),
		zap.String("severity", string(severity)),
		zap.String("category", category),
	)
	return inc, nil
}

// Investigate moves an open incident into investigation.
func (s *IncidentStore) Investigate(ctx context.Context, id uuid.UUID) (*Incident, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE security_incidents
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING id, office_id, severity, category, description, status, created_at, resolved_at
	`, IncidentInvestigating, id, IncidentOpen)

	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIncidentNotFound
	}
	return inc, err
}

// Resolve marks an open or under-investigation incident resolved.
func (s *IncidentStore) Resolve(ctx context.Context, id uuid.UUID) (*Incident, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE security_incidents
		SET status = $1, resolved_at = NOW()
		WHERE id = $2 AND status <> $1
		RETURNING id, office_id, severity, category, description, status, created_at, resolved_at
	`, IncidentResolved, id)

	inc, err := scanIncident(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIncidentNotFound
	}
	return inc, err
}

// List returns incidents for an office, newest first, optionally filtered by
// status.
func (s *IncidentStore) List(ctx context.Context, officeID uuid.UUID, status *IncidentStatus) ([]Incident, error) {
	query := `
		SELECT id, office_id, severity, category, description, status, created_at, resolved_at
		FROM security_incidents
		WHERE office_id = $1
	`
	args := []interface{}{officeID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var incidents []Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

func scanIncident(row pgx.Row) (*Incident, error) {
	var inc Incident
	err := row.Scan(
		&inc.ID, &inc.OfficeID, &inc.Severity, &inc.Category,
		&inc.Description, &inc.Status, &inc.CreatedAt, &inc.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}
