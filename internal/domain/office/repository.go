package office

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repository persists offices.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates an office repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// Create inserts a new office.
func (r *Repository) Create(ctx context.Context, o *Office) error {
	query := `
		INSERT INTO offices
		(id, name, pms_type, pms_base_url, pms_token_url, pms_credentials, timezone, open_minutes, close_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		o.ID, o.Name, o.PMSType, o.PMSBaseURL, o.PMSTokenURL,
		o.SealedCredentials, o.Timezone, o.Hours.Open[:], o.Hours.Close[:],
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert office: %w", err)
	}
	return nil
}

// Get loads an office by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Office, error) {
	query := `
		SELECT id, name, pms_type, pms_base_url, pms_token_url, pms_credentials,
		       timezone, open_minutes, close_minutes, created_at, updated_at
		FROM offices
		WHERE id = $1
	`
	o := &Office{}
	var open, closeM []int
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Name, &o.PMSType, &o.PMSBaseURL, &o.PMSTokenURL,
		&o.SealedCredentials, &o.Timezone, &open, &closeM,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load office: %w", err)
	}
	copy(o.Hours.Open[:], open)
	copy(o.Hours.Close[:], closeM)
	return o, nil
}

// UpdateHours replaces an office's business hours.
func (r *Repository) UpdateHours(ctx context.Context, id uuid.UUID, h Hours) error {
	if err := h.Validate(); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE offices
		SET open_minutes = $1, close_minutes = $2, updated_at = NOW()
		WHERE id = $3
	`, h.Open[:], h.Close[:], id)
	if err != nil {
		return fmt.Errorf("update hours: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCredentials replaces the sealed credential blob.
func (r *Repository) UpdateCredentials(ctx context.Context, id uuid.UUID, sealed []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE offices SET pms_credentials = $1, updated_at = NOW() WHERE id = $2
	`, sealed, id)
	if err != nil {
		return fmt.Errorf("update credentials: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
