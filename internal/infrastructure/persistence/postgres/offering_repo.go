package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

const offeringColumns = `id, title, description, status, user_id, tutor_id, attachments,
	budget, deadline, files_cleaned_at, created_at, updated_at`

// OfferingRepository implements offering.Repository for PostgreSQL.
type OfferingRepository struct {
	conn *Connection
}

// NewOfferingRepository creates a new OfferingRepository.
func NewOfferingRepository(conn *Connection) *OfferingRepository {
	return &OfferingRepository{conn: conn}
}

// Create creates a new offering.
func (r *OfferingRepository) Create(ctx context.Context, o *offering.Offering) error {
	query := `
		INSERT INTO offerings (id, title, description, status, user_id, tutor_id, attachments,
			budget, deadline, files_cleaned_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	attachmentsJSON, err := marshalAttachments(o.Attachments)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		o.ID,
		o.Title,
		o.Description,
		string(o.Status),
		o.UserID,
		o.TutorID,
		attachmentsJSON,
		o.Budget,
		o.Deadline,
		o.FilesCleanedAt,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create offering: %w", err)
	}
	return nil
}

// GetByID returns an offering by ID.
func (r *OfferingRepository) GetByID(ctx context.Context, id uuid.UUID) (*offering.Offering, error) {
	query := fmt.Sprintf("SELECT %s FROM offerings WHERE id = $1", offeringColumns)
	return r.scanOffering(r.conn.QueryRow(ctx, query, id))
}

// Update updates an offering.
func (r *OfferingRepository) Update(ctx context.Context, o *offering.Offering) error {
	query := `
		UPDATE offerings SET
			title = $1,
			description = $2,
			status = $3,
			tutor_id = $4,
			attachments = $5,
			budget = $6,
			deadline = $7,
			files_cleaned_at = $8,
			updated_at = $9
		WHERE id = $10
	`

	attachmentsJSON, err := marshalAttachments(o.Attachments)
	if err != nil {
		return err
	}

	result, err := r.conn.Exec(ctx, query,
		o.Title,
		o.Description,
		string(o.Status),
		o.TutorID,
		attachmentsJSON,
		o.Budget,
		o.Deadline,
		o.FilesCleanedAt,
		o.UpdatedAt,
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update offering: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("offering", "Update", shared.ErrNotFound)
	}
	return nil
}

// Delete removes an offering.
func (r *OfferingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM offerings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete offering: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("offering", "Delete", shared.ErrNotFound)
	}
	return nil
}

// List returns offerings newest-first.
func (r *OfferingRepository) List(ctx context.Context, opts offering.ListOptions) ([]*offering.Offering, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM offerings
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, offeringColumns)

	return r.queryOfferings(ctx, query, opts.Limit, opts.Offset)
}

// ListByStatus returns offerings with the given status.
func (r *OfferingRepository) ListByStatus(ctx context.Context, status offering.Status, opts offering.ListOptions) ([]*offering.Offering, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM offerings
		WHERE status = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, offeringColumns)

	return r.queryOfferings(ctx, query, opts.Limit, opts.Offset, string(status))
}

// ListByRequester returns offerings posted by the given student.
func (r *OfferingRepository) ListByRequester(ctx context.Context, userID uuid.UUID, opts offering.ListOptions) ([]*offering.Offering, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM offerings
		WHERE user_id = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, offeringColumns)

	return r.queryOfferings(ctx, query, opts.Limit, opts.Offset, userID)
}

// ListByTutor returns offerings accepted by the given tutor.
func (r *OfferingRepository) ListByTutor(ctx context.Context, tutorID uuid.UUID, opts offering.ListOptions) ([]*offering.Offering, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM offerings
		WHERE tutor_id = $3
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, offeringColumns)

	return r.queryOfferings(ctx, query, opts.Limit, opts.Offset, tutorID)
}

// FindCleanupCandidates returns terminal offerings whose last update is older
// than the threshold and which still carry attachments.
func (r *OfferingRepository) FindCleanupCandidates(ctx context.Context, updatedBefore time.Time) ([]*offering.Offering, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM offerings
		WHERE status IN ('completed', 'cancelled')
		  AND attachments IS NOT NULL
		  AND updated_at < $1
		ORDER BY updated_at ASC
	`, offeringColumns)

	rows, err := r.conn.Query(ctx, query, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to find cleanup candidates: %w", err)
	}
	defer rows.Close()

	return r.scanOfferings(rows)
}

// MarkFilesCleaned nulls the attachments and records the cleanup time.
func (r *OfferingRepository) MarkFilesCleaned(ctx context.Context, id uuid.UUID, cleanedAt time.Time) error {
	query := `
		UPDATE offerings SET
			attachments = NULL,
			files_cleaned_at = $1
		WHERE id = $2
	`

	result, err := r.conn.Exec(ctx, query, cleanedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark files cleaned: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("offering", "MarkFilesCleaned", shared.ErrNotFound)
	}
	return nil
}

func (r *OfferingRepository) queryOfferings(ctx context.Context, query string, limit, offset int, args ...interface{}) ([]*offering.Offering, error) {
	allArgs := append([]interface{}{limit, offset}, args...)
	rows, err := r.conn.Query(ctx, query, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query offerings: %w", err)
	}
	defer rows.Close()

	return r.scanOfferings(rows)
}

func (r *OfferingRepository) scanOffering(row pgx.Row) (*offering.Offering, error) {
	var o offering.Offering
	var status string
	var attachmentsJSON []byte

	err := row.Scan(
		&o.ID,
		&o.Title,
		&o.Description,
		&status,
		&o.UserID,
		&o.TutorID,
		&attachmentsJSON,
		&o.Budget,
		&o.Deadline,
		&o.FilesCleanedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.WrapError("offering", "Get", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan offering: %w", err)
	}

	o.Status = offering.Status(status)
	o.Attachments, err = unmarshalAttachments(attachmentsJSON)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OfferingRepository) scanOfferings(rows pgx.Rows) ([]*offering.Offering, error) {
	var offerings []*offering.Offering

	for rows.Next() {
		var o offering.Offering
		var status string
		var attachmentsJSON []byte

		err := rows.Scan(
			&o.ID,
			&o.Title,
			&o.Description,
			&status,
			&o.UserID,
			&o.TutorID,
			&attachmentsJSON,
			&o.Budget,
			&o.Deadline,
			&o.FilesCleanedAt,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offering: %w", err)
		}

		o.Status = offering.Status(status)
		o.Attachments, err = unmarshalAttachments(attachmentsJSON)
		if err != nil {
			return nil, err
		}
		offerings = append(offerings, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return offerings, nil
}

// marshalAttachments serializes attachments for JSONB storage. An empty list
// stores as NULL so cleaned and empty offerings look the same to queries.
func marshalAttachments(attachments []offering.Attachment) ([]byte, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	return data, nil
}

func unmarshalAttachments(data []byte) ([]offering.Attachment, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var attachments []offering.Attachment
	if err := json.Unmarshal(data, &attachments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attachments: %w", err)
	}
	return attachments, nil
}
