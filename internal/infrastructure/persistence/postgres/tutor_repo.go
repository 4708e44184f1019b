package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/tutor"
)

const tutorProfileColumns = `id, user_id, expertise, bio, hourly_rate, schedule,
	verification_status, verification_note, is_verified, is_available, created_at, updated_at`

// TutorRepository implements tutor.Repository for PostgreSQL.
type TutorRepository struct {
	conn *Connection
}

// NewTutorRepository creates a new TutorRepository.
func NewTutorRepository(conn *Connection) *TutorRepository {
	return &TutorRepository{conn: conn}
}

// Create creates a new tutor profile.
func (r *TutorRepository) Create(ctx context.Context, p *tutor.Profile) error {
	query := `
		INSERT INTO tutor_profiles (id, user_id, expertise, bio, hourly_rate, schedule,
			verification_status, verification_note, is_verified, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Expertise,
		p.Bio,
		p.HourlyRate,
		p.Schedule,
		string(p.VerificationStatus),
		p.VerificationNote,
		p.IsVerified,
		p.IsAvailable,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("tutor_profile", "Create", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create tutor profile: %w", err)
	}
	return nil
}

// GetByID returns a tutor profile by ID.
func (r *TutorRepository) GetByID(ctx context.Context, id uuid.UUID) (*tutor.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM tutor_profiles WHERE id = $1", tutorProfileColumns)
	return r.scanProfile(r.conn.QueryRow(ctx, query, id))
}

// GetByUserID returns the profile owned by the given user.
func (r *TutorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*tutor.Profile, error) {
	query := fmt.Sprintf("SELECT %s FROM tutor_profiles WHERE user_id = $1", tutorProfileColumns)
	return r.scanProfile(r.conn.QueryRow(ctx, query, userID))
}

// Update updates a tutor profile.
func (r *TutorRepository) Update(ctx context.Context, p *tutor.Profile) error {
	query := `
		UPDATE tutor_profiles SET
			expertise = $1,
			bio = $2,
			hourly_rate = $3,
			schedule = $4,
			verification_status = $5,
			verification_note = $6,
			is_verified = $7,
			is_available = $8,
			updated_at = $9
		WHERE id = $10
	`

	result, err := r.conn.Exec(ctx, query,
		p.Expertise,
		p.Bio,
		p.HourlyRate,
		p.Schedule,
		string(p.VerificationStatus),
		p.VerificationNote,
		p.IsVerified,
		p.IsAvailable,
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tutor profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("tutor_profile", "Update", shared.ErrNotFound)
	}
	return nil
}

// Delete removes a tutor profile.
func (r *TutorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM tutor_profiles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete tutor profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("tutor_profile", "Delete", shared.ErrNotFound)
	}
	return nil
}

// ExistsForUser reports whether the user already owns a profile.
func (r *TutorRepository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM tutor_profiles WHERE user_id = $1)",
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tutor profile existence: %w", err)
	}
	return exists, nil
}

// ListPending returns profiles waiting for admin review, oldest-first.
func (r *TutorRepository) ListPending(ctx context.Context) ([]*tutor.Profile, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tutor_profiles
		WHERE verification_status = 'pending'
		ORDER BY created_at ASC
	`, tutorProfileColumns)

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending tutor profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*tutor.Profile
	for rows.Next() {
		p, err := r.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return profiles, nil
}

func (r *TutorRepository) scanProfile(row pgx.Row) (*tutor.Profile, error) {
	var p tutor.Profile
	var status string

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Expertise,
		&p.Bio,
		&p.HourlyRate,
		&p.Schedule,
		&status,
		&p.VerificationNote,
		&p.IsVerified,
		&p.IsAvailable,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.WrapError("tutor_profile", "Get", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tutor profile: %w", err)
	}

	p.VerificationStatus = tutor.VerificationStatus(status)
	return &p, nil
}
