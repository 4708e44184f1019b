package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, is_admin, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.IsAdmin,
		u.IsVerified,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("user", "Create", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, is_admin, is_verified, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	return r.scanUser(r.conn.QueryRow(ctx, query, id))
}

// GetByEmail returns a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, is_admin, is_verified, created_at, updated_at
		FROM users
		WHERE email = $1
	`

	return r.scanUser(r.conn.QueryRow(ctx, query, email))
}

// Update updates a user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users SET
			name = $1,
			email = $2,
			password_hash = $3,
			role = $4,
			is_admin = $5,
			is_verified = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.conn.Exec(ctx, query,
		u.Name,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.IsAdmin,
		u.IsVerified,
		time.Now().UTC(),
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("user", "Update", shared.ErrNotFound)
	}
	return nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsAdmin,
		&u.IsVerified,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.WrapError("user", "Get", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.Role = user.Role(role)
	return &u, nil
}

// ProfileRepository implements user.ProfileRepository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// Create creates a new user profile.
func (r *ProfileRepository) Create(ctx context.Context, p *user.Profile) error {
	query := `
		INSERT INTO user_profiles (id, user_id, bio, avatar_path, is_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.Bio,
		p.AvatarPath,
		p.IsVerified,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("user_profile", "Create", shared.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user profile: %w", err)
	}
	return nil
}

// GetByUserID returns the profile owned by the given user.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*user.Profile, error) {
	query := `
		SELECT id, user_id, bio, avatar_path, is_verified, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1
	`

	var p user.Profile
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.Bio,
		&p.AvatarPath,
		&p.IsVerified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.WrapError("user_profile", "GetByUserID", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user profile: %w", err)
	}
	return &p, nil
}

// Update updates a user profile.
func (r *ProfileRepository) Update(ctx context.Context, p *user.Profile) error {
	query := `
		UPDATE user_profiles SET
			bio = $1,
			avatar_path = $2,
			is_verified = $3,
			updated_at = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		p.Bio,
		p.AvatarPath,
		p.IsVerified,
		time.Now().UTC(),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("user_profile", "Update", shared.ErrNotFound)
	}
	return nil
}

// Delete removes a user profile.
func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM user_profiles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("user_profile", "Delete", shared.ErrNotFound)
	}
	return nil
}

// ExistsForUser reports whether the user already owns a profile.
func (r *ProfileRepository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM user_profiles WHERE user_id = $1)",
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user profile existence: %w", err)
	}
	return exists, nil
}
