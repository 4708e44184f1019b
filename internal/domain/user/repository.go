package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for users.
type Repository interface {
	// Create persists a new user.
	// Returns shared.ErrAlreadyExists if the email is taken.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by ID.
	// Returns shared.ErrNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail returns a user by email.
	// Returns shared.ErrNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, u *User) error
}

// ProfileRepository defines storage operations for user profiles.
type ProfileRepository interface {
	// Create persists a new profile.
	// Returns shared.ErrAlreadyExists if the user already has one.
	Create(ctx context.Context, p *Profile) error

	// GetByUserID returns the profile owned by the given user.
	// Returns shared.ErrNotFound if the user has no profile.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// Update persists changes to an existing profile.
	Update(ctx context.Context, p *Profile) error

	// Delete removes the profile.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsForUser reports whether the user already owns a profile.
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)
}
