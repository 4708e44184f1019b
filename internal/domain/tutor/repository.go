package tutor

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for tutor profiles.
type Repository interface {
	// Create persists a new profile.
	// Returns shared.ErrAlreadyExists if the user already has one.
	Create(ctx context.Context, p *Profile) error

	// GetByID returns a profile by ID.
	// Returns shared.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// GetByUserID returns the profile owned by the given user.
	// Returns shared.ErrNotFound if the user has no profile.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)

	// Update persists changes to an existing profile.
	Update(ctx context.Context, p *Profile) error

	// Delete removes a profile.
	Delete(ctx context.Context, id uuid.UUID) error

	// ExistsForUser reports whether the user already owns a profile.
	ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error)

	// ListPending returns profiles waiting for admin review.
	ListPending(ctx context.Context) ([]*Profile, error)
}
