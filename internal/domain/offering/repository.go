package offering

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// Repository defines storage operations for offerings.
type Repository interface {
	// Create persists a new offering.
	Create(ctx context.Context, o *Offering) error

	// GetByID returns an offering by ID.
	// Returns shared.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Offering, error)

	// Update persists changes to an existing offering.
	Update(ctx context.Context, o *Offering) error

	// Delete removes an offering.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns offerings newest-first.
	List(ctx context.Context, opts ListOptions) ([]*Offering, error)

	// ListByStatus returns offerings with the given status.
	ListByStatus(ctx context.Context, status Status, opts ListOptions) ([]*Offering, error)

	// ListByRequester returns offerings posted by the given student.
	ListByRequester(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]*Offering, error)

	// ListByTutor returns offerings accepted by the given tutor.
	ListByTutor(ctx context.Context, tutorID uuid.UUID, opts ListOptions) ([]*Offering, error)

	// FindCleanupCandidates returns terminal offerings whose last update is
	// older than the threshold and which still carry attachments. Consumed
	// by the file-cleanup collaborator.
	FindCleanupCandidates(ctx context.Context, updatedBefore time.Time) ([]*Offering, error)

	// MarkFilesCleaned nulls the attachments of an offering and records the
	// cleanup time. A cleaned offering keeps a non-null files_cleaned_at.
	MarkFilesCleaned(ctx context.Context, id uuid.UUID, cleanedAt time.Time) error
}
