package message

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines storage operations for messages.
type Repository interface {
	// Create persists a new message.
	Create(ctx context.Context, m *Message) error

	// GetByID returns a message by ID.
	// Returns shared.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)

	// ListByOffering returns an offering's messages oldest-first.
	ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*Message, error)

	// Delete removes a message.
	Delete(ctx context.Context, id uuid.UUID) error
}
