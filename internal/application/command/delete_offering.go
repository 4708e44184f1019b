package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub/internal/domain/offering"
	"github.com/tutorhub/tutorhub/internal/domain/policy"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
	"github.com/tutorhub/tutorhub/internal/domain/user"
)

// DeleteOfferingCommand contains the data to remove an offering.
type DeleteOfferingCommand struct {
	ActorID    uuid.UUID
	OfferingID uuid.UUID
}

// Validate validates the command.
func (c DeleteOfferingCommand) Validate() error {
	if c.ActorID == uuid.Nil {
		return errors.New("delete_offering: actor_id is required")
	}
	if c.OfferingID == uuid.Nil {
		return errors.New("delete_offering: offering_id is required")
	}
	return nil
}

// DeleteOfferingHandler handles owner removal of an offering before a tutor
// is engaged.
type DeleteOfferingHandler struct {
	offerings offering.Repository
	users     user.Repository
	policies  policy.Set
	logger    *slog.Logger
}

// NewDeleteOfferingHandler creates the handler.
func NewDeleteOfferingHandler(
	offerings offering.Repository,
	users user.Repository,
	policies policy.Set,
	logger *slog.Logger,
) *DeleteOfferingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteOfferingHandler{
		offerings: offerings,
		users:     users,
		policies:  policies,
		logger:    logger.With("command", "delete_offering"),
	}
}

// Handle removes the offering. No event fires: the entity is gone, there is
// nothing to broadcast a fresh snapshot of.
func (h *DeleteOfferingHandler) Handle(ctx context.Context, cmd DeleteOfferingCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return fmt.Errorf("load actor: %w", err)
	}

	o, err := h.offerings.GetByID(ctx, cmd.OfferingID)
	if err != nil {
		return fmt.Errorf("load offering: %w", err)
	}

	if !h.policies.Offering.Delete(actor, o) {
		return shared.Denied("offering", "Delete")
	}

	if err := h.offerings.Delete(ctx, o.ID); err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}

	h.logger.Info("offering deleted", "offering_id", o.ID, "user_id", actor.ID)
	return nil
}
